package tradeengine

import "context"

// DecisionPolicy applies the ordered accept/reject cascade. Cheap, local
// checks (permissions, flags, counts) run before any network call; the two
// evaluators are consulted last, and only when the offer passed every
// earlier gate.
type DecisionPolicy struct {
	BotAccountID uint64
	// SelfSteamID64 is the account's own Steam identity, used to fetch its
	// inventory; BotAccountID is the internal identifier permission lookups
	// and audit records key on and may differ from it.
	SelfSteamID64 uint64
	Config        Config
	Permissions   PermissionSource
	HoldQuerier   TradeHoldQuerier
	Inventory     InventoryFetcher
}

// withCollaboratorTimeout bounds a single external collaborator call so a
// hung dependency degrades one offer to TryAgain instead of blocking the
// whole pass.
func withCollaboratorTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultCollaboratorTimeout)
}

// ShouldAcceptTrade runs the cascade and returns the first matching result.
func (p *DecisionPolicy) ShouldAcceptTrade(ctx context.Context, offer TradeOffer) (Result, error) {
	// 1. Master counterparties are trusted unconditionally.
	permCtx, cancel := withCollaboratorTimeout(ctx)
	isMaster, err := p.Permissions.IsMaster(permCtx, p.BotAccountID, offer.OtherSteamID64)
	cancel()
	if err != nil {
		return ResultTryAgain, nil
	}
	if isMaster {
		return ResultAccepted, nil
	}

	// 2. Blacklisted counterparties never get a trade.
	permCtx, cancel = withCollaboratorTimeout(ctx)
	blacklisted, err := p.Permissions.IsBlacklisted(permCtx, p.BotAccountID, offer.OtherSteamID64)
	cancel()
	if err != nil {
		return ResultTryAgain, nil
	}
	if blacklisted {
		return ResultBlacklisted, nil
	}

	// 3. Nothing on either side: malformed or transient, worth retrying.
	if len(offer.ItemsToGive) == 0 && len(offer.ItemsToReceive) == 0 {
		return ResultTryAgain, nil
	}

	// 4. Donation: nothing on our side to give.
	if len(offer.ItemsToGive) == 0 {
		permCtx, cancel = withCollaboratorTimeout(ctx)
		isBotTrade, err := p.Permissions.IsOwnBot(permCtx, p.BotAccountID, offer.OtherSteamID64)
		cancel()
		if err != nil {
			return ResultTryAgain, nil
		}
		acceptDonations := p.Config.AcceptDonations
		acceptBotTrades := !p.Config.DontAcceptBotTrades

		switch {
		case acceptDonations && acceptBotTrades:
			return ResultAccepted, nil
		case !acceptDonations && !acceptBotTrades:
			return ResultRejected, nil
		case (acceptDonations && !isBotTrade) || (acceptBotTrades && isBotTrade):
			return ResultAccepted, nil
		default:
			return ResultRejected, nil
		}
	}

	// 5. Two-sided matching is disabled entirely.
	if !p.Config.SteamTradeMatcher {
		return ResultRejected, nil
	}

	// 6. We would be giving away more items than we receive, count-wise.
	if len(offer.ItemsToGive) > len(offer.ItemsToReceive) {
		return ResultRejected, nil
	}

	// 7. Disallowed item types, or the raw counts aren't fair.
	for _, it := range offer.ItemsToGive {
		if !p.Config.allowsType(it.Type) {
			return ResultRejected, nil
		}
	}
	for _, it := range offer.ItemsToReceive {
		if !p.Config.allowsType(it.Type) {
			return ResultRejected, nil
		}
	}
	fair, err := IsFairExchange(offer.ItemsToGive, offer.ItemsToReceive)
	if err != nil {
		return ResultRejected, nil
	}
	if !fair {
		return ResultRejected, nil
	}

	// 8. Trade-hold duration.
	holdCtx, holdCancel := withCollaboratorTimeout(ctx)
	holdDays, ok, err := p.HoldQuerier.GetTradeHoldDuration(holdCtx, offer.OtherSteamID64, offer.TradeOfferID)
	holdCancel()
	if err != nil || !ok {
		return ResultTryAgain, nil
	}
	if holdDays > p.Config.MaxTradeHoldDuration {
		return ResultRejected, nil
	}
	if holdDays > 0 && givesShortLivedSaleCard(offer.ItemsToGive, p.Config) {
		return ResultRejected, nil
	}

	// 9. MatchEverything skips the set-progress check entirely.
	if p.Config.MatchEverything {
		return ResultAccepted, nil
	}

	// 10. Fetch our own inventory restricted to the SetKeys we'd be
	// giving away, to evaluate set-completion progress against.
	wanted := wantedSetKeys(offer.ItemsToGive)
	invCtx, invCancel := withCollaboratorTimeout(ctx)
	inventory, err := p.Inventory.GetInventory(invCtx, p.SelfSteamID64, func(it Item) bool {
		_, relevant := wanted[SetKeyOf(it)]
		return relevant
	})
	invCancel()
	if err != nil || len(inventory) == 0 {
		return ResultTryAgain, nil
	}

	// 11. The algorithmic core: does this leave us no worse off?
	give := copyAll(offer.ItemsToGive)
	receive := copyAll(offer.ItemsToReceive)
	better, err := IsTradeNeutralOrBetter(inventory, give, receive)
	if err != nil {
		return ResultRejected, nil
	}
	if better {
		return ResultAccepted, nil
	}
	return ResultRejected, nil
}

func givesShortLivedSaleCard(give []Item, cfg Config) bool {
	for _, it := range give {
		if it.Type != ItemTypeTradingCard {
			continue
		}
		if _, short := cfg.ShortLivedSaleGames[it.RealAppID]; short {
			return true
		}
	}
	return false
}

func wantedSetKeys(items []Item) map[SetKey]struct{} {
	keys := make(map[SetKey]struct{}, len(items))
	for _, it := range items {
		keys[SetKeyOf(it)] = struct{}{}
	}
	return keys
}

func copyAll(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Copy()
	}
	return out
}
