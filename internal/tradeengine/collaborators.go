package tradeengine

import (
	"context"
	"time"
)

// TradeOfferClient is the HTTP-facing collaborator contract: listing
// active offers and posting accept/decline decisions.
type TradeOfferClient interface {
	GetActiveTradeOffers(ctx context.Context) ([]TradeOffer, error)
	AcceptTradeOffer(ctx context.Context, tradeOfferID uint64) (ok bool, needsMobileConfirm bool, err error)
	DeclineTradeOffer(ctx context.Context, tradeOfferID uint64) (bool, error)
}

// InventoryFetcher fetches a steam-style account's inventory, filterable
// before the terminal collect so callers can restrict it to relevant
// SetKeys.
type InventoryFetcher interface {
	GetInventory(ctx context.Context, steamID uint64, filter func(Item) bool) ([]Item, error)
}

// TradeHoldQuerier reports the platform-imposed trade-hold delay for a
// counterparty, in days. ok is false when the duration could not be
// determined (transient failure).
type TradeHoldQuerier interface {
	GetTradeHoldDuration(ctx context.Context, otherSteamID64 uint64, tradeOfferID uint64) (days uint8, ok bool, err error)
}

// ConfirmationKind distinguishes what a mobile confirmation batch is for.
type ConfirmationKind int

const (
	ConfirmationKindTrade ConfirmationKind = iota
	ConfirmationKindMarketListing
)

// TwoFactorConfirmer drives the mobile-authenticator confirmation flow.
type TwoFactorConfirmer interface {
	HandleTwoFactorAuthenticationConfirmations(ctx context.Context, accept bool, kind ConfirmationKind, ids []uint64, waitIfNecessary bool) (success bool, err error)
}

// PermissionSource answers the identity questions the decision cascade
// needs about a counterparty.
type PermissionSource interface {
	IsMaster(ctx context.Context, botAccountID, counterpartySteamID64 uint64) (bool, error)
	IsBlacklisted(ctx context.Context, botAccountID, counterpartySteamID64 uint64) (bool, error)
	IsOwnBot(ctx context.Context, botAccountID, counterpartySteamID64 uint64) (bool, error)
}

// TradingLock is the external per-account lock owned by the surrounding
// Actions subsystem; the scheduler must hold it for the duration of a
// parsing pass so no other subsystem mutates the account's trading state
// concurrently.
type TradingLock interface {
	Lock(ctx context.Context, botAccountID uint64) (unlock func(), err error)
}

// PluginBus is the out-bound notification contract: OnBotTradeOffer can
// override a pre-accept decision; OnBotTradeOfferResults observes the
// final batch.
type PluginBus interface {
	OnBotTradeOffer(botAccountID uint64, offer TradeOffer) bool
	OnBotTradeOfferResults(botAccountID uint64, results []ParseTradeResult)
}

// Config holds one bot account's trading policy flags and type sets.
type Config struct {
	AcceptDonations       bool
	DontAcceptBotTrades   bool
	SteamTradeMatcher     bool
	MatchEverything       bool
	RejectInvalidTrades   bool
	SendOnFarmingFinished bool
	MatchableTypes        map[ItemType]struct{}
	LootableTypes         map[ItemType]struct{}
	MaxTradeHoldDuration  uint8
	// ShortLivedSaleGames lists realAppIds of games whose trading cards
	// lose value quickly, so any nonzero hold on them is disqualifying.
	ShortLivedSaleGames map[uint32]struct{}
}

func (c Config) allowsType(t ItemType) bool {
	if len(c.MatchableTypes) == 0 {
		return true
	}
	_, ok := c.MatchableTypes[t]
	return ok
}

func (c Config) isLootable(t ItemType) bool {
	_, ok := c.LootableTypes[t]
	return ok
}

// MaxItemsPerTrade and MaxTradesPerAccount are platform-imposed limits the
// core relies on only for capacity planning; they are never enforced
// locally because the counterparty already enforces them.
const (
	MaxItemsPerTrade    = 255
	MaxTradesPerAccount = 5
)

// defaultCollaboratorTimeout bounds any single external call the policy
// makes, so a hung dependency degrades to TryAgain rather than blocking a
// pass indefinitely. The pipeline's accept/decline calls run under the
// pass's own context, without this bound.
const defaultCollaboratorTimeout = 30 * time.Second
