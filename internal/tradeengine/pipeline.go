package tradeengine

import (
	"context"
	"log"
)

// OfferPipeline evaluates one offer at a time: dedup against
// HandledOfferSet, decide, optionally let a plugin override the decision,
// perform the accept/decline side effect, and produce the final
// ParseTradeResult.
type OfferPipeline struct {
	BotAccountID uint64
	Handled      *HandledOfferSet
	Policy       *DecisionPolicy
	Client       TradeOfferClient
	Plugins      PluginBus
	RejectInvalid bool
}

// ParseTrade runs the full per-offer decision and side-effect sequence. The
// returned bool is needsMobileConfirm, valid only when result is Accepted.
func (p *OfferPipeline) ParseTrade(ctx context.Context, offer TradeOffer) (*ParseTradeResult, bool) {
	if offer.State != TradeOfferStateActive {
		log.Printf("tradeengine: offer %d is not active, skipping", offer.TradeOfferID)
		return nil, false
	}

	if !p.Handled.Add(offer.TradeOfferID) {
		result, _ := NewParseTradeResult(offer.TradeOfferID, ResultIgnored, nil)
		return &result, false
	}

	preUpgrade, err := p.Policy.ShouldAcceptTrade(ctx, offer)
	if err != nil {
		log.Printf("tradeengine: offer %d decision error: %v", offer.TradeOfferID, err)
	}
	result := preUpgrade

	// The plugin hook may upgrade an Ignored or Rejected decision to
	// Accepted. The pre-upgrade result is kept for logging even though
	// only the post-upgrade result drives the side effect below.
	if result == ResultIgnored || result == ResultRejected {
		if p.Plugins != nil && p.Plugins.OnBotTradeOffer(p.BotAccountID, offer) {
			result = ResultAccepted
		}
	}
	if preUpgrade != result {
		log.Printf("tradeengine: offer %d upgraded %s -> %s by plugin hook", offer.TradeOfferID, preUpgrade, result)
	}

	needsMobileConfirm := false
	switch result {
	case ResultAccepted:
		ok, mobileConfirm, err := p.Client.AcceptTradeOffer(ctx, offer.TradeOfferID)
		if err != nil || !ok {
			result = ResultTryAgain
		} else {
			needsMobileConfirm = mobileConfirm
		}
	case ResultBlacklisted:
		if ok, err := p.Client.DeclineTradeOffer(ctx, offer.TradeOfferID); err != nil || !ok {
			result = ResultTryAgain
		}
	case ResultRejected:
		if p.RejectInvalid {
			if ok, err := p.Client.DeclineTradeOffer(ctx, offer.TradeOfferID); err != nil || !ok {
				result = ResultTryAgain
			}
		}
	case ResultIgnored:
		// no side effect
	case ResultTryAgain:
		// no side effect; evicted from HandledOfferSet below
	default:
		log.Printf("tradeengine: offer %d produced unknown result, dropping", offer.TradeOfferID)
		p.Handled.Remove(offer.TradeOfferID)
		return nil, false
	}

	// TryAgain must evict the offer from HandledOfferSet regardless of
	// which branch produced it, so a later pass can retry it. The result
	// itself is still returned like any other decision.
	if result == ResultTryAgain {
		p.Handled.Remove(offer.TradeOfferID)
	}

	if result == ResultAccepted {
		receivedTotal, givenTotal := sumAmounts(offer.ItemsToReceive), sumAmounts(offer.ItemsToGive)
		if receivedTotal > givenTotal {
			log.Printf("tradeengine: offer %d accepted as a donation (received %d > given %d)", offer.TradeOfferID, receivedTotal, givenTotal)
		}
	}

	finalResult, err := NewParseTradeResult(offer.TradeOfferID, result, receivedTypes(offer.ItemsToReceive))
	if err != nil {
		log.Printf("tradeengine: offer %d could not build result: %v", offer.TradeOfferID, err)
		return nil, false
	}
	return &finalResult, needsMobileConfirm
}

func receivedTypes(items []Item) map[ItemType]struct{} {
	types := make(map[ItemType]struct{})
	for _, it := range items {
		types[it.Type] = struct{}{}
	}
	return types
}

func sumAmounts(items []Item) uint64 {
	var total uint64
	for _, it := range items {
		total += uint64(it.Amount)
	}
	return total
}
