// Package plugin implements the out-bound notification hooks:
// OnBotTradeOffer (which can override a pending decision) and
// OnBotTradeOfferResults (which observes a finished batch). Subscribers
// live in the same binary, so this is plain in-process fan-out.
package plugin

import (
	"sync"

	"tradeengine/internal/tradeengine"
)

// OfferOverrideFunc may upgrade an Ignored/Rejected decision to Accepted by
// returning true.
type OfferOverrideFunc func(botAccountID uint64, offer tradeengine.TradeOffer) bool

// ResultsObserverFunc is notified with the valid results of a finished
// pass.
type ResultsObserverFunc func(botAccountID uint64, results []tradeengine.ParseTradeResult)

// Bus is a synchronous, in-process publish/subscribe registry implementing
// tradeengine.PluginBus. Subscribers run in the caller's goroutine, in
// registration order.
type Bus struct {
	mu        sync.RWMutex
	overrides []OfferOverrideFunc
	observers []ResultsObserverFunc
}

func New() *Bus {
	return &Bus{}
}

func (b *Bus) SubscribeOfferOverride(fn OfferOverrideFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides = append(b.overrides, fn)
}

func (b *Bus) SubscribeResults(fn ResultsObserverFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, fn)
}

// OnBotTradeOffer implements tradeengine.PluginBus. The first subscriber
// that returns true wins; later subscribers are not consulted.
func (b *Bus) OnBotTradeOffer(botAccountID uint64, offer tradeengine.TradeOffer) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.overrides {
		if fn(botAccountID, offer) {
			return true
		}
	}
	return false
}

// OnBotTradeOfferResults implements tradeengine.PluginBus.
func (b *Bus) OnBotTradeOfferResults(botAccountID uint64, results []tradeengine.ParseTradeResult) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.observers {
		fn(botAccountID, results)
	}
}
