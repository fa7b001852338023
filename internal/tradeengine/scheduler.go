package tradeengine

import (
	"context"
	"log"
	"sync"
)

// fanOutCap bounds the number of offers evaluated concurrently within a
// single pass, so a burst of offers cannot spawn an unbounded number of
// goroutines.
const fanOutCap = 16

// Scheduler coalesces bursts of OnNewTrade calls into at most one running
// pass plus at most one pending pass, per account.
type Scheduler struct {
	BotAccountID uint64
	Handled      *HandledOfferSet
	Pipeline     *OfferPipeline
	Client       TradeOfferClient
	Confirmer    TwoFactorConfirmer
	HasAuthenticator bool
	Lock         TradingLock
	Plugins      PluginBus
	Config       Config
	OnFarmingFinished func(botAccountID uint64)

	// schedulingMutex protects parsingScheduled only, and is never held
	// across I/O.
	schedulingMutex sync.Mutex
	parsingScheduled bool

	// tradesSemaphore is the binary gate described in the design notes:
	// a buffered channel of capacity 1 standing in for a counting
	// semaphore, with occupancy implicit in the channel send/receive.
	tradesSemaphore chan struct{}
	semaphoreOnce   sync.Once
}

func (s *Scheduler) semaphore() chan struct{} {
	s.semaphoreOnce.Do(func() {
		s.tradesSemaphore = make(chan struct{}, 1)
	})
	return s.tradesSemaphore
}

// OnNewTrade coalesces trade notifications into parsing passes. It returns
// once a pass has been scheduled or absorbed into an already-pending one;
// it does not wait for the pass itself to finish.
func (s *Scheduler) OnNewTrade(ctx context.Context) {
	s.schedulingMutex.Lock()
	if s.parsingScheduled {
		s.schedulingMutex.Unlock()
		return
	}
	s.parsingScheduled = true
	s.schedulingMutex.Unlock()

	go s.runPass(ctx)
}

func (s *Scheduler) runPass(ctx context.Context) {
	sem := s.semaphore()
	sem <- struct{}{}

	unlock, err := s.Lock.Lock(ctx, s.BotAccountID)
	if err != nil {
		log.Printf("tradeengine: bot %d could not acquire trading lock: %v", s.BotAccountID, err)
		s.schedulingMutex.Lock()
		s.parsingScheduled = false
		s.schedulingMutex.Unlock()
		<-sem
		return
	}

	// Clear parsingScheduled while still holding both the semaphore and
	// the external lock, so a call made right now queues a fresh pass
	// behind this one rather than being silently dropped.
	s.schedulingMutex.Lock()
	s.parsingScheduled = false
	s.schedulingMutex.Unlock()

	sentLootable := s.ParseActiveTrades(ctx)
	unlock()
	<-sem

	if sentLootable && s.Config.SendOnFarmingFinished && s.OnFarmingFinished != nil {
		s.OnFarmingFinished(s.BotAccountID)
	}
}

// OnDisconnected clears the handled-offer set when the session to the
// trading service drops. An in-flight pass may still complete against
// stale data; that is benign, the set is repopulated on the next pass.
func (s *Scheduler) OnDisconnected() {
	s.Handled.Clear()
}

// ParseActiveTrades fetches active offers, prunes stale handled ids,
// evaluates the unhandled offers in parallel, batches mobile confirmations,
// and reports the outcome to the plugin bus. It never propagates failure
// to the caller — failures are logged and the pass completes.
func (s *Scheduler) ParseActiveTrades(ctx context.Context) bool {
	offers, err := s.Client.GetActiveTradeOffers(ctx)
	if err != nil {
		log.Printf("tradeengine: bot %d failed to fetch active offers: %v", s.BotAccountID, err)
		return false
	}
	if len(offers) == 0 {
		return false
	}

	activeIDs := make(map[uint64]struct{}, len(offers))
	for _, o := range offers {
		activeIDs[o.TradeOfferID] = struct{}{}
	}
	s.Handled.IntersectWith(activeIDs)

	var pending []TradeOffer
	for _, o := range offers {
		if !s.Handled.Contains(o.TradeOfferID) {
			pending = append(pending, o)
		}
	}

	type outcome struct {
		result             *ParseTradeResult
		needsMobileConfirm bool
	}
	outcomes := make([]outcome, len(pending))

	var wg sync.WaitGroup
	gate := make(chan struct{}, fanOutCap)
	for i, offer := range pending {
		i, offer := i, offer
		wg.Add(1)
		gate <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-gate }()
			result, needsConfirm := s.Pipeline.ParseTrade(ctx, offer)
			outcomes[i] = outcome{result: result, needsMobileConfirm: needsConfirm}
		}()
	}
	wg.Wait()

	// Every decision with a result, TryAgain included, flows to the
	// plugin hook and its observers; only offers skipped entirely
	// (non-active state, unknown decision) yield a nil result. Mobile
	// confirmations are batched for accepted offers alone.
	var results []ParseTradeResult
	var confirmIDs []uint64
	for _, o := range outcomes {
		if o.result == nil {
			continue
		}
		results = append(results, *o.result)
		if o.result.Result == ResultAccepted && o.needsMobileConfirm {
			confirmIDs = append(confirmIDs, o.result.TradeOfferID)
		}
	}

	unconfirmed := make(map[uint64]struct{})
	if len(confirmIDs) > 0 {
		if !s.HasAuthenticator {
			log.Printf("tradeengine: bot %d has %d offers needing mobile confirmation but no authenticator configured", s.BotAccountID, len(confirmIDs))
			for _, id := range confirmIDs {
				unconfirmed[id] = struct{}{}
			}
		} else {
			ok, err := s.Confirmer.HandleTwoFactorAuthenticationConfirmations(ctx, true, ConfirmationKindTrade, confirmIDs, true)
			if err != nil || !ok {
				log.Printf("tradeengine: bot %d mobile confirmation batch failed: %v", s.BotAccountID, err)
				s.Handled.ExceptWith(confirmIDs)
				return false
			}
		}
	}

	if s.Plugins != nil && len(results) > 0 {
		s.Plugins.OnBotTradeOfferResults(s.BotAccountID, results)
	}

	// A lootable receipt only counts once the items actually changed
	// hands: an accepted offer still awaiting a mobile confirmation we
	// couldn't perform has not transferred anything yet.
	yieldedLootable := false
	for _, r := range results {
		if r.Result != ResultAccepted {
			continue
		}
		if _, stillPending := unconfirmed[r.TradeOfferID]; stillPending {
			continue
		}
		for t := range r.ReceivedItemTypes {
			if s.Config.isLootable(t) {
				yieldedLootable = true
			}
		}
	}
	return yieldedLootable
}
