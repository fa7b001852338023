package store

import (
	"context"
	"sync"
)

// TradingLocks hands out the per-account external trading lock the
// scheduler must hold for the duration of a parsing pass, so no other
// subsystem (loot transfers, manual listings) mutates the account's
// trading state concurrently. One *sync.Mutex per bot account is enough:
// contention is bounded by the number of concurrent subsystems touching
// one account, not by trade volume.
type TradingLocks struct {
	mu    sync.Mutex
	byBot map[uint64]*sync.Mutex
}

func NewTradingLocks() *TradingLocks {
	return &TradingLocks{byBot: make(map[uint64]*sync.Mutex)}
}

func (t *TradingLocks) lockFor(botAccountID uint64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.byBot[botAccountID]
	if !ok {
		l = &sync.Mutex{}
		t.byBot[botAccountID] = l
	}
	return l
}

// Lock implements tradeengine.TradingLock.
func (t *TradingLocks) Lock(ctx context.Context, botAccountID uint64) (func(), error) {
	l := t.lockFor(botAccountID)
	l.Lock()
	return l.Unlock, nil
}
