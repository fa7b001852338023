// Package events listens for push notifications that a bot account's trade
// offers changed, so the scheduler can coalesce a parsing pass instead of
// polling.
package events

import (
	"context"
	"log"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TradeNotifier is satisfied by tradeengine.Scheduler; kept as a narrow
// interface so this package doesn't import tradeengine just for one method.
type TradeNotifier interface {
	OnNewTrade(ctx context.Context)
}

// DisconnectNotifier is implemented by notifiers that keep per-session
// state keyed to the feed connection (tradeengine.Scheduler clears its
// handled-offer set here). Checked optionally so a plain trigger source
// still satisfies TradeNotifier alone.
type DisconnectNotifier interface {
	OnDisconnected()
}

// Listener maintains one reconnecting websocket connection to an event feed
// and invokes notifier.OnNewTrade whenever a message arrives, regardless of
// its payload: any push is treated as "something about this account's
// trade offers may have changed."
type Listener struct {
	URL      string
	Notifier TradeNotifier

	ReconnectDelay      time.Duration
	ReconnectMaxDelay   time.Duration
	ReconnectMultiplier float64

	mu      sync.Mutex
	conn    *websocket.Conn
	closing bool
}

func NewListener(feedURL string, notifier TradeNotifier) *Listener {
	return &Listener{
		URL:                 feedURL,
		Notifier:            notifier,
		ReconnectDelay:      1 * time.Second,
		ReconnectMaxDelay:   30 * time.Second,
		ReconnectMultiplier: 2,
	}
}

// Run blocks, maintaining the connection until ctx is canceled.
func (l *Listener) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := l.connectAndRead(ctx); err != nil {
			log.Printf("events: connection to %s lost: %v", redactURL(l.URL), err)
		}
		if !l.sleepBeforeReconnect(ctx) {
			return
		}
	}
}

// Close marks the listener as shutting down and drops the active
// connection, if any.
func (l *Listener) Close() error {
	l.mu.Lock()
	l.closing = true
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (l *Listener) connectAndRead(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, l.URL, nil)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		if l.conn == conn {
			l.conn = nil
		}
		l.mu.Unlock()
		conn.Close()
		if d, ok := l.Notifier.(DisconnectNotifier); ok {
			d.OnDisconnected()
		}
	}()

	go l.pingLoop(ctx, conn)

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, _, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		l.Notifier.OnNewTrade(ctx)
	}
}

func (l *Listener) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// sleepBeforeReconnect waits the current backoff delay, reporting false if
// ctx was canceled or the listener was explicitly closed while waiting.
func (l *Listener) sleepBeforeReconnect(ctx context.Context) bool {
	l.mu.Lock()
	closing := l.closing
	l.mu.Unlock()
	if closing {
		return false
	}

	delay := l.ReconnectDelay
	if delay <= 0 {
		delay = 1 * time.Second
	}
	jittered := delay + time.Duration(rand.Int63n(int64(delay)/2+1))

	select {
	case <-ctx.Done():
		return false
	case <-time.After(jittered):
	}

	next := time.Duration(float64(l.ReconnectDelay) * l.ReconnectMultiplier)
	if next <= 0 {
		next = delay
	}
	if next > l.ReconnectMaxDelay {
		next = l.ReconnectMaxDelay
	}
	l.ReconnectDelay = next
	return true
}

// redactURL strips query parameters (likely to carry an auth token) before
// logging a feed URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	u.RawQuery = ""
	return u.String()
}
