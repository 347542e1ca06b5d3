// internal/service/lifecycle/countdown.go
package lifecycle

import (
	"context"
	"sync"
	"time"

	"namy-service/internal/domain/coupon"

	"go.uber.org/zap"
)

// Broadcaster receives the once-per-second countdown snapshots for a tracked
// coupon code. Implemented by the websocket hub.
type Broadcaster interface {
	PublishTick(code string, remaining coupon.TimeRemaining)
}

// Tracker owns one ticking goroutine per watched coupon. A watch stops when
// the last subscriber leaves or the countdown reaches zero; an expired watch
// is never restarted — resubscribing an expired coupon gets a single frozen
// snapshot and no ticker.
type Tracker struct {
	broadcaster Broadcaster
	logger      *zap.Logger
	interval    time.Duration

	mu      sync.Mutex
	watches map[string]*watch
}

type watch struct {
	expiresAt   time.Time
	cancel      context.CancelFunc
	subscribers int
}

func NewTracker(broadcaster Broadcaster, logger *zap.Logger) *Tracker {
	return &Tracker{
		broadcaster: broadcaster,
		logger:      logger,
		interval:    time.Second,
		watches:     make(map[string]*watch),
	}
}

// Subscribe registers interest in a coupon's countdown, starting the ticker
// on the first subscriber.
func (t *Tracker) Subscribe(code string, expiresAt time.Time) {
	if !time.Now().Before(expiresAt) {
		// Already expired: emit the frozen snapshot, start nothing.
		t.broadcaster.PublishTick(code, coupon.TimeRemaining{Expired: true})
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if w, ok := t.watches[code]; ok {
		w.subscribers++
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &watch{expiresAt: expiresAt, cancel: cancel, subscribers: 1}
	t.watches[code] = w

	go t.run(ctx, code, expiresAt)
}

// Unsubscribe drops one subscriber, cancelling the ticker when none remain.
func (t *Tracker) Unsubscribe(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.watches[code]
	if !ok {
		return
	}
	w.subscribers--
	if w.subscribers <= 0 {
		w.cancel()
		delete(t.watches, code)
	}
}

func (t *Tracker) run(ctx context.Context, code string, expiresAt time.Time) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			remaining := TimeRemainingAt(expiresAt, now)
			t.broadcaster.PublishTick(code, remaining)

			if remaining.Expired {
				t.logger.Debug("countdown reached zero", zap.String("code", code))
				t.remove(code)
				return
			}
		}
	}
}

func (t *Tracker) remove(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.watches[code]; ok {
		w.cancel()
		delete(t.watches, code)
	}
}
