package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"namy-service/internal/domain/coupon"
	xerrors "namy-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type fakeSource struct {
	details *coupon.RedeemDetails
	err     error
	calls   int
}

func (f *fakeSource) FindRedeemDetails(ctx context.Context, code string) (*coupon.RedeemDetails, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.details, nil
}

func testService(src *fakeSource, now time.Time) *Service {
	s := NewService(src, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestValidateActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{details: &coupon.RedeemDetails{
		Code:      "NAMY1234",
		Valid:     true,
		ExpiresAt: now.Add(2 * time.Hour),
	}}

	v := testService(src, now).Validate(context.Background(), "NAMY1234", now.Add(3*time.Hour))
	if v.State != coupon.StateActive {
		t.Fatalf("state = %q, want active", v.State)
	}
	if !v.Redeemable {
		t.Fatal("active coupon not redeemable")
	}
	if v.Remaining == nil || v.Remaining.Hours != 2 {
		t.Fatalf("remaining = %+v, want 2h", v.Remaining)
	}
}

func TestValidateUsedWinsOverActive(t *testing.T) {
	now := time.Now()
	src := &fakeSource{details: &coupon.RedeemDetails{
		Valid:     true,
		Used:      true,
		ExpiresAt: now.Add(time.Hour),
	}}

	v := testService(src, now).Validate(context.Background(), "C", time.Time{})
	if v.State != coupon.StateUsed {
		t.Fatalf("state = %q, want used", v.State)
	}
	if v.Redeemable {
		t.Fatal("used coupon marked redeemable")
	}
}

func TestValidateInvalid(t *testing.T) {
	now := time.Now()
	src := &fakeSource{details: &coupon.RedeemDetails{
		Valid:     false,
		ExpiresAt: now.Add(time.Hour),
	}}

	v := testService(src, now).Validate(context.Background(), "C", time.Time{})
	if v.State != coupon.StateInvalid {
		t.Fatalf("state = %q, want invalid", v.State)
	}
	if v.Reason == "" {
		t.Fatal("invalid verdict carries no reason")
	}
}

func TestValidateNotFound(t *testing.T) {
	src := &fakeSource{err: xerrors.ErrCouponNotFound}
	v := testService(src, time.Now()).Validate(context.Background(), "C", time.Time{})
	if v.State != coupon.StateInvalid {
		t.Fatalf("state = %q, want invalid", v.State)
	}
	if v.Reason != "coupon not found" {
		t.Fatalf("reason = %q", v.Reason)
	}
}

// A fresh backend verdict never overrides the clock: the earlier of the two
// expiry timestamps decides.
func TestValidateLocalExpiryPreempts(t *testing.T) {
	now := time.Now()
	src := &fakeSource{details: &coupon.RedeemDetails{
		Valid:     true,
		ExpiresAt: now.Add(time.Hour),
	}}

	v := testService(src, now).Validate(context.Background(), "C", now.Add(-time.Minute))
	if v.State != coupon.StateExpired {
		t.Fatalf("state = %q, want expired", v.State)
	}
	if v.Remaining == nil || !v.Remaining.Expired {
		t.Fatalf("remaining = %+v, want frozen expired snapshot", v.Remaining)
	}
}

func TestValidateNetworkFallback(t *testing.T) {
	now := time.Now()
	netErr := errors.New("dial tcp: connection refused")

	t.Run("future local expiry stays active", func(t *testing.T) {
		src := &fakeSource{err: netErr}
		v := testService(src, now).Validate(context.Background(), "C", now.Add(time.Hour))
		if v.State != coupon.StateActive {
			t.Fatalf("state = %q, want active", v.State)
		}
	})

	t.Run("past local expiry goes expired", func(t *testing.T) {
		src := &fakeSource{err: netErr}
		v := testService(src, now).Validate(context.Background(), "C", now.Add(-time.Hour))
		if v.State != coupon.StateExpired {
			t.Fatalf("state = %q, want expired", v.State)
		}
	})

	t.Run("no local expiry stays unknown", func(t *testing.T) {
		src := &fakeSource{err: netErr}
		v := testService(src, now).Validate(context.Background(), "C", time.Time{})
		if v.State != coupon.StateUnknown {
			t.Fatalf("state = %q, want unknown", v.State)
		}
	})
}

func TestTimeRemainingAt(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expires := base.Add(2*time.Hour + 3*time.Minute + 4*time.Second)

	got := TimeRemainingAt(expires, base)
	if got.Hours != 2 || got.Minutes != 3 || got.Seconds != 4 || got.Expired {
		t.Fatalf("remaining = %+v, want 2h3m4s", got)
	}

	// Monotonic over advancing clocks.
	prev := got
	for _, step := range []time.Duration{time.Second, time.Minute, time.Hour} {
		cur := TimeRemainingAt(expires, base.Add(step))
		if totalSeconds(cur) > totalSeconds(prev) {
			t.Fatalf("remaining increased: %+v -> %+v", prev, cur)
		}
		prev = cur
	}

	// Frozen at zero from the deadline onward.
	for _, after := range []time.Duration{0, time.Second, 24 * time.Hour} {
		got := TimeRemainingAt(expires, expires.Add(after))
		if !got.Expired || got.Hours != 0 || got.Minutes != 0 || got.Seconds != 0 {
			t.Fatalf("post-expiry remaining = %+v, want frozen zero", got)
		}
	}
}

func totalSeconds(r coupon.TimeRemaining) int {
	return r.Hours*3600 + r.Minutes*60 + r.Seconds
}

type recordingBroadcaster struct {
	ch chan coupon.TimeRemaining
}

func (r *recordingBroadcaster) PublishTick(code string, remaining coupon.TimeRemaining) {
	select {
	case r.ch <- remaining:
	default:
	}
}

func TestTrackerCountsDownAndStops(t *testing.T) {
	b := &recordingBroadcaster{ch: make(chan coupon.TimeRemaining, 64)}
	tr := NewTracker(b, zap.NewNop())
	tr.interval = 5 * time.Millisecond

	tr.Subscribe("NAMY1234", time.Now().Add(30*time.Millisecond))

	deadline := time.After(2 * time.Second)
	var ticks []coupon.TimeRemaining
	for {
		select {
		case r := <-b.ch:
			ticks = append(ticks, r)
			if r.Expired {
				goto done
			}
		case <-deadline:
			t.Fatal("never received an expired tick")
		}
	}
done:
	if len(ticks) == 0 {
		t.Fatal("no ticks received")
	}
	last := ticks[len(ticks)-1]
	if !last.Expired || last.Hours != 0 || last.Minutes != 0 || last.Seconds != 0 {
		t.Fatalf("final tick = %+v, want frozen zero", last)
	}

	// The watch is gone: no further ticks arrive.
	time.Sleep(30 * time.Millisecond)
	select {
	case r := <-b.ch:
		t.Fatalf("tick after expiry: %+v", r)
	default:
	}

	tr.mu.Lock()
	n := len(tr.watches)
	tr.mu.Unlock()
	if n != 0 {
		t.Fatalf("%d watches remain after expiry", n)
	}
}

func TestTrackerExpiredSubscribeEmitsFrozenSnapshot(t *testing.T) {
	b := &recordingBroadcaster{ch: make(chan coupon.TimeRemaining, 4)}
	tr := NewTracker(b, zap.NewNop())
	tr.interval = 5 * time.Millisecond

	tr.Subscribe("OLD", time.Now().Add(-time.Minute))

	select {
	case r := <-b.ch:
		if !r.Expired {
			t.Fatalf("snapshot = %+v, want expired", r)
		}
	default:
		t.Fatal("no frozen snapshot emitted")
	}

	tr.mu.Lock()
	n := len(tr.watches)
	tr.mu.Unlock()
	if n != 0 {
		t.Fatal("expired subscribe started a watch")
	}
}

func TestTrackerUnsubscribeStopsTicker(t *testing.T) {
	b := &recordingBroadcaster{ch: make(chan coupon.TimeRemaining, 64)}
	tr := NewTracker(b, zap.NewNop())
	tr.interval = 5 * time.Millisecond

	expires := time.Now().Add(time.Hour)
	tr.Subscribe("C", expires)
	tr.Subscribe("C", expires)

	tr.Unsubscribe("C")
	tr.mu.Lock()
	n := len(tr.watches)
	tr.mu.Unlock()
	if n != 1 {
		t.Fatal("watch dropped while a subscriber remained")
	}

	tr.Unsubscribe("C")
	tr.mu.Lock()
	n = len(tr.watches)
	tr.mu.Unlock()
	if n != 0 {
		t.Fatal("watch survived last unsubscribe")
	}

	// Drain anything in flight, then confirm silence.
	time.Sleep(20 * time.Millisecond)
	for len(b.ch) > 0 {
		<-b.ch
	}
	time.Sleep(30 * time.Millisecond)
	if len(b.ch) != 0 {
		t.Fatal("ticks continued after last unsubscribe")
	}
}
