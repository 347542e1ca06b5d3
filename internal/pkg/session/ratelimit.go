// internal/pkg/session/ratelimit.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckExchange enforces the coupon-generation cooldown per device: one
// exchange per window. When blocked, retryAfter carries the remaining wait
// so the caller can surface it as a hint rather than a generic failure.
func (r *RateLimiter) CheckExchange(ctx context.Context, deviceID string, window time.Duration) (bool, time.Duration, error) {
	key := fmt.Sprintf("ratelimit:exchange:%s", deviceID)

	set, err := r.client.SetNX(ctx, key, time.Now().Unix(), window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check exchange rate limit: %w", err)
	}
	if set {
		return true, 0, nil
	}

	retryAfter, err := r.client.TTL(ctx, key).Result()
	if err != nil || retryAfter < 0 {
		retryAfter = window
	}
	return false, retryAfter, nil
}

// ResetExchange clears a device's cooldown. A failed exchange should not
// burn the device's window.
func (r *RateLimiter) ResetExchange(ctx context.Context, deviceID string) error {
	return r.client.Del(ctx, fmt.Sprintf("ratelimit:exchange:%s", deviceID)).Err()
}

// CheckWatchReport caps how often a device may submit ad-watch reports,
// bounding replay spam against the unlock gate.
func (r *RateLimiter) CheckWatchReport(ctx context.Context, deviceID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:watch:%s", deviceID)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment watch reports: %w", err)
	}

	// Set expiration on first report
	if count == 1 {
		r.client.Expire(ctx, key, 10*time.Minute)
	}

	return count <= 30, nil
}
