// internal/pkg/viewcache/cache.go
package viewcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"namy-service/internal/domain/coupon"

	"github.com/redis/go-redis/v9"
)

// Cache passes a decoded coupon between the scan flow and the coupon view
// without round-tripping through a URL. One fixed slot per device, short TTL,
// expiry enforced by the store rather than left implicit.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Put stores the decoded coupon for a device, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, deviceID string, data *coupon.Data) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cached coupon: %w", err)
	}
	if err := c.client.Set(ctx, c.key(deviceID), buf, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache coupon: %w", err)
	}
	return nil
}

// Get returns the cached coupon for a device, or (nil, nil) when the slot is
// empty or expired.
func (c *Cache) Get(ctx context.Context, deviceID string) (*coupon.Data, error) {
	buf, err := c.client.Get(ctx, c.key(deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached coupon: %w", err)
	}

	var data coupon.Data
	if err := json.Unmarshal(buf, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached coupon: %w", err)
	}
	return &data, nil
}

// Clear drops the device's slot once the view has consumed it.
func (c *Cache) Clear(ctx context.Context, deviceID string) error {
	return c.client.Del(ctx, c.key(deviceID)).Err()
}

func (c *Cache) key(deviceID string) string {
	return fmt.Sprintf("viewcache:coupon:%s", deviceID)
}
