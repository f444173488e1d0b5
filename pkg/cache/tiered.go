package cache

import (
	"context"
	"errors"
	"time"
)

// TieredCache reads through a fast front cache to a durable back cache,
// refilling the front on back hits. Writes go to both. Front failures are
// treated as misses so a flaky Redis never hides data stored in Mongo.
type TieredCache struct {
	Front    Cache
	Back     Cache
	FrontTTL time.Duration // TTL for refills; zero uses TTLPreview
}

// NewTieredCache combines two caches.
func NewTieredCache(front, back Cache) *TieredCache {
	return &TieredCache{Front: front, Back: back, FrontTTL: TTLPreview}
}

// Get implements Cache.
func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, ok, err := c.Front.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}
	data, ok, err := c.Back.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	ttl := c.FrontTTL
	if ttl == 0 {
		ttl = TTLPreview
	}
	_ = c.Front.Set(ctx, key, data, ttl)
	return data, true, nil
}

// Set implements Cache. The front copy is capped at FrontTTL.
func (c *TieredCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	frontTTL := c.FrontTTL
	if frontTTL == 0 || (ttl > 0 && ttl < frontTTL) {
		frontTTL = ttl
	}
	return errors.Join(
		c.Back.Set(ctx, key, data, ttl),
		c.Front.Set(ctx, key, data, frontTTL),
	)
}

// Delete implements Cache.
func (c *TieredCache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.Front.Delete(ctx, key), c.Back.Delete(ctx, key))
}

// Clear clears every tier that supports it.
func (c *TieredCache) Clear(ctx context.Context) error {
	var errs []error
	for _, tier := range []Cache{c.Front, c.Back} {
		if cl, ok := tier.(Clearer); ok {
			errs = append(errs, cl.Clear(ctx))
		}
	}
	return errors.Join(errs...)
}

// Close closes both tiers.
func (c *TieredCache) Close() error {
	return errors.Join(c.Front.Close(), c.Back.Close())
}

var (
	_ Cache   = (*TieredCache)(nil)
	_ Clearer = (*TieredCache)(nil)
)
