// Package cache stores encoded pattern artifacts.
//
// Generation is deterministic, so every artifact is a pure function of its
// request: a cache entry never goes stale, it only ages out. Keys come from a
// [Keyer] and hash the full request, so any change to seed, family, counts,
// palette or size misses naturally.
//
// Backends:
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [NullCache]: stores nothing (--no-cache)
//   - [RedisCache]: shared TTL cache for the preview server
//   - [MongoCache]: durable document store
//   - [TieredCache]: a fast front (Redis) in front of a durable back (Mongo)
package cache

import (
	"context"
	"time"
)

// Default TTLs. Patterns never change for a given key, so these only bound
// disk and memory use.
const (
	TTLArtifact = 30 * 24 * time.Hour
	TTLPreview  = 7 * 24 * time.Hour
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}
