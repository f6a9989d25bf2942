// Package cache provides the key-value stores dagscope persists between runs.
//
// Two things are cached: the per-workspace module selection that feeds
// compile requests ([Modules]), and exported artifacts keyed by the hash of
// the graph they were drawn from. Both go through the [Cache] interface, so
// the backend is a deployment choice:
//
//   - [FileCache]: one JSON file per key under a directory (CLI default)
//   - [RedisCache]: a shared Redis instance
//   - [NullCache]: stores nothing
//
// Keys come from a [Keyer]; wrap it in a [ScopedKeyer] to namespace keys when
// several workspaces share one backend.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
