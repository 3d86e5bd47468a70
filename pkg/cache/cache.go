// Package cache stores rendered toolpath programs between runs.
//
// A [Cache] is a byte store with per-entry TTLs. [FileCache] backs the CLI,
// [RedisCache] lets several serve instances share results and [NullCache]
// disables caching. Keys come from a [Keyer]; [DefaultKeyer] derives them
// from the raster content hash and every option that changes the emitted
// program, so a hit is always safe to reuse.
package cache

import (
	"context"
	"time"
)

// Cache is a key/value store for pipeline results.
type Cache interface {
	// Get returns the stored value and true, or nil and false on a miss.
	// Expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// TTLProgram is how long a rendered program stays cached.
const TTLProgram = 7 * 24 * time.Hour
