// Package cache stores computed layout plans between runs.
//
// A plan depends only on the lockfile, the installation table and the layout
// options, so it is stored under a key derived from their content (see
// [LayoutKey]). A hit lets an install skip counting and planning entirely.
//
// # Backends
//
//   - [FileCache]: one JSON file per key under a local directory (CLI default)
//   - [NullCache]: stores nothing; used for --no-cache
//   - [RedisCache]: shared cache for CI runners
//   - [MongoCache]: shared cache with a TTL index
//
// [Scoped] prefixes every key so that several projects can share a backend.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. A ttl of zero means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by backends that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}
