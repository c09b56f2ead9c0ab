package cache

import (
	"context"
	"time"
)

// Scoped wraps a Cache with a key prefix.
//
// Example usage:
//
//	// One namespace per project on a shared Redis
//	c := NewScoped(redisCache, "project:"+Hash([]byte(projectDir))[:12]+":")
type Scoped struct {
	inner  Cache
	prefix string
}

// NewScoped creates a cache that prepends prefix to every key.
func NewScoped(inner Cache, prefix string) *Scoped {
	if inner == nil {
		inner = NewNullCache()
	}
	return &Scoped{inner: inner, prefix: prefix}
}

// Get retrieves a prefixed key.
func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

// Set stores a prefixed key.
func (s *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

// Delete removes a prefixed key.
func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close closes the wrapped cache.
func (s *Scoped) Close() error {
	return s.inner.Close()
}

// Clear clears the wrapped cache. Keys are not enumerable through every
// backend, so entries of other scopes in the same backend are dropped too.
// Data the backend did not write itself is never touched.
func (s *Scoped) Clear(ctx context.Context) error {
	return Clear(ctx, s.inner)
}

var _ Cache = (*Scoped)(nil)
