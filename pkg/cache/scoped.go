package cache

import (
	"context"
	"time"
)

// ScopedCache prefixes every key before delegating to an inner cache,
// isolating namespaces that share a backend (per-registry, per-user).
type ScopedCache struct {
	inner  Cache
	prefix string
}

// NewScopedCache wraps inner so that all keys carry the given prefix.
func NewScopedCache(inner Cache, prefix string) *ScopedCache {
	return &ScopedCache{inner: inner, prefix: prefix}
}

// Get retrieves a value under the scoped key.
func (c *ScopedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.inner.Get(ctx, c.prefix+key)
}

// Set stores a value under the scoped key.
func (c *ScopedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, c.prefix+key, data, ttl)
}

// Delete removes a value under the scoped key.
func (c *ScopedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, c.prefix+key)
}

// Close closes the underlying cache.
func (c *ScopedCache) Close() error { return c.inner.Close() }
