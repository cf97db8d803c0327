// Package cache provides byte-oriented caching for registry lookups and
// other slow operations.
//
// Backends share the Cache interface:
//   - FileCache: JSON entries with expiry under a hashed directory tree,
//     for CLI usage
//   - RedisCache: shared cache for teams running a common registry mirror
//   - NullCache: disables caching
//
// Keys are produced by a Keyer so that every component of the application
// agrees on the namespace layout. ScopedCache prefixes keys for isolation
// between registries or users.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with optional expiry.
type Cache interface {
	// Get retrieves a value. The bool reports whether the key was found
	// and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a time-to-live. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys for the different data kinds gitsu caches.
type Keyer interface {
	// RegistryKey generates a key for a registry lookup result.
	RegistryKey(registry, name string) string

	// SourceKey generates a key for fetched source metadata.
	SourceKey(source, target string) string
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// RegistryKey generates a key for registry lookup caching.
func (k *DefaultKeyer) RegistryKey(registry, name string) string {
	return hashKey("registry", registry, name)
}

// SourceKey generates a key for source metadata caching.
func (k *DefaultKeyer) SourceKey(source, target string) string {
	return hashKey("source", source, target)
}
