// Package cache provides the ranking cache: a key-value backend plus a
// scope-aware layer that knows which keys each scope owns, so
// invalidation is an exact key-set delete rather than a pattern match.
package cache

import (
	"context"
	"time"
)

// Backend is a plain TTL key-value store. Implementations must be safe
// for concurrent use.
type Backend interface {
	// Get returns the value for key, or ErrCacheMiss when absent or
	// expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a time-to-live.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
