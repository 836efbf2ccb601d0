package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voltleague/voltleague/internal/domain/model"
	"github.com/voltleague/voltleague/pkg/logger"
	"github.com/voltleague/voltleague/pkg/metrics"
)

// DefaultTTL bounds staleness for scopes that receive no explicit
// invalidation, the global scope in particular.
const DefaultTTL = 5 * time.Minute

// Key composes a deterministic cache key from the query type, the
// scope, and a query variant such as "limit=10". Distinct queries never
// collide, and every key for one scope shares the scope's registry
// bucket.
func Key(query string, scope model.Scope, variant string) string {
	return fmt.Sprintf("%s:%s:%s", query, scope.Key(), variant)
}

// Option applies a configuration option to the RankingCache.
type Option func(*RankingCache)

// WithTTL sets the time-to-live applied to cached payloads.
func WithTTL(ttl time.Duration) Option {
	return func(c *RankingCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets a custom logger for the cache.
func WithLogger(log logger.Logger) Option {
	return func(c *RankingCache) {
		if log != nil {
			c.log = log
		}
	}
}

// RankingCache memoizes leaderboard and statistics payloads. It keeps a
// registry of which keys belong to which scope so InvalidateScope is an
// exact key-set delete, never a wildcard scan. Backend failures are
// absorbed: reads degrade to misses and writes are dropped, so ranking
// stays available when the cache is not.
type RankingCache struct {
	backend Backend
	ttl     time.Duration
	log     logger.Logger

	mu       sync.Mutex
	registry map[string]map[string]struct{} // scope key -> active cache keys
}

// New constructs a RankingCache over a backend.
func New(backend Backend, opts ...Option) *RankingCache {
	c := &RankingCache{
		backend:  backend,
		ttl:      DefaultTTL,
		registry: make(map[string]map[string]struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logger.Named("cache")
	}

	return c
}

// TTL returns the configured time-to-live.
func (c *RankingCache) TTL() time.Duration { return c.ttl }

// Get returns the cached payload for key, or false on miss. Backend
// errors count as misses.
func (c *RankingCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn(ctx, "cache read failed, degrading to recompute",
				logger.String("key", key),
				logger.Error(err),
			)
			metrics.RecordErrorByComponent("cache", "read")
		}
		metrics.RecordCacheMiss()
		return nil, false
	}
	metrics.RecordCacheHit()
	return val, true
}

// Put stores a payload under key and registers the key against scope so
// a later InvalidateScope for that scope deletes it. Backend errors are
// logged and dropped.
func (c *RankingCache) Put(ctx context.Context, scope model.Scope, key string, payload []byte) {
	if err := c.backend.Set(ctx, key, payload, c.ttl); err != nil {
		c.log.Warn(ctx, "cache write failed, dropping payload",
			logger.String("key", key),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("cache", "write")
		return
	}

	c.mu.Lock()
	scopeKey := scope.Key()
	if c.registry[scopeKey] == nil {
		c.registry[scopeKey] = make(map[string]struct{})
	}
	c.registry[scopeKey][key] = struct{}{}
	c.mu.Unlock()
}

// InvalidateScope deletes every cached key registered to the scope.
// Keys already expired by TTL may still be registered; deleting them is
// harmless.
func (c *RankingCache) InvalidateScope(ctx context.Context, scope model.Scope) {
	c.mu.Lock()
	scopeKey := scope.Key()
	set := c.registry[scopeKey]
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	delete(c.registry, scopeKey)
	c.mu.Unlock()

	if len(keys) == 0 {
		return
	}

	metrics.RecordScopeInvalidation(string(scope.Kind))
	metrics.RecordInvalidatedKeys(len(keys))

	if err := c.backend.Delete(ctx, keys...); err != nil {
		// The registry entries are already gone, so a failed delete
		// leaves entries to die by TTL rather than go stale forever.
		c.log.Warn(ctx, "cache invalidation delete failed, entries expire by TTL",
			logger.String("scope", scopeKey),
			logger.Int("keys", len(keys)),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("cache", "invalidate")
	}
}

// InvalidateAll deletes every key the cache has registered. Unlike a
// backend flush, it never touches keys owned by other users of a shared
// backend.
func (c *RankingCache) InvalidateAll(ctx context.Context) {
	c.mu.Lock()
	var keys []string
	for _, set := range c.registry {
		for key := range set {
			keys = append(keys, key)
		}
	}
	c.registry = make(map[string]map[string]struct{})
	c.mu.Unlock()

	if len(keys) == 0 {
		return
	}

	metrics.RecordInvalidatedKeys(len(keys))

	if err := c.backend.Delete(ctx, keys...); err != nil {
		c.log.Warn(ctx, "cache bulk invalidation failed, entries expire by TTL",
			logger.Int("keys", len(keys)),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("cache", "invalidate")
	}
}
