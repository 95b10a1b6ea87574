package cachemanager

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/fern/internal/log"
)

// Expiry defaults for the backing store. Set calls carry their own TTL;
// these govern entries stored without one and how often the sweeper
// evicts expired entries.
const (
	DefaultExpiration      = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

// InMemoryCacheManager implements CacheManager on top of go-cache. The
// name labels log lines when several caches are alive at once.
type InMemoryCacheManager[K ~string, V any] struct {
	name  string
	inner *gocache.Cache
}

// NewInMemoryCacheManager builds a named in-memory cache.
func NewInMemoryCacheManager[K ~string, V any](name string, expiration, cleanup time.Duration) *InMemoryCacheManager[K, V] {
	return &InMemoryCacheManager[K, V]{
		name:  name,
		inner: gocache.New(expiration, cleanup),
	}
}

// Get returns the value stored under key. A stored value of the wrong
// type counts as a miss.
func (c *InMemoryCacheManager[K, V]) Get(ctx context.Context, key K) (V, bool) {
	var zero V

	raw, found := c.inner.Get(string(key))
	if !found {
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		log.Error(log.CatCache, "cached value has wrong type", "cache", c.name, "key", key)
		return zero, false
	}

	log.Debug(log.CatCache, "cache hit", "cache", c.name, "key", key)
	return value, true
}

// GetWithRefresh returns the value under key and re-arms its TTL, so
// entries that keep getting read stay cached.
func (c *InMemoryCacheManager[K, V]) GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool) {
	value, found := c.Get(ctx, key)
	if found {
		c.Set(ctx, key, value, ttl)
	}
	return value, found
}

// Set stores value under key for ttl.
func (c *InMemoryCacheManager[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) {
	c.inner.Set(string(key), value, ttl)
}

// Delete removes the given keys.
func (c *InMemoryCacheManager[K, V]) Delete(ctx context.Context, keys ...K) error {
	for _, key := range keys {
		c.inner.Delete(string(key))
	}
	return nil
}

// Flush drops every entry.
func (c *InMemoryCacheManager[K, V]) Flush(ctx context.Context) error {
	c.inner.Flush()
	log.Debug(log.CatCache, "cache flushed", "cache", c.name)
	return nil
}
