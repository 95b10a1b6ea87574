package cachemanager

import (
	"context"
	"time"
)

// ReadThroughCache answers reads from the cache and falls back to the
// fetch function on a miss. Only successful fetches are stored, so an
// error never poisons a key and the next read retries.
type ReadThroughCache[K comparable, V any, I any] struct {
	cache    CacheManager[K, V]
	fetch    func(ctx context.Context, input I) (V, error)
	disabled bool
}

// NewReadThroughCache wraps cache with fetch-on-miss. When disabled is
// set every read bypasses the cache and nothing is stored.
func NewReadThroughCache[K comparable, V any, I any](
	cache CacheManager[K, V],
	fetch func(ctx context.Context, input I) (V, error),
	disabled bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{cache: cache, fetch: fetch, disabled: disabled}
}

// Get returns the value for key, fetching and storing it on a miss.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.disabled {
		return r.fetch(ctx, input)
	}
	if cached, ok := r.cache.Get(ctx, key); ok {
		return cached, nil
	}
	return r.load(ctx, key, input, ttl)
}

// GetWithRefresh is Get with sliding expiration: a hit re-arms the TTL.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.disabled {
		return r.fetch(ctx, input)
	}
	if cached, ok := r.cache.GetWithRefresh(ctx, key, ttl); ok {
		return cached, nil
	}
	return r.load(ctx, key, input, ttl)
}

// load runs the fetch and stores a successful result under key.
func (r *ReadThroughCache[K, V, I]) load(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	value, err := r.fetch(ctx, input)
	if err != nil {
		return value, err
	}
	r.cache.Set(ctx, key, value, ttl)
	return value, nil
}
