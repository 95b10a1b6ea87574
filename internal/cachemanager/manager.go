// Package cachemanager provides the typed TTL caches behind listing
// memoization. A CacheManager stores values under expiring keys;
// ReadThroughCache layers fetch-on-miss on top so callers see a single
// Get that is always answered.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a typed TTL cache. Implementations must be safe for
// concurrent use.
type CacheManager[K comparable, V any] interface {
	// Get returns the value under key when present and unexpired.
	Get(ctx context.Context, key K) (V, bool)

	// GetWithRefresh is Get with sliding expiration: a hit re-arms
	// the entry's TTL.
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key K, value V, ttl time.Duration)

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...K) error

	// Flush drops every entry.
	Flush(ctx context.Context) error
}
