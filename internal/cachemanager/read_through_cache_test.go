package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type listRequest struct {
	Path string
}

func TestReadThroughCache_Get_WithCacheDisabled(t *testing.T) {
	cache := NewInMemoryCacheManager[string, []string]("listings", DefaultExpiration, DefaultCleanupInterval)

	calls := 0
	readThroughCache := NewReadThroughCache[string, []string, listRequest](
		cache,
		func(ctx context.Context, input listRequest) ([]string, error) {
			calls++
			return []string{input.Path + "/main.go"}, nil
		},
		true,
	)

	got, err := readThroughCache.Get(context.Background(), "src", listRequest{Path: "src"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{"src/main.go"}, got)

	_, err = readThroughCache.Get(context.Background(), "src", listRequest{Path: "src"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 2, calls)

	// Disabled cache never stores.
	_, ok := cache.Get(context.Background(), "src")
	require.False(t, ok)
}

func TestReadThroughCache_Get_FetchesOnceThenHitsCache(t *testing.T) {
	cache := NewInMemoryCacheManager[string, []string]("listings", DefaultExpiration, DefaultCleanupInterval)

	calls := 0
	readThroughCache := NewReadThroughCache[string, []string, listRequest](
		cache,
		func(ctx context.Context, input listRequest) ([]string, error) {
			calls++
			return []string{input.Path + "/main.go"}, nil
		},
		false,
	)

	got, err := readThroughCache.Get(context.Background(), "src", listRequest{Path: "src"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{"src/main.go"}, got)

	got, err = readThroughCache.Get(context.Background(), "src", listRequest{Path: "src"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{"src/main.go"}, got)
	require.Equal(t, 1, calls)
}

func TestReadThroughCache_Get_WithValueInCache(t *testing.T) {
	cache := NewInMemoryCacheManager[string, []string]("listings", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "src", []string{"cached.go"}, DefaultExpiration)

	readThroughCache := NewReadThroughCache[string, []string, listRequest](
		cache,
		func(ctx context.Context, input listRequest) ([]string, error) {
			t.Fatal("fetch must not run on a cache hit")
			return nil, nil
		},
		false,
	)

	got, err := readThroughCache.Get(context.Background(), "src", listRequest{Path: "src"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{"cached.go"}, got)
}

func TestReadThroughCache_Get_ErrorNotCached(t *testing.T) {
	cache := NewInMemoryCacheManager[string, []string]("listings", DefaultExpiration, DefaultCleanupInterval)

	calls := 0
	readThroughCache := NewReadThroughCache[string, []string, listRequest](
		cache,
		func(ctx context.Context, input listRequest) ([]string, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("listing failed")
			}
			return []string{input.Path + "/main.go"}, nil
		},
		false,
	)

	_, err := readThroughCache.Get(context.Background(), "src", listRequest{Path: "src"}, time.Minute)
	require.Error(t, err)

	// The failure was not stored, so the next call retries the fetch.
	got, err := readThroughCache.Get(context.Background(), "src", listRequest{Path: "src"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{"src/main.go"}, got)
	require.Equal(t, 2, calls)
}

func TestReadThroughCache_GetWithRefresh_FetchesOnceThenHitsCache(t *testing.T) {
	cache := NewInMemoryCacheManager[string, []string]("listings", DefaultExpiration, DefaultCleanupInterval)

	calls := 0
	readThroughCache := NewReadThroughCache[string, []string, listRequest](
		cache,
		func(ctx context.Context, input listRequest) ([]string, error) {
			calls++
			return []string{input.Path + "/main.go"}, nil
		},
		false,
	)

	_, err := readThroughCache.GetWithRefresh(context.Background(), "src", listRequest{Path: "src"}, time.Minute)
	require.NoError(t, err)

	got, err := readThroughCache.GetWithRefresh(context.Background(), "src", listRequest{Path: "src"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{"src/main.go"}, got)
	require.Equal(t, 1, calls)
}

func TestReadThroughCache_GetWithRefresh_FetchError(t *testing.T) {
	cache := NewInMemoryCacheManager[string, []string]("listings", DefaultExpiration, DefaultCleanupInterval)

	readThroughCache := NewReadThroughCache[string, []string, listRequest](
		cache,
		func(ctx context.Context, input listRequest) ([]string, error) {
			return nil, errors.New("listing failed")
		},
		false,
	)

	_, err := readThroughCache.GetWithRefresh(context.Background(), "src", listRequest{Path: "src"}, time.Minute)
	require.Error(t, err)
}
