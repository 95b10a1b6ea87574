package source

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/zjrosen/fern/internal/cachemanager"
)

// DefaultListingTTL bounds how long a memoized listing is served before
// the next fetch goes back to the underlying source.
const DefaultListingTTL = 5 * time.Minute

// Compile-time check that MemoSource implements Source.
var _ Source = (*MemoSource)(nil)

// MemoSource memoizes listings from the wrapped source. Hover
// prefetches and the expand that follows them resolve to the same key,
// so the prefetched fetch is reused instead of repeated. Failed fetches
// are not stored and stay retryable.
type MemoSource struct {
	cache *cachemanager.InMemoryCacheManager[string, Listing]
	rtc   *cachemanager.ReadThroughCache[string, Listing, Request]
	ttl   time.Duration
}

// NewMemoSource wraps next with a listing memo. A zero ttl selects
// DefaultListingTTL; disabled turns the memo into a pass-through.
func NewMemoSource(next Source, ttl time.Duration, disabled bool) *MemoSource {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	cache := cachemanager.NewInMemoryCacheManager[string, Listing](
		"listings",
		cachemanager.DefaultExpiration,
		cachemanager.DefaultCleanupInterval,
	)
	return &MemoSource{
		cache: cache,
		rtc:   cachemanager.NewReadThroughCache[string, Listing, Request](cache, next.FetchChildren, disabled),
		ttl:   ttl,
	}
}

func (m *MemoSource) FetchChildren(ctx context.Context, req Request) (Listing, error) {
	return m.rtc.Get(ctx, memoKey(req), req, m.ttl)
}

// Flush drops every memoized listing. The watcher calls this when the
// repository changes underneath the tree.
func (m *MemoSource) Flush(ctx context.Context) error {
	return m.cache.Flush(ctx)
}

// memoKey identifies a request by every field that changes its result.
// NUL joins the parts because none of them can contain it.
func memoKey(req Request) string {
	return strings.Join([]string{
		req.Repo,
		req.Revision,
		req.Path,
		strconv.FormatBool(req.Ancestors),
		strconv.Itoa(req.First),
	}, "\x00")
}
