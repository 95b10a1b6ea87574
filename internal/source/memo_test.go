package source

import (
	"context"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// countingSource records how many times each path was fetched.
type countingSource struct {
	mu    sync.Mutex
	calls map[string]int
	fail  bool
}

func (c *countingSource) FetchChildren(ctx context.Context, req Request) (Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[req.Path]++

	if c.fail {
		return Listing{}, errors.New("listing failed")
	}
	return Listing{Entries: []Entry{
		{Name: "child", Path: path.Join(req.Path, "child"), IsDir: true},
	}}, nil
}

func (c *countingSource) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[path]
}

func TestMemoSource_FetchChildren_MemoizesByRequest(t *testing.T) {
	upstream := &countingSource{}
	memo := NewMemoSource(upstream, time.Minute, false)

	req := Request{Repo: "acme/widgets", Path: "src"}

	first, err := memo.FetchChildren(context.Background(), req)
	require.NoError(t, err)

	second, err := memo.FetchChildren(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, upstream.count("src"))

	_, err = memo.FetchChildren(context.Background(), Request{Repo: "acme/widgets", Path: "docs"})
	require.NoError(t, err)
	require.Equal(t, 1, upstream.count("docs"))
}

func TestMemoSource_FetchChildren_DistinguishesRequestShape(t *testing.T) {
	upstream := &countingSource{}
	memo := NewMemoSource(upstream, time.Minute, false)

	base := Request{Repo: "acme/widgets", Path: "src"}

	_, err := memo.FetchChildren(context.Background(), base)
	require.NoError(t, err)

	withAncestors := base
	withAncestors.Ancestors = true
	_, err = memo.FetchChildren(context.Background(), withAncestors)
	require.NoError(t, err)

	withCap := base
	withCap.First = 10
	_, err = memo.FetchChildren(context.Background(), withCap)
	require.NoError(t, err)

	require.Equal(t, 3, upstream.count("src"))
}

func TestMemoSource_FetchChildren_ErrorsNotMemoized(t *testing.T) {
	upstream := &countingSource{fail: true}
	memo := NewMemoSource(upstream, time.Minute, false)

	req := Request{Repo: "acme/widgets", Path: "src"}

	_, err := memo.FetchChildren(context.Background(), req)
	require.Error(t, err)

	upstream.fail = false

	listing, err := memo.FetchChildren(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, listing.Entries, 1)
	require.Equal(t, 2, upstream.count("src"))
}

func TestMemoSource_Flush_DropsMemo(t *testing.T) {
	upstream := &countingSource{}
	memo := NewMemoSource(upstream, time.Minute, false)

	req := Request{Repo: "acme/widgets", Path: "src"}

	_, err := memo.FetchChildren(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, memo.Flush(context.Background()))

	_, err = memo.FetchChildren(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, upstream.count("src"))
}

func TestMemoSource_Disabled(t *testing.T) {
	upstream := &countingSource{}
	memo := NewMemoSource(upstream, time.Minute, true)

	req := Request{Repo: "acme/widgets", Path: "src"}

	_, err := memo.FetchChildren(context.Background(), req)
	require.NoError(t, err)
	_, err = memo.FetchChildren(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, 2, upstream.count("src"))
}

func TestMemoKey_DistinguishesEveryField(t *testing.T) {
	base := Request{Repo: "acme/widgets", Revision: "main", Path: "src", Ancestors: false, First: 5}

	variants := []Request{
		{Repo: "acme/gadgets", Revision: "main", Path: "src", First: 5},
		{Repo: "acme/widgets", Revision: "dev", Path: "src", First: 5},
		{Repo: "acme/widgets", Revision: "main", Path: "docs", First: 5},
		{Repo: "acme/widgets", Revision: "main", Path: "src", Ancestors: true, First: 5},
		{Repo: "acme/widgets", Revision: "main", Path: "src", First: 6},
	}

	for _, v := range variants {
		require.NotEqual(t, memoKey(base), memoKey(v))
	}
}
