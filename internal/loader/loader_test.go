package loader

import (
	"context"
	"errors"
	"fmt"
	"path"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/fern/internal/source"
	"github.com/zjrosen/fern/internal/tree"
)

// scriptedSource serves canned listings per path and records the
// requests it saw.
type scriptedSource struct {
	listings map[string]source.Listing
	errs     map[string]error
	requests []source.Request
}

func (s *scriptedSource) FetchChildren(ctx context.Context, req source.Request) (source.Listing, error) {
	s.requests = append(s.requests, req)
	if err, ok := s.errs[req.Path]; ok {
		return source.Listing{}, err
	}
	return s.listings[req.Path], nil
}

func entry(p string, dir bool) source.Entry {
	return source.Entry{Name: path.Base(p), Path: p, IsDir: dir}
}

func rootListing() source.Listing {
	return source.Listing{Entries: []source.Entry{
		entry("docs", true),
		entry("src", true),
		entry("README.md", false),
	}}
}

func TestLoadCmd_Success(t *testing.T) {
	src := &scriptedSource{listings: map[string]source.Listing{"": rootListing()}}
	l := New(src, "acme/widgets", "main", 2500)

	msg, ok := l.LoadCmd(context.Background(), "", false)().(EntriesLoadedMsg)
	require.True(t, ok)

	require.NoError(t, msg.Err)
	require.Equal(t, "", msg.Path)
	require.False(t, msg.Ancestors)
	require.Len(t, msg.Listing.Entries, 3)
	require.NotEmpty(t, msg.RequestID)
}

func TestLoadCmd_ErrorTravelsInMessage(t *testing.T) {
	fetchErr := errors.New("connection refused")
	src := &scriptedSource{errs: map[string]error{"src": fetchErr}}
	l := New(src, "acme/widgets", "", 2500)

	msg, ok := l.LoadCmd(context.Background(), "src", false)().(EntriesLoadedMsg)
	require.True(t, ok)

	require.ErrorIs(t, msg.Err, fetchErr)
	require.Equal(t, "src", msg.Path)
	require.Empty(t, msg.Listing.Entries)
}

func TestLoadCmd_RequestsOneBeyondLimit(t *testing.T) {
	src := &scriptedSource{}
	l := New(src, "acme/widgets", "dev", 100)

	l.LoadCmd(context.Background(), "src", true)()

	require.Len(t, src.requests, 1)
	req := src.requests[0]
	require.Equal(t, "acme/widgets", req.Repo)
	require.Equal(t, "dev", req.Revision)
	require.Equal(t, "src", req.Path)
	require.True(t, req.Ancestors)
	require.Equal(t, 101, req.First)
}

func TestLoadCmd_NoLimitMeansNoCap(t *testing.T) {
	src := &scriptedSource{}
	l := New(src, "acme/widgets", "", 0)

	l.LoadCmd(context.Background(), "", false)()

	require.Len(t, src.requests, 1)
	require.Equal(t, 0, src.requests[0].First)
}

func TestApply_InsertsAndMarksLoaded(t *testing.T) {
	l := New(&scriptedSource{}, "acme/widgets", "", 2500)
	snap := tree.NewSnapshot("", false)

	next := l.Apply(snap, EntriesLoadedMsg{Path: "", Listing: rootListing()})

	rootID, _ := next.IDForPath("")
	require.True(t, next.IsLoaded(rootID))

	docsID, ok := next.IDForPath("docs")
	require.True(t, ok)
	require.False(t, next.IsLoaded(docsID), "listed but unfetched directories stay unloaded")

	// The receiving snapshot is untouched.
	require.Equal(t, 1, snap.Len())
}

func TestApply_StampsRootLinkFromListing(t *testing.T) {
	l := New(&scriptedSource{}, "acme/widgets", "main", 2500)
	snap := tree.NewSnapshot("", false)

	listing := rootListing()
	listing.RootURL = "/acme/widgets@main"
	next := l.Apply(snap, EntriesLoadedMsg{Path: "", Listing: listing})

	require.Equal(t, "/acme/widgets@main", next.Root().URL)
}

func TestApply_SynthesizesRootLinkBelowRepoRoot(t *testing.T) {
	l := New(&scriptedSource{}, "acme/widgets", "main", 2500)
	snap := tree.NewSnapshot("src", false)

	listing := source.Listing{
		RootURL: "/acme/widgets@main",
		Entries: []source.Entry{entry("src/parser", true)},
	}
	next := l.Apply(snap, EntriesLoadedMsg{Path: "src", Listing: listing})

	require.Equal(t, "/acme/widgets@main/-/tree/src", next.Root().URL)
}

func TestApply_EmptyDirectoryRemembersLoaded(t *testing.T) {
	l := New(&scriptedSource{}, "acme/widgets", "", 2500)
	snap := tree.NewSnapshot("", false).Insert(rootListing().Entries, 2500)

	next := l.Apply(snap, EntriesLoadedMsg{Path: "docs"})

	docsID, _ := next.IDForPath("docs")
	require.True(t, next.IsLoaded(docsID))
}

func TestApply_ErrorRecordedOnDirectory(t *testing.T) {
	fetchErr := errors.New("connection refused")
	l := New(&scriptedSource{}, "acme/widgets", "", 2500)
	snap := tree.NewSnapshot("", false).Insert(rootListing().Entries, 2500)

	next := l.Apply(snap, EntriesLoadedMsg{Path: "src", Err: fetchErr})

	srcID, _ := next.IDForPath("src")
	require.False(t, next.IsLoaded(srcID))

	node, _ := next.Node(srcID)
	require.ErrorIs(t, node.LoadErr, fetchErr)
}

func TestApply_SuccessAfterErrorClearsIt(t *testing.T) {
	fetchErr := errors.New("connection refused")
	l := New(&scriptedSource{}, "acme/widgets", "", 2500)

	snap := tree.NewSnapshot("", false).Insert(rootListing().Entries, 2500)
	snap = l.Apply(snap, EntriesLoadedMsg{Path: "src", Err: fetchErr})
	snap = l.Apply(snap, EntriesLoadedMsg{Path: "src", Listing: source.Listing{Entries: []source.Entry{
		entry("src/main.go", false),
	}}})

	srcID, _ := snap.IDForPath("src")
	require.True(t, snap.IsLoaded(srcID))

	node, _ := snap.Node(srcID)
	require.NoError(t, node.LoadErr)
}

func TestApply_AncestorsMarksWholeChain(t *testing.T) {
	l := New(&scriptedSource{}, "acme/widgets", "", 2500)
	snap := tree.NewSnapshot("", false)

	listing := source.Listing{Entries: []source.Entry{
		entry("docs", true),
		entry("src", true),
		entry("README.md", false),
		entry("src/util", true),
		entry("src/main.go", false),
		entry("src/util/helper.go", false),
	}}

	next := l.Apply(snap, EntriesLoadedMsg{
		Path:      "src/util/helper.go",
		Ancestors: true,
		Listing:   listing,
	})

	for _, dir := range []string{"", "src", "src/util"} {
		id, ok := next.IDForPath(dir)
		require.True(t, ok, "missing %q", dir)
		require.True(t, next.IsLoaded(id), "%q should be loaded", dir)
	}

	docsID, _ := next.IDForPath("docs")
	require.False(t, next.IsLoaded(docsID))
}

func TestApply_TruncatesOverfullListing(t *testing.T) {
	const limit = 3

	entries := make([]source.Entry, limit+1)
	for i := range entries {
		entries[i] = entry(fmt.Sprintf("f%02d.go", i), false)
	}

	l := New(&scriptedSource{}, "acme/widgets", "", limit)
	next := l.Apply(tree.NewSnapshot("", false), EntriesLoadedMsg{
		Path:    "",
		Listing: source.Listing{Entries: entries},
	})

	rootID, _ := next.IDForPath("")
	require.True(t, next.IsLoaded(rootID))

	children := next.Root().ChildIDs
	require.Len(t, children, limit+1)

	last, _ := next.Node(children[limit])
	require.Equal(t, tree.KindPlaceholder, last.Kind)
}
