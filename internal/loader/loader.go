// Package loader turns directory expansion into asynchronous fetch
// commands and folds the results back into tree snapshots. Failures
// travel inside the result message, never as a panic or a dropped
// update.
package loader

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/zjrosen/fern/internal/log"
	"github.com/zjrosen/fern/internal/source"
	"github.com/zjrosen/fern/internal/tree"
)

// EntriesLoadedMsg delivers one fetch result. Err is set instead of the
// listing when the fetch failed; RequestID ties the result back to the
// log line that started it.
type EntriesLoadedMsg struct {
	Path      string
	Ancestors bool
	Listing   source.Listing
	Err       error
	RequestID string
}

// Loader issues listing fetches against a source and applies the
// results. One Load call performs one source round trip, whether it
// covers a single directory or a whole ancestor chain.
type Loader struct {
	src      source.Source
	repo     string
	revision string
	limit    int
}

// New creates a loader. limit is the per-directory truncation limit;
// zero or negative disables truncation.
func New(src source.Source, repo, revision string, limit int) *Loader {
	return &Loader{src: src, repo: repo, revision: revision, limit: limit}
}

// Limit returns the per-directory truncation limit.
func (l *Loader) Limit() int {
	return l.limit
}

// LoadCmd returns a command fetching children for path, or for the
// whole root-to-path chain when ancestors is set. The fetch asks for
// one entry beyond the limit so truncation is detectable from the
// result itself.
func (l *Loader) LoadCmd(ctx context.Context, path string, ancestors bool) tea.Cmd {
	req := source.Request{
		Repo:      l.repo,
		Revision:  l.revision,
		Path:      path,
		Ancestors: ancestors,
	}
	if l.limit > 0 {
		req.First = l.limit + 1
	}
	requestID := uuid.New().String()

	return func() tea.Msg {
		log.Debug(log.CatLoader, "fetching entries", "request_id", requestID, "path", path, "ancestors", ancestors)

		listing, err := l.src.FetchChildren(ctx, req)
		if err != nil {
			log.ErrorErr(log.CatLoader, "fetch failed", err, "request_id", requestID, "path", path)
			return EntriesLoadedMsg{Path: path, Ancestors: ancestors, Err: err, RequestID: requestID}
		}

		log.Debug(log.CatLoader, "entries loaded", "request_id", requestID, "path", path, "count", len(listing.Entries))
		return EntriesLoadedMsg{Path: path, Ancestors: ancestors, Listing: listing, RequestID: requestID}
	}
}

// Apply folds a fetch result into the snapshot and returns the grown
// one. A failed fetch records the error on the requested directory; a
// successful fetch inserts the entries and marks every directory the
// response covered as loaded, so empty directories are remembered as
// loaded rather than refetched forever.
func (l *Loader) Apply(snap *tree.Snapshot, msg EntriesLoadedMsg) *tree.Snapshot {
	if msg.Err != nil {
		return snap.SetLoadError(msg.Path, msg.Err)
	}

	next := snap.Insert(msg.Listing.Entries, l.limit)

	if next.Root().URL == "" {
		if url := l.rootURL(next.RootPath(), msg.Listing); url != "" {
			next = next.SetRootURL(url)
		}
	}

	for _, dir := range coveredDirs(snap.RootPath(), msg) {
		next = next.MarkLoaded(dir)
	}
	return next
}

// rootURL picks the link for the root row. Rooted at the repository top
// the source's own root link wins; rooted below it the listing carries
// no link for the subdirectory, so one is synthesized.
func (l *Loader) rootURL(rootPath string, listing source.Listing) string {
	if rootPath == "" {
		return listing.RootURL
	}
	return source.EntryURL(l.repo, l.revision, true, rootPath)
}

// coveredDirs lists every directory the response answered for: the
// requested path, the parent of each returned entry, and on ancestor
// fetches the whole chain from the requested path up to the tree root.
// MarkLoaded drops paths that resolve to files or nothing.
func coveredDirs(rootPath string, msg EntriesLoadedMsg) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			dirs = append(dirs, p)
		}
	}

	add(msg.Path)
	for _, e := range msg.Listing.Entries {
		add(source.ParentPath(e.Path))
	}
	if msg.Ancestors {
		for p := msg.Path; p != rootPath && p != ""; p = source.ParentPath(p) {
			add(p)
		}
		add(rootPath)
	}
	return dirs
}
