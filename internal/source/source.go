// Package source defines the directory listing contract for the file tree
// and its concrete implementations (git object database, plain filesystem,
// memoizing and tracing decorators).
package source

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Request describes a single children fetch.
type Request struct {
	// Repo is the repository name used when synthesizing entry URLs.
	Repo string

	// Revision is the commit-ish the listing is resolved against.
	// Ignored by sources that only see a working tree.
	Revision string

	// Path is the repository-relative directory (or file, when Ancestors
	// is set) whose listing is requested. Empty string means the
	// repository root.
	Path string

	// Ancestors requests entries for Path and every ancestor directory up
	// to the root in a single response, grouped by parent directory.
	Ancestors bool

	// First caps the number of entries returned per directory.
	// Zero means no cap.
	First int
}

// Entry is one row of a directory listing.
type Entry struct {
	Name        string
	Path        string // repository-relative, slash separated
	IsDir       bool
	URL         string
	Submodule   *SubmoduleInfo // nil for regular entries
	SingleChild bool           // entry is its parent directory's only child
}

// SubmoduleInfo carries metadata for submodule (gitlink) entries.
type SubmoduleInfo struct {
	URL    string
	Commit string
}

// Listing is a successful fetch result.
// Entries for a given parent directory are contiguous, parents appear
// before their descendants.
type Listing struct {
	RootURL string
	Entries []Entry
}

// Source fetches directory listings. Implementations must be safe for
// concurrent use; each call performs at most one round trip.
type Source interface {
	FetchChildren(ctx context.Context, req Request) (Listing, error)
}

// MaxFileBytes caps how many bytes ReadFile returns. Larger files are
// refused rather than truncated, so a preview never shows a silently
// incomplete file.
const MaxFileBytes = 10 << 20

// ContentReader is the optional second capability of a source: reading
// one file's bytes at the revision the listings come from. Hosts that
// preview entries hold one of these alongside the Source.
type ContentReader interface {
	ReadFile(ctx context.Context, revision, path string) ([]byte, error)
}

// EntryURL synthesizes the opaque URL for an entry. Hosts treat these as
// tokens; only the source assigns them meaning.
func EntryURL(repo, revision string, isDir bool, entryPath string) string {
	at := ""
	if revision != "" {
		at = "@" + revision
	}
	if entryPath == "" {
		return fmt.Sprintf("/%s%s", repo, at)
	}
	kind := "blob"
	if isDir {
		kind = "tree"
	}
	return fmt.Sprintf("/%s%s/-/%s/%s", repo, at, kind, entryPath)
}

// ParentPath returns the parent directory of a repository-relative path,
// with "" denoting the root.
func ParentPath(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// CleanPath normalizes a repository-relative path. It rejects absolute
// paths and paths escaping the root.
func CleanPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRoot, p)
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRoot, p)
	}
	return cleaned, nil
}

// sortSiblings orders one directory's entries the way the tree displays
// them: directories first, then files, alphabetically within each group.
func sortSiblings(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// arrange buckets entries by parent directory, orders parents before
// descendants, sorts each sibling group, and applies the per-directory
// cap. Sources use it to satisfy the Listing contiguity contract.
func arrange(entries []Entry, first int) []Entry {
	buckets := make(map[string][]Entry)
	var parents []string
	for _, e := range entries {
		parent := ParentPath(e.Path)
		if _, seen := buckets[parent]; !seen {
			parents = append(parents, parent)
		}
		buckets[parent] = append(buckets[parent], e)
	}

	// Shallow parents first so a directory arrives before its children.
	sort.SliceStable(parents, func(i, j int) bool {
		di, dj := pathDepth(parents[i]), pathDepth(parents[j])
		if di != dj {
			return di < dj
		}
		return parents[i] < parents[j]
	})

	out := make([]Entry, 0, len(entries))
	for _, parent := range parents {
		group := buckets[parent]
		sortSiblings(group)
		markSingleChild(group)
		if first > 0 && len(group) > first {
			group = group[:first]
		}
		out = append(out, group...)
	}
	return out
}

// pathDepth counts path segments; the root is depth zero.
func pathDepth(p string) int {
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}

// markSingleChild flags the entry when it is its parent's only child.
func markSingleChild(group []Entry) {
	if len(group) == 1 {
		group[0].SingleChild = true
	}
}
