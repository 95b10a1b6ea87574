package testutil

import (
	"github.com/zjrosen/fern/internal/source"
)

// ListingBuilder accumulates entries and materializes a Listing.
// Entries keep insertion order so tests control arrival order exactly.
type ListingBuilder struct {
	repo     string
	revision string
	entries  []source.Entry
}

// NewListing creates a builder for listings of the given repo and revision.
func NewListing(repo, revision string) *ListingBuilder {
	return &ListingBuilder{repo: repo, revision: revision}
}

// WithDir adds a directory entry with optional configuration.
func (b *ListingBuilder) WithDir(path string, opts ...EntryOption) *ListingBuilder {
	b.entries = append(b.entries, b.entry(path, true, opts))
	return b
}

// WithFile adds a file entry with optional configuration.
func (b *ListingBuilder) WithFile(path string, opts ...EntryOption) *ListingBuilder {
	b.entries = append(b.entries, b.entry(path, false, opts))
	return b
}

// WithSubmodule adds a gitlink entry pinned at commit. Submodules are
// leaves, not directories, so the tree never offers to expand them.
func (b *ListingBuilder) WithSubmodule(path, url, commit string) *ListingBuilder {
	b.entries = append(b.entries, b.entry(path, false, []EntryOption{Submodule(url, commit)}))
	return b
}

func (b *ListingBuilder) entry(path string, isDir bool, opts []EntryOption) source.Entry {
	e := defaultEntry(path, isDir)
	for _, opt := range opts {
		opt(&e)
	}
	if e.URL == "" {
		e.URL = source.EntryURL(b.repo, b.revision, e.IsDir, e.Path)
	}
	return e
}

// Build materializes the accumulated listing.
func (b *ListingBuilder) Build() source.Listing {
	entries := make([]source.Entry, len(b.entries))
	copy(entries, b.entries)
	return source.Listing{
		RootURL: source.EntryURL(b.repo, b.revision, true, ""),
		Entries: entries,
	}
}
