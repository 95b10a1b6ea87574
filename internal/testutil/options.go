package testutil

import (
	"path"

	"github.com/zjrosen/fern/internal/source"
)

// defaultEntry returns an Entry with the name derived from the path.
func defaultEntry(p string, isDir bool) source.Entry {
	return source.Entry{
		Name:  path.Base(p),
		Path:  p,
		IsDir: isDir,
	}
}

// EntryOption configures an entry during builder setup.
type EntryOption func(*source.Entry)

// Name overrides the name derived from the entry path.
func Name(name string) EntryOption {
	return func(e *source.Entry) { e.Name = name }
}

// URL sets the entry URL instead of synthesizing one.
func URL(url string) EntryOption {
	return func(e *source.Entry) { e.URL = url }
}

// Submodule marks the entry as a submodule pinned at commit.
func Submodule(url, commit string) EntryOption {
	return func(e *source.Entry) {
		e.Submodule = &source.SubmoduleInfo{URL: url, Commit: commit}
	}
}

// SingleChild flags the entry as its parent's only child.
func SingleChild() EntryOption {
	return func(e *source.Entry) { e.SingleChild = true }
}
