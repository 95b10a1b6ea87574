package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"syscall"
)

// Compile-time checks that FSSource implements both source capabilities.
var (
	_ Source        = (*FSSource)(nil)
	_ ContentReader = (*FSSource)(nil)
)

// FSSource lists directories straight from the working tree. It backs
// plain directories that are not git repositories, and serves as the
// fallback when the object database is unavailable.
type FSSource struct {
	root string
}

// NewFSSource creates a source rooted at the given directory.
func NewFSSource(root string) *FSSource {
	return &FSSource{root: root}
}

// FetchChildren lists the immediate children of req.Path, or of every
// directory on the root-to-path chain when req.Ancestors is set.
func (f *FSSource) FetchChildren(ctx context.Context, req Request) (Listing, error) {
	cleaned, err := CleanPath(req.Path)
	if err != nil {
		return Listing{}, err
	}

	dirs := []string{cleaned}
	if req.Ancestors {
		dirs = chainDirs(cleaned)
	}

	// An absent or unreadable root is fatal; an absent subdirectory just
	// lists nothing.
	if cleaned == "" || req.Ancestors {
		info, statErr := os.Stat(f.root)
		if statErr != nil || !info.IsDir() {
			return Listing{}, fmt.Errorf("%w: %s", ErrRootMissing, f.root)
		}
	}

	var entries []Entry
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return Listing{}, err
		}
		listed, err := f.listDir(dir, req.Repo, req.Revision)
		if err != nil {
			return Listing{}, err
		}
		entries = append(entries, listed...)
	}

	return Listing{
		RootURL: EntryURL(req.Repo, req.Revision, true, ""),
		Entries: arrange(entries, req.First),
	}, nil
}

// ReadFile returns one file's bytes from the working tree. The
// revision is ignored: the working tree is the only revision this
// source has.
func (f *FSSource) ReadFile(_ context.Context, _ string, p string) ([]byte, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	full := filepath.Join(f.root, filepath.FromSlash(cleaned))

	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cleaned, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("reading %s: is a directory", cleaned)
	}
	if info.Size() > MaxFileBytes {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, cleaned, info.Size())
	}

	//nolint:gosec // G304: path cleaned and rooted above
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cleaned, err)
	}
	return data, nil
}

func (f *FSSource) listDir(dir, repo, revision string) ([]Entry, error) {
	dirents, err := os.ReadDir(filepath.Join(f.root, filepath.FromSlash(dir)))
	if err != nil {
		// A file on the ancestor chain is expected: the target of an
		// ancestors request may be a file, which lists nothing.
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if d.Name() == ".git" {
			continue
		}
		entryPath := path.Join(dir, d.Name())
		entries = append(entries, Entry{
			Name:  d.Name(),
			Path:  entryPath,
			IsDir: d.IsDir(),
			URL:   EntryURL(repo, revision, d.IsDir(), entryPath),
		})
	}
	return entries, nil
}
