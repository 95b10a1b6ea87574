package source

import "errors"

// Listing errors. Fetch failures are scoped to the directory that
// requested them; only ErrRootMissing is fatal to a tree instance.
var (
	// ErrRootMissing indicates the root listing could not be produced.
	ErrRootMissing = errors.New("root listing unavailable")

	// ErrNotGitRepo indicates the directory is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrBadRevision indicates the requested revision does not resolve.
	ErrBadRevision = errors.New("unknown revision")

	// ErrPathOutsideRoot indicates a requested path escapes the repository root.
	ErrPathOutsideRoot = errors.New("path outside repository root")

	// ErrFileTooLarge indicates a file exceeds the content read cap.
	ErrFileTooLarge = errors.New("file too large to preview")
)
