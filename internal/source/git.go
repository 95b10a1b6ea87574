package source

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path"
	"strconv"
	"strings"

	"github.com/zjrosen/fern/internal/log"
)

// Compile-time checks that GitSource implements both source capabilities.
var (
	_ Source        = (*GitSource)(nil)
	_ ContentReader = (*GitSource)(nil)
)

// GitSource lists directories from a repository's object database via
// git ls-tree, so listings reflect the requested revision rather than
// the working tree.
type GitSource struct {
	repoDir string
}

// NewGitSource creates a source rooted at the given repository directory.
func NewGitSource(repoDir string) *GitSource {
	return &GitSource{repoDir: repoDir}
}

// FetchChildren lists the immediate children of req.Path, or of every
// directory on the root-to-path chain when req.Ancestors is set.
func (g *GitSource) FetchChildren(ctx context.Context, req Request) (Listing, error) {
	cleaned, err := CleanPath(req.Path)
	if err != nil {
		return Listing{}, err
	}

	// URLs carry the caller's revision so an unpinned tree keeps
	// unpinned links; git itself always needs a concrete ref.
	gitRev := req.Revision
	if gitRev == "" {
		gitRev = "HEAD"
	}

	dirs := []string{cleaned}
	if req.Ancestors {
		dirs = chainDirs(cleaned)
	}

	var entries []Entry
	for _, dir := range dirs {
		listed, err := g.listDir(ctx, gitRev, dir, req.Repo, req.Revision)
		if err != nil {
			return Listing{}, err
		}
		entries = append(entries, listed...)
	}

	entries = arrange(entries, req.First)

	// The root of a non-empty repository always has entries; an empty
	// root listing means the revision resolves to nothing usable.
	rootRequested := cleaned == "" || req.Ancestors
	if rootRequested && countChildren(entries, "") == 0 {
		return Listing{}, fmt.Errorf("%w: %s@%s", ErrRootMissing, req.Repo, gitRev)
	}

	g.resolveSubmodules(ctx, gitRev, entries)

	return Listing{
		RootURL: EntryURL(req.Repo, req.Revision, true, ""),
		Entries: entries,
	}, nil
}

// ReadFile returns one file's contents at the revision the listings
// use. The blob's size is checked first so a preview cannot pull an
// enormous object into memory.
func (g *GitSource) ReadFile(ctx context.Context, revision, p string) ([]byte, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	gitRev := revision
	if gitRev == "" {
		gitRev = "HEAD"
	}
	spec := gitRev + ":" + cleaned

	sizeOut, err := g.runGit(ctx, "cat-file", "-s", spec)
	if err != nil {
		return nil, err
	}
	if size, parseErr := strconv.ParseInt(strings.TrimSpace(sizeOut), 10, 64); parseErr == nil && size > MaxFileBytes {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, cleaned, size)
	}

	out, err := g.runGit(ctx, "cat-file", "blob", spec)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// listDir runs one ls-tree invocation for a single directory.
func (g *GitSource) listDir(ctx context.Context, gitRev, dir, repo, urlRev string) ([]Entry, error) {
	args := []string{"ls-tree", "-z", gitRev}
	if dir != "" {
		args = append(args, "--", dir+"/")
	}

	out, err := g.runGit(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLsTree(out, repo, urlRev), nil
}

// runGit executes a git command in the repository directory and returns stdout.
func (g *GitSource) runGit(ctx context.Context, args ...string) (string, error) {
	//nolint:gosec // G204: args come from controlled sources
	cmd := exec.CommandContext(ctx, "git", args...)
	if g.repoDir != "" {
		cmd.Dir = g.repoDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", parseGitError(stderrStr, err)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	return stdout.String(), nil
}

// parseGitError converts git stderr messages to specific error types.
func parseGitError(stderr string, originalErr error) error {
	stderrLower := strings.ToLower(stderr)

	if strings.Contains(stderrLower, "not a git repository") {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, stderr)
	}

	if strings.Contains(stderrLower, "not a valid object name") ||
		strings.Contains(stderrLower, "unknown revision") ||
		strings.Contains(stderrLower, "bad revision") {
		return fmt.Errorf("%w: %s", ErrBadRevision, stderr)
	}

	return fmt.Errorf("git error: %s: %w", stderr, originalErr)
}

// parseLsTree parses NUL-terminated ls-tree records.
// Format: <mode> <type> <oid>\t<path>
func parseLsTree(out, repo, revision string) []Entry {
	var entries []Entry
	for record := range strings.SplitSeq(out, "\x00") {
		if record == "" {
			continue
		}
		tab := strings.IndexByte(record, '\t')
		if tab < 0 {
			continue
		}
		fields := strings.Fields(record[:tab])
		if len(fields) < 3 {
			continue
		}
		objType, oid := fields[1], fields[2]
		entryPath := record[tab+1:]

		e := Entry{
			Name:  path.Base(entryPath),
			Path:  entryPath,
			IsDir: objType == "tree",
		}
		if objType == "commit" {
			// Gitlink: rendered as a leaf, this repository cannot
			// descend into it.
			e.Submodule = &SubmoduleInfo{Commit: oid}
		}
		e.URL = EntryURL(repo, revision, e.IsDir, entryPath)
		entries = append(entries, e)
	}
	return entries
}

// chainDirs returns the directories covering p's ancestor chain from the
// root downward, including p itself: "", "a", "a/b" for p = "a/b".
func chainDirs(p string) []string {
	dirs := []string{""}
	if p == "" {
		return dirs
	}
	segs := strings.Split(p, "/")
	for i := 1; i <= len(segs); i++ {
		dirs = append(dirs, strings.Join(segs[:i], "/"))
	}
	return dirs
}

// countChildren counts entries whose parent is the given directory.
func countChildren(entries []Entry, parent string) int {
	n := 0
	for _, e := range entries {
		if ParentPath(e.Path) == parent {
			n++
		}
	}
	return n
}

// resolveSubmodules fills submodule URLs from .gitmodules when the
// listing contains gitlink entries. Best effort: a missing or malformed
// .gitmodules leaves the URL empty.
func (g *GitSource) resolveSubmodules(ctx context.Context, revision string, entries []Entry) {
	hasSubmodule := false
	for i := range entries {
		if entries[i].Submodule != nil {
			hasSubmodule = true
			break
		}
	}
	if !hasSubmodule {
		return
	}

	out, err := g.runGit(ctx, "show", revision+":.gitmodules")
	if err != nil {
		log.Debug(log.CatSource, "gitmodules unavailable", "revision", revision)
		return
	}
	urls := parseGitmodules(out)
	for i := range entries {
		if entries[i].Submodule != nil {
			entries[i].Submodule.URL = urls[entries[i].Path]
		}
	}
}

// parseGitmodules extracts path → url pairs from .gitmodules content.
func parseGitmodules(content string) map[string]string {
	urls := make(map[string]string)
	var currentPath, currentURL string

	flush := func() {
		if currentPath != "" && currentURL != "" {
			urls[currentPath] = currentURL
		}
	}

	for line := range strings.SplitSeq(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "[submodule"):
			flush()
			currentPath, currentURL = "", ""
		case strings.HasPrefix(line, "path"):
			if _, after, found := strings.Cut(line, "="); found {
				currentPath = strings.TrimSpace(after)
			}
		case strings.HasPrefix(line, "url"):
			if _, after, found := strings.Cut(line, "="); found {
				currentURL = strings.TrimSpace(after)
			}
		}
	}
	flush()

	return urls
}
