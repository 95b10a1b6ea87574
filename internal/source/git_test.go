package source

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func mustGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func writeTestFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

// initTestRepo builds a committed repository with a small layered layout:
//
//	README.md
//	docs/guide.md
//	src/main.go
//	src/util/helper.go
func initTestRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)

	dir := t.TempDir()
	mustGit(t, dir, "init", "-q")
	mustGit(t, dir, "config", "user.email", "test@example.com")
	mustGit(t, dir, "config", "user.name", "test")

	writeTestFile(t, dir, "README.md", "# widgets\n")
	writeTestFile(t, dir, "docs/guide.md", "guide\n")
	writeTestFile(t, dir, "src/main.go", "package main\n")
	writeTestFile(t, dir, "src/util/helper.go", "package util\n")

	mustGit(t, dir, "add", ".")
	mustGit(t, dir, "commit", "-q", "-m", "initial")

	return dir
}

func TestGitSource_FetchChildren_Root(t *testing.T) {
	repo := initTestRepo(t)
	src := NewGitSource(repo)

	listing, err := src.FetchChildren(context.Background(), Request{Repo: "acme/widgets"})
	require.NoError(t, err)

	require.Equal(t, "/acme/widgets", listing.RootURL)
	require.Equal(t, []string{"docs", "src", "README.md"}, entryPaths(listing.Entries))

	require.True(t, listing.Entries[0].IsDir)
	require.True(t, listing.Entries[1].IsDir)
	require.False(t, listing.Entries[2].IsDir)

	require.Equal(t, "/acme/widgets/-/tree/docs", listing.Entries[0].URL)
	require.Equal(t, "/acme/widgets/-/blob/README.md", listing.Entries[2].URL)
}

func TestGitSource_FetchChildren_Subdirectory(t *testing.T) {
	repo := initTestRepo(t)
	src := NewGitSource(repo)

	listing, err := src.FetchChildren(context.Background(), Request{Repo: "acme/widgets", Path: "src"})
	require.NoError(t, err)

	require.Equal(t, []string{"src/util", "src/main.go"}, entryPaths(listing.Entries))
}

func TestGitSource_FetchChildren_Ancestors(t *testing.T) {
	repo := initTestRepo(t)
	src := NewGitSource(repo)

	listing, err := src.FetchChildren(context.Background(), Request{
		Repo:      "acme/widgets",
		Path:      "src/util/helper.go",
		Ancestors: true,
	})
	require.NoError(t, err)

	// Every directory on the chain is covered, grouped parent-first.
	require.Equal(t, []string{
		"docs",
		"src",
		"README.md",
		"src/util",
		"src/main.go",
		"src/util/helper.go",
	}, entryPaths(listing.Entries))

	byPath := make(map[string]Entry)
	for _, e := range listing.Entries {
		byPath[e.Path] = e
	}
	require.True(t, byPath["src/util/helper.go"].SingleChild)
	require.False(t, byPath["src/main.go"].SingleChild)
}

func TestGitSource_FetchChildren_FirstCapsPerDirectory(t *testing.T) {
	repo := initTestRepo(t)
	src := NewGitSource(repo)

	listing, err := src.FetchChildren(context.Background(), Request{
		Repo:  "acme/widgets",
		First: 2,
	})
	require.NoError(t, err)

	require.Equal(t, []string{"docs", "src"}, entryPaths(listing.Entries))
}

func TestGitSource_FetchChildren_PinnedRevision(t *testing.T) {
	repo := initTestRepo(t)
	mustGit(t, repo, "tag", "v1")
	src := NewGitSource(repo)

	listing, err := src.FetchChildren(context.Background(), Request{
		Repo:     "acme/widgets",
		Revision: "v1",
		Path:     "docs",
	})
	require.NoError(t, err)

	require.Equal(t, "/acme/widgets@v1", listing.RootURL)
	require.Equal(t, []string{"docs/guide.md"}, entryPaths(listing.Entries))
	require.Equal(t, "/acme/widgets@v1/-/blob/docs/guide.md", listing.Entries[0].URL)
}

func TestGitSource_FetchChildren_BadRevision(t *testing.T) {
	repo := initTestRepo(t)
	src := NewGitSource(repo)

	_, err := src.FetchChildren(context.Background(), Request{
		Repo:     "acme/widgets",
		Revision: "does-not-exist",
	})
	require.ErrorIs(t, err, ErrBadRevision)
}

func TestGitSource_FetchChildren_NotARepo(t *testing.T) {
	requireGit(t)
	src := NewGitSource(t.TempDir())

	_, err := src.FetchChildren(context.Background(), Request{Repo: "acme/widgets"})
	require.ErrorIs(t, err, ErrNotGitRepo)
}

func TestGitSource_FetchChildren_PathEscape(t *testing.T) {
	src := NewGitSource("/nowhere")

	_, err := src.FetchChildren(context.Background(), Request{Path: "../secrets"})
	require.ErrorIs(t, err, ErrPathOutsideRoot)
}

func TestParseLsTree(t *testing.T) {
	out := "100644 blob a1b2c3\tREADME.md\x00" +
		"040000 tree d4e5f6\tsrc\x00" +
		"160000 commit 123abc\tvendor/lib\x00"

	entries := parseLsTree(out, "acme/widgets", "main")

	require.Len(t, entries, 3)

	require.Equal(t, "README.md", entries[0].Name)
	require.False(t, entries[0].IsDir)
	require.Nil(t, entries[0].Submodule)
	require.Equal(t, "/acme/widgets@main/-/blob/README.md", entries[0].URL)

	require.Equal(t, "src", entries[1].Name)
	require.True(t, entries[1].IsDir)

	require.Equal(t, "lib", entries[2].Name)
	require.False(t, entries[2].IsDir, "gitlinks render as leaves")
	require.NotNil(t, entries[2].Submodule)
	require.Equal(t, "123abc", entries[2].Submodule.Commit)
}

func TestParseLsTree_MalformedRecords(t *testing.T) {
	out := "garbage\x00" + "100644 blob\tmissing-oid.go\x00" + "100644 blob abc\tok.go\x00"

	entries := parseLsTree(out, "acme/widgets", "")

	require.Equal(t, []string{"ok.go"}, entryPaths(entries))
}

func TestParseGitError(t *testing.T) {
	originalErr := errors.New("exit status 128")

	tests := []struct {
		name      string
		stderr    string
		wantError error
	}{
		{
			name:      "not a git repository",
			stderr:    "fatal: not a git repository (or any of the parent directories): .git",
			wantError: ErrNotGitRepo,
		},
		{
			name:      "not a valid object name",
			stderr:    "fatal: Not a valid object name does-not-exist",
			wantError: ErrBadRevision,
		},
		{
			name:      "unknown revision",
			stderr:    "fatal: ambiguous argument 'xyz': unknown revision or path not in the working tree.",
			wantError: ErrBadRevision,
		},
		{
			name:      "bad revision",
			stderr:    "fatal: bad revision 'xyz'",
			wantError: ErrBadRevision,
		},
		{
			name:      "unknown error",
			stderr:    "fatal: some other error",
			wantError: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := parseGitError(tc.stderr, originalErr)

			if tc.wantError != nil {
				require.ErrorIs(t, err, tc.wantError)
			} else {
				require.Contains(t, err.Error(), tc.stderr)
			}
		})
	}
}

func TestChainDirs(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"", []string{""}},
		{"src", []string{"", "src"}},
		{"src/util/helper.go", []string{"", "src", "src/util", "src/util/helper.go"}},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			require.Equal(t, tc.want, chainDirs(tc.path))
		})
	}
}

func TestParseGitmodules(t *testing.T) {
	content := `[submodule "lib"]
	path = vendor/lib
	url = https://example.com/lib.git
[submodule "tools"]
	path = vendor/tools
	url = https://example.com/tools.git
`

	urls := parseGitmodules(content)

	require.Equal(t, map[string]string{
		"vendor/lib":   "https://example.com/lib.git",
		"vendor/tools": "https://example.com/tools.git",
	}, urls)
}

func TestParseGitmodules_Malformed(t *testing.T) {
	require.Empty(t, parseGitmodules(""))
	require.Empty(t, parseGitmodules("[submodule \"lib\"]\n\tpath = vendor/lib\n"))
}

func TestGitSource_ReadFile(t *testing.T) {
	repo := initTestRepo(t)
	src := NewGitSource(repo)

	data, err := src.ReadFile(context.Background(), "", "src/main.go")
	require.NoError(t, err)
	require.Equal(t, "package main\n", string(data))
}

func TestGitSource_ReadFile_AtRevision(t *testing.T) {
	repo := initTestRepo(t)
	mustGit(t, repo, "tag", "v1")
	writeTestFile(t, repo, "README.md", "# widgets v2\n")
	mustGit(t, repo, "add", ".")
	mustGit(t, repo, "commit", "-q", "-m", "update readme")
	src := NewGitSource(repo)

	// The pinned revision still serves the old contents.
	data, err := src.ReadFile(context.Background(), "v1", "README.md")
	require.NoError(t, err)
	require.Equal(t, "# widgets\n", string(data))

	data, err = src.ReadFile(context.Background(), "", "README.md")
	require.NoError(t, err)
	require.Equal(t, "# widgets v2\n", string(data))
}

func TestGitSource_ReadFile_Missing(t *testing.T) {
	repo := initTestRepo(t)
	src := NewGitSource(repo)

	_, err := src.ReadFile(context.Background(), "", "absent.md")
	require.Error(t, err)
}

func TestGitSource_ReadFile_PathEscape(t *testing.T) {
	src := NewGitSource("/nowhere")

	_, err := src.ReadFile(context.Background(), "", "../secrets")
	require.ErrorIs(t, err, ErrPathOutsideRoot)
}
