package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListingBuilder_DerivesNamesAndURLs(t *testing.T) {
	listing := NewListing("acme/widgets", "main").
		WithDir("src").
		WithFile("src/main.go").
		Build()

	require.Equal(t, "/acme/widgets@main", listing.RootURL)
	require.Len(t, listing.Entries, 2)

	dir := listing.Entries[0]
	require.Equal(t, "src", dir.Name)
	require.True(t, dir.IsDir)
	require.Equal(t, "/acme/widgets@main/-/tree/src", dir.URL)

	file := listing.Entries[1]
	require.Equal(t, "main.go", file.Name)
	require.False(t, file.IsDir)
	require.Equal(t, "/acme/widgets@main/-/blob/src/main.go", file.URL)
}

func TestListingBuilder_KeepsInsertionOrder(t *testing.T) {
	// Deliberately misordered: child before parent. Linking tests depend
	// on the builder not reordering.
	listing := NewListing("acme/widgets", "main").
		WithFile("src/main.go").
		WithDir("src").
		Build()

	require.Equal(t, "src/main.go", listing.Entries[0].Path)
	require.Equal(t, "src", listing.Entries[1].Path)
}

func TestListingBuilder_Options(t *testing.T) {
	listing := NewListing("acme/widgets", "main").
		WithFile("docs/guide.md", Name("Guide"), URL("/custom")).
		WithDir("src", SingleChild()).
		Build()

	require.Equal(t, "Guide", listing.Entries[0].Name)
	require.Equal(t, "/custom", listing.Entries[0].URL, "explicit URL should not be overwritten")
	require.True(t, listing.Entries[1].SingleChild)
}

func TestListingBuilder_Submodule(t *testing.T) {
	listing := NewListing("acme/widgets", "main").
		WithSubmodule("libterm", "https://example.com/libterm.git", "abc123def456").
		Build()

	entry := listing.Entries[0]
	require.False(t, entry.IsDir, "gitlinks render as leaves")
	require.NotNil(t, entry.Submodule)
	require.Equal(t, "https://example.com/libterm.git", entry.Submodule.URL)
	require.Equal(t, "abc123def456", entry.Submodule.Commit)
}

func TestListingBuilder_EmptyRevision(t *testing.T) {
	listing := NewListing("acme/widgets", "").
		WithFile("README.md").
		Build()

	require.Equal(t, "/acme/widgets", listing.RootURL)
	require.Equal(t, "/acme/widgets/-/blob/README.md", listing.Entries[0].URL)
}
