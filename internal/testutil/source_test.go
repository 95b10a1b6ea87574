package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/fern/internal/source"
)

func TestScriptedSource_ReturnsScriptedListing(t *testing.T) {
	src := NewScriptedSource().
		Script("docs", NewListing("acme/widgets", "main").
			WithFile("docs/guide.md").
			Build())

	listing, err := src.FetchChildren(context.Background(), source.Request{Path: "docs"})
	require.NoError(t, err)
	require.Len(t, listing.Entries, 1)
	require.Equal(t, "docs/guide.md", listing.Entries[0].Path)
}

func TestScriptedSource_UnscriptedPathErrors(t *testing.T) {
	src := NewScriptedSource()

	_, err := src.FetchChildren(context.Background(), source.Request{Path: "ghost"})
	require.Error(t, err)
	require.Contains(t, err.Error(), `"ghost"`)
}

func TestScriptedSource_ScriptClearsError(t *testing.T) {
	fetchErr := errors.New("host unreachable")
	src := NewScriptedSource().ScriptErr("docs", fetchErr)

	_, err := src.FetchChildren(context.Background(), source.Request{Path: "docs"})
	require.ErrorIs(t, err, fetchErr)

	src.Script("docs", NewListing("acme/widgets", "main").Build())

	_, err = src.FetchChildren(context.Background(), source.Request{Path: "docs"})
	require.NoError(t, err, "re-scripting a listing should clear the error")
}

func TestScriptedSource_CountsCalls(t *testing.T) {
	src := NewScriptedSource().WithStandardRepo("acme/widgets", "main")

	require.Zero(t, src.Calls("docs"))

	for i := 0; i < 3; i++ {
		_, err := src.FetchChildren(context.Background(), source.Request{Path: "docs"})
		require.NoError(t, err)
	}
	_, err := src.FetchChildren(context.Background(), source.Request{Path: "src"})
	require.NoError(t, err)

	require.Equal(t, 3, src.Calls("docs"))
	require.Equal(t, 1, src.Calls("src"))
	require.Zero(t, src.Calls("vendor"))
}

func TestScriptedSource_RecordsRequests(t *testing.T) {
	src := NewScriptedSource().WithStandardRepo("acme/widgets", "main")

	_, err := src.FetchChildren(context.Background(), source.Request{
		Repo:      "acme/widgets",
		Revision:  "main",
		Path:      "src",
		Ancestors: true,
		First:     101,
	})
	require.NoError(t, err)

	reqs := src.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, "src", reqs[0].Path)
	require.True(t, reqs[0].Ancestors)
	require.Equal(t, 101, reqs[0].First)
}
