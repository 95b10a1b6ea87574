// Package testutil provides shared helpers for tests: a scripted Source
// with call accounting, and builders for listings and entries.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/zjrosen/fern/internal/source"
)

// ScriptedSource is a Source whose responses are scripted per path.
// Fetches of unscripted paths fail, so tests notice unexpected round
// trips. Safe for concurrent use.
type ScriptedSource struct {
	mu       sync.Mutex
	listings map[string]source.Listing
	errs     map[string]error
	calls    map[string]int
	requests []source.Request
}

// NewScriptedSource creates an empty scripted source.
func NewScriptedSource() *ScriptedSource {
	return &ScriptedSource{
		listings: make(map[string]source.Listing),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Script sets the listing returned for fetches of path.
// A previously scripted error for the path is cleared.
func (s *ScriptedSource) Script(path string, listing source.Listing) *ScriptedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[path] = listing
	delete(s.errs, path)
	return s
}

// ScriptErr makes fetches of path fail with err until re-scripted.
func (s *ScriptedSource) ScriptErr(path string, err error) *ScriptedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[path] = err
	return s
}

// FetchChildren returns the scripted response for req.Path verbatim.
// The request cap is not applied; script the response you expect.
func (s *ScriptedSource) FetchChildren(_ context.Context, req source.Request) (source.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[req.Path]++
	s.requests = append(s.requests, req)
	if err, ok := s.errs[req.Path]; ok {
		return source.Listing{}, err
	}
	listing, ok := s.listings[req.Path]
	if !ok {
		return source.Listing{}, fmt.Errorf("unscripted path %q", req.Path)
	}
	return listing, nil
}

// Calls reports how many fetches path has received.
func (s *ScriptedSource) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Requests returns a copy of every request seen, in order.
func (s *ScriptedSource) Requests() []source.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]source.Request, len(s.requests))
	copy(out, s.requests)
	return out
}
