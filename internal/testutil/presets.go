package testutil

import "fmt"

// WithStandardRepo scripts a small fixed repository.
//
// Structure:
//
//	docs/
//	  api.md
//	  guide.md
//	libterm         (submodule @ abc123def456)
//	src/
//	  parser/
//	    lexer.go
//	    parser.go
//	  main.go
//	vendor/         (empty)
//	go.mod
//	README.md
//
// Listings are scripted for "", "docs", "src", "src/parser", and
// "vendor", each in the order shown.
func (s *ScriptedSource) WithStandardRepo(repo, revision string) *ScriptedSource {
	return s.
		Script("", NewListing(repo, revision).
			WithDir("docs").
			WithSubmodule("libterm", "https://example.com/libterm.git", "abc123def456").
			WithDir("src").
			WithDir("vendor").
			WithFile("go.mod").
			WithFile("README.md").
			Build()).
		Script("docs", NewListing(repo, revision).
			WithFile("docs/api.md").
			WithFile("docs/guide.md").
			Build()).
		Script("src", NewListing(repo, revision).
			WithDir("src/parser").
			WithFile("src/main.go").
			Build()).
		Script("src/parser", NewListing(repo, revision).
			WithFile("src/parser/lexer.go").
			WithFile("src/parser/parser.go").
			Build()).
		Script("vendor", NewListing(repo, revision).Build())
}

// WithOverfullDirectory scripts dir with n generated files, for
// exercising truncation placeholders.
func (s *ScriptedSource) WithOverfullDirectory(repo, revision, dir string, n int) *ScriptedSource {
	b := NewListing(repo, revision)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("file_%03d.txt", i)
		p := name
		if dir != "" {
			p = dir + "/" + name
		}
		b.WithFile(p)
	}
	return s.Script(dir, b.Build())
}
