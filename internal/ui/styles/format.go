package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TruncateString fits s into maxWidth display cells, ending with an
// ellipsis when it had to cut.
func TruncateString(s string, maxWidth int) string {
	switch {
	case maxWidth < 1:
		return ""
	case lipgloss.Width(s) <= maxWidth:
		return s
	case maxWidth <= 3:
		return strings.Repeat(".", maxWidth)
	}

	// Keep whole runes while they fit in front of the ellipsis.
	keep := maxWidth - 3
	var b strings.Builder
	for _, r := range s {
		if lipgloss.Width(b.String()+string(r)) > keep {
			break
		}
		b.WriteRune(r)
	}
	return b.String() + "..."
}

// FormatSubmoduleIndicator returns the short-commit marker shown after
// a submodule row. Returns empty string when the commit is unknown.
func FormatSubmoduleIndicator(commit string) string {
	if commit == "" {
		return ""
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return "@" + commit
}
