// Package overlay composites modal content over a rendered background
// frame, so help and log views can sit on top of the panes without a
// separate screen.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Position anchors the foreground inside the viewport.
type Position int

const (
	// Center anchors the foreground in the middle of the viewport.
	Center Position = iota
	// Top anchors it at the top, centered horizontally.
	Top
	// Bottom anchors it at the bottom, centered horizontally.
	Bottom
)

// Config describes the viewport the foreground is placed into.
type Config struct {
	// Width and Height are the viewport dimensions in cells.
	Width  int
	Height int
	// Position anchors the foreground.
	Position Position
	// PadY insets Top and Bottom placements from the edge.
	PadY int
}

// Place draws fg over bg at the configured position and returns the
// combined frame. Both sides keep their ANSI styling; the splice cuts
// around escape sequences, never through them.
func Place(cfg Config, fg, bg string) string {
	fgLines := strings.Split(fg, "\n")
	bgLines := strings.Split(bg, "\n")
	for len(bgLines) < cfg.Height {
		bgLines = append(bgLines, strings.Repeat(" ", cfg.Width))
	}

	x, y := calculatePosition(cfg, lipgloss.Width(fg), len(fgLines))

	for i, fgLine := range fgLines {
		row := y + i
		if row >= len(bgLines) {
			break
		}
		bgLines[row] = spliceLine(bgLines[row], fgLine, x)
	}
	return strings.Join(bgLines, "\n")
}

// spliceLine overwrites one background line with fg starting at cell x.
// Background cells left of x and right of the foreground survive.
func spliceLine(bg, fg string, x int) string {
	left := ansi.Truncate(bg, x, "")
	if w := ansi.StringWidth(left); w < x {
		left += strings.Repeat(" ", x-w)
	}

	var right string
	if end := x + ansi.StringWidth(fg); end < ansi.StringWidth(bg) {
		right = ansi.TruncateLeft(bg, end, "")
	}
	return left + fg + right
}

// calculatePosition resolves the top-left cell of the foreground.
// Foregrounds larger than the viewport pin to the top-left corner.
func calculatePosition(cfg Config, fgWidth, fgHeight int) (x, y int) {
	x = (cfg.Width - fgWidth) / 2

	switch cfg.Position {
	case Top:
		y = cfg.PadY
	case Bottom:
		y = cfg.Height - fgHeight - cfg.PadY
	default:
		y = (cfg.Height - fgHeight) / 2
	}
	return max(x, 0), max(y, 0)
}
