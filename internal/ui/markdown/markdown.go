// Package markdown renders markdown source into styled terminal text
// for the preview pane.
package markdown

import "github.com/charmbracelet/glamour"

// marginOverride strips glamour's document margins; the preview pane
// brings its own padding.
const marginOverride = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// Renderer is a fixed-width glamour renderer pinned to a named style.
type Renderer struct {
	term  *glamour.TermRenderer
	width int
}

// New builds a renderer wrapping at width. style is "dark" or "light";
// empty selects dark. The style is pinned rather than auto-detected
// because WithAutoStyle probes the terminal with OSC queries, and the
// responses leak into bubbletea's input stream.
func New(width int, style string) (*Renderer, error) {
	if style == "" {
		style = "dark"
	}
	term, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithStylesFromJSONBytes([]byte(marginOverride)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{term: term, width: width}, nil
}

// Width returns the wrap width the renderer was built with.
func (r *Renderer) Width() int { return r.width }

// Render returns markdown as styled terminal output.
func (r *Renderer) Render(markdown string) (string, error) {
	return r.term.Render(markdown)
}
