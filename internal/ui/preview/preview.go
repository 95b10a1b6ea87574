// Package preview renders the selected entry's contents in a
// scrollable pane: markdown through glamour, everything else
// word-wrapped as text, with binary and unreadable files reported
// inline instead of rendered.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zjrosen/fern/internal/keys"
	"github.com/zjrosen/fern/internal/log"
	"github.com/zjrosen/fern/internal/source"
	"github.com/zjrosen/fern/internal/ui/markdown"
	"github.com/zjrosen/fern/internal/ui/styles"
)

// ContentLoadedMsg delivers one file read. Path ties the result to the
// entry it was requested for, so a slow read cannot clobber a newer
// selection.
type ContentLoadedMsg struct {
	Path string
	Data []byte
	Err  error
}

// LoadCmd reads path's bytes at revision off the UI loop.
func LoadCmd(reader source.ContentReader, revision, p string) tea.Cmd {
	return func() tea.Msg {
		data, err := reader.ReadFile(context.Background(), revision, p)
		return ContentLoadedMsg{Path: p, Data: data, Err: err}
	}
}

// Model is the preview pane state.
type Model struct {
	vp      viewport.Model
	width   int
	height  int
	mdStyle string

	path    string
	isDir   bool
	loading bool
	raw     []byte
	err     error
}

// New creates an empty pane. mdStyle is the glamour style name, "dark"
// or "light".
func New(mdStyle string) Model {
	return Model{mdStyle: mdStyle}
}

// Show points the pane at an entry. Files stay in the loading state
// until their ContentLoadedMsg arrives; directories and the empty
// state render immediately.
func (m Model) Show(p string, isDir bool) Model {
	m.path = p
	m.isDir = isDir
	m.loading = !isDir
	m.raw = nil
	m.err = nil
	m.vp.SetYOffset(0)
	return m.render()
}

// SetSize tells the pane its content area. Text is re-wrapped at the
// new width.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	return m.render()
}

// Path returns the entry the pane is showing, empty when none.
func (m Model) Path() string {
	return m.path
}

// Title returns the pane caption for the surrounding border.
func (m Model) Title() string {
	if m.path == "" {
		return "preview"
	}
	return m.path
}

// ScrollPercent reports the scroll position for the status bar.
func (m Model) ScrollPercent() float64 {
	return m.vp.ScrollPercent()
}

// Update routes one message. The host forwards key presses only while
// the pane has focus.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg), nil
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.vp.ScrollUp(3)
		case tea.MouseButtonWheelDown:
			m.vp.ScrollDown(3)
		}
		return m, nil
	case ContentLoadedMsg:
		return m.handleLoaded(msg), nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) Model {
	switch {
	case key.Matches(msg, keys.Preview.Down):
		m.vp.ScrollDown(1)
	case key.Matches(msg, keys.Preview.Up):
		m.vp.ScrollUp(1)
	case key.Matches(msg, keys.Preview.HalfDown):
		m.vp.ScrollDown(max(m.vp.Height/2, 1))
	case key.Matches(msg, keys.Preview.HalfUp):
		m.vp.ScrollUp(max(m.vp.Height/2, 1))
	case key.Matches(msg, keys.Preview.Top):
		m.vp.GotoTop()
	case key.Matches(msg, keys.Preview.Bottom):
		m.vp.GotoBottom()
	}
	return m
}

func (m Model) handleLoaded(msg ContentLoadedMsg) Model {
	if msg.Path != m.path {
		log.Debug(log.CatUI, "dropping stale preview content", "path", msg.Path, "showing", m.path)
		return m
	}
	m.loading = false
	m.raw = msg.Data
	m.err = msg.Err
	m.vp.SetYOffset(0)
	return m.render()
}

// View renders the scrolled window of the current content.
func (m Model) View() string {
	return m.vp.View()
}

func (m Model) render() Model {
	m.vp.Width = max(m.width, 1)
	m.vp.Height = max(m.height, 1)
	m.vp.SetContent(m.content())
	if m.vp.YOffset > 0 && m.vp.TotalLineCount() <= m.vp.YOffset {
		m.vp.SetYOffset(max(0, m.vp.TotalLineCount()-1))
	}
	return m
}

func (m Model) content() string {
	switch {
	case m.path == "":
		return styles.HelpStyle.Render("no file selected")
	case m.isDir:
		return styles.DirectoryStyle.Render(path.Base(m.path)+"/") + "\n\n" +
			styles.HelpStyle.Render("directory, entries are in the tree")
	case m.loading:
		return styles.LoadingStyle.Render("loading " + m.path + "…")
	case m.err != nil:
		return styles.ErrorStyle.Render(m.err.Error())
	case isBinary(m.raw):
		return styles.HelpStyle.Render(fmt.Sprintf("binary file, %d bytes", len(m.raw)))
	case isMarkdown(m.path):
		return m.renderMarkdown()
	default:
		return wordwrap.String(string(m.raw), max(m.width, 1))
	}
}

func (m Model) renderMarkdown() string {
	r, err := markdown.New(max(m.width, 1), m.mdStyle)
	if err == nil {
		if out, rerr := r.Render(string(m.raw)); rerr == nil {
			return out
		}
	}
	// Raw markdown still beats an empty pane.
	return wordwrap.String(string(m.raw), max(m.width, 1))
}

// isBinary reports whether data looks like a binary blob, using the
// heuristic git uses: a NUL byte in the first 8000 bytes.
func isBinary(data []byte) bool {
	n := min(len(data), 8000)
	return bytes.IndexByte(data[:n], 0) >= 0
}

func isMarkdown(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown", ".mdown":
		return true
	}
	return false
}
