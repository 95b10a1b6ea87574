// Package logoverlay provides an in-app log viewer overlay that shows
// recent log entries without leaving the TUI. Entries stream in over
// the log package's broker, so the overlay accumulates them even while
// hidden.
package logoverlay

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/zjrosen/fern/internal/log"
	"github.com/zjrosen/fern/internal/ui/overlay"
	"github.com/zjrosen/fern/internal/ui/styles"
)

const (
	viewportMaxHeight = 25
	viewportMinHeight = 5
	boxMaxWidth       = 160
	boxMinWidth       = 40
	maxEntries        = 2000

	// Rows around the viewport: title, two dividers, hints, borders.
	chromeRows = 6
)

var (
	logTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.OverlayTitleColor).
			PaddingLeft(1)

	logDividerStyle = lipgloss.NewStyle().
			Foreground(styles.OverlayBorderColor)

	logBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.OverlayBorderColor)

	logEmptyStyle = lipgloss.NewStyle().
			Foreground(styles.TextMutedColor).
			Italic(true)

	hintStyle       = lipgloss.NewStyle().Foreground(styles.TextMutedColor)
	hintActiveStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimaryColor).
			Bold(true)
)

// CloseMsg is sent when the overlay should be closed.
type CloseMsg struct{}

// Model is the log overlay component state.
type Model struct {
	visible  bool
	minLevel log.Level
	width    int
	height   int
	viewport viewport.Model
	entries  []string

	cancel   context.CancelFunc
	listener *log.LogListener
}

// New creates a hidden overlay showing every level.
func New() Model {
	return Model{
		visible:  false,
		minLevel: log.LevelDebug,
	}
}

// StartListening subscribes to the log broker and returns the command
// that waits for the first entry. Returns nil when logging is not
// initialized.
func (m *Model) StartListening() tea.Cmd {
	if m.listener != nil {
		return m.listener.Listen()
	}
	ctx, cancel := context.WithCancel(context.Background())
	listener := log.NewListener(ctx)
	if listener == nil {
		cancel()
		return nil
	}
	m.cancel = cancel
	m.listener = listener
	return listener.Listen()
}

// StopListening cancels the log subscription.
func (m *Model) StopListening() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
		m.listener = nil
	}
}

// Update handles messages for the log overlay.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case log.LogEvent:
		m.entries = appendEntry(m.entries, msg.Payload)
		if m.visible {
			m.refreshViewport()
		}
		if m.listener != nil {
			return m, m.listener.Listen()
		}
		return m, nil

	case tea.KeyMsg:
		if !m.visible {
			return m, nil
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refreshViewport()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "c":
		m.entries = nil
		m.refreshViewport()

	case "d", "i", "w", "e":
		m.minLevel = levelForKey(key)
		m.refreshViewport()

	case "j", "down":
		m.viewport.ScrollDown(1)

	case "k", "up":
		m.viewport.ScrollUp(1)

	case "g":
		m.viewport.GotoTop()

	case "G":
		m.viewport.GotoBottom()

	case "ctrl+c":
		return m, tea.Quit

	case "ctrl+x", "esc":
		m.visible = false
		return m, func() tea.Msg { return CloseMsg{} }
	}

	return m, nil
}

// levelForKey maps a filter key to the minimum level it selects.
func levelForKey(key string) log.Level {
	switch key {
	case "i":
		return log.LevelInfo
	case "w":
		return log.LevelWarn
	case "e":
		return log.LevelError
	default:
		return log.LevelDebug
	}
}

// View renders the overlay box: title, entries, filter hints.
func (m Model) View() string {
	if !m.visible {
		return ""
	}

	boxWidth := m.boxWidth()
	divider := logDividerStyle.Render(strings.Repeat("─", boxWidth))

	body := strings.Join([]string{
		logTitleStyle.Render("Logs"),
		divider,
		m.viewport.View(),
		divider,
		m.filterHints(),
	}, "\n")

	return logBoxStyle.Width(boxWidth).Render(body)
}

// Overlay renders the overlay centered on the given background.
func (m Model) Overlay(bg string) string {
	if !m.visible {
		return bg
	}
	return overlay.Place(overlay.Config{
		Width:    m.width,
		Height:   m.height,
		Position: overlay.Center,
	}, m.View(), bg)
}

// Visible returns whether the overlay is currently shown.
func (m Model) Visible() bool {
	return m.visible
}

// Toggle flips visibility.
func (m *Model) Toggle() {
	m.visible = !m.visible
	if m.visible {
		m.refreshViewport()
	}
}

// Show makes the overlay visible.
func (m *Model) Show() {
	m.visible = true
	m.refreshViewport()
}

// Hide makes the overlay invisible.
func (m *Model) Hide() {
	m.visible = false
}

// SetSize records the screen dimensions the overlay centers within.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.refreshViewport()
}

// appendEntry adds one entry to the buffer, dropping the oldest when
// the buffer is full.
func appendEntry(entries []string, entry string) []string {
	if len(entries) >= maxEntries {
		entries = entries[1:]
	}
	return append(entries, entry)
}

// refreshViewport rebuilds the viewport content under the current
// filter, scrolled to the newest entry.
func (m *Model) refreshViewport() {
	if m.width == 0 || m.height == 0 {
		return
	}

	contentWidth := m.contentWidth()
	height := min(viewportMaxHeight, m.height-chromeRows)
	height = max(height, viewportMinHeight)

	m.viewport = viewport.New(contentWidth, height)
	m.viewport.SetContent(m.renderEntries(contentWidth))
	m.viewport.GotoBottom()
}

func (m Model) boxWidth() int {
	return max(min(m.width-4, boxMaxWidth), boxMinWidth)
}

func (m Model) contentWidth() int {
	return m.boxWidth() - 2
}

// filtered returns the entries at or above the current filter level.
func (m Model) filtered() []string {
	var kept []string
	for _, entry := range m.entries {
		if m.matchesLevel(entry) {
			kept = append(kept, entry)
		}
	}
	return kept
}

// renderEntries renders the filtered entries as viewport content.
func (m Model) renderEntries(contentWidth int) string {
	entries := m.filtered()
	if len(entries) == 0 {
		return logEmptyStyle.Render("No logs to display")
	}

	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = renderEntry(entry, contentWidth)
	}
	return strings.Join(lines, "\n")
}

// entryLevel extracts the level marker from a formatted entry; ok is
// false when the entry carries no marker.
func entryLevel(entry string) (log.Level, bool) {
	switch {
	case strings.Contains(entry, "[ERROR]"):
		return log.LevelError, true
	case strings.Contains(entry, "[WARN]"):
		return log.LevelWarn, true
	case strings.Contains(entry, "[INFO]"):
		return log.LevelInfo, true
	case strings.Contains(entry, "[DEBUG]"):
		return log.LevelDebug, true
	}
	return 0, false
}

// matchesLevel reports whether an entry passes the current filter.
// Entries without a level marker are always shown.
func (m Model) matchesLevel(entry string) bool {
	level, ok := entryLevel(entry)
	if !ok {
		return true
	}
	return level >= m.minLevel
}

// renderEntry colors one entry by its level and fits it to maxWidth.
func renderEntry(entry string, maxWidth int) string {
	entry = strings.TrimSuffix(entry, "\n")
	if ansi.StringWidth(entry) > maxWidth {
		entry = ansi.Truncate(entry, maxWidth-3, "...")
	}

	color := styles.TextPrimaryColor
	if level, ok := entryLevel(entry); ok {
		switch level {
		case log.LevelError:
			color = styles.StatusErrorColor
		case log.LevelWarn:
			color = styles.StatusWarningColor
		case log.LevelInfo:
			color = styles.StatusInfoColor
		case log.LevelDebug:
			color = styles.TextMutedColor
		}
	}
	return lipgloss.NewStyle().Foreground(color).Render(entry)
}

// filterHints is the footer row naming the filter keys, with the
// active level highlighted.
func (m Model) filterHints() string {
	hints := []string{hintStyle.Render("[c] Clear")}

	levels := []struct {
		level log.Level
		label string
	}{
		{log.LevelDebug, "[d] Debug"},
		{log.LevelInfo, "[i] Info"},
		{log.LevelWarn, "[w] Warn"},
		{log.LevelError, "[e] Error"},
	}
	for _, l := range levels {
		if m.minLevel == l.level {
			hints = append(hints, hintActiveStyle.Render(l.label))
		} else {
			hints = append(hints, hintStyle.Render(l.label))
		}
	}

	return strings.Join(hints, "  ")
}
