// Package help renders the keybinding overlay.
package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/fern/internal/keys"
	"github.com/zjrosen/fern/internal/ui/overlay"
	"github.com/zjrosen/fern/internal/ui/styles"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.OverlayTitleColor).
			PaddingLeft(2)

	dividerStyle = lipgloss.NewStyle().
			Foreground(styles.OverlayBorderColor)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.OverlayTitleColor).
			MarginTop(1)

	bindingKeyStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondaryColor).
			Width(11)

	bindingDescStyle = lipgloss.NewStyle().
				Foreground(styles.TextDescriptionColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.OverlayBorderColor)

	contentStyle = lipgloss.NewStyle().
			Padding(0, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(styles.TextMutedColor).
			MarginTop(1)
)

// section is one titled column of bindings in the overlay.
type section struct {
	title    string
	bindings []key.Binding
}

// sections lays out the overlay columns left to right.
func sections() []section {
	return []section{
		{title: "Navigation", bindings: []key.Binding{
			keys.Tree.Up,
			keys.Tree.Down,
			keys.Tree.PageUp,
			keys.Tree.PageDown,
		}},
		{title: "Tree", bindings: []key.Binding{
			keys.Tree.Expand,
			keys.Tree.Collapse,
			keys.Tree.Parent,
			keys.Tree.Enter,
			keys.Tree.Refresh,
		}},
		{title: "Preview", bindings: []key.Binding{
			keys.Preview.Up,
			keys.Preview.Down,
			keys.Preview.HalfUp,
			keys.Preview.HalfDown,
			keys.Preview.Top,
			keys.Preview.Bottom,
			keys.Preview.Back,
		}},
		{title: "General", bindings: []key.Binding{
			keys.App.FocusNext,
			keys.App.WidenSidebar,
			keys.App.NarrowSidebar,
			keys.Tree.Help,
			keys.Tree.Quit,
		}},
	}
}

// Model holds the overlay dimensions.
type Model struct {
	width  int
	height int
}

// New creates the help overlay.
func New() Model {
	return Model{}
}

// SetSize updates the dimensions the overlay centers within.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	return m
}

// View renders the overlay on an empty background.
func (m Model) View() string {
	return m.Overlay("")
}

// Overlay renders the help box centered over background.
func (m Model) Overlay(background string) string {
	box := m.renderBox()
	if background == "" {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return overlay.Place(overlay.Config{
		Width:    m.width,
		Height:   m.height,
		Position: overlay.Center,
	}, box, background)
}

// renderBox builds the bordered box: title, divider, binding columns,
// footer.
func (m Model) renderBox() string {
	gap := lipgloss.NewStyle().MarginRight(4)

	secs := sections()
	cols := make([]string, 0, len(secs))
	for i, sec := range secs {
		col := renderSection(sec)
		if i < len(secs)-1 {
			col = gap.Render(col)
		}
		cols = append(cols, col)
	}
	columns := lipgloss.JoinHorizontal(lipgloss.Top, cols...)

	boxWidth := lipgloss.Width(columns) + 4

	body := contentStyle.Render(columns + "\n" + footerStyle.Render("Press ? or Esc to close"))
	divider := dividerStyle.Render(strings.Repeat("─", boxWidth))

	var b strings.Builder
	b.WriteString(titleStyle.Render("Keybindings"))
	b.WriteString("\n")
	b.WriteString(divider)
	b.WriteString("\n")
	b.WriteString(body)

	return boxStyle.Width(boxWidth).Render(b.String())
}

// renderSection renders one column: heading, then a key and description
// per row.
func renderSection(sec section) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(sec.title))
	b.WriteString("\n")
	for _, binding := range sec.bindings {
		h := binding.Help()
		b.WriteString(bindingKeyStyle.Render(h.Key))
		b.WriteString(bindingDescStyle.Render(h.Desc))
		b.WriteString("\n")
	}
	return b.String()
}
