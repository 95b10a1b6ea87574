package filetree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/fern/internal/tree"
	"github.com/zjrosen/fern/internal/ui/styles"
)

const wheelScrollLines = 3

// row is one renderable line: a node, or the inline error line shown
// under an expanded directory whose last load failed.
type row struct {
	id    tree.NodeID
	depth int
	err   error
}

// rows flattens the tree into display order. Error lines ride directly
// under their directory so a failed expand is visible where the user
// is looking.
func (m Model) rows() []row {
	ids := tree.VisibleIDs(m.snap, m.expanded)
	out := make([]row, 0, len(ids))
	for _, id := range ids {
		node, ok := m.snap.Node(id)
		if !ok {
			continue
		}
		depth := m.depth(node)
		out = append(out, row{id: id, depth: depth})
		if node.IsDir && node.LoadErr != nil && m.expanded[node.Path] {
			out = append(out, row{id: id, depth: depth + 1, err: node.LoadErr})
		}
	}
	return out
}

func (m Model) depth(node tree.Node) int {
	d := 0
	for node.ParentID != tree.InvalidID {
		parent, ok := m.snap.Node(node.ParentID)
		if !ok {
			break
		}
		d++
		node = parent
	}
	return d
}

// View renders the visible window of rows with overflow indicators,
// in the style of the rest of the app's scrolling panes.
func (m Model) View() string {
	rows := m.rows()
	if len(rows) == 0 {
		return ""
	}

	vh := m.viewportHeight()
	top := min(max(m.scrollTop, 0), max(len(rows)-vh, 0))
	end := min(top+vh, len(rows))

	var b strings.Builder
	if top > 0 {
		b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("  ↑ %d more", top)))
		b.WriteString("\n")
	}
	for i := top; i < end; i++ {
		b.WriteString(m.renderRow(rows[i]))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	if rest := len(rows) - end; rest > 0 {
		b.WriteString("\n")
		b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("  ↓ %d more", rest)))
	}
	return b.String()
}

func (m Model) renderRow(r row) string {
	indent := strings.Repeat("  ", r.depth)

	if r.err != nil {
		line := "  " + indent + "⚠ " + r.err.Error()
		return styles.ErrorRowStyle.Render(styles.TruncateString(line, m.rowWidth()))
	}

	node, ok := m.snap.Node(r.id)
	if !ok {
		return ""
	}

	indicator := "  "
	if r.id == m.sel.SelectedID {
		indicator = styles.SelectionIndicatorStyle.Render(">") + " "
	}

	glyph := m.glyph(node)
	label, style := m.label(node)
	avail := m.rowWidth() - lipgloss.Width(indent) - lipgloss.Width(glyph) - 2
	label = styles.TruncateString(label, max(avail, 1))
	if r.id == m.sel.ActiveID {
		style = style.Underline(true)
	}

	line := indicator + indent + glyph + style.Render(label)
	return zone.Mark(m.zoneID(r.id), line)
}

// glyph is the two-column state marker in front of each row: expansion
// arrows for directories, a spinner stand-in while loading, a cross
// after a failed load.
func (m Model) glyph(node tree.Node) string {
	if node.Kind != tree.KindEntry || !node.IsDir {
		return "  "
	}
	switch {
	case m.loading[node.Path]:
		return styles.LoadingStyle.Render("…") + " "
	case node.LoadErr != nil:
		return styles.ErrorRowStyle.Render("✗") + " "
	case m.expanded[node.Path]:
		return "▾ "
	default:
		return "▸ "
	}
}

// label picks the row text and its base style. The root row falls back
// to the repository name when the tree is rooted at the top.
func (m Model) label(node tree.Node) (string, lipgloss.Style) {
	switch node.Kind {
	case tree.KindDotDot:
		return node.Name, styles.DotDotStyle
	case tree.KindPlaceholder:
		return node.Name, styles.PlaceholderStyle
	}
	name := node.Name
	if node.ID == m.snap.Root().ID && name == "" {
		name = m.cfg.RepoName
	}
	if node.Submodule != nil {
		return name + styles.FormatSubmoduleIndicator(node.Submodule.Commit), styles.SubmoduleStyle
	}
	if node.IsDir {
		return name, styles.DirectoryStyle
	}
	return name, styles.FileStyle
}

func (m Model) zoneID(id tree.NodeID) string {
	return "filetree:" + strconv.Itoa(int(id))
}

func (m Model) rowWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m Model) viewportHeight() int {
	if m.height <= 0 {
		return 20
	}
	return max(m.height, 1)
}

// ensureVisible scrolls the window so the cursor's row stays inside
// it, clamping after collapses shrink the list.
func (m Model) ensureVisible() Model {
	rows := m.rows()
	vh := m.viewportHeight()
	idx := 0
	for i, r := range rows {
		if r.err == nil && r.id == m.sel.SelectedID {
			idx = i
			break
		}
	}
	if idx < m.scrollTop {
		m.scrollTop = idx
	}
	if idx >= m.scrollTop+vh {
		m.scrollTop = idx - vh + 1
	}
	m.scrollTop = min(max(m.scrollTop, 0), max(len(rows)-vh, 0))
	return m
}
