package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Frame glyphs (rounded corners).
const (
	frameTopLeft     = "╭"
	frameTopRight    = "╮"
	frameBottomLeft  = "╰"
	frameBottomRight = "╯"
	frameHorizontal  = "─"
	frameVertical    = "│"
)

// RenderWithTitleBorder frames content with the title let into the top
// rule, lazygit style:
//
//	╭─ Files ────────╮
//
// The frame takes focusColor when focused and BorderDefaultColor
// otherwise. Content is wrapped to the inner width and clipped to the
// inner height.
func RenderWithTitleBorder(content, title string, width, height int, focused bool, titleColor, focusColor lipgloss.TerminalColor) string {
	var frameColor lipgloss.TerminalColor = BorderDefaultColor
	if focused {
		frameColor = focusColor
	}
	frame := lipgloss.NewStyle().Foreground(frameColor)

	inner := max(width-2, 1)
	rows := max(height-2, 1)

	side := frame.Render(frameVertical)
	lines := strings.Split(lipgloss.NewStyle().Width(inner).Height(rows).Render(content), "\n")

	var b strings.Builder
	b.WriteString(topRule(frame, lipgloss.NewStyle().Foreground(titleColor), title, inner))
	for i := 0; i < rows; i++ {
		var line string
		if i < len(lines) {
			line = lines[i]
		}
		if pad := inner - lipgloss.Width(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		b.WriteString("\n")
		b.WriteString(side + line + side)
	}
	b.WriteString("\n")
	b.WriteString(frame.Render(frameBottomLeft + strings.Repeat(frameHorizontal, inner) + frameBottomRight))
	return b.String()
}

// topRule draws the top of the frame. The title sits between short
// corner runs, truncated when it does not fit; a frame too narrow for
// any title falls back to a plain rule.
func topRule(frame, title lipgloss.Style, text string, inner int) string {
	if text == "" || inner < 4 {
		return frame.Render(frameTopLeft + strings.Repeat(frameHorizontal, inner) + frameTopRight)
	}

	text = TruncateString(text, inner-4)
	tail := inner - 3 - lipgloss.Width(text)
	return frame.Render(frameTopLeft+frameHorizontal+" ") +
		title.Render(text) +
		frame.Render(" "+strings.Repeat(frameHorizontal, tail)+frameTopRight)
}
