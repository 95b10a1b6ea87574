// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// TreeKeyMap defines the keybindings for the file tree sidebar.
type TreeKeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Tree actions
	Expand   key.Binding
	Collapse key.Binding
	Parent   key.Binding
	Enter    key.Binding
	Refresh  key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// PreviewKeyMap defines the keybindings for the file preview pane.
type PreviewKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	HalfUp   key.Binding
	HalfDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Back     key.Binding
}

// AppKeyMap defines bindings handled at the top level regardless of
// which pane has focus.
type AppKeyMap struct {
	FocusNext     key.Binding
	WidenSidebar  key.Binding
	NarrowSidebar key.Binding
	Debug         key.Binding
	Quit          key.Binding
}

// Tree holds the active sidebar bindings.
var Tree = TreeKeyMap{
	// Navigation
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "move down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("ctrl+u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("ctrl+d", "page down"),
	),

	// Tree actions
	Expand: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "expand directory"),
	),
	Collapse: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "collapse directory"),
	),
	Parent: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "go to parent"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open entry"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh listing"),
	),

	// General
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Preview holds the file preview bindings.
var Preview = PreviewKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "scroll up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "scroll down"),
	),
	HalfUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("ctrl+u", "half page up"),
	),
	HalfDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("ctrl+d", "half page down"),
	),
	Top: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "go to top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "go to bottom"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back to tree"),
	),
}

// App holds the top-level bindings.
var App = AppKeyMap{
	FocusNext: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch tree/preview focus"),
	),
	WidenSidebar: key.NewBinding(
		key.WithKeys(">"),
		key.WithHelp(">", "widen sidebar"),
	),
	NarrowSidebar: key.NewBinding(
		key.WithKeys("<"),
		key.WithHelp("<", "narrow sidebar"),
	),
	Debug: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "toggle log overlay"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// ShortHelp returns keybindings for the short help view.
func (k TreeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k TreeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},                 // Navigation
		{k.Expand, k.Collapse, k.Parent, k.Enter, k.Refresh}, // Tree
		{k.Help, k.Quit},                                     // General
	}
}

// ShortHelp returns keybindings for the short help view.
func (k PreviewKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back}
}

// FullHelp returns keybindings for the full help view.
func (k PreviewKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.HalfUp, k.HalfDown},
		{k.Top, k.Bottom, k.Back},
	}
}
