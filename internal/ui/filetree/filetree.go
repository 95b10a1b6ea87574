// Package filetree is the sidebar: a lazily loaded directory tree with
// a keyboard cursor, mouse support, and dwell-timed prefetching. It
// owns selection and expansion state and reads entry data from an
// immutable tree snapshot, so every update is a value transition that
// can be tested without a terminal.
//
// The sidebar talks to its host through messages in both directions:
// NavigateMsg and ExpandParentMsg go out, SetActivePathMsg and
// loader.EntriesLoadedMsg come in.
package filetree

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/fern/internal/keys"
	"github.com/zjrosen/fern/internal/loader"
	"github.com/zjrosen/fern/internal/log"
	"github.com/zjrosen/fern/internal/prefetch"
	"github.com/zjrosen/fern/internal/source"
	"github.com/zjrosen/fern/internal/tree"
)

// NavigateMsg asks the host to show the entry behind URL. Path and
// IsDir ride along so hosts that resolve content themselves do not
// have to parse the URL.
type NavigateMsg struct {
	URL   string
	Path  string
	IsDir bool
}

// ExpandParentMsg asks the host to remount the sidebar rooted at Path,
// one directory above the current root.
type ExpandParentMsg struct {
	Path string
}

// RefreshRequestedMsg asks the host to drop memoized listings and
// reload Path from the source.
type RefreshRequestedMsg struct {
	Path string
}

// SetActivePathMsg points the sidebar at the entry the host is now
// showing, regardless of how the host got there.
type SetActivePathMsg struct {
	Path  string
	IsDir bool
}

// Config describes the mount point of one sidebar instance.
type Config struct {
	RepoName string
	Revision string

	// RootPath is the directory the tree is rooted at, "" for the
	// repository root.
	RootPath string
	// AtRepoRoot reports whether RootPath has no parent to ascend to.
	AtRepoRoot bool

	// InitialPath seeds the selection, typically the entry the host
	// opened with. InitialPathIsDir tells the tree whether to load the
	// path itself or its parent directory.
	InitialPath      string
	InitialPathIsDir bool
	// PreloadAncestors fetches the whole root-to-InitialPath chain in
	// one round trip on mount.
	PreloadAncestors bool

	// HoverDelay is how long the cursor or pointer must rest on a
	// collapsed directory before its listing is fetched in the
	// background. Zero or negative disables prefetching.
	HoverDelay time.Duration

	// PageSize is how many rows ctrl+u and ctrl+d jump. Zero falls
	// back to the viewport height.
	PageSize int
}

// Model is the sidebar state. It is a value; maps and the snapshot
// pointer are shared across copies, which is safe because snapshots
// are never mutated in place.
type Model struct {
	cfg Config
	ld  *loader.Loader

	snap     *tree.Snapshot
	sel      Selection
	expanded map[string]bool
	loading  map[string]bool
	sched    *prefetch.Scheduler

	// pendingReveal is a path to select as soon as a load materializes
	// it, set by ancestor preloading and by reconciliation misses.
	pendingReveal string
	seedConsumed  bool

	width     int
	height    int
	scrollTop int
}

// New builds a sidebar for one root. The loader is shared with the
// host so refreshes and sidebar expansions hit the same source.
func New(cfg Config, ld *loader.Loader) Model {
	dotdot := !cfg.AtRepoRoot && !cfg.PreloadAncestors
	m := Model{
		cfg:      cfg,
		ld:       ld,
		snap:     tree.NewSnapshot(cfg.RootPath, dotdot),
		expanded: map[string]bool{cfg.RootPath: true},
		loading:  make(map[string]bool),
		sched:    prefetch.NewScheduler(cfg.HoverDelay),
	}
	m.sel = NewSelection(m.snap.Root().ID)
	if cfg.InitialPath != "" {
		m.pendingReveal = cfg.InitialPath
	}
	first, _ := m.initialLoad()
	m.loading[first] = true
	return m
}

// Init issues the mount fetch: the root listing, or the chain down to
// the initial entry when ancestor preloading is on.
func (m Model) Init() tea.Cmd {
	path, ancestors := m.initialLoad()
	return m.ld.LoadCmd(context.Background(), path, ancestors)
}

// initialLoad names the first fetch. With ancestor preloading the
// target is the initial directory (or the initial file's parent);
// otherwise it is the root.
func (m Model) initialLoad() (string, bool) {
	if m.cfg.PreloadAncestors && m.cfg.InitialPath != "" {
		target := m.cfg.InitialPath
		if !m.cfg.InitialPathIsDir {
			target = source.ParentPath(m.cfg.InitialPath)
		}
		if target != m.cfg.RootPath {
			return target, true
		}
	}
	return m.cfg.RootPath, false
}

// Update routes one message. The host forwards key presses only while
// the sidebar has focus; everything else arrives unconditionally.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case prefetch.TickMsg:
		return m.handleTick(msg)
	case loader.EntriesLoadedMsg:
		return m.handleLoaded(msg)
	case SetActivePathMsg:
		return m.handleActivePath(msg)
	}
	return m, nil
}

// SetSize tells the sidebar how many columns and rows it may draw.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	return m.ensureVisible()
}

// Selected returns the node under the cursor.
func (m Model) Selected() (tree.Node, bool) {
	return m.snap.Node(m.sel.SelectedID)
}

// Count returns how many rows the store holds.
func (m Model) Count() int {
	return m.snap.Len()
}

// ExpandedDirs returns the expanded directories whose listings have
// been fetched, root included, sorted by path. Hosts use it to re-list
// everything on screen after an external change.
func (m Model) ExpandedDirs() []string {
	var dirs []string
	for path := range m.expanded {
		id, ok := m.snap.IDForPath(path)
		if !ok || !m.snap.IsLoaded(id) {
			continue
		}
		dirs = append(dirs, path)
	}
	sort.Strings(dirs)
	return dirs
}

// keyAction pairs a binding with its transition. Every key the sidebar
// answers to is listed here; handleKey takes the first match.
type keyAction struct {
	binding key.Binding
	run     func(Model) (Model, tea.Cmd)
}

func (m Model) keyActions() []keyAction {
	return []keyAction{
		{keys.Tree.Down, Model.selectNext},
		{keys.Tree.Up, Model.selectPrev},
		{keys.Tree.PageDown, Model.pageDown},
		{keys.Tree.PageUp, Model.pageUp},
		{keys.Tree.Expand, Model.expandSelected},
		{keys.Tree.Collapse, Model.collapseSelected},
		{keys.Tree.Parent, Model.selectParent},
		{keys.Tree.Enter, Model.openSelected},
		{keys.Tree.Refresh, Model.refreshSelected},
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	for _, action := range m.keyActions() {
		if key.Matches(msg, action.binding) {
			return action.run(m)
		}
	}
	return m, nil
}

func (m Model) selectNext() (Model, tea.Cmd) {
	m.sel = moveNext(m.snap, m.expanded, m.sel)
	m = m.ensureVisible()
	return m, m.observeSelected()
}

func (m Model) selectPrev() (Model, tea.Cmd) {
	m.sel = movePrev(m.snap, m.expanded, m.sel)
	m = m.ensureVisible()
	return m, m.observeSelected()
}

func (m Model) pageDown() (Model, tea.Cmd) {
	m.sel = movePage(m.snap, m.expanded, m.sel, m.pageSize())
	m = m.ensureVisible()
	return m, m.observeSelected()
}

func (m Model) pageUp() (Model, tea.Cmd) {
	m.sel = movePage(m.snap, m.expanded, m.sel, -m.pageSize())
	m = m.ensureVisible()
	return m, m.observeSelected()
}

func (m Model) pageSize() int {
	if m.cfg.PageSize > 0 {
		return m.cfg.PageSize
	}
	return m.viewportHeight()
}

func (m Model) expandSelected() (Model, tea.Cmd) {
	node, ok := m.Selected()
	if !ok || node.Kind != tree.KindEntry || !node.IsDir {
		return m, nil
	}
	return m.expandDir(node)
}

// expandDir opens a directory. The first expansion fetches its
// children; an expansion after a failed fetch retries; everything else
// just flips the flag.
func (m Model) expandDir(node tree.Node) (Model, tea.Cmd) {
	if m.loading[node.Path] {
		return m, nil
	}
	m.expanded[node.Path] = true
	if m.snap.IsLoaded(node.ID) && node.LoadErr == nil {
		return m, nil
	}
	m.loading[node.Path] = true
	return m, m.ld.LoadCmd(context.Background(), node.Path, false)
}

func (m Model) collapseSelected() (Model, tea.Cmd) {
	node, ok := m.Selected()
	if !ok {
		return m, nil
	}
	if node.Kind == tree.KindEntry && node.IsDir && m.expanded[node.Path] && node.ID != m.snap.Root().ID {
		delete(m.expanded, node.Path)
		m = m.ensureVisible()
		return m, nil
	}
	return m.selectParent()
}

func (m Model) selectParent() (Model, tea.Cmd) {
	node, ok := m.Selected()
	if !ok {
		return m, nil
	}
	if node.ID == m.snap.Root().ID {
		return m.ascendRoot()
	}
	m.sel = moveToParent(m.snap, m.sel)
	m = m.ensureVisible()
	return m, nil
}

// ascendRoot asks the host to remount one directory higher. At the
// repository root there is nowhere to go.
func (m Model) ascendRoot() (Model, tea.Cmd) {
	if m.cfg.AtRepoRoot {
		return m, nil
	}
	parent := source.ParentPath(m.cfg.RootPath)
	return m, func() tea.Msg { return ExpandParentMsg{Path: parent} }
}

func (m Model) openSelected() (Model, tea.Cmd) {
	node, ok := m.Selected()
	if !ok {
		return m, nil
	}
	return m.openNode(node)
}

// openNode is the enter/click action: files navigate, directories
// toggle and navigate, the dotdot row ascends, placeholders do
// nothing.
func (m Model) openNode(node tree.Node) (Model, tea.Cmd) {
	switch node.Kind {
	case tree.KindDotDot:
		return m.ascendRoot()
	case tree.KindPlaceholder:
		return m, nil
	}

	m.sel.ActiveID = node.ID
	if !node.IsDir {
		return m, navigateCmd(node)
	}
	m, cmd := m.toggleDir(node)
	return m, tea.Batch(cmd, navigateCmd(node))
}

func (m Model) toggleDir(node tree.Node) (Model, tea.Cmd) {
	if m.expanded[node.Path] && node.ID != m.snap.Root().ID {
		delete(m.expanded, node.Path)
		m = m.ensureVisible()
		return m, nil
	}
	return m.expandDir(node)
}

func navigateCmd(node tree.Node) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{URL: node.URL, Path: node.Path, IsDir: node.IsDir}
	}
}

// refreshSelected re-lists the selected directory, or the directory
// containing the selected file. The host flushes its memo first, so
// the reload reaches the real source.
func (m Model) refreshSelected() (Model, tea.Cmd) {
	node, ok := m.Selected()
	if !ok {
		return m, nil
	}
	dir := node
	if dir.Kind != tree.KindEntry || !dir.IsDir {
		parent, ok := m.snap.Node(node.ParentID)
		if !ok {
			return m, nil
		}
		dir = parent
	}
	if m.loading[dir.Path] {
		return m, nil
	}
	m.loading[dir.Path] = true
	path := dir.Path
	return m, func() tea.Msg { return RefreshRequestedMsg{Path: path} }
}

// handleLoaded folds a fetch result into the snapshot. Results for
// paths outside the current root are kept anyway; the store parks
// entries it cannot parent yet, and stale data is better than lost
// data.
func (m Model) handleLoaded(msg loader.EntriesLoadedMsg) (Model, tea.Cmd) {
	delete(m.loading, msg.Path)
	if !m.underRoot(msg.Path) {
		log.Debug(log.CatTree, "retaining listing outside root", "path", msg.Path, "root", m.snap.RootPath())
	}
	m.snap = m.ld.Apply(m.snap, msg)
	if msg.Err != nil {
		m = m.ensureVisible()
		return m, nil
	}
	return m.revealPending()
}

func (m Model) underRoot(p string) bool {
	root := m.snap.RootPath()
	if root == "" || p == root {
		return true
	}
	return len(p) > len(root) && p[:len(root)+1] == root+"/"
}

// revealPending selects the path a preload or reconciliation promised,
// once the store actually holds it.
func (m Model) revealPending() (Model, tea.Cmd) {
	if m.pendingReveal == "" {
		m = m.ensureVisible()
		return m, nil
	}
	id, ok := m.snap.IDForPath(m.pendingReveal)
	if !ok {
		m = m.ensureVisible()
		return m, nil
	}
	m.expandAncestors(m.pendingReveal)
	if node, ok := m.snap.Node(id); ok && node.IsDir {
		m.expanded[node.Path] = true
	}
	m.sel = snapTo(m.sel, id)
	m.pendingReveal = ""
	m = m.ensureVisible()
	return m, nil
}

// expandAncestors opens every directory between the root and p so p's
// row is visible.
func (m Model) expandAncestors(p string) {
	for dir := source.ParentPath(p); ; dir = source.ParentPath(dir) {
		m.expanded[dir] = true
		if dir == m.snap.RootPath() || dir == "" {
			return
		}
	}
}

// handleActivePath follows the host to a new entry. A hit snaps the
// cursor there; a miss loads the chain to it while keeping every
// branch the user already opened. The host's very first message is the
// echo of the entry that seeded this view; when it is, it gets
// dropped, because honoring it would fight the mount-time selection.
func (m Model) handleActivePath(msg SetActivePathMsg) (Model, tea.Cmd) {
	if !m.seedConsumed {
		m.seedConsumed = true
		if m.cfg.InitialPath != "" && msg.Path == m.cfg.InitialPath {
			return m, nil
		}
	}

	if id, ok := m.snap.IDForPath(msg.Path); ok {
		m.expandAncestors(msg.Path)
		m.sel = snapTo(m.sel, id)
		m = m.ensureVisible()
		return m, nil
	}

	target := msg.Path
	if !msg.IsDir {
		target = source.ParentPath(msg.Path)
	}
	m.pendingReveal = msg.Path
	if m.loading[target] {
		return m, nil
	}
	m.loading[target] = true
	return m, m.ld.LoadCmd(context.Background(), target, true)
}

func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.scrollTop = max(m.scrollTop-wheelScrollLines, 0)
		return m, nil
	case msg.Button == tea.MouseButtonWheelDown:
		maxTop := max(len(m.rows())-m.viewportHeight(), 0)
		m.scrollTop = min(m.scrollTop+wheelScrollLines, maxTop)
		return m, nil
	case msg.Action == tea.MouseActionMotion:
		return m.handleHover(msg)
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionRelease:
		return m.handleClick(msg)
	}
	return m, nil
}

// handleHover arms the dwell timer over collapsed unloaded directories
// and disarms it everywhere else.
func (m Model) handleHover(msg tea.MouseMsg) (Model, tea.Cmd) {
	if !m.sched.Enabled() {
		return m, nil
	}
	node, ok := m.hitNode(msg)
	if !ok || !m.prefetchable(node) {
		m.sched.Cancel()
		return m, nil
	}
	return m, m.sched.Observe(node.Path)
}

func (m Model) handleClick(msg tea.MouseMsg) (Model, tea.Cmd) {
	node, ok := m.hitNode(msg)
	if !ok {
		return m, nil
	}
	m.sel.SelectedID = node.ID
	m = m.ensureVisible()
	return m.openNode(node)
}

// hitNode maps a mouse event to the row it landed on.
func (m Model) hitNode(msg tea.MouseMsg) (tree.Node, bool) {
	for _, id := range tree.VisibleIDs(m.snap, m.expanded) {
		node, ok := m.snap.Node(id)
		if !ok {
			continue
		}
		if z := zone.Get(m.zoneID(node.ID)); z != nil && z.InBounds(msg) {
			return node, true
		}
	}
	return tree.Node{}, false
}

// handleTick turns an expired dwell timer into a background fetch.
// Prefetching warms the store and the memo cache but never touches
// selection, expansion, or the loading flags a spinner hangs off.
func (m Model) handleTick(msg prefetch.TickMsg) (Model, tea.Cmd) {
	path, ok := m.sched.Fire(msg)
	if !ok {
		return m, nil
	}
	id, ok := m.snap.IDForPath(path)
	if !ok {
		return m, nil
	}
	node, ok := m.snap.Node(id)
	if !ok || !m.prefetchable(node) {
		return m, nil
	}
	return m, m.ld.LoadCmd(context.Background(), path, false)
}

// prefetchable reports whether warming node's listing would save a
// future wait: a real directory, collapsed, never loaded, not already
// failing or in flight.
func (m Model) prefetchable(node tree.Node) bool {
	return node.Kind == tree.KindEntry && node.IsDir &&
		!m.expanded[node.Path] && !m.loading[node.Path] &&
		!m.snap.IsLoaded(node.ID) && node.LoadErr == nil
}

// observeSelected arms the dwell timer when the cursor rests on a
// directory worth warming, and disarms it otherwise.
func (m Model) observeSelected() tea.Cmd {
	if node, ok := m.Selected(); ok && m.prefetchable(node) {
		return m.sched.Observe(node.Path)
	}
	m.sched.Cancel()
	return nil
}
