// Package app contains the root application model: the sidebar tree
// and the preview pane side by side, with the help and log overlays on
// top. It owns pane focus, the loader and content reader, and the
// repository watcher that drives auto-refresh.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/fern/internal/config"
	"github.com/zjrosen/fern/internal/keys"
	"github.com/zjrosen/fern/internal/loader"
	"github.com/zjrosen/fern/internal/log"
	"github.com/zjrosen/fern/internal/prefetch"
	"github.com/zjrosen/fern/internal/pubsub"
	"github.com/zjrosen/fern/internal/source"
	"github.com/zjrosen/fern/internal/ui/filetree"
	"github.com/zjrosen/fern/internal/ui/help"
	"github.com/zjrosen/fern/internal/ui/logoverlay"
	"github.com/zjrosen/fern/internal/ui/preview"
	"github.com/zjrosen/fern/internal/ui/styles"
	"github.com/zjrosen/fern/internal/watcher"
)

// focusArea names which pane receives key presses.
type focusArea int

const (
	focusTree focusArea = iota
	focusPreview
)

const (
	sidebarStep     = 2
	minSidebarWidth = 20
	maxSidebarWidth = 120
	minPreviewWidth = 20
)

// Model is the root application state.
type Model struct {
	// Panes
	tree    filetree.Model
	preview preview.Model
	focus   focusArea

	// Global state
	width  int
	height int

	cfg        config.Config
	configPath string
	rootPath   string

	ld     *loader.Loader
	reader source.ContentReader
	memo   *source.MemoSource

	helpOverlay help.Model
	showHelp    bool

	debugMode    bool
	logOverlay   logoverlay.Model
	logListenCmd tea.Cmd
	previewCmd   tea.Cmd

	// File watcher for auto-refresh (pubsub-based)
	watcherHandle   *watcher.Watcher
	watcherCtx      context.Context
	watcherCancel   context.CancelFunc
	watcherListener *pubsub.ContinuousListener[watcher.WatcherEvent]
}

// NewWithConfig creates the application model. src is the listing chain
// the sidebar loads through, reader resolves file contents for the
// preview, and memo is the memoizing layer inside src that refreshes
// flush. initialPath seeds the selection and the preview, typically
// from the --path flag. debugMode enables the log overlay (ctrl+x).
func NewWithConfig(
	src source.Source,
	reader source.ContentReader,
	memo *source.MemoSource,
	cfg config.Config,
	configPath string,
	initialPath string,
	initialPathIsDir bool,
	debugMode bool,
) Model {
	// Initialize file watcher if auto-refresh is enabled
	var (
		watcherHandle   *watcher.Watcher
		watcherCtx      context.Context
		watcherCancel   context.CancelFunc
		watcherListener *pubsub.ContinuousListener[watcher.WatcherEvent]
	)

	if cfg.AutoRefresh && cfg.RepoPath != "" {
		w, err := watcher.New(watcher.DefaultConfig(cfg.RepoPath))
		if err == nil {
			if err := w.Start(); err == nil {
				watcherHandle = w
				watcherCtx, watcherCancel = context.WithCancel(context.Background())
				watcherListener = pubsub.NewContinuousListener(watcherCtx, w.Broker())
			} else {
				// Cleanup on start failure
				_ = w.Stop()
			}
		}
		// Watcher init errors are not fatal; the app works without auto-refresh
	}

	ld := loader.New(src, cfg.RepoName, cfg.Revision, cfg.TruncationLimit)

	pv := preview.New(cfg.UI.MarkdownStyle)
	var previewCmd tea.Cmd
	if initialPath != "" {
		pv = pv.Show(initialPath, initialPathIsDir)
		if !initialPathIsDir {
			previewCmd = preview.LoadCmd(reader, cfg.Revision, initialPath)
		}
	}

	// Create log overlay and start listening if debug mode is enabled
	overlay := logoverlay.New()
	var logListenCmd tea.Cmd
	if debugMode {
		logListenCmd = overlay.StartListening()
	}

	m := Model{
		preview:         pv,
		cfg:             cfg,
		configPath:      configPath,
		rootPath:        cfg.RootPath,
		ld:              ld,
		reader:          reader,
		memo:            memo,
		helpOverlay:     help.New(),
		logOverlay:      overlay,
		debugMode:       debugMode,
		logListenCmd:    logListenCmd,
		previewCmd:      previewCmd,
		watcherHandle:   watcherHandle,
		watcherCtx:      watcherCtx,
		watcherCancel:   watcherCancel,
		watcherListener: watcherListener,
	}
	m.tree = filetree.New(m.treeConfig(cfg.RootPath, initialPath, initialPathIsDir), ld)
	return m
}

// treeConfig builds the sidebar mount config for the given root.
func (m Model) treeConfig(rootPath, initialPath string, initialIsDir bool) filetree.Config {
	return filetree.Config{
		RepoName:         m.cfg.RepoName,
		Revision:         m.cfg.Revision,
		RootPath:         rootPath,
		AtRepoRoot:       rootPath == "",
		InitialPath:      initialPath,
		InitialPathIsDir: initialIsDir,
		PreloadAncestors: m.cfg.PreloadAncestors,
		HoverDelay:       time.Duration(m.cfg.HoverPrefetchMS) * time.Millisecond,
		PageSize:         m.cfg.PageSize,
	}
}

// Init implements tea.Model. It issues the sidebar's mount fetch and
// starts the watcher and log listeners when they exist.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.tree.Init(),
	}

	if m.watcherListener != nil {
		cmds = append(cmds, m.watcherListener.Listen())
	}

	if m.logListenCmd != nil {
		cmds = append(cmds, m.logListenCmd)
	}

	if m.previewCmd != nil {
		cmds = append(cmds, m.previewCmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m = m.layoutPanes()
		m.helpOverlay = m.helpOverlay.SetSize(msg.Width, msg.Height)
		m.logOverlay.SetSize(msg.Width, msg.Height)

		return m, nil

	case tea.MouseMsg:
		// Route mouse events to log overlay when visible
		if m.logOverlay.Visible() {
			var cmd tea.Cmd
			m.logOverlay, cmd = m.logOverlay.Update(msg)
			return m, cmd
		}
		return m.routeMouse(msg)

	case log.LogEvent:
		// Route to log overlay (handles accumulation and listening)
		var cmd tea.Cmd
		m.logOverlay, cmd = m.logOverlay.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case filetree.NavigateMsg:
		return m.handleNavigate(msg)

	case filetree.ExpandParentMsg:
		return m.remountAt(msg.Path)

	case filetree.RefreshRequestedMsg:
		return m.handleRefresh(msg)

	case loader.EntriesLoadedMsg, prefetch.TickMsg, filetree.SetActivePathMsg:
		var cmd tea.Cmd
		m.tree, cmd = m.tree.Update(msg)
		return m, cmd

	case preview.ContentLoadedMsg:
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return m, cmd

	case pubsub.Event[watcher.WatcherEvent]:
		switch msg.Payload.Type {
		case watcher.RepoChanged:
			return m.handleRepoChanged()

		case watcher.WatcherError:
			log.Warn(log.CatWatcher, "watcher error received", "error", msg.Payload.Error)
			return m, m.listenCmd()
		}

		// Continue listening for unknown event types
		return m, m.listenCmd()

	case logoverlay.CloseMsg:
		m.logOverlay.Hide()

		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.debugMode && key.Matches(msg, keys.App.Debug) {
		m.logOverlay.Toggle()
		return m, nil
	}

	// A visible log overlay takes precedence for updates
	if m.logOverlay.Visible() {
		var cmd tea.Cmd
		m.logOverlay, cmd = m.logOverlay.Update(msg)

		return m, cmd
	}

	if m.showHelp {
		switch {
		case key.Matches(msg, keys.Tree.Help), key.Matches(msg, keys.Preview.Back):
			m.showHelp = false
		case key.Matches(msg, keys.Tree.Quit):
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Tree.Quit), key.Matches(msg, keys.App.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Tree.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, keys.App.FocusNext):
		if m.focus == focusTree {
			m.focus = focusPreview
		} else {
			m.focus = focusTree
		}
		return m, nil

	case key.Matches(msg, keys.App.WidenSidebar):
		return m.resizeSidebar(sidebarStep), nil

	case key.Matches(msg, keys.App.NarrowSidebar):
		return m.resizeSidebar(-sidebarStep), nil
	}

	if m.focus == focusPreview && key.Matches(msg, keys.Preview.Back) {
		m.focus = focusTree
		return m, nil
	}

	// Remaining keys go to the focused pane
	var cmd tea.Cmd
	switch m.focus {
	case focusPreview:
		m.preview, cmd = m.preview.Update(msg)
	default:
		m.tree, cmd = m.tree.Update(msg)
	}
	return m, cmd
}

// routeMouse sends pointer events to the pane under the pointer, so
// wheel scrolling follows the cursor instead of the focus.
func (m Model) routeMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if msg.X < m.sidebarWidth() {
		m.tree, cmd = m.tree.Update(msg)
	} else {
		m.preview, cmd = m.preview.Update(msg)
	}
	return m, cmd
}

func (m Model) handleNavigate(msg filetree.NavigateMsg) (tea.Model, tea.Cmd) {
	log.Info(log.CatApp, "navigate", "url", msg.URL, "path", msg.Path, "dir", msg.IsDir)
	m.preview = m.preview.Show(msg.Path, msg.IsDir)
	if msg.IsDir {
		return m, nil
	}
	return m, preview.LoadCmd(m.reader, m.cfg.Revision, msg.Path)
}

// remountAt tears the sidebar down and rebuilds it rooted at root. The
// store is discarded; the old root is revealed and selected in the new
// tree so the cursor does not jump.
func (m Model) remountAt(root string) (tea.Model, tea.Cmd) {
	previous := m.rootPath
	log.Info(log.CatApp, "remounting sidebar", "root", root, "previous", previous)
	m.rootPath = root
	m.tree = filetree.New(m.treeConfig(root, previous, true), m.ld)
	m.focus = focusTree
	m = m.layoutPanes()
	return m, m.tree.Init()
}

// handleRefresh drops memoized listings, then re-lists the requested
// directory so the fetch reaches the real source.
func (m Model) handleRefresh(msg filetree.RefreshRequestedMsg) (tea.Model, tea.Cmd) {
	m.flushMemo()
	log.Info(log.CatApp, "refresh", "path", msg.Path)
	return m, m.ld.LoadCmd(context.Background(), msg.Path, false)
}

// handleRepoChanged re-lists everything on screen after the watcher
// saw the repository change. Loads are issued without marking rows as
// loading, so an unchanged listing repaints without flicker. Entries
// deleted outside fern stay in the store until the sidebar is
// remounted; the store is append-only.
func (m Model) handleRepoChanged() (tea.Model, tea.Cmd) {
	m.flushMemo()
	dirs := m.tree.ExpandedDirs()
	log.Debug(log.CatApp, "repository changed, re-listing", "dirs", len(dirs))

	cmds := []tea.Cmd{m.listenCmd()}
	for _, dir := range dirs {
		cmds = append(cmds, m.ld.LoadCmd(context.Background(), dir, false))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) listenCmd() tea.Cmd {
	if m.watcherListener == nil {
		return nil
	}
	return m.watcherListener.Listen()
}

func (m Model) flushMemo() {
	if m.memo == nil {
		return
	}
	if err := m.memo.Flush(context.Background()); err != nil {
		log.Warn(log.CatCache, "failed to flush listing cache", "error", err)
	}
}

// resizeSidebar grows or shrinks the tree pane and persists the new
// width so it survives restarts.
func (m Model) resizeSidebar(delta int) Model {
	width := m.cfg.UI.SidebarWidth + delta
	width = max(width, minSidebarWidth)
	width = min(width, maxSidebarWidth)
	if m.width > 0 {
		width = min(width, max(m.width-minPreviewWidth, minSidebarWidth))
	}
	if width == m.cfg.UI.SidebarWidth {
		return m
	}
	m.cfg.UI.SidebarWidth = width
	if m.configPath != "" {
		if err := config.SaveUISettings(m.configPath, m.cfg.UI); err != nil {
			log.Warn(log.CatConfig, "failed to save sidebar width", "error", err)
		}
	}
	return m.layoutPanes()
}

// layoutPanes pushes the current window split into both panes. Pane
// borders cost two columns and two rows each.
func (m Model) layoutPanes() Model {
	if m.width <= 0 || m.height <= 0 {
		return m
	}
	m.tree = m.tree.SetSize(m.sidebarWidth()-2, m.paneHeight()-2)
	m.preview = m.preview.SetSize(m.previewWidth()-2, m.paneHeight()-2)
	return m
}

func (m Model) sidebarWidth() int {
	width := m.cfg.UI.SidebarWidth
	width = max(width, minSidebarWidth)
	width = min(width, maxSidebarWidth)
	if m.width > 0 {
		width = min(width, max(m.width-minPreviewWidth, minSidebarWidth))
	}
	return width
}

func (m Model) previewWidth() int {
	return max(m.width-m.sidebarWidth(), 1)
}

func (m Model) paneHeight() int {
	h := m.height
	if m.cfg.UI.ShowStatusBar {
		h--
	}
	return max(h, 3)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	sidebar := styles.RenderWithTitleBorder(
		m.tree.View(), m.cfg.RepoName,
		m.sidebarWidth(), m.paneHeight(),
		m.focus == focusTree,
		styles.TextPrimaryColor, styles.BorderFocusColor,
	)
	pane := styles.RenderWithTitleBorder(
		m.preview.View(), m.preview.Title(),
		m.previewWidth(), m.paneHeight(),
		m.focus == focusPreview,
		styles.TextPrimaryColor, styles.BorderFocusColor,
	)

	view := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, pane)
	if m.cfg.UI.ShowStatusBar {
		view = lipgloss.JoinVertical(lipgloss.Left, view, m.statusLine())
	}

	if m.showHelp {
		view = m.helpOverlay.Overlay(view)
	}

	// Overlay log viewer on top (only in debug mode when visible)
	if m.debugMode && m.logOverlay.Visible() {
		view = m.logOverlay.Overlay(view)
	}

	return zone.Scan(view)
}

// statusLine is the one-row bar under the panes: repository and
// revision on the left, entry count or scroll position on the right.
func (m Model) statusLine() string {
	left := m.cfg.RepoName
	if m.cfg.Revision != "" {
		left += "@" + m.cfg.Revision
	}
	if p := m.preview.Path(); p != "" {
		left += "  " + p
	}

	right := fmt.Sprintf("%d entries", m.tree.Count())
	if m.focus == focusPreview {
		right = fmt.Sprintf("%d%%", int(m.preview.ScrollPercent()*100))
	}
	right += "  ? help"

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		left = styles.TruncateString(left, max(m.width-lipgloss.Width(right)-3, 1))
		gap = max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	}
	return styles.StatusBarStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// Close releases resources held by the application.
func (m *Model) Close() error {
	m.logOverlay.StopListening()

	// Cancel watcher subscription context (stops listener)
	if m.watcherCancel != nil {
		m.watcherCancel()
	}

	// Close watcher if we own it
	if m.watcherHandle != nil {
		if err := m.watcherHandle.Stop(); err != nil {
			return err
		}
	}

	return nil
}
