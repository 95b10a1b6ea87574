package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/fern/internal/app"
	"github.com/zjrosen/fern/internal/config"
	"github.com/zjrosen/fern/internal/log"
	"github.com/zjrosen/fern/internal/source"
	"github.com/zjrosen/fern/internal/tracing"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:     "fern",
	Short:   "A terminal ui for browsing repository trees",
	Long:    `A terminal user interface for exploring large repository trees with lazy directory loading, hover prefetch, and a markdown preview pane.`,
	Version: version,
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/fern/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"enable debug logging and the ctrl+x log overlay")
	rootCmd.Flags().String("repo", "",
		"repository to browse (default: current directory)")
	rootCmd.Flags().StringP("path", "p", "",
		"entry to reveal and preview on startup, relative to the repository root")
	rootCmd.Flags().String("rev", "",
		"commit, branch, or tag to pin the tree to (default: working tree)")
	rootCmd.Flags().Bool("no-prefetch", false,
		"disable hover prefetch of directory listings")
	rootCmd.Flags().Bool("no-auto-refresh", false,
		"disable automatic re-listing when the repository changes")

	// Bind flags to viper
	_ = viper.BindPFlag("repo_path", rootCmd.Flags().Lookup("repo"))
	_ = viper.BindPFlag("revision", rootCmd.Flags().Lookup("rev"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("truncation_limit", defaults.TruncationLimit)
	viper.SetDefault("hover_prefetch_ms", defaults.HoverPrefetchMS)
	viper.SetDefault("page_size", defaults.PageSize)
	viper.SetDefault("preload_ancestors", defaults.PreloadAncestors)
	viper.SetDefault("auto_refresh", defaults.AutoRefresh)
	viper.SetDefault("ui.sidebar_width", defaults.UI.SidebarWidth)
	viper.SetDefault("ui.show_status_bar", defaults.UI.ShowStatusBar)
	viper.SetDefault("ui.markdown_style", defaults.UI.MarkdownStyle)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .fern/config.yaml (current directory)
		// 2. ~/.config/fern/config.yaml (user config)
		if _, err := os.Stat(".fern/config.yaml"); err == nil {
			viper.SetConfigFile(".fern/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "fern"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .fern/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".fern/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runApp(cmd *cobra.Command, args []string) error {
	// A file exporter with no explicit path writes under the config dir
	if cfg.Tracing.Enabled && cfg.Tracing.Exporter == "file" && cfg.Tracing.FilePath == "" {
		cfg.Tracing.FilePath = config.DefaultTracesFilePath()
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Use configured repository or current directory
	repoPath, err := resolveRepoPath(cfg.RepoPath)
	if err != nil {
		return err
	}
	cfg.RepoPath = repoPath
	if cfg.RepoName == "" {
		cfg.RepoName = filepath.Base(repoPath)
	}

	// Handle negated flags
	if noPrefetch, _ := cmd.Flags().GetBool("no-prefetch"); noPrefetch {
		cfg.HoverPrefetchMS = 0
	}
	if noAutoRefresh, _ := cmd.Flags().GetBool("no-auto-refresh"); noAutoRefresh {
		cfg.AutoRefresh = false
	}

	// Initialize logging if debug mode enabled (via flag or env var)
	debugMode := os.Getenv("FERN_DEBUG") != "" || debugFlag
	if debugMode {
		logPath := os.Getenv("FERN_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}

		cleanup, err := log.InitWithTeaLog(logPath, "fern")
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		defer cleanup()

		log.Info(log.CatApp, "Fern starting", "repo", repoPath, "logPath", logPath)
	}

	provider, err := tracing.NewProvider(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		FilePath:     cfg.Tracing.FilePath,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	base, reader := newRepoSource(repoPath)
	memo := source.NewMemoSource(base, source.DefaultListingTTL, false)
	src := source.NewTracedSource(memo, provider.Tracer())

	// Resolve the startup entry, if any
	rawPath, _ := cmd.Flags().GetString("path")
	initialPath := normalizeEntryPath(rawPath)
	initialPathIsDir := false
	if initialPath != "" {
		if target, statErr := os.Stat(filepath.Join(repoPath, filepath.FromSlash(initialPath))); statErr == nil {
			initialPathIsDir = target.IsDir()
		}
	}

	// Store the config file path for saving sidebar width changes
	configFilePath := viper.ConfigFileUsed()
	if configFilePath == "" {
		// No config file was loaded, default to .fern/config.yaml
		configFilePath = ".fern/config.yaml"
	}

	// Global zone manager for mouse hit-testing on tree rows
	zone.NewGlobal()

	model := app.NewWithConfig(src, reader, memo, cfg, configFilePath, initialPath, initialPathIsDir, debugMode)
	p := tea.NewProgram(
		&model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()

	// Clean up watcher resources
	if closeErr := model.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	// Flush pending trace spans
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := provider.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// resolveRepoPath expands the configured repository path, falling back
// to the current directory, and verifies it names a directory.
func resolveRepoPath(configured string) (string, error) {
	repoPath := configured
	if repoPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		repoPath = wd
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return "", fmt.Errorf("resolving repository path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repository path %s is not a directory", abs)
	}
	return abs, nil
}

// newRepoSource lists through git when the repository has a .git entry
// so revisions and submodules resolve; plain directories fall back to
// the filesystem.
func newRepoSource(repoPath string) (source.Source, source.ContentReader) {
	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err == nil {
		gs := source.NewGitSource(repoPath)
		return gs, gs
	}
	fs := source.NewFSSource(repoPath)
	return fs, fs
}

// normalizeEntryPath cleans a user-supplied startup entry into the
// slash-separated repo-relative form tree paths use.
func normalizeEntryPath(raw string) string {
	if raw == "" {
		return ""
	}
	p := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(raw)), "/")
	if p == "." {
		return ""
	}
	return p
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
