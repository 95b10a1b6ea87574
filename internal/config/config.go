// Package config provides configuration types and defaults for fern.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zjrosen/fern/internal/log"
)

// Config holds all configuration options for fern.
type Config struct {
	// RepoPath is the repository root to browse. Empty means the
	// current directory.
	RepoPath string `mapstructure:"repo_path"`

	// RepoName is the display name used when composing entry links,
	// e.g. "acme/widgets". Empty derives it from the directory name.
	RepoName string `mapstructure:"repo_name"`

	// Revision pins the tree to a commit, branch, or tag. Empty tracks
	// the working tree.
	Revision string `mapstructure:"revision"`

	// RootPath roots the tree at a subdirectory of the repository.
	RootPath string `mapstructure:"root_path"`

	TruncationLimit  int  `mapstructure:"truncation_limit"`  // entries listed per directory before the tail is elided
	HoverPrefetchMS  int  `mapstructure:"hover_prefetch_ms"` // dwell before a hovered directory is fetched; 0 disables
	PageSize         int  `mapstructure:"page_size"`         // rows jumped by page up/down
	PreloadAncestors bool `mapstructure:"preload_ancestors"` // fetch the whole ancestor chain when opening a deep path
	AutoRefresh      bool `mapstructure:"auto_refresh"`      // re-list on repository changes

	UI      UIConfig      `mapstructure:"ui"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// UIConfig groups the presentation settings users tune most often.
type UIConfig struct {
	SidebarWidth  int    `mapstructure:"sidebar_width"`  // tree pane width in columns
	ShowStatusBar bool   `mapstructure:"show_status_bar"`
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default) or "light"
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled turns span collection on. Off by default.
	Enabled bool `mapstructure:"enabled"`

	// Exporter picks where spans go: "none", "file" (the default),
	// "stdout", or "otlp".
	Exporter string `mapstructure:"exporter"`

	// FilePath is where the "file" exporter writes, defaulting to
	// ~/.config/fern/traces/traces.jsonl.
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector address for the "otlp" exporter,
	// defaulting to localhost:4317.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate is the fraction of traces kept, from 0.0 to 1.0
	// (keep everything, the default).
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultTruncationLimit caps how many entries one directory lists
// before the remainder collapses into a single elision row.
const DefaultTruncationLimit = 2500

// DefaultTracesFilePath is ~/.config/fern/traces/traces.jsonl, or empty
// when the home directory cannot be resolved.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "fern", "traces", "traces.jsonl")
}

// Defaults is the configuration used when no file and no flags override it.
func Defaults() Config {
	return Config{
		TruncationLimit:  DefaultTruncationLimit,
		HoverPrefetchMS:  100,
		PageSize:         20,
		PreloadAncestors: true,
		AutoRefresh:      true,
		UI: UIConfig{
			SidebarWidth:  36,
			ShowStatusBar: true,
			MarkdownStyle: "dark",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Validate rejects out-of-range values. It runs after defaults are
// merged in, so every field is expected to be populated.
func Validate(cfg Config) error {
	if cfg.TruncationLimit < 0 {
		return fmt.Errorf("truncation_limit must be >= 0, got %d", cfg.TruncationLimit)
	}
	if cfg.HoverPrefetchMS < 0 {
		return fmt.Errorf("hover_prefetch_ms must be >= 0, got %d", cfg.HoverPrefetchMS)
	}
	if cfg.PageSize < 1 {
		return fmt.Errorf("page_size must be >= 1, got %d", cfg.PageSize)
	}

	if err := ValidateUI(cfg.UI); err != nil {
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateUI checks UI configuration for errors.
func ValidateUI(ui UIConfig) error {
	if ui.SidebarWidth < 20 || ui.SidebarWidth > 120 {
		return fmt.Errorf("ui.sidebar_width must be between 20 and 120, got %d", ui.SidebarWidth)
	}

	switch ui.MarkdownStyle {
	case "", "dark", "light":
	default:
		return fmt.Errorf("ui.markdown_style must be \"dark\" or \"light\", got %q", ui.MarkdownStyle)
	}
	return nil
}

// ValidateTracing checks the tracing section. An empty exporter string
// is allowed because it falls back to the default.
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Destination requirements only bind once tracing is switched on.
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate is the annotated YAML written for first-time users.
func DefaultConfigTemplate() string {
	return `# Fern Configuration

# Repository to browse (default: current directory)
# repo_path: /path/to/repo

# Display name used when composing entry links (default: repository directory name)
# repo_name: acme/widgets

# Pin the tree to a commit, branch, or tag; empty tracks the working tree
# revision: main

# Root the tree at a subdirectory of the repository
# root_path: src

# Stop listing a directory after this many entries; the rest collapse
# into a single "..." row (0 = unlimited)
truncation_limit: 2500

# How long the selection must rest on an unloaded directory before its
# listing is fetched in the background, in milliseconds (0 disables)
hover_prefetch_ms: 100

# Rows jumped by ctrl+u / ctrl+d
page_size: 20

# Fetch the whole ancestor chain in one request when opening a deep path
preload_ancestors: true

# Re-list changed directories when the repository changes
auto_refresh: true

# UI settings
ui:
  sidebar_width: 36       # Tree pane width in columns
  show_status_bar: true   # Show status bar at bottom
  # markdown_style: dark  # Markdown rendering style: "dark" (default) or "light"

# Distributed tracing configuration
# Enables visibility into listing fetches
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/fern/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
#
# Example: Send traces to Jaeger via OTLP
# tracing:
#   enabled: true
#   exporter: otlp
#   otlp_endpoint: jaeger.internal:4317
#   sample_rate: 0.1  # Sample 10% of traces
`
}

// WriteDefaultConfig seeds configPath with the annotated template,
// creating the parent directory when missing.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "default config created", "path", configPath)
	return nil
}
