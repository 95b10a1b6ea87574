// Package watcher provides file system watching with debouncing for the
// repository worktree.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/fern/internal/pubsub"
)

// EventType classifies a published watcher event.
type EventType string

const (
	// RepoChanged means the worktree or the git metadata behind it moved.
	RepoChanged EventType = "repo_changed"
	// WatcherError carries a failure from the underlying watch.
	WatcherError EventType = "watcher_error"
)

// WatcherEvent is the broker payload for repository change notifications.
type WatcherEvent struct {
	Type  EventType
	Error error
}

// Watcher monitors a repository for changes and publishes debounced
// notifications on its broker.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	repoDir   string
	gitDir    string
	debounce  time.Duration
	broker    *pubsub.Broker[WatcherEvent]
	done      chan struct{}
}

// Config controls what the watcher observes and how eagerly it reports.
type Config struct {
	RepoDir     string
	DebounceDur time.Duration
}

// DefaultConfig watches repoDir with a one second debounce window.
func DefaultConfig(repoDir string) Config {
	return Config{
		RepoDir:     repoDir,
		DebounceDur: 1 * time.Second,
	}
}

// New creates a new repository watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	repoDir := filepath.Clean(cfg.RepoDir)
	return &Watcher{
		fsWatcher: fsw,
		repoDir:   repoDir,
		gitDir:    filepath.Join(repoDir, ".git"),
		debounce:  cfg.DebounceDur,
		broker:    pubsub.NewBroker[WatcherEvent](),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the repository root, plus the .git directory
// when one exists so commits and checkouts are picked up too.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.repoDir); err != nil {
		return fmt.Errorf("watching directory %s: %w", w.repoDir, err)
	}
	if info, err := os.Stat(w.gitDir); err == nil && info.IsDir() {
		if err := w.fsWatcher.Add(w.gitDir); err != nil {
			return fmt.Errorf("watching directory %s: %w", w.gitDir, err)
		}
	}

	go w.loop()

	return nil
}

// Broker exposes the event broker for subscription.
func (w *Watcher) Broker() *pubsub.Broker[WatcherEvent] {
	return w.broker
}

// Stop shuts down the watch loop and closes the broker.
func (w *Watcher) Stop() error {
	close(w.done)
	w.broker.Close()
	return w.fsWatcher.Close()
}

// loop collapses bursts of file system events into a single notification
// per debounce window.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !w.isRelevantEvent(event) {
				continue
			}

			// Every relevant event pushes the deadline out again.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				pending = true
			} else {
				if !timer.Stop() {
					// Stop returning false means the timer fired; drain
					// the stale tick before reusing the channel.
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
				pending = true
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				w.broker.Publish(pubsub.UpdatedEvent, WatcherEvent{Type: RepoChanged})
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.broker.Publish(pubsub.UpdatedEvent, WatcherEvent{Type: WatcherError, Error: err})

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevantEvent decides whether an fsnotify event warrants a refresh.
//
// Inside .git only the refs metadata matters; lock files and editor
// scratch (index.lock, COMMIT_EDITMSG) churn constantly during normal
// git use and must not fire refreshes.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	if event.Name == w.gitDir {
		return false
	}

	if filepath.Dir(event.Name) == w.gitDir {
		base := filepath.Base(event.Name)
		return base == "index" || base == "HEAD" || base == "packed-refs"
	}

	return true
}
