// Package prefetch arms a short dwell timer over the selected directory
// and fires a background fetch once the selection has rested there long
// enough. Every re-arm bumps a generation counter, so ticks from an
// abandoned hover arrive stale and are dropped.
package prefetch

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/fern/internal/log"
)

// DefaultDelay is how long the selection must rest on a directory
// before its listing is fetched in the background.
const DefaultDelay = 100 * time.Millisecond

// TickMsg is delivered when an armed dwell timer expires. Gen ties the
// tick to the arm that scheduled it.
type TickMsg struct {
	Gen  int
	Path string
}

// Scheduler tracks at most one armed dwell timer at a time.
type Scheduler struct {
	delay time.Duration
	gen   int
	path  string
	armed bool
}

// NewScheduler returns a scheduler that waits delay before firing. A
// non-positive delay disables prefetching entirely.
func NewScheduler(delay time.Duration) *Scheduler {
	return &Scheduler{delay: delay}
}

// Enabled reports whether prefetching is active.
func (s *Scheduler) Enabled() bool {
	return s.delay > 0
}

// Observe arms the timer for path. It returns nil when prefetching is
// disabled or the same path is already armed, so repeated updates while
// resting on one row schedule a single tick.
func (s *Scheduler) Observe(path string) tea.Cmd {
	if !s.Enabled() {
		return nil
	}
	if s.armed && s.path == path {
		return nil
	}

	s.gen++
	s.path = path
	s.armed = true

	gen := s.gen
	log.Debug(log.CatPrefetch, "prefetch armed", "path", path)
	return tea.Tick(s.delay, func(time.Time) tea.Msg {
		return TickMsg{Gen: gen, Path: path}
	})
}

// Cancel disarms any pending timer. The generation bump makes an
// already-scheduled tick stale.
func (s *Scheduler) Cancel() {
	s.armed = false
	s.gen++
}

// Fire consumes a tick. It returns the armed path when the tick is
// current, and false for ticks left over from an earlier arm.
func (s *Scheduler) Fire(msg TickMsg) (string, bool) {
	if !s.armed || msg.Gen != s.gen || msg.Path != s.path {
		return "", false
	}
	s.armed = false
	log.Debug(log.CatPrefetch, "prefetch fired", "path", s.path)
	return s.path, true
}
