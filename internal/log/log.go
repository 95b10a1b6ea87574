// Package log writes structured debug lines and fans them out to
// in-app subscribers such as the log overlay. It stays dormant until
// InitWithTeaLog runs, so sessions without --debug pay nothing.
package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/fern/internal/pubsub"
)

// Level ranks entry severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the marker spelling used inside entries.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Category tags an entry with the subsystem it came from.
type Category string

const (
	CatApp      Category = "app"      // Program lifecycle and top-level wiring
	CatConfig   Category = "config"   // Configuration loading/saving
	CatSource   Category = "source"   // Listing fetches from git or the filesystem
	CatLoader   Category = "loader"   // Load requests and their results
	CatTree     Category = "tree"     // Node table and sidebar state
	CatPrefetch Category = "prefetch" // Hover prefetch scheduling
	CatCache    Category = "cache"    // Cache operations
	CatWatcher  Category = "watcher"  // File watcher events
	CatUI       Category = "ui"       // UI component updates
)

// logger owns the sink. There is at most one, created by InitWithTeaLog;
// while none exists every entry is swallowed.
type logger struct {
	mu     sync.Mutex
	w      io.Writer
	broker *pubsub.Broker[string]
}

var active *logger

// InitWithTeaLog opens path through tea.LogToFile and activates logging.
// The returned function closes the file; call it when the program exits.
func InitWithTeaLog(path, prefix string) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, err
	}
	active = &logger{w: f, broker: pubsub.NewBroker[string]()}
	return func() { _ = f.Close() }, nil
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	emit(LevelDebug, cat, msg, fields)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	emit(LevelInfo, cat, msg, fields)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	emit(LevelWarn, cat, msg, fields)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	emit(LevelError, cat, msg, fields)
}

// ErrorErr logs err at error level under an "error" field.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	val := "<nil>"
	if err != nil {
		val = err.Error()
	}
	emit(LevelError, cat, msg, append(fields, "error", val))
}

// emit renders one entry, writes it to the sink, and publishes it to
// subscribers. The lock keeps file order and broker order identical.
func emit(level Level, cat Category, msg string, fields []any) {
	l := active
	if l == nil {
		return
	}
	entry := format(level, cat, msg, fields)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, entry)
	l.broker.Publish(pubsub.CreatedEvent, entry)
}

// format renders one line: timestamp, level, category, message, then
// fields as key=value pairs. An unpaired trailing key is kept visible
// instead of dropped.
func format(level Level, cat Category, msg string, fields []any) string {
	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02T15:04:05"))
	fmt.Fprintf(&b, " [%s] [%s] %s", level, cat, msg)

	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	if len(fields)%2 != 0 {
		fmt.Fprintf(&b, " %v=<missing>", fields[len(fields)-1])
	}
	b.WriteByte('\n')
	return b.String()
}

// LogEvent is the pubsub event carrying one formatted entry.
type LogEvent = pubsub.Event[string]

// LogListener receives entries across update cycles.
type LogListener = pubsub.ContinuousListener[string]

// NewListener subscribes to the entry stream. It returns nil while
// logging is not initialized; cancelling ctx ends the subscription.
func NewListener(ctx context.Context) *LogListener {
	l := active
	if l == nil {
		return nil
	}
	return pubsub.NewContinuousListener(ctx, l.broker)
}
