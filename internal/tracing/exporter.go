package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// FileExporter appends finished spans to a file as JSONL, one object
// per line, so a slow session can be picked apart afterwards with jq.
type FileExporter struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	enc *json.Encoder
}

// NewFileExporter opens path for appending, creating missing parent
// directories.
func NewFileExporter(path string) (*FileExporter, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating trace directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600) // #nosec G304 -- path is cleaned above
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	w := bufio.NewWriter(f)
	return &FileExporter{f: f, w: w, enc: json.NewEncoder(w)}, nil
}

// ExportSpans writes one record per span. Exporting after Shutdown is
// a no-op, as the SpanExporter contract asks.
func (e *FileExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.f == nil || len(spans) == 0 {
		return nil
	}
	for _, span := range spans {
		if err := e.enc.Encode(newSpanRecord(span)); err != nil {
			return fmt.Errorf("encoding span: %w", err)
		}
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flushing spans: %w", err)
	}
	return nil
}

// Shutdown flushes buffered records and closes the file. Safe to call
// more than once.
func (e *FileExporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.f == nil {
		return nil
	}
	flushErr := e.w.Flush()
	closeErr := e.f.Close()
	e.f, e.w, e.enc = nil, nil, nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// spanRecord is the shape of one exported line. Events carry offsets
// from the span start rather than absolute times, which reads better
// when eyeballing a single slow fetch.
type spanRecord struct {
	TraceID    string         `json:"trace_id"`
	SpanID     string         `json:"span_id"`
	ParentID   string         `json:"parent_id,omitempty"`
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Start      string         `json:"start"`
	DurationMs float64        `json:"duration_ms"`
	Status     string         `json:"status,omitempty"`
	Error      string         `json:"error,omitempty"`
	Attrs      map[string]any `json:"attrs,omitempty"`
	Events     []eventRecord  `json:"events,omitempty"`
}

type eventRecord struct {
	Name  string         `json:"name"`
	AtMs  float64        `json:"at_ms"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

func newSpanRecord(span sdktrace.ReadOnlySpan) spanRecord {
	sc := span.SpanContext()
	rec := spanRecord{
		TraceID:    sc.TraceID().String(),
		SpanID:     sc.SpanID().String(),
		Name:       span.Name(),
		Kind:       span.SpanKind().String(),
		Start:      span.StartTime().Format(time.RFC3339Nano),
		DurationMs: millisBetween(span.StartTime(), span.EndTime()),
		Attrs:      attrsToMap(span.Attributes()),
	}
	if span.Parent().IsValid() {
		rec.ParentID = span.Parent().SpanID().String()
	}
	switch status := span.Status(); status.Code {
	case codes.Ok:
		rec.Status = "ok"
	case codes.Error:
		rec.Status = "error"
		rec.Error = status.Description
	}
	for _, ev := range span.Events() {
		rec.Events = append(rec.Events, eventRecord{
			Name:  ev.Name,
			AtMs:  millisBetween(span.StartTime(), ev.Time),
			Attrs: attrsToMap(ev.Attributes),
		})
	}
	return rec
}

// millisBetween is the elapsed time from a to b in milliseconds with
// microsecond precision.
func millisBetween(a, b time.Time) float64 {
	return float64(b.Sub(a).Microseconds()) / 1000
}

func attrsToMap(attrs []attribute.KeyValue) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}
