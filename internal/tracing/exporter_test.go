package tracing

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

var stubStart = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// fetchStub is a finished listing-fetch span with fixed IDs and times,
// so records decode to known values.
func fetchStub(name string) tracetest.SpanStub {
	return tracetest.SpanStub{
		Name: name,
		SpanContext: trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: trace.TraceID{0x01},
			SpanID:  trace.SpanID{0x02},
		}),
		SpanKind:  trace.SpanKindClient,
		StartTime: stubStart,
		EndTime:   stubStart.Add(12500 * time.Microsecond),
		Attributes: []attribute.KeyValue{
			attribute.String("listing.path", "src/parser"),
			attribute.Bool("listing.ancestors", true),
			attribute.Int("listing.first", 2501),
		},
	}
}

func export(t *testing.T, e *FileExporter, stubs ...tracetest.SpanStub) {
	t.Helper()
	spans := make([]sdktrace.ReadOnlySpan, len(stubs))
	for i, stub := range stubs {
		spans[i] = stub.Snapshot()
	}
	require.NoError(t, e.ExportSpans(context.Background(), spans))
}

// decodeLines reads back every JSONL record in the trace file.
func decodeLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		out = append(out, rec)
	}
	return out
}

func TestNewFileExporter_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "nested", "traces.jsonl")

	e, err := NewFileExporter(path)
	require.NoError(t, err)
	defer e.Shutdown(context.Background())

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestExportSpans_RecordShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	e, err := NewFileExporter(path)
	require.NoError(t, err)

	export(t, e, fetchStub("source.fetch_children"))
	require.NoError(t, e.Shutdown(context.Background()))

	records := decodeLines(t, path)
	require.Len(t, records, 1)

	rec := records[0]
	require.Equal(t, "source.fetch_children", rec["name"])
	require.Equal(t, "client", rec["kind"])
	require.Equal(t, "01000000000000000000000000000000", rec["trace_id"])
	require.Equal(t, "0200000000000000", rec["span_id"])
	require.Equal(t, "2024-03-01T10:00:00Z", rec["start"])
	require.Equal(t, 12.5, rec["duration_ms"])

	attrs, ok := rec["attrs"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "src/parser", attrs["listing.path"])
	require.Equal(t, true, attrs["listing.ancestors"])
	require.EqualValues(t, 2501, attrs["listing.first"])

	// A root span carries no parent_id.
	_, present := rec["parent_id"]
	require.False(t, present)
}

func TestExportSpans_ParentID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	e, err := NewFileExporter(path)
	require.NoError(t, err)

	stub := fetchStub("source.fetch_children")
	stub.Parent = trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01},
		SpanID:  trace.SpanID{0x03},
	})
	export(t, e, stub)
	require.NoError(t, e.Shutdown(context.Background()))

	records := decodeLines(t, path)
	require.Equal(t, "0300000000000000", records[0]["parent_id"])
}

func TestExportSpans_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     sdktrace.Status
		wantStatus string
		wantError  string
	}{
		{"unset omits both keys", sdktrace.Status{}, "", ""},
		{"ok has no error", sdktrace.Status{Code: codes.Ok}, "ok", ""},
		{"error carries description", sdktrace.Status{Code: codes.Error, Description: "revision gone"}, "error", "revision gone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "traces.jsonl")
			e, err := NewFileExporter(path)
			require.NoError(t, err)

			stub := fetchStub("source.fetch_children")
			stub.Status = tt.status
			export(t, e, stub)
			require.NoError(t, e.Shutdown(context.Background()))

			rec := decodeLines(t, path)[0]
			if tt.wantStatus == "" {
				_, present := rec["status"]
				require.False(t, present)
			} else {
				require.Equal(t, tt.wantStatus, rec["status"])
			}
			if tt.wantError == "" {
				_, present := rec["error"]
				require.False(t, present)
			} else {
				require.Equal(t, tt.wantError, rec["error"])
			}
		})
	}
}

func TestExportSpans_EventOffsets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	e, err := NewFileExporter(path)
	require.NoError(t, err)

	stub := fetchStub("source.fetch_children")
	stub.Events = []sdktrace.Event{
		{
			Name:       "git.exec",
			Time:       stubStart.Add(2 * time.Millisecond),
			Attributes: []attribute.KeyValue{attribute.String("subcommand", "ls-tree")},
		},
		{Name: "parsed", Time: stubStart.Add(9 * time.Millisecond)},
	}
	export(t, e, stub)
	require.NoError(t, e.Shutdown(context.Background()))

	events, ok := decodeLines(t, path)[0]["events"].([]any)
	require.True(t, ok)
	require.Len(t, events, 2)

	first, ok := events[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "git.exec", first["name"])
	require.Equal(t, 2.0, first["at_ms"])
	attrs, ok := first["attrs"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "ls-tree", attrs["subcommand"])

	second, ok := events[1].(map[string]any)
	require.True(t, ok)
	require.Equal(t, 9.0, second["at_ms"])
	_, present := second["attrs"]
	require.False(t, present)
}

func TestExportSpans_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"earlier.run"}`+"\n"), 0600))

	e, err := NewFileExporter(path)
	require.NoError(t, err)
	export(t, e, fetchStub("source.fetch_children"))
	require.NoError(t, e.Shutdown(context.Background()))

	records := decodeLines(t, path)
	require.Len(t, records, 2)
	require.Equal(t, "earlier.run", records[0]["name"])
	require.Equal(t, "source.fetch_children", records[1]["name"])
}

func TestExportSpans_EmptyBatchWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	e, err := NewFileExporter(path)
	require.NoError(t, err)

	require.NoError(t, e.ExportSpans(context.Background(), nil))
	require.NoError(t, e.Shutdown(context.Background()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestExportSpans_BatchWritesOneLinePerSpan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	e, err := NewFileExporter(path)
	require.NoError(t, err)

	export(t, e,
		fetchStub("source.fetch_children"),
		fetchStub("source.fetch_children"),
		fetchStub("source.fetch_children"))
	require.NoError(t, e.Shutdown(context.Background()))

	require.Len(t, decodeLines(t, path), 3)
}

func TestExportSpans_ConcurrentWritersStayLineAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	e, err := NewFileExporter(path)
	require.NoError(t, err)

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				spans := []sdktrace.ReadOnlySpan{fetchStub("source.fetch_children").Snapshot()}
				_ = e.ExportSpans(context.Background(), spans)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, e.Shutdown(context.Background()))

	records := decodeLines(t, path)
	require.Len(t, records, workers*perWorker)
	for _, rec := range records {
		require.Equal(t, "source.fetch_children", rec["name"])
	}
}

func TestShutdown_IsIdempotentAndStopsExports(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	e, err := NewFileExporter(path)
	require.NoError(t, err)

	require.NoError(t, e.Shutdown(context.Background()))
	require.NoError(t, e.Shutdown(context.Background()))

	// Late exports after shutdown are dropped without error.
	export(t, e, fetchStub("source.fetch_children"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Zero(t, info.Size())
}
