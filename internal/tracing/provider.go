package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Exporter backends selectable through Config.Exporter.
const (
	ExporterNone   = "none"
	ExporterFile   = "file"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const defaultServiceName = "fern"

// Config selects and tunes the span export pipeline.
type Config struct {
	// Enabled turns span recording on. When false every started span
	// is a no-op.
	Enabled bool

	// Exporter picks the backend: "none", "file", "stdout", or "otlp".
	// "none" still records spans, so trace IDs keep correlating log
	// lines without anything leaving the process.
	Exporter string

	// FilePath is where the file exporter appends its JSONL records.
	FilePath string

	// OTLPEndpoint is the gRPC collector address for the otlp
	// exporter, "localhost:4317" when empty.
	OTLPEndpoint string

	// SampleRate keeps this fraction of root traces, 0 through 1.
	// Zero and below sample everything.
	SampleRate float64

	// ServiceName tags exported spans, "fern" when empty.
	ServiceName string
}

// Provider owns the span pipeline for one run of the program.
type Provider struct {
	sdk    *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NewProvider builds the pipeline cfg describes. With tracing disabled
// the returned provider hands out a no-op tracer and Shutdown does
// nothing.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(defaultServiceName)}, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}

	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}

	// NewSchemaless sidesteps the schema version conflicts that
	// resource.Default can hit across otel upgrades.
	res := resource.NewSchemaless(attribute.String("service.name", name))

	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 1.0
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	sdk := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(sdk)

	return &Provider{sdk: sdk, tracer: sdk.Tracer(name)}, nil
}

// newExporter builds the backend cfg.Exporter names, nil when spans
// should stay in-process.
func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterNone, "":
		return nil, nil
	case ExporterFile:
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("file exporter needs a file_path")
		}
		return NewFileExporter(cfg.FilePath)
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case ExporterOTLP:
		endpoint := cfg.OTLPEndpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		return otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unknown exporter %q", cfg.Exporter)
	}
}

// Tracer returns the tracer spans should start from. Always safe to
// use, even when tracing is disabled.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes batched spans and stops the pipeline.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
