package source

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys for listing fetches.
const (
	AttrListingPath      = "listing.path"
	AttrListingAncestors = "listing.ancestors"
	AttrListingFirst     = "listing.first"
	AttrListingEntries   = "listing.entries"
)

// SpanNameFetch names the span recorded around each listing fetch.
const SpanNameFetch = "source.fetch_children"

// NewTracedSource wraps next so every fetch records a span with the
// request shape and outcome. A nil tracer returns next unchanged.
func NewTracedSource(next Source, tracer trace.Tracer) Source {
	if tracer == nil {
		return next
	}
	return &tracedSource{next: next, tracer: tracer}
}

type tracedSource struct {
	next   Source
	tracer trace.Tracer
}

func (t *tracedSource) FetchChildren(ctx context.Context, req Request) (Listing, error) {
	ctx, span := t.tracer.Start(ctx, SpanNameFetch,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		attribute.String(AttrListingPath, req.Path),
		attribute.Bool(AttrListingAncestors, req.Ancestors),
		attribute.Int(AttrListingFirst, req.First),
	)

	listing, err := t.next.FetchChildren(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return listing, err
	}

	span.SetAttributes(attribute.Int(AttrListingEntries, len(listing.Entries)))
	span.SetStatus(codes.Ok, "")

	return listing, nil
}
