// Package observability carries request tracing and Server-Timing metrics.
//
// Spans go to the global OpenTelemetry provider, which is a no-op until a
// process installs an SDK.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span this service starts.
const TracerName = "servicecatalog.io/catalog"

// Span attribute keys.
const (
	AttrResource = "catalog.resource"
	AttrRows     = "catalog.rows"
	AttrDBOp     = "db.operation"
	AttrDBTable  = "db.sql.table"
)

// Tracer wraps an OpenTelemetry tracer with catalog span helpers.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer from tp. A nil tp uses the global provider.
func NewTracer(tp trace.TracerProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// StartSpan starts a span with the given name and attributes.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartList starts the span of a collection read.
func (t *Tracer) StartList(ctx context.Context, resource string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, "catalog.list", attribute.String(AttrResource, resource))
}

// StartCreate starts the span of a row insert.
func (t *Tracer) StartCreate(ctx context.Context, resource string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, "catalog.create", attribute.String(AttrResource, resource))
}

// RecordError marks span failed. A nil err is ignored.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
