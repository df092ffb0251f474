// Package otel holds the span helpers shared by the PostgreSQL-backed stores.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys put on store spans
const (
	AttrKind        = attribute.Key("catalog.kind")
	AttrResourceKey = attribute.Key("catalog.key")
	AttrSourceURL   = attribute.Key("catalog.source_url")
	AttrQueueName   = attribute.Key("queue.name")
	AttrBatchSize   = attribute.Key("queue.batch_size")
	AttrResultCount = attribute.Key("result.count")
)

// StartDBSpan starts a span tagged db.system=postgresql. A nil tracer yields the
// span already in ctx, which is a no-op span when tracing is off.
func StartDBSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	opts = append([]trace.SpanStartOption{trace.WithAttributes(semconv.DBSystemPostgreSQL)}, opts...)
	return tracer.Start(ctx, name, opts...)
}

// RecordError marks span as failed. The status description stays generic so SQL
// text never lands in it; the error itself is kept as a span event.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "operation failed")
}
