package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordingTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp.Tracer("catalog-sync-test")
}

func TestStartDBSpan_NilTracer(t *testing.T) {
	t.Parallel()

	ctx, span := StartDBSpan(context.Background(), nil, "queue.Claim")
	require.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	assert.NotPanics(t, func() {
		RecordError(span, errors.New("ignored"))
		span.End()
	})
}

func TestStartDBSpan_Attributes(t *testing.T) {
	t.Parallel()

	exporter, tracer := recordingTracer(t)

	_, span := StartDBSpan(context.Background(), tracer, "cache.Upsert",
		trace.WithAttributes(AttrKind.String("pokemon"), AttrResourceKey.String("25")),
	)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "cache.Upsert", spans[0].Name)

	attrs := make(map[string]string)
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, map[string]string{
		"db.system":    "postgresql",
		"catalog.kind": "pokemon",
		"catalog.key":  "25",
	}, attrs)
}

func TestRecordError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus codes.Code
		wantEvents int
	}{
		{name: "nil error leaves span untouched", wantStatus: codes.Unset},
		{name: "error marks span failed", err: errors.New(`pq: relation "catalog_resource" does not exist`),
			wantStatus: codes.Error, wantEvents: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exporter, tracer := recordingTracer(t)
			_, span := StartDBSpan(context.Background(), tracer, "jobs.Finish")
			RecordError(span, tt.err)
			span.End()

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantStatus, spans[0].Status.Code)
			require.Len(t, spans[0].Events, tt.wantEvents)
			if tt.err != nil {
				assert.Equal(t, "operation failed", spans[0].Status.Description)
				assert.Equal(t, "exception", spans[0].Events[0].Name)
			}
		})
	}

	assert.NotPanics(t, func() { RecordError(nil, errors.New("no span")) })
}
