// Package telemetry provides OpenTelemetry instrumentation for catalog-sync.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// CatalogMetricsMeterName is the name used for the catalog metrics meter
	CatalogMetricsMeterName = "github.com/pokemnky/catalog-sync/catalog"

	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/pokemnky/catalog-sync/sync"
)

// CatalogMetrics holds the OpenTelemetry instruments describing cache and queue contents
type CatalogMetrics struct {
	resourcesTotal metric.Int64Gauge
	queueDepth     metric.Int64Gauge
}

// NewCatalogMetrics creates a new CatalogMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewCatalogMetrics(provider metric.MeterProvider) (*CatalogMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(CatalogMetricsMeterName)

	resourcesTotal, err := meter.Int64Gauge(
		"catalog_sync_resources_total",
		metric.WithDescription("Number of cached resources of each kind"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Gauge(
		"catalog_sync_queue_depth",
		metric.WithDescription("Number of queue items of each kind by state"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	return &CatalogMetrics{
		resourcesTotal: resourcesTotal,
		queueDepth:     queueDepth,
	}, nil
}

// RecordResourcesTotal records the current number of cached resources of a kind
func (m *CatalogMetrics) RecordResourcesTotal(ctx context.Context, kind string, count int64) {
	if m == nil || m.resourcesTotal == nil {
		return
	}

	m.resourcesTotal.Record(ctx, count, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordQueueDepth records the number of items of a kind in one state of a queue
func (m *CatalogMetrics) RecordQueueDepth(ctx context.Context, queueName, kind, state string, count int64) {
	if m == nil || m.queueDepth == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("queue", queueName),
		attribute.String("kind", kind),
		attribute.String("state", state),
	}

	m.queueDepth.Record(ctx, count, metric.WithAttributes(attrs...))
}

// SyncMetrics holds the OpenTelemetry instruments for sync run metrics
type SyncMetrics struct {
	runDuration metric.Float64Histogram
	items       metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	runDuration, err := meter.Float64Histogram(
		"catalog_sync_run_duration_seconds",
		metric.WithDescription("Duration of sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	items, err := meter.Int64Counter(
		"catalog_sync_items_total",
		metric.WithDescription("Number of items processed by sync runs"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runDuration: runDuration,
		items:       items,
	}, nil
}

// RecordRun records the duration and terminal status of one sync run
func (m *SyncMetrics) RecordRun(ctx context.Context, mode, status string, duration time.Duration) {
	if m == nil || m.runDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("mode", mode),
		attribute.String("status", status),
	}

	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordItems adds the succeeded and failed item counts of one sync run
func (m *SyncMetrics) RecordItems(ctx context.Context, mode string, succeeded, failed int64) {
	if m == nil || m.items == nil {
		return
	}

	if succeeded > 0 {
		m.items.Add(ctx, succeeded, metric.WithAttributes(
			attribute.String("mode", mode), attribute.String("outcome", "succeeded")))
	}
	if failed > 0 {
		m.items.Add(ctx, failed, metric.WithAttributes(
			attribute.String("mode", mode), attribute.String("outcome", "failed")))
	}
}
