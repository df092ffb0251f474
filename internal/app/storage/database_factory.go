package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/pokemnky/catalog-sync/internal/assets"
	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/config"
	"github.com/pokemnky/catalog-sync/internal/db"
	"github.com/pokemnky/catalog-sync/internal/queue"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
)

// DatabaseFactory creates database-backed storage components.
// All components created by this factory use PostgreSQL for persistence.
type DatabaseFactory struct {
	config *config.Config
	pool   *pgxpool.Pool
	tracer trace.Tracer
	// ownsPool is false when the pool was injected and must be closed by the caller
	ownsPool bool
}

var _ Factory = (*DatabaseFactory)(nil)

// DatabaseFactoryOption is a functional option for configuring the DatabaseFactory
type DatabaseFactoryOption func(*DatabaseFactory)

// WithTracer sets the OpenTelemetry tracer for the database-backed components.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) DatabaseFactoryOption {
	return func(f *DatabaseFactory) {
		f.tracer = tracer
	}
}

// WithPool uses an existing connection pool instead of opening one from the configuration
func WithPool(pool *pgxpool.Pool) DatabaseFactoryOption {
	return func(f *DatabaseFactory) {
		f.pool = pool
	}
}

// NewDatabaseFactory creates a new database-backed storage factory.
// It establishes a connection pool to the configured PostgreSQL database.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config, opts ...DatabaseFactoryOption) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	factory := &DatabaseFactory{config: cfg}
	for _, opt := range opts {
		opt(factory)
	}

	if factory.pool == nil {
		if cfg.Database == nil {
			return nil, fmt.Errorf("database configuration is required for database storage type")
		}
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		factory.pool = pool
		factory.ownsPool = true
	}

	slog.Info("Created database-backed storage factory")
	return factory, nil
}

// Pool returns the connection pool shared by every component
func (d *DatabaseFactory) Pool() *pgxpool.Pool {
	return d.pool
}

// CreateCache creates the PostgreSQL resource cache
func (d *DatabaseFactory) CreateCache(_ context.Context) (cache.Store, error) {
	slog.Debug("Creating database-backed resource cache")
	var opts []cache.DBOption
	if d.tracer != nil {
		opts = append(opts, cache.WithTracer(d.tracer))
	}
	return cache.NewDBStore(d.pool, opts...)
}

// CreateQueue creates the named PostgreSQL work queue
func (d *DatabaseFactory) CreateQueue(_ context.Context, name string) (queue.Queue, error) {
	slog.Debug("Creating database-backed queue", "queue", name)
	opts := []queue.Option{queue.WithMaxAttempts(d.config.Queue.GetMaxAttempts())}
	if d.tracer != nil {
		opts = append(opts, queue.WithTracer(d.tracer))
	}
	return queue.NewDBQueue(d.pool, name, opts...)
}

// CreateStateService creates the PostgreSQL job ledger
func (d *DatabaseFactory) CreateStateService(_ context.Context) (state.Service, error) {
	slog.Debug("Creating database-backed state service")
	return state.NewStateService(d.config, d.pool)
}

// CreateAssetCatalog creates the PostgreSQL asset catalog
func (d *DatabaseFactory) CreateAssetCatalog(_ context.Context) (assets.Catalog, error) {
	slog.Debug("Creating database-backed asset catalog")
	return assets.NewDBCatalog(d.pool, d.tracer)
}

// CheckReadiness pings the database
func (d *DatabaseFactory) CheckReadiness(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	return nil
}

// Cleanup releases resources held by the database factory.
// This closes the database connection pool when the factory opened it.
func (d *DatabaseFactory) Cleanup() {
	if d.pool != nil && d.ownsPool {
		slog.Info("Closing database connection pool")
		d.pool.Close()
	}
}
