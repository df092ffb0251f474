package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pokemnky/catalog-sync/internal/app/storage"
	"github.com/pokemnky/catalog-sync/internal/assets"
	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/config"
	"github.com/pokemnky/catalog-sync/internal/httpclient"
	"github.com/pokemnky/catalog-sync/internal/queue"
	"github.com/pokemnky/catalog-sync/internal/sources"
	"github.com/pokemnky/catalog-sync/internal/status"
	pkgsync "github.com/pokemnky/catalog-sync/internal/sync"
	"github.com/pokemnky/catalog-sync/internal/sync/detector"
	"github.com/pokemnky/catalog-sync/internal/sync/seeder"
	"github.com/pokemnky/catalog-sync/internal/sync/sprites"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
	"github.com/pokemnky/catalog-sync/internal/sync/worker"
	"github.com/pokemnky/catalog-sync/internal/sync/writer"
	"github.com/pokemnky/catalog-sync/internal/telemetry"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	Storage   storage.Factory
	Cache     cache.Store
	Resources queue.Queue
	// Sprites is nil when sprite mirroring is disabled
	Sprites queue.Queue
	Jobs    state.Service
	Manager pkgsync.Manager
	Tracker *status.Tracker

	CatalogMetrics *telemetry.CatalogMetrics
}

// Close releases the storage backend
func (c *AppComponents) Close() {
	if c != nil && c.Storage != nil {
		c.Storage.Cleanup()
	}
}

// componentOptions carries the overrides accepted by BuildComponents
type componentOptions struct {
	config         *config.Config
	storageFactory storage.Factory
	upstream       httpclient.Client
	objectStore    assets.ObjectStore
	syncManager    pkgsync.Manager
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
}

// BuildComponents wires storage, the upstream client and every sync mode behind one
// Manager. It is shared by the server and the one-shot CLI commands.
func BuildComponents(ctx context.Context, opts ...CatalogAppOptions) (*AppComponents, error) {
	b, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	return buildComponents(ctx, &b.componentOptions)
}

func buildComponents(ctx context.Context, o *componentOptions) (*AppComponents, error) {
	if o.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	cfg := o.config

	slog.Info("Initializing sync components", "storage", cfg.GetStorageType())

	factory := o.storageFactory
	if factory == nil {
		var factoryOpts []storage.DatabaseFactoryOption
		if o.tracer != nil {
			factoryOpts = append(factoryOpts, storage.WithTracer(o.tracer))
		}
		var err error
		factory, err = storage.NewStorageFactory(ctx, cfg, factoryOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	c := &AppComponents{Storage: factory}
	success := false
	defer func() {
		if !success {
			c.Close()
		}
	}()

	var err error
	if c.Cache, err = factory.CreateCache(ctx); err != nil {
		return nil, fmt.Errorf("failed to create resource cache: %w", err)
	}
	if c.Resources, err = factory.CreateQueue(ctx, queue.ResourcesQueue); err != nil {
		return nil, fmt.Errorf("failed to create resources queue: %w", err)
	}
	if c.Jobs, err = factory.CreateStateService(ctx); err != nil {
		return nil, fmt.Errorf("failed to create state service: %w", err)
	}

	depthReaders := map[string]status.DepthReader{queue.ResourcesQueue: c.Resources}
	if cfg.SpritesEnabled() {
		if c.Sprites, err = factory.CreateQueue(ctx, queue.SpritesQueue); err != nil {
			return nil, fmt.Errorf("failed to create sprites queue: %w", err)
		}
		depthReaders[queue.SpritesQueue] = c.Sprites
	}
	c.Tracker = status.NewTracker(c.Cache, depthReaders, cfg.EstimatedTotals())

	if o.meterProvider != nil {
		if c.CatalogMetrics, err = telemetry.NewCatalogMetrics(o.meterProvider); err != nil {
			return nil, fmt.Errorf("failed to create catalog metrics: %w", err)
		}
	}

	c.Manager = o.syncManager
	if c.Manager == nil {
		if c.Manager, err = buildSyncManager(ctx, o, c); err != nil {
			return nil, err
		}
	}

	success = true
	slog.Info("Sync components initialized successfully", "sprites", cfg.SpritesEnabled())
	return c, nil
}

// buildSyncManager creates every runner and the manager dispatching to them
func buildSyncManager(ctx context.Context, o *componentOptions, c *AppComponents) (pkgsync.Manager, error) {
	cfg := o.config
	baseURL := cfg.Upstream.GetBaseURL()

	client := o.upstream
	if client == nil {
		client = httpclient.NewFromConfig(cfg.Upstream)
	}

	writerOpts := []writer.Option{writer.WithRefreshAfter(cfg.RefreshAfter)}
	if c.Sprites != nil {
		writerOpts = append(writerOpts, writer.WithHook("sprites", writer.SpriteHook(c.Sprites)))
	}
	w := writer.New(c.Cache, writerOpts...)

	runners := pkgsync.Runners{
		Seeder:   seeder.New(sources.NewIndex(client, baseURL), c.Resources, c.Jobs, c.Cache),
		Worker:   worker.New(c.Resources, client, w, c.Jobs),
		Detector: detector.New(c.Cache, client, w, c.Jobs, baseURL),
	}

	if c.Sprites != nil {
		objects := o.objectStore
		if objects == nil {
			minioStore, err := assets.NewMinioStore(cfg.Sprites)
			if err != nil {
				return nil, fmt.Errorf("failed to create sprite object store: %w", err)
			}
			objects = minioStore
		}
		assetCatalog, err := c.Storage.CreateAssetCatalog(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create asset catalog: %w", err)
		}
		runners.Sprites = sprites.New(c.Sprites, client, objects, assetCatalog, c.Jobs)
	}

	var managerOpts []pkgsync.Option
	if o.meterProvider != nil {
		syncMetrics, err := telemetry.NewSyncMetrics(o.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create sync metrics: %w", err)
		}
		if syncMetrics != nil {
			managerOpts = append(managerOpts, pkgsync.WithSyncMetrics(syncMetrics))
			slog.Info("Sync metrics enabled")
		}
	}

	return pkgsync.NewManager(runners, DefaultsFromConfig(cfg), managerOpts...), nil
}

// DefaultsFromConfig maps the seed, worker, detector and sprites sections onto run options
func DefaultsFromConfig(cfg *config.Config) pkgsync.Defaults {
	return pkgsync.Defaults{
		Seed: seeder.Options{
			PageSize:  cfg.Seed.GetPageSize(),
			MaxPages:  cfg.Seed.GetMaxPages(),
			PageDelay: cfg.Seed.GetPageDelay(),
		},
		Worker: worker.Options{
			BatchSize:         cfg.Worker.GetBatchSize(),
			Concurrency:       cfg.Worker.GetConcurrency(),
			PerRequestDelay:   cfg.Worker.GetPerRequestDelay(),
			VisibilityTimeout: cfg.Worker.GetVisibilityTimeout(),
			Budget:            cfg.Worker.GetBudget(),
			MaxBatches:        cfg.Worker.GetMaxBatches(),
		},
		Detector: detector.Options{
			ProbeKinds:   cfg.Detector.GetProbeKinds(),
			ProbeLimit:   cfg.Detector.GetProbeLimit(),
			RefreshLimit: cfg.Detector.GetRefreshLimit(),
			Delay:        cfg.Detector.GetDelay(),
			Budget:       cfg.Detector.GetBudget(),
		},
		Sprites: sprites.Options{
			Bucket:            cfg.Sprites.GetBucket(),
			BatchSize:         spriteBatchSize(cfg.Sprites),
			Delay:             cfg.Worker.GetPerRequestDelay(),
			VisibilityTimeout: cfg.Worker.GetVisibilityTimeout(),
			Budget:            cfg.Worker.GetBudget(),
			MaxBatches:        cfg.Worker.GetMaxBatches(),
		},
	}
}

func spriteBatchSize(s *config.SpritesConfig) int {
	if s == nil || s.BatchSize <= 0 {
		return sprites.DefaultBatchSize
	}
	return s.BatchSize
}
