// Package storage provides factory functions for creating storage-dependent components.
// It implements the Abstract Factory pattern so the resource cache, the queues, the job
// ledger and the asset catalog always share one backend.
package storage

import (
	"context"
	"fmt"

	"github.com/pokemnky/catalog-sync/internal/assets"
	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/config"
	"github.com/pokemnky/catalog-sync/internal/queue"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates storage-dependent components as a family.
//
// It also manages the lifecycle of storage resources (e.g., database connections).
type Factory interface {
	// CreateCache creates the resource cache
	CreateCache(ctx context.Context) (cache.Store, error)

	// CreateQueue creates the named work queue. Calling it twice with the same name
	// returns views of the same queue.
	CreateQueue(ctx context.Context, name string) (queue.Queue, error)

	// CreateStateService creates the sync job ledger
	CreateStateService(ctx context.Context) (state.Service, error)

	// CreateAssetCatalog creates the catalog of mirrored sprite objects
	CreateAssetCatalog(ctx context.Context) (assets.Catalog, error)

	// CheckReadiness reports whether the backend can serve requests
	CheckReadiness(ctx context.Context) error

	// Cleanup releases any resources held by this factory.
	// For database factories, this closes the connection pool.
	// For memory factories, this is a no-op.
	Cleanup()
}

// NewStorageFactory creates a storage factory based on the configured storage type
func NewStorageFactory(ctx context.Context, cfg *config.Config, opts ...DatabaseFactoryOption) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg, opts...)
	case config.StorageTypeMemory:
		return NewMemoryFactory(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.GetStorageType())
	}
}
