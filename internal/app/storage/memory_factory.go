package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pokemnky/catalog-sync/internal/assets"
	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/config"
	"github.com/pokemnky/catalog-sync/internal/queue"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
)

// MemoryFactory creates in-process storage components. Everything it creates lives as long
// as the factory, and every call returns the same shared instance.
type MemoryFactory struct {
	config *config.Config

	mu      sync.Mutex
	cache   *cache.MemoryStore
	queues  map[string]*queue.MemoryQueue
	jobs    state.Service
	catalog *assets.MemoryCatalog
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory creates a new memory-backed storage factory
func NewMemoryFactory(cfg *config.Config) (*MemoryFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	slog.Info("Creating memory-backed storage factory")

	return &MemoryFactory{
		config:  cfg,
		cache:   cache.NewMemoryStore(),
		queues:  make(map[string]*queue.MemoryQueue),
		jobs:    state.NewMemoryStateService(),
		catalog: assets.NewMemoryCatalog(),
	}, nil
}

// CreateCache returns the shared in-memory resource cache
func (f *MemoryFactory) CreateCache(_ context.Context) (cache.Store, error) {
	return f.cache, nil
}

// CreateQueue returns the shared in-memory queue with the given name
func (f *MemoryFactory) CreateQueue(_ context.Context, name string) (queue.Queue, error) {
	if name == "" {
		return nil, fmt.Errorf("queue name is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	q, ok := f.queues[name]
	if !ok {
		q = queue.NewMemoryQueue(queue.WithMaxAttempts(f.config.Queue.GetMaxAttempts()))
		f.queues[name] = q
	}
	return q, nil
}

// CreateStateService returns the shared in-memory job ledger
func (f *MemoryFactory) CreateStateService(_ context.Context) (state.Service, error) {
	return f.jobs, nil
}

// CreateAssetCatalog returns the shared in-memory asset catalog
func (f *MemoryFactory) CreateAssetCatalog(_ context.Context) (assets.Catalog, error) {
	return f.catalog, nil
}

// CheckReadiness always succeeds
func (*MemoryFactory) CheckReadiness(_ context.Context) error {
	return nil
}

// Cleanup is a no-op for memory storage
func (*MemoryFactory) Cleanup() {}
