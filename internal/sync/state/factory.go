package state

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pokemnky/catalog-sync/internal/config"
)

// NewStateService creates a Service based on the configured storage type.
//
// For database storage it returns a ledger stored in PostgreSQL; the pool must not be nil.
// For memory storage it returns a ledger that lives as long as the process.
func NewStateService(cfg *config.Config, pool *pgxpool.Pool) (Service, error) {
	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		if pool == nil {
			return nil, fmt.Errorf("database pool is required when storage type is database")
		}
		return NewDBStateService(pool), nil
	case config.StorageTypeMemory:
		return NewMemoryStateService(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.GetStorageType())
	}
}
