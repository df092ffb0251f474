package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokemnky/catalog-sync/internal/config"
)

func TestNewStateService(t *testing.T) {
	t.Parallel()

	svc, err := NewStateService(config.Default(), nil)
	require.NoError(t, err)
	assert.IsType(t, &memoryStateService{}, svc)

	cfg := &config.Config{
		Storage:  config.StorageConfig{Type: config.StorageTypeDatabase},
		Database: &config.DatabaseConfig{Host: "localhost"},
	}
	_, err = NewStateService(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database pool is required")
}
