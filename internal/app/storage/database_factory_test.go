package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/pokemnky/catalog-sync/database"
	"github.com/pokemnky/catalog-sync/internal/assets"
	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/config"
	"github.com/pokemnky/catalog-sync/internal/queue"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
)

func TestNewDatabaseFactoryRequiresSettings(t *testing.T) {
	t.Parallel()

	_, err := NewDatabaseFactory(context.Background(), nil)
	require.ErrorContains(t, err, "config cannot be nil")

	_, err = NewDatabaseFactory(context.Background(), &config.Config{})
	require.ErrorContains(t, err, "database configuration is required")
}

func TestDatabaseFactoryComponents(t *testing.T) {
	t.Parallel()

	pool, cleanup := database.SetupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	cfg := &config.Config{Storage: config.StorageConfig{Type: config.StorageTypeDatabase}}

	f, err := NewDatabaseFactory(ctx, cfg, WithPool(pool), WithTracer(noop.NewTracerProvider().Tracer("test")))
	require.NoError(t, err)
	// the injected pool is closed by the test cleanup, not the factory
	t.Cleanup(f.Cleanup)
	assert.Same(t, pool, f.Pool())

	require.NoError(t, f.CheckReadiness(ctx))

	store, err := f.CreateCache(ctx)
	require.NoError(t, err)
	_, err = store.Upsert(ctx, cache.Entry{
		Kind:       catalog.KindAbility,
		NaturalKey: "1",
		SourceURL:  "https://x/api/v2/ability/1/",
		Payload:    []byte(`{"id":1,"name":"stench"}`),
		FetchedAt:  time.Now(),
	})
	require.NoError(t, err)

	q, err := f.CreateQueue(ctx, queue.ResourcesQueue)
	require.NoError(t, err)
	n, err := q.Enqueue(ctx, []queue.Item{{Kind: catalog.KindAbility, SourceURL: "https://x/api/v2/ability/2/"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	jobs, err := f.CreateStateService(ctx)
	require.NoError(t, err)
	job, err := jobs.Create(ctx, state.ModeSeed, []string{"ability"})
	require.NoError(t, err)
	assert.Equal(t, state.StatusRunning, job.Status)

	catalogStore, err := f.CreateAssetCatalog(ctx)
	require.NoError(t, err)
	require.NoError(t, catalogStore.Record(ctx, assets.Asset{
		AssetKind:    assets.KindSprite,
		ResourceKind: catalog.KindPokemon,
		ResourceKey:  "1",
		SourceURL:    "https://x/sprites/pokemon/1.png",
		Bucket:       "catalog-sprites",
		Path:         "pokemon/1/pokemon/1.png",
		ContentType:  "image/png",
		Bytes:        3,
		SHA256:       "abc",
	}))
	exists, err := catalogStore.Exists(ctx, "https://x/sprites/pokemon/1.png")
	require.NoError(t, err)
	assert.True(t, exists)
}
