package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokemnky/catalog-sync/database"
	"github.com/pokemnky/catalog-sync/internal/catalog"
)

func TestDBStore(t *testing.T) {
	t.Parallel()

	pool, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)

	s, err := NewDBStore(pool)
	require.NoError(t, err)
	ctx := context.Background()

	fetched := time.Now().UTC().Truncate(time.Microsecond)
	entry := Entry{
		Kind:        catalog.KindPokemon,
		NaturalKey:  "25",
		DisplayName: "pikachu",
		SourceURL:   "https://x/pokemon/25/",
		Payload:     []byte(`{"id":25,"name":"pikachu"}`),
		FetchedAt:   fetched,
	}

	_, err = s.Get(ctx, catalog.KindPokemon, "25")
	require.ErrorIs(t, err, ErrResourceNotFound)

	for range 2 {
		stored, err := s.Upsert(ctx, entry)
		require.NoError(t, err)
		assert.Equal(t, "pikachu", stored.DisplayName)
	}

	got, err := s.Get(ctx, catalog.KindPokemon, "25")
	require.NoError(t, err)
	assert.True(t, got.FetchedAt.Equal(fetched))
	assert.JSONEq(t, `{"id":25,"name":"pikachu"}`, string(got.Payload))

	counts, err := s.CountByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[catalog.Kind]int64{catalog.KindPokemon: 1}, counts)

	maxKey, found, err := s.MaxNumericKey(ctx, catalog.KindPokemon)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(25), maxKey)

	_, found, err = s.MaxNumericKey(ctx, catalog.KindMove)
	require.NoError(t, err)
	assert.False(t, found)

	past := fetched.Add(-time.Minute)
	_, err = s.Upsert(ctx, Entry{Kind: catalog.KindType, NaturalKey: "1", SourceURL: "u", Payload: []byte(`{}`), FetchedAt: fetched, ExpiresAt: &past})
	require.NoError(t, err)

	expired, err := s.ListExpired(ctx, fetched, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, catalog.KindType, expired[0].Kind)

	require.NoError(t, s.RecordEstimate(ctx, catalog.KindPokemon, 1302))
	est, err := s.Estimates(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[catalog.Kind]int64{catalog.KindPokemon: 1302}, est)

	height := int32(4)
	require.NoError(t, s.UpsertPokemon(ctx, PokemonProjection{ID: 25, Name: "pikachu", Height: &height, IsDefault: true}))

	gen, typeID, power := int64(1), int64(13), int32(40)
	require.NoError(t, s.UpsertType(ctx, TypeProjection{ID: 13, Name: "electric", GenerationID: &gen}))
	require.NoError(t, s.UpsertAbility(ctx, AbilityProjection{ID: 9, Name: "static", GenerationID: &gen, IsMainSeries: true}))
	require.NoError(t, s.UpsertMove(ctx, MoveProjection{ID: 84, Name: "thunder-shock", TypeID: &typeID, Power: &power}))
	require.NoError(t, s.UpsertMove(ctx, MoveProjection{ID: 84, Name: "thunder-shock", TypeID: &typeID, Priority: 1}))
}

func TestNewDBStoreRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewDBStore(nil)
	require.Error(t, err)
}
