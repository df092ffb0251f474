package sqlc

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/pokemnky/catalog-sync/database"
)

func ptr[T any](v T) *T {
	return &v
}

func TestUpsertResourceIsIdempotent(t *testing.T) {
	t.Parallel()

	db, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)
	queries := New(db)
	ctx := context.Background()

	fetched := time.Now().UTC().Truncate(time.Microsecond)
	params := UpsertResourceParams{
		Kind:        "pokemon",
		NaturalKey:  "25",
		NumericKey:  ptr(int64(25)),
		DisplayName: ptr("pikachu"),
		SourceURL:   "https://x/pokemon/25/",
		Payload:     []byte(`{"id":25,"name":"pikachu"}`),
		FetchedAt:   fetched,
	}

	first, err := queries.UpsertResource(ctx, params)
	require.NoError(t, err)

	second, err := queries.UpsertResource(ctx, params)
	require.NoError(t, err)
	require.Equal(t, first.Kind, second.Kind)
	require.Equal(t, first.NaturalKey, second.NaturalKey)
	require.JSONEq(t, string(first.Payload), string(second.Payload))
	require.True(t, second.FetchedAt.Equal(fetched))

	// an older fetch never moves timestamps backwards
	params.FetchedAt = fetched.Add(-time.Hour)
	params.Payload = []byte(`{"id":25,"name":"pikachu","height":4}`)
	third, err := queries.UpsertResource(ctx, params)
	require.NoError(t, err)
	require.True(t, third.FetchedAt.Equal(fetched))
	require.JSONEq(t, `{"id":25,"name":"pikachu","height":4}`, string(third.Payload))

	counts, err := queries.CountResourcesByKind(ctx)
	require.NoError(t, err)
	require.Equal(t, []CountResourcesByKindRow{{Kind: "pokemon", Synced: 1}}, counts)
}

func TestGetResource(t *testing.T) {
	t.Parallel()

	db, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)
	queries := New(db)
	ctx := context.Background()

	_, err := queries.GetResource(ctx, GetResourceParams{Kind: "ability", NaturalKey: "1"})
	require.ErrorIs(t, err, pgx.ErrNoRows)

	_, err = queries.UpsertResource(ctx, UpsertResourceParams{
		Kind:       "ability",
		NaturalKey: "1",
		SourceURL:  "https://x/ability/1/",
		Payload:    []byte(`{"id":1}`),
		FetchedAt:  time.Now(),
	})
	require.NoError(t, err)

	got, err := queries.GetResource(ctx, GetResourceParams{Kind: "ability", NaturalKey: "1"})
	require.NoError(t, err)
	require.Nil(t, got.DisplayName)
	require.Nil(t, got.ExpiresAt)
}

func TestGetMaxNumericKey(t *testing.T) {
	t.Parallel()

	db, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)
	queries := New(db)
	ctx := context.Background()

	empty, err := queries.GetMaxNumericKey(ctx, "move")
	require.NoError(t, err)
	require.Zero(t, empty.MaxKey)
	require.Zero(t, empty.NumericCount)

	for _, key := range []int64{3, 151, 42} {
		_, err := queries.UpsertResource(ctx, UpsertResourceParams{
			Kind:       "move",
			NaturalKey: strconv.FormatInt(key, 10),
			NumericKey: ptr(key),
			SourceURL:  "https://x/move/",
			Payload:    []byte(`{}`),
			FetchedAt:  time.Now(),
		})
		require.NoError(t, err)
	}

	got, err := queries.GetMaxNumericKey(ctx, "move")
	require.NoError(t, err)
	require.Equal(t, int64(151), got.MaxKey)
	require.Equal(t, int64(3), got.NumericCount)
}

func TestListExpiredResources(t *testing.T) {
	t.Parallel()

	db, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)
	queries := New(db)
	ctx := context.Background()

	now := time.Now()
	for key, expires := range map[string]*time.Time{
		"old":    ptr(now.Add(-2 * time.Hour)),
		"older":  ptr(now.Add(-3 * time.Hour)),
		"future": ptr(now.Add(time.Hour)),
		"never":  nil,
	} {
		_, err := queries.UpsertResource(ctx, UpsertResourceParams{
			Kind:       "item",
			NaturalKey: key,
			SourceURL:  "https://x/item/" + key + "/",
			Payload:    []byte(`{}`),
			FetchedAt:  now,
			ExpiresAt:  expires,
		})
		require.NoError(t, err)
	}

	rows, err := queries.ListExpiredResources(ctx, ListExpiredResourcesParams{Now: now, MaxRows: 10})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "older", rows[0].NaturalKey)
	require.Equal(t, "old", rows[1].NaturalKey)

	rows, err = queries.ListExpiredResources(ctx, ListExpiredResourcesParams{Now: now, MaxRows: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestKindEstimatesAndProjection(t *testing.T) {
	t.Parallel()

	db, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)
	queries := New(db)
	ctx := context.Background()

	require.NoError(t, queries.UpsertKindEstimate(ctx, UpsertKindEstimateParams{Kind: "pokemon", Total: 1000}))
	require.NoError(t, queries.UpsertKindEstimate(ctx, UpsertKindEstimateParams{Kind: "pokemon", Total: 1302}))

	estimates, err := queries.ListKindEstimates(ctx)
	require.NoError(t, err)
	require.Len(t, estimates, 1)
	require.Equal(t, int64(1302), estimates[0].Total)

	require.NoError(t, queries.UpsertPokemonProjection(ctx, UpsertPokemonProjectionParams{
		ID:        25,
		Name:      "pikachu",
		Height:    ptr(int32(4)),
		IsDefault: true,
	}))

	p, err := queries.GetPokemonProjection(ctx, 25)
	require.NoError(t, err)
	require.Equal(t, "pikachu", p.Name)
	require.Equal(t, int32(4), *p.Height)
	require.Nil(t, p.Weight)
}

func TestAssets(t *testing.T) {
	t.Parallel()

	db, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)
	queries := New(db)
	ctx := context.Background()

	exists, err := queries.AssetExists(ctx, "https://img/1.png")
	require.NoError(t, err)
	require.False(t, exists)

	params := UpsertAssetParams{
		AssetKind:    "sprite",
		ResourceKind: "pokemon",
		ResourceKey:  "1",
		SourceURL:    "https://img/1.png",
		Bucket:       "sprites",
		Path:         "pokemon/1/front_default.png",
		ContentType:  ptr("image/png"),
		Bytes:        128,
		SHA256:       "abc",
	}
	require.NoError(t, queries.UpsertAsset(ctx, params))
	require.NoError(t, queries.UpsertAsset(ctx, params))

	exists, err = queries.AssetExists(ctx, "https://img/1.png")
	require.NoError(t, err)
	require.True(t, exists)

	assets, err := queries.ListAssetsForResource(ctx, ListAssetsForResourceParams{ResourceKind: "pokemon", ResourceKey: "1"})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.Equal(t, "pokemon/1/front_default.png", assets[0].Path)
}
