package seeder

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/httpclient"
	"github.com/pokemnky/catalog-sync/internal/queue"
	"github.com/pokemnky/catalog-sync/internal/sources"
	sourcemocks "github.com/pokemnky/catalog-sync/internal/sources/mocks"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
	"github.com/pokemnky/catalog-sync/internal/upstreamtest"
)

type fixture struct {
	upstream *upstreamtest.Server
	queue    *queue.MemoryQueue
	jobs     state.Service
	store    *cache.MemoryStore
	seeder   *Seeder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	upstream := upstreamtest.NewServer(t)
	f := &fixture{
		upstream: upstream,
		queue:    queue.NewMemoryQueue(),
		jobs:     state.NewMemoryStateService(),
		store:    cache.NewMemoryStore(),
	}
	index := sources.NewIndex(httpclient.NewDefaultClient(5*time.Second), upstream.BaseURL())
	f.seeder = New(index, f.queue, f.jobs, f.store)
	return f
}

func (f *fixture) pending(t *testing.T, kinds ...catalog.Kind) int64 {
	t.Helper()
	n, err := f.queue.Pending(context.Background(), kinds)
	require.NoError(t, err)
	return n
}

func TestSeedEnqueuesInPhaseOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.upstream.AddPokemonRange(1, 12)
	for id := 1; id <= 3; id++ {
		f.upstream.AddNamed(catalog.KindMove, id, "move")
	}

	report, err := f.seeder.Seed(context.Background(), Options{
		Kinds:    []catalog.Kind{catalog.KindPokemon, catalog.KindMove},
		PageSize: 5,
	})
	require.NoError(t, err)

	require.Len(t, report.Kinds, 2)
	assert.Equal(t, catalog.KindMove, report.Kinds[0].Kind)
	assert.Equal(t, catalog.KindPokemon, report.Kinds[1].Kind)
	assert.Equal(t, 3, report.Kinds[1].Pages)
	assert.Equal(t, 15, report.Enqueued)

	assert.Equal(t, state.StatusCompleted, report.Job.Status)
	assert.Equal(t, state.ModeSeed, report.Job.Mode)
	assert.Equal(t, []string{"move", "pokemon"}, report.Job.Scope)
	assert.Equal(t, int64(15), report.Job.Remaining)
	assert.Equal(t, int64(15), report.Job.Succeeded)

	assert.Equal(t, int64(12), f.pending(t, catalog.KindPokemon))
	assert.Equal(t, int64(3), f.pending(t, catalog.KindMove))

	estimates, err := f.store.Estimates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[catalog.Kind]int64{catalog.KindPokemon: 12, catalog.KindMove: 3}, estimates)

	// the seeder never writes resources
	counts, err := f.store.CountByKind(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestSeedLimitAndRerun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.upstream.AddPokemonRange(1, 30)
	opts := Options{Kinds: []catalog.Kind{catalog.KindPokemon}, Limit: 7, PageSize: 5}

	report, err := f.seeder.Seed(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 7, report.Enqueued)
	assert.True(t, report.Kinds[0].Truncated)
	assert.Equal(t, int64(30), report.Kinds[0].Count)

	_, err = f.seeder.Seed(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, int64(14), f.pending(t))
}

func TestSeedContinuesPastFailedKind(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.upstream.AddPokemonRange(1, 4)
	f.upstream.Fail(f.upstream.BaseURL()+"/move", http.StatusInternalServerError)

	report, err := f.seeder.Seed(context.Background(), Options{
		Kinds: []catalog.Kind{catalog.KindMove, catalog.KindPokemon},
	})
	require.NoError(t, err)

	assert.Equal(t, state.StatusPartial, report.Job.Status)
	assert.Equal(t, int64(1), report.Job.Failed)
	require.Len(t, report.Job.Errors, 1)
	assert.Equal(t, "move", report.Job.Errors[0].Identifier)
	assert.Contains(t, report.Kinds[0].Error, "HTTP 500")
	assert.Equal(t, 4, report.Enqueued)
}

func TestSeedKeepsEntriesEnqueuedBeforeWalkFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	walker := sourcemocks.NewMockWalker(ctrl)
	walker.EXPECT().
		Walk(gomock.Any(), catalog.KindPokemon, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ catalog.Kind, opts sources.WalkOptions, visit func([]sources.IndexEntry) error) (sources.WalkResult, error) {
			assert.Equal(t, 3, opts.Limit)
			err := visit([]sources.IndexEntry{
				{Name: "bulbasaur", URL: "https://pokeapi.co/api/v2/pokemon/1/"},
				{Name: "ivysaur", URL: "https://pokeapi.co/api/v2/pokemon/2/"},
			})
			require.NoError(t, err)
			return sources.WalkResult{Count: 1302, Pages: 1, Entries: 2}, errors.New("page 2: connection reset")
		})

	q := queue.NewMemoryQueue()
	jobs := state.NewMemoryStateService()
	store := cache.NewMemoryStore()
	s := New(walker, q, jobs, store)

	report, err := s.Seed(context.Background(), Options{Kinds: []catalog.Kind{catalog.KindPokemon}, Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, state.StatusPartial, report.Job.Status)
	assert.Equal(t, 2, report.Enqueued)
	assert.Equal(t, int64(2), report.Job.Succeeded)
	require.Len(t, report.Kinds, 1)
	assert.Contains(t, report.Kinds[0].Error, "connection reset")

	pending, err := q.Pending(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	estimates, err := store.Estimates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1302), estimates[catalog.KindPokemon])
}

func TestSeedFailsWhenNothingEnumerates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.upstream.Fail(f.upstream.BaseURL()+"/pokemon", http.StatusBadGateway)

	report, err := f.seeder.Seed(context.Background(), Options{Kinds: []catalog.Kind{catalog.KindPokemon}})
	require.ErrorIs(t, err, ErrNothingEnumerated)
	assert.Equal(t, state.StatusFailed, report.Job.Status)
	assert.Zero(t, f.pending(t))
}

func TestSeedRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.seeder.Seed(context.Background(), Options{Kinds: []catalog.Kind{"digimon"}})
	require.Error(t, err)

	jobs, err := f.jobs.List(context.Background(), state.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestOptionsDefaults(t *testing.T) {
	t.Parallel()

	o := Options{}.withDefaults()
	assert.Equal(t, DefaultPageSize, o.PageSize)
	assert.Equal(t, DefaultMaxPages, o.MaxPages)
	assert.Len(t, o.Kinds, len(catalog.All()))
}
