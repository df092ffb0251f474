package sources

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/httpclient"
	"github.com/pokemnky/catalog-sync/internal/upstreamtest"
)

func collect(t *testing.T, idx *Index, kind catalog.Kind, opts WalkOptions) ([]IndexEntry, WalkResult, error) {
	t.Helper()
	var got []IndexEntry
	res, err := idx.Walk(context.Background(), kind, opts, func(entries []IndexEntry) error {
		got = append(got, entries...)
		return nil
	})
	return got, res, err
}

func TestIndexWalk(t *testing.T) {
	t.Parallel()

	upstream := upstreamtest.NewServer(t).AddPokemonRange(1, 25)
	idx := NewIndex(httpclient.NewDefaultClient(5*time.Second), upstream.BaseURL()+"/")

	tests := []struct {
		name          string
		opts          WalkOptions
		wantEntries   int
		wantPages     int
		wantTruncated bool
	}{
		{name: "whole index", opts: WalkOptions{PageSize: 10}, wantEntries: 25, wantPages: 3},
		{name: "single page", opts: WalkOptions{PageSize: 200}, wantEntries: 25, wantPages: 1},
		{name: "page cap", opts: WalkOptions{PageSize: 10, MaxPages: 2}, wantEntries: 20, wantPages: 2, wantTruncated: true},
		{name: "limit inside page", opts: WalkOptions{PageSize: 10, Limit: 15}, wantEntries: 15, wantPages: 2, wantTruncated: true},
		{name: "limit on page boundary", opts: WalkOptions{PageSize: 5, Limit: 10}, wantEntries: 10, wantPages: 2, wantTruncated: true},
		{name: "limit equal to count", opts: WalkOptions{PageSize: 25, Limit: 25}, wantEntries: 25, wantPages: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, res, err := collect(t, idx, catalog.KindPokemon, tt.opts)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantEntries)
			assert.Equal(t, tt.wantEntries, res.Entries)
			assert.Equal(t, tt.wantPages, res.Pages)
			assert.Equal(t, tt.wantTruncated, res.Truncated)
			assert.Equal(t, int64(25), res.Count)
			assert.Equal(t, upstream.ResourceURL(catalog.KindPokemon, 1), got[0].URL)
			assert.Equal(t, "pokemon-1", got[0].Name)
		})
	}
}

func TestIndexWalkEmptyIndex(t *testing.T) {
	t.Parallel()

	upstream := upstreamtest.NewServer(t)
	idx := NewIndex(httpclient.NewDefaultClient(5*time.Second), upstream.BaseURL())

	got, res, err := collect(t, idx, catalog.KindBerry, WalkOptions{PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, res.Pages)
	assert.Zero(t, res.Count)
}

func TestIndexWalkErrors(t *testing.T) {
	t.Parallel()

	upstream := upstreamtest.NewServer(t).AddPokemonRange(1, 5)
	idx := NewIndex(httpclient.NewDefaultClient(5*time.Second), upstream.BaseURL())

	_, _, err := collect(t, idx, catalog.KindPokemon, WalkOptions{})
	require.Error(t, err)

	upstream.Fail(upstream.BaseURL()+"/move", http.StatusInternalServerError)
	_, res, err := collect(t, idx, catalog.KindMove, WalkOptions{PageSize: 10})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, httpclient.StatusCode(err))
	assert.Zero(t, res.Pages)

	stop := errors.New("stop")
	_, err = idx.Walk(context.Background(), catalog.KindPokemon, WalkOptions{PageSize: 2}, func([]IndexEntry) error {
		return stop
	})
	require.ErrorIs(t, err, stop)
}

func TestIndexWalkHonorsContext(t *testing.T) {
	t.Parallel()

	upstream := upstreamtest.NewServer(t).AddPokemonRange(1, 10)
	idx := NewIndex(httpclient.NewDefaultClient(5*time.Second), upstream.BaseURL())

	ctx, cancel := context.WithCancel(context.Background())
	pages := 0
	_, err := idx.Walk(ctx, catalog.KindPokemon, WalkOptions{PageSize: 2, PageDelay: time.Hour}, func([]IndexEntry) error {
		pages++
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, pages)
}

func TestPageURL(t *testing.T) {
	t.Parallel()

	idx := NewIndex(nil, "https://pokeapi.co/api/v2/")
	assert.Equal(t, "https://pokeapi.co/api/v2/move?limit=200&offset=400", idx.PageURL(catalog.KindMove, 200, 400))
}
