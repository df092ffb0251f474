package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/mock/gomock"

	storagemocks "github.com/pokemnky/catalog-sync/internal/app/storage/mocks"
	assetmocks "github.com/pokemnky/catalog-sync/internal/assets/mocks"
	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/config"
	httpmocks "github.com/pokemnky/catalog-sync/internal/httpclient/mocks"
	"github.com/pokemnky/catalog-sync/internal/queue"
	pkgsync "github.com/pokemnky/catalog-sync/internal/sync"
	syncmocks "github.com/pokemnky/catalog-sync/internal/sync/mocks"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
)

const pokemonIndexPage = `{
  "count": 2,
  "next": null,
  "previous": null,
  "results": [
    {"name": "bulbasaur", "url": "https://pokeapi.co/api/v2/pokemon/1/"},
    {"name": "ivysaur", "url": "https://pokeapi.co/api/v2/pokemon/2/"}
  ]
}`

func TestBaseConfigDefaults(t *testing.T) {
	t.Parallel()

	built, err := baseConfig(WithConfig(config.Default()))
	require.NoError(t, err)
	require.NotNil(t, built)
	assert.Equal(t, defaultHTTPAddress, built.address)
	assert.Equal(t, defaultRequestTimeout, built.requestTimeout)
	assert.Less(t, built.requestTimeout, built.writeTimeout)
	assert.NotNil(t, built.config)
}

func TestBaseConfigOptionError(t *testing.T) {
	t.Parallel()

	built, err := baseConfig(
		WithConfig(config.Default()),
		WithAddress(":"),
	)
	require.Error(t, err)
	require.Nil(t, built)
}

func TestWithAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "valid address", address: ":9999", want: ":9999"},
		{name: "valid address with host", address: "127.0.0.1:9999", want: "127.0.0.1:9999"},
		{name: "valid address with localhost", address: "localhost:9999", want: "localhost:9999"},
		{name: "invalid empty address", address: "", wantErr: true},
		{name: "invalid empty port", address: ":", wantErr: true},
		{name: "invalid missing port", address: "localhost", wantErr: true},
		{name: "invalid port out of range", address: "localhost:999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &catalogAppConfig{}
			err := WithAddress(tt.address)(cfg)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.address)
		})
	}
}

func TestInjectionOptions(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	factory := storagemocks.NewMockFactory(ctrl)
	manager := syncmocks.NewMockManager(ctrl)
	client := httpmocks.NewMockClient(ctrl)
	objects := assetmocks.NewMockObjectStore(ctrl)
	mp := noop.NewMeterProvider()
	tp := tracenoop.NewTracerProvider()
	metricsHandler := http.NotFoundHandler()
	mw := func(next http.Handler) http.Handler { return next }

	built, err := baseConfig(
		WithStorageFactory(factory),
		WithSyncManager(manager),
		WithUpstreamClient(client),
		WithObjectStore(objects),
		WithMeterProvider(mp),
		WithTracerProvider(tp),
		WithMetricsHandler(metricsHandler),
		WithMiddlewares(mw),
	)
	require.NoError(t, err)

	assert.Equal(t, factory, built.storageFactory)
	assert.Equal(t, manager, built.syncManager)
	assert.Equal(t, client, built.upstream)
	assert.Equal(t, objects, built.objectStore)
	assert.Equal(t, mp, built.meterProvider)
	assert.Equal(t, tp, built.tracerProvider)
	assert.NotNil(t, built.tracer)
	assert.NotNil(t, built.metricsHandler)
	assert.Len(t, built.middlewares, 1)
}

func TestBuildComponentsRequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := BuildComponents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")
}

func TestBuildComponentsMemory(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := httpmocks.NewMockClient(ctrl)

	c, err := BuildComponents(context.Background(),
		WithConfig(config.Default()),
		WithUpstreamClient(client),
		WithMeterProvider(noop.NewMeterProvider()),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	assert.NotNil(t, c.Cache)
	assert.NotNil(t, c.Resources)
	assert.Nil(t, c.Sprites, "sprites queue is only created when mirroring is enabled")
	assert.NotNil(t, c.Jobs)
	assert.NotNil(t, c.Manager)
	assert.NotNil(t, c.Tracker)
	assert.NotNil(t, c.CatalogMetrics)

	_, err = c.Manager.Trigger(context.Background(), pkgsync.Request{Mode: state.ModeSpriteMirror})
	require.ErrorIs(t, err, pkgsync.ErrModeUnavailable)
}

func TestBuildComponentsSeedEnqueuesIndexEntries(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := httpmocks.NewMockClient(ctrl)
	client.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return([]byte(pokemonIndexPage), nil).
		AnyTimes()

	c, err := BuildComponents(context.Background(),
		WithConfig(config.Default()),
		WithUpstreamClient(client),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	summary, err := c.Manager.Trigger(context.Background(), pkgsync.Request{
		Mode:  state.ModeSeed,
		Kinds: []string{string(catalog.KindPokemon)},
	})
	require.NoError(t, err)
	assert.Equal(t, state.ModeSeed, summary.Mode)

	pending, err := c.Resources.Pending(context.Background(), []catalog.Kind{catalog.KindPokemon})
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	job, err := c.Jobs.Get(context.Background(), summary.JobID)
	require.NoError(t, err)
	assert.True(t, job.Status.IsTerminal())
}

func TestBuildComponentsWithSprites(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cfg := config.Default()
	cfg.Sprites = &config.SpritesConfig{Enabled: true, Endpoint: "localhost:9000"}

	c, err := BuildComponents(context.Background(),
		WithConfig(cfg),
		WithUpstreamClient(httpmocks.NewMockClient(ctrl)),
		WithObjectStore(assetmocks.NewMockObjectStore(ctrl)),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	require.NotNil(t, c.Sprites)
	snapshot, err := c.Tracker.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.Queues, 2)
	assert.Equal(t, queue.SpritesQueue, snapshot.Queues[1].Queue)
}

func TestBuildComponentsStorageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(f *storagemocks.MockFactory)
		wantErr string
	}{
		{
			name: "cache",
			setup: func(f *storagemocks.MockFactory) {
				f.EXPECT().CreateCache(gomock.Any()).Return(nil, errors.New("boom"))
			},
			wantErr: "failed to create resource cache",
		},
		{
			name: "queue",
			setup: func(f *storagemocks.MockFactory) {
				f.EXPECT().CreateCache(gomock.Any()).Return(cache.NewMemoryStore(), nil)
				f.EXPECT().CreateQueue(gomock.Any(), queue.ResourcesQueue).Return(nil, errors.New("boom"))
			},
			wantErr: "failed to create resources queue",
		},
		{
			name: "state",
			setup: func(f *storagemocks.MockFactory) {
				f.EXPECT().CreateCache(gomock.Any()).Return(cache.NewMemoryStore(), nil)
				f.EXPECT().CreateQueue(gomock.Any(), queue.ResourcesQueue).Return(queue.NewMemoryQueue(), nil)
				f.EXPECT().CreateStateService(gomock.Any()).Return(nil, errors.New("boom"))
			},
			wantErr: "failed to create state service",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			factory := storagemocks.NewMockFactory(ctrl)
			tt.setup(factory)
			factory.EXPECT().Cleanup()

			_, err := BuildComponents(context.Background(),
				WithConfig(config.Default()),
				WithStorageFactory(factory),
				WithSyncManager(syncmocks.NewMockManager(ctrl)),
			)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultsFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Worker = config.WorkerConfig{BatchSize: 7, Concurrency: 3, Budget: "20s"}
	cfg.Sprites = &config.SpritesConfig{Bucket: "art", BatchSize: 4}

	d := DefaultsFromConfig(cfg)
	assert.Equal(t, 7, d.Worker.BatchSize)
	assert.Equal(t, 3, d.Worker.Concurrency)
	assert.Equal(t, 20*time.Second, d.Worker.Budget)
	assert.Equal(t, "art", d.Sprites.Bucket)
	assert.Equal(t, 4, d.Sprites.BatchSize)
	assert.Equal(t, cfg.Seed.GetPageSize(), d.Seed.PageSize)
	assert.Equal(t, cfg.Detector.GetProbeKinds(), d.Detector.ProbeKinds)

	cfg.Sprites = nil
	assert.Positive(t, DefaultsFromConfig(cfg).Sprites.BatchSize)
}

func TestBuildHTTPServer(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	factory := storagemocks.NewMockFactory(ctrl)
	factory.EXPECT().CheckReadiness(gomock.Any()).Return(errors.New("db down"))

	b, err := baseConfig(
		WithConfig(config.Default()),
		WithAddress(":9191"),
		WithMeterProvider(noop.NewMeterProvider()),
		WithTracerProvider(tracenoop.NewTracerProvider()),
	)
	require.NoError(t, err)

	server, err := buildHTTPServer(b, &AppComponents{
		Storage:   factory,
		Cache:     cache.NewMemoryStore(),
		Resources: queue.NewMemoryQueue(),
		Jobs:      state.NewMemoryStateService(),
		Manager:   syncmocks.NewMockManager(ctrl),
	})
	require.NoError(t, err)
	assert.Equal(t, ":9191", server.Addr)
	assert.Equal(t, defaultReadTimeout, server.ReadTimeout)
	// Metrics and tracing are prepended to the five default middlewares
	assert.Len(t, b.middlewares, 7)

	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewCatalogApp(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	app, err := NewCatalogApp(context.Background(),
		WithConfig(config.Default()),
		WithAddress("127.0.0.1:0"),
		WithUpstreamClient(httpmocks.NewMockClient(ctrl)),
	)
	require.NoError(t, err)
	require.NotNil(t, app)
	t.Cleanup(func() { _ = app.Stop(time.Second) })

	assert.NotNil(t, app.GetConfig())
	assert.Equal(t, "127.0.0.1:0", app.GetHTTPServer().Addr)
	assert.NotNil(t, app.Components().Manager)
	assert.NotNil(t, app.coordinator)
}

func TestNewCatalogAppInvalidOption(t *testing.T) {
	t.Parallel()

	_, err := NewCatalogApp(context.Background(), WithAddress(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build base configuration")
}
