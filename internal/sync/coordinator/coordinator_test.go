package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"

	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/config"
	"github.com/pokemnky/catalog-sync/internal/queue"
	"github.com/pokemnky/catalog-sync/internal/status"
	pkgsync "github.com/pokemnky/catalog-sync/internal/sync"
	syncmocks "github.com/pokemnky/catalog-sync/internal/sync/mocks"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
	statemocks "github.com/pokemnky/catalog-sync/internal/sync/state/mocks"
	"github.com/pokemnky/catalog-sync/internal/telemetry"
)

type fakeProgress struct {
	snapshot status.Snapshot
	err      error
}

func (f fakeProgress) Snapshot(context.Context) (status.Snapshot, error) {
	return f.snapshot, f.err
}

func TestNew(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := New(syncmocks.NewMockManager(ctrl), statemocks.NewMockService(ctrl), &config.Config{},
		WithHousekeepingInterval(5*time.Second),
		WithStaleAfter(time.Hour),
		WithHousekeepingInterval(-1),
	)

	dc, ok := c.(*defaultCoordinator)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, dc.housekeeping)
	assert.Equal(t, time.Hour, dc.staleAfter)
	assert.NotNil(t, dc.done)
}

func TestRunSchedule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{name: "successful run"},
		{name: "failed run is logged", err: &pkgsync.Error{Err: errors.New("boom"), Message: "worker run failed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			manager := syncmocks.NewMockManager(ctrl)
			manager.EXPECT().
				Trigger(gomock.Any(), pkgsync.Request{
					Mode:  state.ModeDetect,
					Kinds: []string{"pokemon"},
					Limit: 5,
				}).
				Return(pkgsync.Summary{JobID: uuid.New(), Status: state.StatusCompleted}, tt.err)

			c := New(manager, statemocks.NewMockService(ctrl), &config.Config{}).(*defaultCoordinator)
			c.runSchedule(context.Background(), config.ScheduleConfig{
				Name:     "hourly",
				Mode:     config.ModeDetect,
				Schedule: "@every 1h",
				Kinds:    []string{"pokemon"},
				Limit:    5,
			})
		})
	}
}

func TestRunScheduleSkipsAfterCancel(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	manager.EXPECT().Trigger(gomock.Any(), gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(manager, statemocks.NewMockService(ctrl), &config.Config{}).(*defaultCoordinator)
	c.runSchedule(ctx, config.ScheduleConfig{Mode: config.ModeWorker, Schedule: "@every 1m"})
}

func TestHousekeepSweepsStaleJobs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		n    int
		err  error
	}{
		{name: "nothing stale"},
		{name: "stale jobs failed", n: 2},
		{name: "sweep error is logged", err: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			jobs := statemocks.NewMockService(ctrl)
			jobs.EXPECT().FailStale(gomock.Any(), config.DefaultStaleAfter).Return(tt.n, tt.err)

			c := New(syncmocks.NewMockManager(ctrl), jobs, &config.Config{}).(*defaultCoordinator)
			c.housekeep(context.Background())
		})
	}
}

func TestHousekeepFailsRealStaleJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now()
	jobs := state.NewMemoryStateService(state.WithClock(func() time.Time { return now }))

	job, err := jobs.Create(ctx, state.ModeWorker, nil)
	require.NoError(t, err)

	now = now.Add(config.DefaultStaleAfter + time.Minute)

	ctrl := gomock.NewController(t)
	c := New(syncmocks.NewMockManager(ctrl), jobs, &config.Config{}).(*defaultCoordinator)
	c.housekeep(ctx)

	got, err := jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusFailed, got.Status)
}

func TestHousekeepRecordsGauges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(ctx) }()

	metrics, err := telemetry.NewCatalogMetrics(mp)
	require.NoError(t, err)

	progress := fakeProgress{snapshot: status.Snapshot{
		Kinds: []status.KindProgress{
			{Kind: catalog.KindPokemon, Synced: 25},
			{Kind: catalog.KindMove, Synced: 3},
		},
		Queues: []status.QueueDepth{{
			Queue: queue.ResourcesQueue,
			Kinds: []queue.Depth{{Kind: catalog.KindPokemon, Visible: 4, Leased: 1}},
		}},
	}}

	ctrl := gomock.NewController(t)
	jobs := statemocks.NewMockService(ctrl)
	jobs.EXPECT().FailStale(gomock.Any(), gomock.Any()).Return(0, nil)

	c := New(syncmocks.NewMockManager(ctrl), jobs, &config.Config{}, WithCatalogMetrics(metrics, progress)).(*defaultCoordinator)
	c.housekeep(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	found := map[string]int{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			require.True(t, ok, m.Name)
			found[m.Name] = len(gauge.DataPoints)
		}
	}
	assert.Equal(t, 2, found["catalog_sync_resources_total"])
	assert.Equal(t, 3, found["catalog_sync_queue_depth"])
}

func TestHousekeepProgressErrorSkipsGauges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(ctx) }()

	metrics, err := telemetry.NewCatalogMetrics(mp)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	jobs := statemocks.NewMockService(ctrl)
	jobs.EXPECT().FailStale(gomock.Any(), gomock.Any()).Return(0, nil)

	c := New(syncmocks.NewMockManager(ctrl), jobs, &config.Config{},
		WithCatalogMetrics(metrics, fakeProgress{err: errors.New("cache down")})).(*defaultCoordinator)
	c.housekeep(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	for _, scope := range rm.ScopeMetrics {
		assert.Empty(t, scope.Metrics)
	}
}

func TestStartRunsSchedulesUntilStopped(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	triggered := make(chan pkgsync.Request, 10)
	manager := syncmocks.NewMockManager(ctrl)
	manager.EXPECT().Trigger(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req pkgsync.Request) (pkgsync.Summary, error) {
			triggered <- req
			return pkgsync.Summary{Status: state.StatusCompleted}, nil
		}).
		MinTimes(1)

	jobs := statemocks.NewMockService(ctrl)
	jobs.EXPECT().FailStale(gomock.Any(), gomock.Any()).Return(0, nil).MinTimes(1)

	cfg := &config.Config{Schedules: []config.ScheduleConfig{
		{Mode: config.ModeWorker, Schedule: "@every 1s", Kinds: []string{"move"}},
	}}
	c := New(manager, jobs, cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(context.Background()) }()

	select {
	case req := <-triggered:
		assert.Equal(t, state.ModeWorker, req.Mode)
		assert.Equal(t, []string{"move"}, req.Kinds)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run never triggered")
	}

	require.NoError(t, c.Stop())
	require.NoError(t, <-errCh)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cfg := &config.Config{Schedules: []config.ScheduleConfig{
		{Name: "broken", Mode: config.ModeSeed, Schedule: "whenever"},
	}}
	c := New(syncmocks.NewMockManager(ctrl), statemocks.NewMockService(ctrl), cfg)

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := New(syncmocks.NewMockManager(ctrl), statemocks.NewMockService(ctrl), &config.Config{})
	assert.NoError(t, c.Stop())
}
