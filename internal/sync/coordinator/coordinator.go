package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pokemnky/catalog-sync/internal/config"
	"github.com/pokemnky/catalog-sync/internal/status"
	pkgsync "github.com/pokemnky/catalog-sync/internal/sync"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
	"github.com/pokemnky/catalog-sync/internal/telemetry"
)

// DefaultHousekeepingInterval is how often stale jobs are swept and gauges refreshed
const DefaultHousekeepingInterval = time.Minute

// Coordinator runs scheduled sync modes in the background
type Coordinator interface {
	// Start registers every schedule and blocks until ctx is cancelled or Stop is called
	Start(ctx context.Context) error

	// Stop cancels the coordinator and waits for running entries to return
	Stop() error
}

// ProgressReader is the read side of the progress tracker
type ProgressReader interface {
	Snapshot(ctx context.Context) (status.Snapshot, error)
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager pkgsync.Manager
	jobs    state.Service
	config  *config.Config

	// Lifecycle management
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}

	housekeeping time.Duration
	staleAfter   time.Duration

	// Metrics
	catalogMetrics *telemetry.CatalogMetrics
	progress       ProgressReader
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithCatalogMetrics refreshes the resource and queue gauges from progress on every
// housekeeping tick
func WithCatalogMetrics(metrics *telemetry.CatalogMetrics, progress ProgressReader) Option {
	return func(c *defaultCoordinator) {
		c.catalogMetrics = metrics
		c.progress = progress
	}
}

// WithHousekeepingInterval overrides DefaultHousekeepingInterval
func WithHousekeepingInterval(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		if d > 0 {
			c.housekeeping = d
		}
	}
}

// WithStaleAfter overrides config.DefaultStaleAfter
func WithStaleAfter(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		if d > 0 {
			c.staleAfter = d
		}
	}
}

// New creates a new coordinator with injected dependencies
func New(manager pkgsync.Manager, jobs state.Service, cfg *config.Config, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		manager:      manager,
		jobs:         jobs,
		config:       cfg,
		done:         make(chan struct{}),
		housekeeping: DefaultHousekeepingInterval,
		staleAfter:   config.DefaultStaleAfter,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins background scheduling
func (c *defaultCoordinator) Start(ctx context.Context) error {
	coordCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer func() {
		close(c.done)
		slog.Info("Sync coordinator shutting down")
	}()

	logger := cronLogger{}
	scheduler := cron.New(cron.WithChain(cron.Recover(logger)))

	for i, s := range c.config.Schedules {
		entry := s
		if entry.Name == "" {
			entry.Name = fmt.Sprintf("%s-%d", entry.Mode, i)
		}
		job := cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
			c.runSchedule(coordCtx, entry)
		}))
		if _, err := scheduler.AddJob(entry.Schedule, job); err != nil {
			cancel()
			return fmt.Errorf("failed to register schedule %s: %w", entry.Name, err)
		}
		slog.Info("Registered sync schedule", "name", entry.Name, "mode", entry.Mode, "schedule", entry.Schedule)
	}

	housekeeping := cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		c.housekeep(coordCtx)
	}))
	scheduler.Schedule(cron.Every(c.housekeeping), housekeeping)

	slog.Info("Starting sync coordinator",
		"schedule_count", len(c.config.Schedules),
		"housekeeping_interval", c.housekeeping)

	c.housekeep(coordCtx)
	scheduler.Start()

	<-coordCtx.Done()
	slog.Info("Sync coordinator stopping")
	<-scheduler.Stop().Done()
	return nil
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping sync coordinator")
		cancel()
		<-c.done
	}
	return nil
}

// runSchedule triggers one scheduled run
func (c *defaultCoordinator) runSchedule(ctx context.Context, s config.ScheduleConfig) {
	if ctx.Err() != nil {
		return
	}
	logger := slog.With("schedule", s.Name, "mode", s.Mode)
	logger.Info("Scheduled sync run starting")

	summary, err := c.manager.Trigger(ctx, pkgsync.Request{
		Mode:  state.Mode(s.Mode),
		Kinds: s.Kinds,
		Limit: s.Limit,
	})
	if err != nil {
		logger.Error("Scheduled sync run failed", "job_id", summary.JobID, "error", err)
		return
	}
	logger.Info("Scheduled sync run finished",
		"job_id", summary.JobID,
		"status", summary.Status,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"remaining", summary.Remaining)
}

// housekeep fails jobs whose heartbeat stopped and refreshes gauges
func (c *defaultCoordinator) housekeep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := c.jobs.FailStale(ctx, c.staleAfter)
	if err != nil {
		slog.Error("Failed to sweep stale sync jobs", "error", err)
	} else if n > 0 {
		slog.Warn("Marked stale sync jobs as failed", "count", n, "stale_after", c.staleAfter)
	}

	if c.catalogMetrics == nil || c.progress == nil {
		return
	}
	snapshot, err := c.progress.Snapshot(ctx)
	if err != nil {
		slog.Error("Failed to read sync progress for metrics", "error", err)
		return
	}
	for _, p := range snapshot.Kinds {
		c.catalogMetrics.RecordResourcesTotal(ctx, string(p.Kind), p.Synced)
	}
	for _, q := range snapshot.Queues {
		for _, d := range q.Kinds {
			c.catalogMetrics.RecordQueueDepth(ctx, q.Queue, string(d.Kind), "visible", d.Visible)
			c.catalogMetrics.RecordQueueDepth(ctx, q.Queue, string(d.Kind), "leased", d.Leased)
			c.catalogMetrics.RecordQueueDepth(ctx, q.Queue, string(d.Kind), "dead_lettered", d.DeadLettered)
		}
	}
}

// cronLogger routes cron's internal logging through slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
