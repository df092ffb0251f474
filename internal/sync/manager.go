package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/sync/detector"
	"github.com/pokemnky/catalog-sync/internal/sync/seeder"
	"github.com/pokemnky/catalog-sync/internal/sync/sprites"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
	"github.com/pokemnky/catalog-sync/internal/sync/worker"
	"github.com/pokemnky/catalog-sync/internal/telemetry"
)

// MaxSummaryErrors is the number of error log entries copied into a Summary
const MaxSummaryErrors = 10

var (
	// ErrInvalidRequest is returned for unknown modes or kinds and negative tuning values
	ErrInvalidRequest = errors.New("invalid sync request")

	// ErrModeUnavailable is returned when a mode has no runner configured
	ErrModeUnavailable = errors.New("sync mode not available")
)

// Request selects a mode and optionally overrides its defaults
type Request struct {
	Mode state.Mode `json:"mode"`
	// Kinds restricts the run. Empty means the mode's default kinds.
	Kinds []string `json:"kinds,omitempty"`
	// Limit caps enumerated entries per kind for seed and probed ids per kind for incremental-detect
	Limit       int `json:"limit,omitempty"`
	BatchSize   int `json:"batchSize,omitempty"`
	Concurrency int `json:"concurrency,omitempty"`
}

// Summary is the outcome of a triggered run
type Summary struct {
	JobID       uuid.UUID          `json:"jobId"`
	Mode        state.Mode         `json:"mode"`
	Status      state.Status       `json:"status"`
	Succeeded   int64              `json:"succeeded"`
	Failed      int64              `json:"failed"`
	Remaining   int64              `json:"remaining"`
	Errors      []state.ErrorEntry `json:"errors"`
	Message     string             `json:"message,omitempty"`
	StartedAt   time.Time          `json:"startedAt"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
}

// NewSummary builds a Summary from a job, keeping at most MaxSummaryErrors error entries
func NewSummary(job state.SyncJob) Summary {
	errs := job.Errors
	if len(errs) > MaxSummaryErrors {
		errs = errs[:MaxSummaryErrors]
	}
	if errs == nil {
		errs = []state.ErrorEntry{}
	}
	return Summary{
		JobID:       job.ID,
		Mode:        job.Mode,
		Status:      job.Status,
		Succeeded:   job.Succeeded,
		Failed:      job.Failed,
		Remaining:   job.Remaining,
		Errors:      errs,
		Message:     job.Message,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}

// Error is returned by Trigger when a run is rejected or fails as a whole
type Error struct {
	Err     error
	Message string
	Mode    state.Mode
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalid(mode state.Mode, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Err: fmt.Errorf("%w: %s", ErrInvalidRequest, msg), Message: msg, Mode: mode}
}

// Manager triggers sync runs
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/pokemnky/catalog-sync/internal/sync Manager
type Manager interface {
	// Trigger runs one mode to completion and returns the resulting job summary.
	// A run that ends failed returns both its summary and an *Error.
	Trigger(ctx context.Context, req Request) (Summary, error)
}

// Runners holds the implementation of each mode. A nil runner disables its mode.
type Runners struct {
	Seeder   *seeder.Seeder
	Worker   *worker.Worker
	Detector *detector.Detector
	Sprites  *sprites.Mirror
}

// Defaults holds the options used when a Request does not override them
type Defaults struct {
	Seed     seeder.Options
	Worker   worker.Options
	Detector detector.Options
	Sprites  sprites.Options
}

type defaultManager struct {
	runners  Runners
	defaults Defaults
	metrics  *telemetry.SyncMetrics
}

// Option configures the manager
type Option func(*defaultManager)

// WithSyncMetrics records run durations and item counts
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(m *defaultManager) {
		m.metrics = metrics
	}
}

// NewManager creates a Manager dispatching to runners
func NewManager(runners Runners, defaults Defaults, opts ...Option) Manager {
	m := &defaultManager{runners: runners, defaults: defaults}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *defaultManager) Trigger(ctx context.Context, req Request) (Summary, error) {
	mode, err := state.ParseMode(string(req.Mode))
	if err != nil {
		return Summary{}, invalid(req.Mode, "%v", err)
	}
	kinds, err := catalog.ParseAll(req.Kinds)
	if err != nil {
		return Summary{}, invalid(mode, "%v", err)
	}
	if req.Limit < 0 || req.BatchSize < 0 || req.Concurrency < 0 {
		return Summary{}, invalid(mode, "limit, batchSize and concurrency must not be negative")
	}

	logger := slog.With("mode", mode, "kinds", req.Kinds)
	logger.Info("Sync run triggered")
	start := time.Now()

	job, runErr := m.run(ctx, mode, kinds, req)
	if runErr != nil && job.ID == uuid.Nil {
		logger.Error("Sync run could not start", "error", runErr)
		return Summary{}, &Error{Err: runErr, Message: fmt.Sprintf("%s run could not start: %v", mode, runErr), Mode: mode}
	}

	summary := NewSummary(job)
	m.metrics.RecordRun(ctx, string(mode), string(job.Status), time.Since(start))
	m.metrics.RecordItems(ctx, string(mode), job.Succeeded, job.Failed)

	if runErr != nil || job.Status == state.StatusFailed {
		msg := fmt.Sprintf("%s run failed", mode)
		if runErr != nil {
			msg = fmt.Sprintf("%s run failed: %v", mode, runErr)
		}
		logger.Error("Sync run failed", "job_id", job.ID, "error", runErr)
		return summary, &Error{Err: runErr, Message: msg, Mode: mode}
	}

	logger.Info("Sync run finished", "job_id", job.ID, "status", job.Status,
		"succeeded", job.Succeeded, "failed", job.Failed, "remaining", job.Remaining,
		"duration", time.Since(start))
	return summary, nil
}

func (m *defaultManager) run(ctx context.Context, mode state.Mode, kinds []catalog.Kind, req Request) (state.SyncJob, error) {
	switch mode {
	case state.ModeSeed:
		if m.runners.Seeder == nil {
			return state.SyncJob{}, unavailable(mode)
		}
		opts := m.defaults.Seed
		opts.Kinds = override(opts.Kinds, kinds)
		opts.Limit = overrideInt(opts.Limit, req.Limit)
		report, err := m.runners.Seeder.Seed(ctx, opts)
		return report.Job, err

	case state.ModeWorker:
		if m.runners.Worker == nil {
			return state.SyncJob{}, unavailable(mode)
		}
		opts := m.defaults.Worker
		opts.Kinds = override(opts.Kinds, kinds)
		opts.BatchSize = overrideInt(opts.BatchSize, req.BatchSize)
		opts.Concurrency = overrideInt(opts.Concurrency, req.Concurrency)
		report, err := m.runners.Worker.Run(ctx, opts)
		return report.Job, err

	case state.ModeDetect:
		if m.runners.Detector == nil {
			return state.SyncJob{}, unavailable(mode)
		}
		opts := m.defaults.Detector
		opts.ProbeKinds = override(opts.ProbeKinds, kinds)
		opts.ProbeLimit = overrideInt(opts.ProbeLimit, req.Limit)
		report, err := m.runners.Detector.Run(ctx, opts)
		return report.Job, err

	case state.ModeSpriteMirror:
		if m.runners.Sprites == nil {
			return state.SyncJob{}, unavailable(mode)
		}
		opts := m.defaults.Sprites
		opts.BatchSize = overrideInt(opts.BatchSize, req.BatchSize)
		report, err := m.runners.Sprites.Run(ctx, opts)
		return report.Job, err
	}
	return state.SyncJob{}, unavailable(mode)
}

func unavailable(mode state.Mode) error {
	return fmt.Errorf("%w: %s", ErrModeUnavailable, mode)
}

func override(def, req []catalog.Kind) []catalog.Kind {
	if len(req) > 0 {
		return req
	}
	return def
}

func overrideInt(def, req int) int {
	if req > 0 {
		return req
	}
	return def
}
