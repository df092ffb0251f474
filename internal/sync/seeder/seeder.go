// Package seeder enumerates the upstream list indexes and enqueues one work item per
// resource URL. It never writes to the resource cache; items are fetched and stored later
// by the ingestion worker.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/queue"
	"github.com/pokemnky/catalog-sync/internal/sources"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
)

// Default paging settings
const (
	DefaultPageSize  = 200
	DefaultMaxPages  = 500
	DefaultPageDelay = 100 * time.Millisecond
)

// MetaName is the queue metadata key holding the index name of an item
const MetaName = "name"

// ErrNothingEnumerated is returned when no requested kind could be enumerated
var ErrNothingEnumerated = errors.New("no index could be enumerated")

// Options controls one seed run
type Options struct {
	// Kinds to seed. Empty means every known kind.
	Kinds []catalog.Kind
	// Limit caps the URLs enqueued per kind. Zero means no limit.
	Limit     int
	PageSize  int
	MaxPages  int
	PageDelay time.Duration
}

func (o Options) withDefaults() Options {
	if len(o.Kinds) == 0 {
		o.Kinds = catalog.All()
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.PageDelay < 0 {
		o.PageDelay = 0
	}
	return o
}

// KindResult is the outcome of seeding one kind
type KindResult struct {
	Kind      catalog.Kind `json:"kind"`
	Count     int64        `json:"count"`
	Pages     int          `json:"pages"`
	Enqueued  int          `json:"enqueued"`
	Truncated bool         `json:"truncated"`
	Error     string       `json:"error,omitempty"`
}

// Report summarizes a seed run
type Report struct {
	Job      state.SyncJob `json:"job"`
	Kinds    []KindResult  `json:"kinds"`
	Enqueued int           `json:"enqueued"`
}

// Seeder enqueues index entries for the ingestion worker
type Seeder struct {
	walker sources.Walker
	queue  queue.Queue
	jobs   state.Service
	store  cache.Store
}

// New creates a seeder
func New(walker sources.Walker, q queue.Queue, jobs state.Service, store cache.Store) *Seeder {
	return &Seeder{walker: walker, queue: q, jobs: jobs, store: store}
}

// Seed pages through the index of every requested kind in phase order and enqueues each
// entry. A kind that fails is recorded in the job and the run moves on to the next kind.
func (s *Seeder) Seed(ctx context.Context, opts Options) (Report, error) {
	opts = opts.withDefaults()
	for _, k := range opts.Kinds {
		if !k.IsKnown() {
			return Report{}, fmt.Errorf("unknown resource kind: %q", k)
		}
	}
	kinds := catalog.OrderByPhase(opts.Kinds)

	job, err := s.jobs.Create(ctx, state.ModeSeed, catalog.Strings(kinds))
	if err != nil {
		return Report{}, err
	}

	logger := slog.With("job_id", job.ID, "mode", state.ModeSeed)
	logger.Info("Starting seed", "kinds", len(kinds), "limit", opts.Limit, "page_size", opts.PageSize)

	report := Report{Kinds: make([]KindResult, 0, len(kinds))}
	enumerated, failed := 0, 0
	for _, kind := range kinds {
		if ctx.Err() != nil {
			break
		}

		res := s.seedKind(ctx, job, kind, opts)
		report.Kinds = append(report.Kinds, res)
		report.Enqueued += res.Enqueued
		if res.Pages > 0 {
			enumerated++
		}
		if res.Error != "" {
			failed++
			logger.Warn("Seeding kind failed", "kind", kind, "enqueued", res.Enqueued, "error", res.Error)
			continue
		}
		logger.Info("Seeded kind", "kind", kind, "count", res.Count, "enqueued", res.Enqueued, "pages", res.Pages)
	}

	status, message := state.StatusCompleted, fmt.Sprintf("enqueued %d items", report.Enqueued)
	var runErr error
	switch {
	case enumerated == 0 && (failed > 0 || ctx.Err() != nil):
		status, runErr = state.StatusFailed, ErrNothingEnumerated
		message = ErrNothingEnumerated.Error()
	case failed > 0 || ctx.Err() != nil || len(report.Kinds) < len(kinds):
		status = state.StatusPartial
		message = fmt.Sprintf("enqueued %d items; %d of %d kinds failed", report.Enqueued, failed, len(kinds))
	}

	job, err = s.jobs.Finish(context.WithoutCancel(ctx), job.ID, status, message)
	if err != nil {
		return report, fmt.Errorf("failed to finish seed job: %w", err)
	}
	report.Job = job

	logger.Info("Seed finished", "status", status, "enqueued", report.Enqueued, "failed_kinds", failed)
	return report, runErr
}

func (s *Seeder) seedKind(ctx context.Context, job state.SyncJob, kind catalog.Kind, opts Options) KindResult {
	walkOpts := sources.WalkOptions{
		PageSize:  opts.PageSize,
		MaxPages:  opts.MaxPages,
		Limit:     opts.Limit,
		PageDelay: opts.PageDelay,
	}

	enqueued := 0
	res, err := s.walker.Walk(ctx, kind, walkOpts, func(entries []sources.IndexEntry) error {
		items := make([]queue.Item, 0, len(entries))
		for _, e := range entries {
			items = append(items, queue.Item{
				Kind:      kind,
				SourceURL: e.URL,
				Metadata:  map[string]string{MetaName: e.Name},
			})
		}

		n, err := s.queue.Enqueue(ctx, items)
		if err != nil {
			return fmt.Errorf("failed to enqueue %s items: %w", kind, err)
		}
		enqueued += n

		if err := s.jobs.AddRemaining(ctx, job.ID, int64(n)); err != nil {
			return err
		}
		return s.jobs.RecordSuccess(ctx, job.ID, int64(n))
	})

	out := KindResult{
		Kind:      kind,
		Count:     res.Count,
		Pages:     res.Pages,
		Enqueued:  enqueued,
		Truncated: res.Truncated,
	}

	if res.Pages > 0 {
		if estErr := s.store.RecordEstimate(ctx, kind, res.Count); estErr != nil {
			slog.Warn("Failed to record kind estimate", "kind", kind, "error", estErr)
		}
	}

	if err != nil {
		out.Error = err.Error()
		entry := state.NewErrorEntry(string(kind), err)
		if recErr := s.jobs.RecordFailure(context.WithoutCancel(ctx), job.ID, entry); recErr != nil {
			slog.Warn("Failed to record seed failure", "kind", kind, "error", recErr)
		}
	}
	return out
}
