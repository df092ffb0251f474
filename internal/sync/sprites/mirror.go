// Package sprites mirrors sprite images referenced by stored pokemon into object storage.
//
// The write path enqueues one sprites-queue item per image URL. A mirror run leases
// those items, skips URLs already in the asset catalog, downloads the rest, uploads
// them under their normalized target path and records each upload in the catalog.
package sprites

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pokemnky/catalog-sync/internal/assets"
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/httpclient"
	"github.com/pokemnky/catalog-sync/internal/queue"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
	"github.com/pokemnky/catalog-sync/internal/sync/writer"
)

// Defaults for Options fields left at zero
const (
	DefaultBatchSize         = 20
	DefaultDelay             = 100 * time.Millisecond
	DefaultVisibilityTimeout = 300 * time.Second
	DefaultBudget            = 50 * time.Second
)

// Options controls one mirror run
type Options struct {
	Bucket            string
	BatchSize         int
	Delay             time.Duration
	VisibilityTimeout time.Duration
	Budget            time.Duration
	// MaxBatches is the number of lease cycles. Zero means until the queue is empty or the budget runs out.
	MaxBatches int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.VisibilityTimeout <= 0 {
		o.VisibilityTimeout = DefaultVisibilityTimeout
	}
	if o.Budget <= 0 {
		o.Budget = DefaultBudget
	}
	return o
}

// Report summarizes a mirror run
type Report struct {
	Job      state.SyncJob `json:"job"`
	Mirrored int           `json:"mirrored"`
	// Skipped counts items whose source URL was mirrored already
	Skipped         int  `json:"skipped"`
	Failed          int  `json:"failed"`
	Released        int  `json:"released"`
	Batches         int  `json:"batches"`
	BudgetExhausted bool `json:"budget_exhausted"`
}

// Mirror copies queued sprite images into an object store
type Mirror struct {
	queue   queue.Queue
	client  httpclient.Client
	objects assets.ObjectStore
	catalog assets.Catalog
	jobs    state.Service
}

// New creates a mirror that drains q, the sprites queue
func New(q queue.Queue, client httpclient.Client, objects assets.ObjectStore, catalog assets.Catalog, jobs state.Service) *Mirror {
	return &Mirror{queue: q, client: client, objects: objects, catalog: catalog, jobs: jobs}
}

type run struct {
	*Mirror
	job      state.SyncJob
	opts     Options
	limiter  *rate.Limiter
	deadline time.Time
	report   Report
	logger   *slog.Logger
	stopped  error
}

// Run leases sprite items until the queue is empty, MaxBatches is reached or the budget is spent
func (m *Mirror) Run(ctx context.Context, opts Options) (Report, error) {
	opts = opts.withDefaults()
	if opts.Bucket == "" {
		return Report{}, fmt.Errorf("sprite bucket is required")
	}

	job, err := m.jobs.Create(ctx, state.ModeSpriteMirror, []string{opts.Bucket})
	if err != nil {
		return Report{}, err
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	r := &run{
		Mirror:   m,
		job:      job,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
		deadline: time.Now().Add(opts.Budget),
		logger:   slog.With("job_id", job.ID, "mode", state.ModeSpriteMirror, "bucket", opts.Bucket),
	}

	if err := m.objects.EnsureBucket(ctx, opts.Bucket); err != nil {
		return r.fail(ctx, err)
	}

	for opts.MaxBatches == 0 || r.report.Batches < opts.MaxBatches {
		if r.report.BudgetExhausted || time.Now().After(r.deadline) || ctx.Err() != nil || r.stopped != nil {
			break
		}

		items, err := m.queue.Lease(ctx, queue.LeaseRequest{
			BatchSize:         opts.BatchSize,
			VisibilityTimeout: opts.VisibilityTimeout,
		})
		if err != nil {
			if r.report.Batches == 0 {
				return r.fail(ctx, fmt.Errorf("failed to lease sprites: %w", err))
			}
			r.logger.Warn("Failed to lease sprites", "error", err)
			break
		}
		if len(items) == 0 {
			break
		}
		r.report.Batches++
		r.processBatch(ctx, items)
	}

	return r.finish(ctx)
}

func (r *run) processBatch(ctx context.Context, items []queue.Leased) {
	for i, item := range items {
		if !r.wait(ctx) || r.stopped != nil {
			r.release(ctx, items[i:])
			return
		}
		r.mirror(ctx, item)
	}
}

func (r *run) mirror(ctx context.Context, item queue.Leased) {
	exists, err := r.catalog.Exists(ctx, item.SourceURL)
	if err != nil {
		r.failItem(ctx, item, fmt.Errorf("failed to check asset catalog: %w", err))
		return
	}
	if exists {
		r.report.Skipped++
		r.ack(ctx, item)
		return
	}

	data, err := r.client.Get(ctx, item.SourceURL)
	if errors.Is(err, httpclient.ErrUpstreamUnavailable) {
		r.stopped = err
		r.release(ctx, []queue.Leased{item})
		return
	}
	if err != nil {
		r.failItem(ctx, item, err)
		return
	}

	sum := sha256.Sum256(data)
	asset := assets.Asset{
		AssetKind:    assets.KindSprite,
		ResourceKind: catalog.Kind(item.Metadata[writer.MetaResourceKind]),
		ResourceKey:  item.Metadata[writer.MetaResourceKey],
		SourceURL:    item.SourceURL,
		Bucket:       r.opts.Bucket,
		Path:         item.Metadata[writer.MetaTargetPath],
		ContentType:  http.DetectContentType(data),
		Bytes:        int64(len(data)),
		SHA256:       hex.EncodeToString(sum[:]),
	}
	if asset.ResourceKind == "" {
		asset.ResourceKind = item.Kind
	}
	if asset.Path == "" {
		asset.Path = writer.SpritePath(asset.ResourceKey, item.SourceURL)
	}

	if err := r.objects.Put(ctx, asset.Bucket, asset.Path, data, asset.ContentType); err != nil {
		r.failItem(ctx, item, err)
		return
	}
	if err := r.catalog.Record(ctx, asset); err != nil {
		r.failItem(ctx, item, err)
		return
	}

	r.report.Mirrored++
	r.logger.Debug("Mirrored sprite", "url", item.SourceURL, "path", asset.Path, "bytes", asset.Bytes)
	r.ack(ctx, item)
}

func (r *run) ack(ctx context.Context, item queue.Leased) {
	if err := r.queue.Ack(ctx, item.LeaseID); err != nil {
		r.logger.Warn("Failed to ack sprite", "url", item.SourceURL, "error", err)
	}
	if err := r.jobs.RecordSuccess(ctx, r.job.ID, 1); err != nil {
		r.logger.Warn("Failed to record success", "error", err)
	}
}

func (r *run) failItem(ctx context.Context, item queue.Leased, cause error) {
	r.report.Failed++
	r.logger.Warn("Failed to mirror sprite", "url", item.SourceURL, "attempts", item.Attempts, "error", cause)
	if err := r.queue.Fail(ctx, item.LeaseID, cause.Error()); err != nil {
		r.logger.Warn("Failed to record queue failure", "url", item.SourceURL, "error", err)
	}
	if err := r.jobs.RecordFailure(ctx, r.job.ID, state.NewErrorEntry(item.SourceURL, cause)); err != nil {
		r.logger.Warn("Failed to record failure", "error", err)
	}
}

func (r *run) release(ctx context.Context, items []queue.Leased) {
	for _, item := range items {
		if err := r.queue.Release(context.WithoutCancel(ctx), item.LeaseID); err != nil {
			r.logger.Warn("Failed to release sprite", "url", item.SourceURL, "error", err)
			continue
		}
		r.report.Released++
	}
}

// wait paces the next download and reports false once the budget or ctx no longer allows one
func (r *run) wait(ctx context.Context) bool {
	if r.report.BudgetExhausted || ctx.Err() != nil {
		return false
	}
	budgetCtx, cancel := context.WithDeadline(ctx, r.deadline)
	defer cancel()

	if err := r.limiter.Wait(budgetCtx); err != nil {
		if ctx.Err() == nil {
			r.report.BudgetExhausted = true
		}
		return false
	}
	return true
}

func (r *run) finish(ctx context.Context) (Report, error) {
	ctx = context.WithoutCancel(ctx)

	pending, err := r.queue.Pending(ctx, nil)
	if err != nil {
		r.logger.Warn("Failed to count pending sprites", "error", err)
	} else if err := r.jobs.SetRemaining(ctx, r.job.ID, pending); err != nil {
		r.logger.Warn("Failed to set remaining", "error", err)
	}

	status := state.StatusCompleted
	if r.report.Failed > 0 || pending > 0 || err != nil || r.stopped != nil {
		status = state.StatusPartial
	}
	message := fmt.Sprintf("mirrored %d, skipped %d, failed %d", r.report.Mirrored, r.report.Skipped, r.report.Failed)
	if r.stopped != nil {
		message += ": " + r.stopped.Error()
	}

	job, err := r.jobs.Finish(ctx, r.job.ID, status, message)
	if err != nil {
		return r.report, fmt.Errorf("failed to finish sprite job: %w", err)
	}
	r.report.Job = job
	r.logger.Info("Sprite mirror finished", "status", status, "mirrored", r.report.Mirrored,
		"skipped", r.report.Skipped, "failed", r.report.Failed, "remaining", pending)
	return r.report, nil
}

func (r *run) fail(ctx context.Context, cause error) (Report, error) {
	job, err := r.jobs.Finish(context.WithoutCancel(ctx), r.job.ID, state.StatusFailed, cause.Error())
	if err != nil {
		r.logger.Warn("Failed to finish sprite job", "error", errors.Join(err, cause))
		job = r.job
	}
	r.report.Job = job
	return r.report, cause
}
