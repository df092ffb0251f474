// Package worker drains the resources queue: it leases a batch of items, fetches each
// one from the upstream API, applies it through the write path and acknowledges it.
//
// Failed items are left un-acknowledged so their lease expires and they are delivered
// again on a later run. Runs are bounded by a wall-clock budget that governs when new
// fetches may start; fetches already in flight always finish.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/httpclient"
	"github.com/pokemnky/catalog-sync/internal/queue"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
	"github.com/pokemnky/catalog-sync/internal/sync/writer"
)

// Defaults for Options fields left at zero
const (
	DefaultBatchSize         = 10
	DefaultConcurrency       = 1
	DefaultPerRequestDelay   = 250 * time.Millisecond
	DefaultVisibilityTimeout = 300 * time.Second
	DefaultBudget            = 50 * time.Second
)

// Options controls one worker run
type Options struct {
	// Kinds restricts leasing to these kinds. Empty means every kind.
	Kinds       []catalog.Kind
	BatchSize   int
	Concurrency int
	// PerRequestDelay paces sequential runs. It is ignored when Concurrency > 1.
	PerRequestDelay   time.Duration
	VisibilityTimeout time.Duration
	// Budget bounds the time during which new fetches may start
	Budget time.Duration
	// MaxBatches is the number of lease cycles. Zero means until the queue is empty or the budget runs out.
	MaxBatches int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.PerRequestDelay < 0 {
		o.PerRequestDelay = 0
	}
	if o.VisibilityTimeout <= 0 {
		o.VisibilityTimeout = DefaultVisibilityTimeout
	}
	if o.Budget <= 0 {
		o.Budget = DefaultBudget
	}
	if o.MaxBatches < 0 {
		o.MaxBatches = 0
	}
	return o
}

// Report summarizes a worker run
type Report struct {
	Job state.SyncJob `json:"job"`
	// Processed is the number of items stored and acknowledged
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	// Released is the number of leased items handed back without being started
	Released int `json:"released"`
	Batches  int `json:"batches"`
	// BudgetExhausted is true when the budget stopped the run before the queue was drained
	BudgetExhausted bool             `json:"budget_exhausted"`
	Results         []writer.Outcome `json:"-"`
}

// Worker processes leased queue items
type Worker struct {
	queue  queue.Queue
	client httpclient.Client
	writer writer.Writer
	jobs   state.Service
}

// New creates a worker
func New(q queue.Queue, client httpclient.Client, w writer.Writer, jobs state.Service) *Worker {
	return &Worker{queue: q, client: client, writer: w, jobs: jobs}
}

// run carries the mutable state of one Run call
type run struct {
	*Worker
	job      state.SyncJob
	opts     Options
	deadline time.Time
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu      sync.Mutex
	report  Report
	stopped bool
	// reached is set once the upstream answered any request; unreachable counts
	// fetches that got no answer at all
	reached     bool
	unreachable int
}

// Run leases and processes batches of items until MaxBatches, an empty queue, or the budget stops it
func (w *Worker) Run(ctx context.Context, opts Options) (Report, error) {
	opts = opts.withDefaults()
	for _, k := range opts.Kinds {
		if !k.IsKnown() {
			return Report{}, fmt.Errorf("unknown resource kind: %q", k)
		}
	}

	job, err := w.jobs.Create(ctx, state.ModeWorker, catalog.Strings(opts.Kinds))
	if err != nil {
		return Report{}, err
	}

	r := &run{
		Worker:   w,
		job:      job,
		opts:     opts,
		deadline: time.Now().Add(opts.Budget),
		limiter:  newLimiter(opts.PerRequestDelay),
		logger:   slog.With("job_id", job.ID, "mode", state.ModeWorker),
	}
	r.logger.Info("Starting worker run",
		"batch_size", opts.BatchSize, "concurrency", opts.Concurrency, "budget", opts.Budget, "max_batches", opts.MaxBatches)

	if !w.client.Available() {
		return r.fail(ctx, httpclient.ErrUpstreamUnavailable)
	}

	for opts.MaxBatches == 0 || r.report.Batches < opts.MaxBatches {
		if r.budgetSpent() || r.report.BudgetExhausted {
			r.report.BudgetExhausted = true
			break
		}
		if ctx.Err() != nil || r.isStopped() {
			break
		}

		leased, err := w.queue.Lease(ctx, queue.LeaseRequest{
			Kinds:             opts.Kinds,
			BatchSize:         opts.BatchSize,
			VisibilityTimeout: opts.VisibilityTimeout,
		})
		if err != nil {
			if r.report.Batches == 0 {
				return r.fail(ctx, fmt.Errorf("failed to lease items: %w", err))
			}
			r.logger.Error("Failed to lease items", "error", err)
			break
		}
		if len(leased) == 0 {
			break
		}

		r.report.Batches++
		r.logger.Debug("Leased batch", "batch", r.report.Batches, "items", len(leased))
		r.processBatch(ctx, leased)
	}

	return r.finish(ctx)
}

func (r *run) processBatch(ctx context.Context, leased []queue.Leased) {
	if r.opts.Concurrency == 1 {
		r.processSequential(ctx, leased)
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(r.opts.Concurrency)
	for _, item := range leased {
		g.Go(func() error {
			if r.budgetSpent() || r.isStopped() || ctx.Err() != nil {
				r.release(ctx, item)
				return nil
			}
			r.process(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *run) processSequential(ctx context.Context, leased []queue.Leased) {
	budgetCtx, cancel := context.WithDeadline(ctx, r.deadline)
	defer cancel()

	for i, item := range leased {
		// Wait fails at once when the next token would arrive after the deadline
		if r.isStopped() || r.limiter.Wait(budgetCtx) != nil {
			if ctx.Err() == nil && !r.isStopped() {
				r.mu.Lock()
				r.report.BudgetExhausted = true
				r.mu.Unlock()
			}
			for _, rest := range leased[i:] {
				r.release(ctx, rest)
			}
			return
		}
		r.process(ctx, item)
	}
}

func (r *run) process(ctx context.Context, item queue.Leased) {
	fetchedAt := time.Now()
	body, err := r.client.Get(ctx, item.SourceURL)
	r.observe(err)
	if errors.Is(err, httpclient.ErrUpstreamUnavailable) {
		r.logger.Warn("Upstream circuit open; stopping run", "url", item.SourceURL)
		r.stop()
		r.release(ctx, item)
		return
	}

	var outcome writer.Outcome
	if err != nil {
		outcome = writer.Failed(item.SourceURL, writer.StageFetch, err)
	} else {
		outcome = r.writer.Apply(ctx, item.Kind, item.SourceURL, body, fetchedAt)
	}

	if outcome.OK() {
		r.succeed(ctx, item, outcome)
	} else {
		r.failItem(ctx, item, outcome)
	}
}

func (r *run) succeed(ctx context.Context, item queue.Leased, outcome writer.Outcome) {
	if err := r.queue.Ack(ctx, item.LeaseID); err != nil {
		// the write is idempotent, a redelivered item is harmless
		r.logger.Warn("Failed to ack item", "url", item.SourceURL, "error", err)
	}
	if err := r.jobs.RecordSuccess(ctx, r.job.ID, 1); err != nil {
		r.logger.Warn("Failed to record success", "error", err)
	}
	if err := r.jobs.AddRemaining(ctx, r.job.ID, -1); err != nil {
		r.logger.Warn("Failed to update remaining", "error", err)
	}

	r.mu.Lock()
	r.report.Processed++
	r.report.Results = append(r.report.Results, outcome)
	r.mu.Unlock()
}

func (r *run) failItem(ctx context.Context, item queue.Leased, outcome writer.Outcome) {
	f := outcome.Failure
	r.logger.Warn("Item failed", "url", item.SourceURL, "stage", f.Stage, "attempt", item.Attempts, "error", f.Err)

	// the item stays leased until its visibility timeout expires
	if err := r.queue.Fail(ctx, item.LeaseID, f.Error()); err != nil && !errors.Is(err, queue.ErrLeaseNotFound) {
		r.logger.Warn("Failed to record item error", "url", item.SourceURL, "error", err)
	}
	if err := r.jobs.RecordFailure(ctx, r.job.ID, state.NewErrorEntry(item.SourceURL, f)); err != nil {
		r.logger.Warn("Failed to record failure", "error", err)
	}

	r.mu.Lock()
	r.report.Failed++
	r.report.Results = append(r.report.Results, outcome)
	r.mu.Unlock()
}

func (r *run) release(ctx context.Context, item queue.Leased) {
	if err := r.queue.Release(context.WithoutCancel(ctx), item.LeaseID); err != nil {
		r.logger.Warn("Failed to release item", "url", item.SourceURL, "error", err)
		return
	}
	r.mu.Lock()
	r.report.Released++
	r.mu.Unlock()
}

func (r *run) finish(ctx context.Context) (Report, error) {
	ctx = context.WithoutCancel(ctx)

	pending, err := r.queue.Pending(ctx, r.opts.Kinds)
	if err != nil {
		r.logger.Warn("Failed to count pending items", "error", err)
	} else if err := r.jobs.SetRemaining(ctx, r.job.ID, pending); err != nil {
		r.logger.Warn("Failed to set remaining", "error", err)
	}

	if r.neverReached() {
		return r.fail(ctx, fmt.Errorf("%w: %d fetches got no response", httpclient.ErrUpstreamUnavailable, r.unreachable))
	}

	status := state.StatusCompleted
	if r.report.Failed > 0 || pending > 0 || err != nil {
		status = state.StatusPartial
	}
	message := fmt.Sprintf("processed %d, failed %d, released %d, pending %d",
		r.report.Processed, r.report.Failed, r.report.Released, pending)

	job, err := r.jobs.Finish(ctx, r.job.ID, status, message)
	if err != nil {
		return r.report, fmt.Errorf("failed to finish worker job: %w", err)
	}
	r.report.Job = job

	r.logger.Info("Worker run finished", "status", status, "processed", r.report.Processed,
		"failed", r.report.Failed, "released", r.report.Released, "pending", pending,
		"budget_exhausted", r.report.BudgetExhausted)
	return r.report, nil
}

func (r *run) fail(ctx context.Context, cause error) (Report, error) {
	job, err := r.jobs.Finish(context.WithoutCancel(ctx), r.job.ID, state.StatusFailed, cause.Error())
	if err != nil {
		r.logger.Warn("Failed to finish worker job", "error", err)
		job = r.job
	}
	r.report.Job = job
	r.logger.Error("Worker run failed", "error", cause)
	return r.report, cause
}

// newLimiter paces sequential fetches one token per delay, with the first fetch immediate
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func (r *run) budgetSpent() bool {
	return !time.Now().Before(r.deadline)
}

// observe records whether a fetch got any answer from the upstream
func (r *run) observe(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case err == nil || httpclient.StatusCode(err) != 0:
		r.reached = true
	case httpclient.IsUnreachable(err):
		r.unreachable++
	}
}

// neverReached is true when fetches were attempted and none of them got an answer
func (r *run) neverReached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.reached && r.unreachable > 0
}

func (r *run) stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

func (r *run) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}
