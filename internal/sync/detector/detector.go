// Package detector finds upstream changes without walking the full indexes.
//
// Numeric-keyed kinds grow at the end, so a probe fetches {kind}/{max+1}/, {max+2}/, ...
// until the upstream answers 404. Cached rows past their expiry are re-fetched and
// re-applied. Both passes share one pacing limiter and one wall-clock budget.
package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/httpclient"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
	"github.com/pokemnky/catalog-sync/internal/sync/writer"
)

// Defaults for Options fields left at zero
const (
	DefaultProbeLimit   = 50
	DefaultRefreshLimit = 100
	DefaultDelay        = 100 * time.Millisecond
	DefaultBudget       = 50 * time.Second
)

// DefaultProbeKinds are probed when Options.ProbeKinds is empty
var DefaultProbeKinds = []catalog.Kind{
	catalog.KindPokemon, catalog.KindPokemonSpecies, catalog.KindMove, catalog.KindAbility,
}

// Probe stop reasons
const (
	StopNotFound = "not-found"
	StopError    = "error"
	StopLimit    = "limit"
	StopBudget   = "budget"
	// StopUnavailable means the circuit breaker rejected the fetch
	StopUnavailable = "unavailable"
)

// Options controls one detector run
type Options struct {
	ProbeKinds []catalog.Kind
	// ProbeLimit caps the identifiers probed per kind
	ProbeLimit int
	// RefreshLimit caps the expired rows refreshed per run. A negative value disables refresh.
	RefreshLimit int
	Delay        time.Duration
	Budget       time.Duration
}

func (o Options) withDefaults() Options {
	if len(o.ProbeKinds) == 0 {
		o.ProbeKinds = DefaultProbeKinds
	}
	if o.ProbeLimit <= 0 {
		o.ProbeLimit = DefaultProbeLimit
	}
	if o.RefreshLimit == 0 {
		o.RefreshLimit = DefaultRefreshLimit
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.Budget <= 0 {
		o.Budget = DefaultBudget
	}
	return o
}

// ProbeResult is the outcome of probing one kind
type ProbeResult struct {
	Kind       catalog.Kind `json:"kind"`
	Start      int64        `json:"start"`
	Discovered int          `json:"discovered"`
	StoppedBy  string       `json:"stopped_by"`
}

// Report summarizes a detector run
type Report struct {
	Job             state.SyncJob `json:"job"`
	Probes          []ProbeResult `json:"probes"`
	Discovered      int           `json:"discovered"`
	Refreshed       int           `json:"refreshed"`
	Failed          int           `json:"failed"`
	BudgetExhausted bool          `json:"budget_exhausted"`
	// RefreshTruncated is true when more rows were expired than RefreshLimit allowed
	RefreshTruncated bool `json:"refresh_truncated"`
}

// Detector probes for new identifiers and refreshes expired rows
type Detector struct {
	store   cache.Store
	client  httpclient.Client
	writer  writer.Writer
	jobs    state.Service
	baseURL string
	now     func() time.Time
}

// Option configures a Detector
type Option func(*Detector)

// WithClock replaces the clock used to select expired rows
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

// New creates a detector reading from the upstream API rooted at baseURL
func New(
	store cache.Store, client httpclient.Client, w writer.Writer, jobs state.Service, baseURL string, opts ...Option,
) *Detector {
	d := &Detector{store: store, client: client, writer: w, jobs: jobs, baseURL: baseURL, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type run struct {
	*Detector
	job      state.SyncJob
	report   Report
	limiter  *rate.Limiter
	deadline time.Time
	logger   *slog.Logger

	// circuitOpen stops every remaining fetch once the breaker rejects one
	circuitOpen bool
	reached     bool
	unreachable int
}

// Run probes every kind in order, then refreshes expired rows
func (d *Detector) Run(ctx context.Context, opts Options) (Report, error) {
	opts = opts.withDefaults()
	for _, k := range opts.ProbeKinds {
		if !k.IsKnown() {
			return Report{}, fmt.Errorf("unknown resource kind: %q", k)
		}
	}

	job, err := d.jobs.Create(ctx, state.ModeDetect, catalog.Strings(opts.ProbeKinds))
	if err != nil {
		return Report{}, err
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	r := &run{
		Detector: d,
		job:      job,
		limiter:  rate.NewLimiter(limit, 1),
		deadline: time.Now().Add(opts.Budget),
		logger:   slog.With("job_id", job.ID, "mode", state.ModeDetect),
	}

	if !d.client.Available() {
		return r.fail(ctx, httpclient.ErrUpstreamUnavailable)
	}

	starts := make([]int64, len(opts.ProbeKinds))
	for i, kind := range opts.ProbeKinds {
		maxKey, ok, err := d.store.MaxNumericKey(ctx, kind)
		if err != nil {
			return r.fail(ctx, fmt.Errorf("failed to read max key of %s: %w", kind, err))
		}
		starts[i] = 1
		if ok {
			starts[i] = maxKey + 1
		}
	}

	var expired []cache.Resource
	if opts.RefreshLimit > 0 {
		// one extra row tells whether the limit cut the list short
		expired, err = d.store.ListExpired(ctx, d.now(), opts.RefreshLimit+1)
		if err != nil {
			return r.fail(ctx, fmt.Errorf("failed to list expired resources: %w", err))
		}
		if len(expired) > opts.RefreshLimit {
			expired = expired[:opts.RefreshLimit]
			r.report.RefreshTruncated = true
		}
	}
	if err := d.jobs.SetRemaining(ctx, job.ID, int64(len(expired))); err != nil {
		r.logger.Warn("Failed to set remaining", "error", err)
	}

	r.logger.Info("Starting change detection", "kinds", len(opts.ProbeKinds), "expired", len(expired))

	for i, kind := range opts.ProbeKinds {
		res := r.probe(ctx, kind, starts[i], opts.ProbeLimit)
		r.report.Probes = append(r.report.Probes, res)
		r.report.Discovered += res.Discovered
		r.logger.Info("Probe finished", "kind", kind, "start", res.Start, "discovered", res.Discovered, "stopped_by", res.StoppedBy)
	}

	for _, res := range expired {
		if r.circuitOpen || !r.wait(ctx) {
			break
		}
		if r.refresh(ctx, res) {
			r.report.Refreshed++
		}
		if err := d.jobs.AddRemaining(ctx, job.ID, -1); err != nil {
			r.logger.Warn("Failed to update remaining", "error", err)
		}
	}

	return r.finish(ctx)
}

// probe fetches consecutive identifiers of kind from start until a 404, a failure, the limit or the budget
func (r *run) probe(ctx context.Context, kind catalog.Kind, start int64, limit int) ProbeResult {
	res := ProbeResult{Kind: kind, Start: start, StoppedBy: StopLimit}
	for n := start; n < start+int64(limit); n++ {
		if r.circuitOpen {
			res.StoppedBy = StopUnavailable
			return res
		}
		if !r.wait(ctx) {
			res.StoppedBy = StopBudget
			return res
		}

		url := catalog.ResourceURL(r.baseURL, kind, fmt.Sprint(n))
		fetchedAt := time.Now()
		body, err := r.client.Get(ctx, url)
		r.observe(err)
		if httpclient.IsNotFound(err) {
			res.StoppedBy = StopNotFound
			return res
		}
		if err != nil {
			r.recordFailure(ctx, writer.Failed(url, writer.StageFetch, err))
			res.StoppedBy = StopError
			if r.circuitOpen {
				res.StoppedBy = StopUnavailable
			}
			return res
		}

		outcome := r.writer.Apply(ctx, kind, url, body, fetchedAt)
		if !outcome.OK() {
			r.recordFailure(ctx, outcome)
			res.StoppedBy = StopError
			return res
		}
		r.recordSuccess(ctx)
		res.Discovered++
	}
	return res
}

// refresh re-fetches one expired row. On failure the stale row is kept.
func (r *run) refresh(ctx context.Context, res cache.Resource) bool {
	fetchedAt := time.Now()
	body, err := r.client.Get(ctx, res.SourceURL)
	r.observe(err)
	if err != nil {
		r.recordFailure(ctx, writer.Failed(res.SourceURL, writer.StageFetch, err))
		return false
	}

	outcome := r.writer.Apply(ctx, res.Kind, res.SourceURL, body, fetchedAt)
	if !outcome.OK() {
		r.recordFailure(ctx, outcome)
		return false
	}
	r.recordSuccess(ctx)
	return true
}

// wait paces the next fetch and reports false once the budget or ctx no longer allows one
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

// observe records whether a fetch got any answer and notices an open circuit
func (r *run) observe(err error) {
	switch {
	case err == nil || httpclient.StatusCode(err) != 0:
		r.reached = true
	case httpclient.IsUnreachable(err):
		r.unreachable++
		if errors.Is(err, httpclient.ErrUpstreamUnavailable) && !r.circuitOpen {
			r.logger.Warn("Upstream circuit open; stopping detection")
			r.circuitOpen = true
		}
	}
}

func (r *run) recordSuccess(ctx context.Context) {
	if err := r.jobs.RecordSuccess(ctx, r.job.ID, 1); err != nil {
		r.logger.Warn("Failed to record success", "error", err)
	}
}

func (r *run) recordFailure(ctx context.Context, outcome writer.Outcome) {
	r.report.Failed++
	f := outcome.Failure
	r.logger.Warn("Detection fetch failed", "url", f.Identifier, "stage", f.Stage, "error", f.Err)
	if err := r.jobs.RecordFailure(ctx, r.job.ID, state.NewErrorEntry(f.Identifier, f)); err != nil {
		r.logger.Warn("Failed to record failure", "error", err)
	}
}

func (r *run) finish(ctx context.Context) (Report, error) {
	if !r.reached && r.unreachable > 0 {
		return r.fail(ctx, fmt.Errorf("%w: %d fetches got no response", httpclient.ErrUpstreamUnavailable, r.unreachable))
	}

	status := state.StatusCompleted
	if r.report.Failed > 0 || r.report.BudgetExhausted || r.report.RefreshTruncated || r.circuitOpen ||
		r.probeHitLimit() || ctx.Err() != nil {
		status = state.StatusPartial
	}
	message := fmt.Sprintf("discovered %d, refreshed %d, failed %d", r.report.Discovered, r.report.Refreshed, r.report.Failed)

	job, err := r.jobs.Finish(context.WithoutCancel(ctx), r.job.ID, status, message)
	if err != nil {
		return r.report, fmt.Errorf("failed to finish detect job: %w", err)
	}
	r.report.Job = job
	r.logger.Info("Change detection finished", "status", status, "discovered", r.report.Discovered,
		"refreshed", r.report.Refreshed, "failed", r.report.Failed)
	return r.report, nil
}

// probeHitLimit is true when some kind may have identifiers beyond the probe window
func (r *run) probeHitLimit() bool {
	for _, p := range r.report.Probes {
		if p.StoppedBy == StopLimit {
			return true
		}
	}
	return false
}

func (r *run) fail(ctx context.Context, cause error) (Report, error) {
	job, err := r.jobs.Finish(context.WithoutCancel(ctx), r.job.ID, state.StatusFailed, cause.Error())
	if err != nil {
		r.logger.Warn("Failed to finish detect job", "error", errors.Join(err, cause))
		job = r.job
	}
	r.report.Job = job
	r.logger.Error("Change detection failed", "error", cause)
	return r.report, cause
}
