// Package sync triggers catalog sync runs.
//
// Every run is one of four modes, each implemented by its own subpackage:
//
//   - seed (seeder): walks the upstream list indexes and enqueues every resource URL
//   - worker (worker): leases queued URLs, fetches and stores the records
//   - incremental-detect (detector): probes for new numeric ids and refreshes expired rows
//   - sprite-mirror (sprites): copies sprite images into object storage
//
// Runs are short, time-bounded and independently invoked. Each one opens a job in the
// ledger (state) and leaves it in a terminal status when it returns. The Manager is the
// single entry point used by the HTTP API, the CLI and the scheduler in coordinator.
//
// # Errors
//
// Per-item failures never surface as errors: they are counted and sampled into the
// job's error log. Trigger returns an *Error only when the request is invalid
// (errors.Is(err, ErrInvalidRequest)) or when the run could not proceed at all, in
// which case the Summary carries the failed job.
package sync
