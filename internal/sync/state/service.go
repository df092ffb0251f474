// Package state contains the sync job ledger: one record per run of a sync mode with
// its counters, error log and terminal status.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Mode identifies the kind of sync run
type Mode string

// Sync modes
const (
	ModeSeed         Mode = "seed"
	ModeWorker       Mode = "worker"
	ModeDetect       Mode = "incremental-detect"
	ModeSpriteMirror Mode = "sprite-mirror"
)

// Modes returns every known mode
func Modes() []Mode {
	return []Mode{ModeSeed, ModeWorker, ModeDetect, ModeSpriteMirror}
}

// ParseMode converts s into a known Mode
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown sync mode: %q", s)
}

// Status is the lifecycle state of a job
type Status string

// Job statuses
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further updates are accepted in this status
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// Error log limits
const (
	MaxErrorEntries      = 100
	MaxErrorMessageBytes = 512
)

var (
	// ErrJobNotFound is returned when no job has the requested id
	ErrJobNotFound = errors.New("sync job not found")

	// ErrJobFinalized is returned when mutating a job that already reached a terminal status
	ErrJobFinalized = errors.New("sync job already finalized")

	// ErrInvalidStatus is returned when finishing a job with a non-terminal status
	ErrInvalidStatus = errors.New("invalid terminal status")
)

// ErrorEntry is one recorded failure
type ErrorEntry struct {
	Identifier string `json:"identifier"`
	Message    string `json:"message"`
}

// NewErrorEntry builds an entry with the message truncated to MaxErrorMessageBytes
func NewErrorEntry(identifier string, err error) ErrorEntry {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ErrorEntry{Identifier: identifier, Message: truncate(msg, MaxErrorMessageBytes)}
}

// SyncJob is the ledger record of one run
type SyncJob struct {
	ID          uuid.UUID    `json:"id"`
	Mode        Mode         `json:"mode"`
	Status      Status       `json:"status"`
	Scope       []string     `json:"scope"`
	Succeeded   int64        `json:"succeeded"`
	Failed      int64        `json:"failed"`
	Remaining   int64        `json:"remaining"`
	Errors      []ErrorEntry `json:"errors"`
	Message     string       `json:"message,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	HeartbeatAt time.Time    `json:"heartbeat_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// ListFilter narrows List results
type ListFilter struct {
	// Mode restricts results to one mode when set
	Mode Mode
	// Limit caps the number of jobs returned, newest first. Zero means DefaultListLimit.
	Limit int
}

// DefaultListLimit is used when ListFilter.Limit is zero
const DefaultListLimit = 50

// Service is the sync job ledger. Jobs are values; callers hold the id of the job they
// opened and pass it back on every update.
//
//go:generate mockgen -destination=mocks/mock_service.go -package=mocks github.com/pokemnky/catalog-sync/internal/sync/state Service
type Service interface {
	// Create opens a running job
	Create(ctx context.Context, mode Mode, scope []string) (SyncJob, error)
	// RecordSuccess adds n to the succeeded counter
	RecordSuccess(ctx context.Context, id uuid.UUID, n int64) error
	// RecordFailure increments the failed counter and appends to the capped error log
	RecordFailure(ctx context.Context, id uuid.UUID, entry ErrorEntry) error
	// AddRemaining adjusts the remaining counter by delta, never below zero
	AddRemaining(ctx context.Context, id uuid.UUID, delta int64) error
	// SetRemaining overwrites the remaining counter
	SetRemaining(ctx context.Context, id uuid.UUID, n int64) error
	// Finish moves the job to a terminal status and returns its final state
	Finish(ctx context.Context, id uuid.UUID, status Status, message string) (SyncJob, error)
	// Get returns one job or ErrJobNotFound
	Get(ctx context.Context, id uuid.UUID) (SyncJob, error)
	// List returns jobs newest first
	List(ctx context.Context, filter ListFilter) ([]SyncJob, error)
	// FailStale fails running jobs whose last heartbeat is older than olderThan
	FailStale(ctx context.Context, olderThan time.Duration) (int, error)
}

func validateFinish(status Status) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return nil
}

func listLimit(f ListFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

const staleMessage = "no heartbeat received; marked failed by stale job sweep"
