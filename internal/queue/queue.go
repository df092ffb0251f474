// Package queue implements the durable work queue that feeds the ingestion and sprite
// workers. Delivery is at-least-once: a leased item becomes visible again when its
// lease expires without an ack.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pokemnky/catalog-sync/internal/catalog"
)

// Queue names
const (
	ResourcesQueue = "resources"
	SpritesQueue   = "sprites"
)

// DefaultMaxAttempts is the number of deliveries after which an item is dead-lettered
const DefaultMaxAttempts = 5

var (
	// ErrLeaseNotFound is returned when a lease was acked already or superseded by a newer lease
	ErrLeaseNotFound = errors.New("lease not found")

	// ErrInvalidLeaseRequest is returned for non-positive batch sizes or visibility timeouts
	ErrInvalidLeaseRequest = errors.New("invalid lease request")
)

// Item is a unit of work to enqueue
type Item struct {
	Kind      catalog.Kind
	SourceURL string
	Metadata  map[string]string
}

// Leased is an item handed to a consumer together with its lease
type Leased struct {
	ID           int64
	LeaseID      uuid.UUID
	Kind         catalog.Kind
	SourceURL    string
	Metadata     map[string]string
	Attempts     int
	EnqueuedAt   time.Time
	VisibleAfter time.Time
}

// LeaseRequest selects items to lease
type LeaseRequest struct {
	// Kinds restricts the lease to these kinds. Empty means any kind.
	Kinds             []catalog.Kind
	BatchSize         int
	VisibilityTimeout time.Duration
}

func (r LeaseRequest) validate() error {
	if r.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidLeaseRequest, r.BatchSize)
	}
	if r.VisibilityTimeout <= 0 {
		return fmt.Errorf("%w: visibility timeout must be positive, got %s", ErrInvalidLeaseRequest, r.VisibilityTimeout)
	}
	return nil
}

// Depth is the per-kind queue breakdown
type Depth struct {
	Kind         catalog.Kind `json:"kind"`
	Visible      int64        `json:"visible"`
	Leased       int64        `json:"leased"`
	DeadLettered int64        `json:"dead_lettered"`
}

// DeadLetter is an item that exhausted its attempts
type DeadLetter struct {
	ID             int64        `json:"id"`
	Kind           catalog.Kind `json:"kind"`
	SourceURL      string       `json:"source_url"`
	Attempts       int          `json:"attempts"`
	LastError      string       `json:"last_error,omitempty"`
	EnqueuedAt     time.Time    `json:"enqueued_at"`
	DeadLetteredAt time.Time    `json:"dead_lettered_at"`
}

//go:generate mockgen -destination=mocks/mock_queue.go -package=mocks -source=queue.go Queue

// Queue is a named work queue
type Queue interface {
	// Enqueue appends items and returns how many were added
	Enqueue(ctx context.Context, items []Item) (int, error)

	// Lease hides up to BatchSize visible items for VisibilityTimeout and returns them.
	// Every lease counts as an attempt; visible items at the attempt limit are
	// dead-lettered instead of delivered.
	Lease(ctx context.Context, req LeaseRequest) ([]Leased, error)

	// Ack removes a leased item. It returns ErrLeaseNotFound when the lease is no longer current.
	Ack(ctx context.Context, leaseID uuid.UUID) error

	// Release makes a leased item visible again without charging the attempt
	Release(ctx context.Context, leaseID uuid.UUID) error

	// Fail records why processing failed. The item stays hidden until its lease expires.
	Fail(ctx context.Context, leaseID uuid.UUID, reason string) error

	// Depth reports visible, leased and dead-lettered counts per kind
	Depth(ctx context.Context) ([]Depth, error)

	// Pending counts items not yet acked or dead-lettered, optionally restricted to kinds
	Pending(ctx context.Context, kinds []catalog.Kind) (int64, error)

	// DeadLetters lists up to limit dead-lettered items, newest first
	DeadLetters(ctx context.Context, limit int) ([]DeadLetter, error)

	// RequeueDeadLetters resets dead-lettered items of the given kinds (all when empty)
	RequeueDeadLetters(ctx context.Context, kinds []catalog.Kind) (int64, error)
}
