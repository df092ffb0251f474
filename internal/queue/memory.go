package queue

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pokemnky/catalog-sync/internal/catalog"
)

type memoryItem struct {
	id             int64
	kind           catalog.Kind
	sourceURL      string
	metadata       map[string]string
	leaseID        uuid.UUID
	attempts       int
	enqueuedAt     time.Time
	visibleAt      time.Time
	deadLetteredAt *time.Time
	lastError      string
}

// MemoryQueue is a Queue kept in process memory. Items are delivered in enqueue order.
type MemoryQueue struct {
	mu          sync.Mutex
	now         func() time.Time
	maxAttempts int
	nextID      int64
	items       []*memoryItem
}

var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue returns an empty in-memory queue
func NewMemoryQueue(opts ...Option) *MemoryQueue {
	o := applyOptions(opts)
	return &MemoryQueue{now: o.now, maxAttempts: o.maxAttempts}
}

// Enqueue implements Queue
func (q *MemoryQueue) Enqueue(_ context.Context, items []Item) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for _, it := range items {
		q.nextID++
		q.items = append(q.items, &memoryItem{
			id:         q.nextID,
			kind:       it.Kind,
			sourceURL:  it.SourceURL,
			metadata:   maps.Clone(it.Metadata),
			enqueuedAt: now,
			visibleAt:  now,
		})
	}
	return len(items), nil
}

// Lease implements Queue
func (q *MemoryQueue) Lease(_ context.Context, req LeaseRequest) ([]Leased, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var out []Leased
	for _, it := range q.items {
		if it.deadLetteredAt != nil || it.visibleAt.After(now) {
			continue
		}
		if it.attempts >= q.maxAttempts {
			deadAt := now
			it.deadLetteredAt = &deadAt
			it.leaseID = uuid.Nil
			continue
		}
		if len(out) >= req.BatchSize || !matchesKinds(it.kind, req.Kinds) {
			continue
		}

		it.leaseID = uuid.New()
		it.attempts++
		it.visibleAt = now.Add(req.VisibilityTimeout)
		out = append(out, Leased{
			ID:           it.id,
			LeaseID:      it.leaseID,
			Kind:         it.kind,
			SourceURL:    it.sourceURL,
			Metadata:     maps.Clone(it.metadata),
			Attempts:     it.attempts,
			EnqueuedAt:   it.enqueuedAt,
			VisibleAfter: it.visibleAt,
		})
	}
	return out, nil
}

// Ack implements Queue
func (q *MemoryQueue) Ack(_ context.Context, leaseID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOfLease(leaseID)
	if i < 0 {
		return ErrLeaseNotFound
	}
	q.items = slices.Delete(q.items, i, i+1)
	return nil
}

// Release implements Queue
func (q *MemoryQueue) Release(_ context.Context, leaseID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOfLease(leaseID)
	if i < 0 {
		return ErrLeaseNotFound
	}
	it := q.items[i]
	it.leaseID = uuid.Nil
	it.visibleAt = q.now()
	it.attempts = max(it.attempts-1, 0)
	return nil
}

// Fail implements Queue
func (q *MemoryQueue) Fail(_ context.Context, leaseID uuid.UUID, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOfLease(leaseID)
	if i < 0 {
		return ErrLeaseNotFound
	}
	q.items[i].lastError = reason
	return nil
}

// Depth implements Queue
func (q *MemoryQueue) Depth(_ context.Context) ([]Depth, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	byKind := make(map[catalog.Kind]*Depth)
	for _, it := range q.items {
		d, ok := byKind[it.kind]
		if !ok {
			d = &Depth{Kind: it.kind}
			byKind[it.kind] = d
		}
		switch {
		case it.deadLetteredAt != nil:
			d.DeadLettered++
		case it.visibleAt.After(now):
			d.Leased++
		default:
			d.Visible++
		}
	}

	out := make([]Depth, 0, len(byKind))
	for _, d := range byKind {
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b Depth) int {
		return cmp.Compare(a.Kind, b.Kind)
	})
	return out, nil
}

// Pending implements Queue
func (q *MemoryQueue) Pending(_ context.Context, kinds []catalog.Kind) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var n int64
	for _, it := range q.items {
		if it.deadLetteredAt == nil && matchesKinds(it.kind, kinds) {
			n++
		}
	}
	return n, nil
}

// DeadLetters implements Queue
func (q *MemoryQueue) DeadLetters(_ context.Context, limit int) ([]DeadLetter, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []DeadLetter
	for _, it := range q.items {
		if it.deadLetteredAt == nil {
			continue
		}
		out = append(out, DeadLetter{
			ID:             it.id,
			Kind:           it.kind,
			SourceURL:      it.sourceURL,
			Attempts:       it.attempts,
			LastError:      it.lastError,
			EnqueuedAt:     it.enqueuedAt,
			DeadLetteredAt: *it.deadLetteredAt,
		})
	}
	slices.SortStableFunc(out, func(a, b DeadLetter) int {
		return b.DeadLetteredAt.Compare(a.DeadLetteredAt)
	})
	if len(out) > limit {
		out = out[:max(limit, 0)]
	}
	return out, nil
}

// RequeueDeadLetters implements Queue
func (q *MemoryQueue) RequeueDeadLetters(_ context.Context, kinds []catalog.Kind) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var n int64
	for _, it := range q.items {
		if it.deadLetteredAt == nil || !matchesKinds(it.kind, kinds) {
			continue
		}
		it.deadLetteredAt = nil
		it.attempts = 0
		it.visibleAt = now
		it.leaseID = uuid.Nil
		n++
	}
	return n, nil
}

func (q *MemoryQueue) indexOfLease(leaseID uuid.UUID) int {
	if leaseID == uuid.Nil {
		return -1
	}
	return slices.IndexFunc(q.items, func(it *memoryItem) bool {
		return it.leaseID == leaseID
	})
}

func matchesKinds(kind catalog.Kind, kinds []catalog.Kind) bool {
	return len(kinds) == 0 || slices.Contains(kinds, kind)
}
