package state

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStateService struct {
	mu   sync.Mutex
	now  func() time.Time
	jobs map[uuid.UUID]*SyncJob
}

var _ Service = (*memoryStateService)(nil)

// MemoryOption configures the in-memory ledger
type MemoryOption func(*memoryStateService)

// WithClock replaces the wall clock used for timestamps
func WithClock(now func() time.Time) MemoryOption {
	return func(m *memoryStateService) {
		m.now = now
	}
}

// NewMemoryStateService creates a ledger kept in process memory
func NewMemoryStateService(opts ...MemoryOption) Service {
	m := &memoryStateService{now: time.Now, jobs: make(map[uuid.UUID]*SyncJob)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *memoryStateService) Create(_ context.Context, mode Mode, scope []string) (SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	job := &SyncJob{
		ID:          uuid.New(),
		Mode:        mode,
		Status:      StatusRunning,
		Scope:       append([]string{}, scope...),
		Errors:      []ErrorEntry{},
		StartedAt:   now,
		HeartbeatAt: now,
	}
	m.jobs[job.ID] = job
	return copyJob(job), nil
}

func (m *memoryStateService) RecordSuccess(_ context.Context, id uuid.UUID, n int64) error {
	return m.mutate(id, func(job *SyncJob) {
		job.Succeeded += n
	})
}

func (m *memoryStateService) RecordFailure(_ context.Context, id uuid.UUID, entry ErrorEntry) error {
	entry.Message = truncate(entry.Message, MaxErrorMessageBytes)
	return m.mutate(id, func(job *SyncJob) {
		job.Failed++
		if len(job.Errors) < MaxErrorEntries {
			job.Errors = append(job.Errors, entry)
		}
	})
}

func (m *memoryStateService) AddRemaining(_ context.Context, id uuid.UUID, delta int64) error {
	return m.mutate(id, func(job *SyncJob) {
		job.Remaining = max(job.Remaining+delta, 0)
	})
}

func (m *memoryStateService) SetRemaining(_ context.Context, id uuid.UUID, n int64) error {
	return m.mutate(id, func(job *SyncJob) {
		job.Remaining = max(n, 0)
	})
}

func (m *memoryStateService) Finish(_ context.Context, id uuid.UUID, status Status, message string) (SyncJob, error) {
	if err := validateFinish(status); err != nil {
		return SyncJob{}, err
	}

	var out SyncJob
	err := m.mutate(id, func(job *SyncJob) {
		now := m.now()
		job.Status = status
		job.Message = message
		job.CompletedAt = &now
		out = copyJob(job)
	})
	return out, err
}

func (m *memoryStateService) Get(_ context.Context, id uuid.UUID) (SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return SyncJob{}, ErrJobNotFound
	}
	return copyJob(job), nil
}

func (m *memoryStateService) List(_ context.Context, filter ListFilter) ([]SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SyncJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		if filter.Mode != "" && job.Mode != filter.Mode {
			continue
		}
		out = append(out, copyJob(job))
	}
	slices.SortFunc(out, func(a, b SyncJob) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	if limit := listLimit(filter); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStateService) FailStale(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-olderThan)
	n := 0
	for _, job := range m.jobs {
		if job.Status != StatusRunning || !job.HeartbeatAt.Before(cutoff) {
			continue
		}
		job.Status = StatusFailed
		job.Message = staleMessage
		job.CompletedAt = &now
		n++
	}
	return n, nil
}

func (m *memoryStateService) mutate(id uuid.UUID, fn func(job *SyncJob)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return ErrJobFinalized
	}
	fn(job)
	job.HeartbeatAt = m.now()
	return nil
}

func copyJob(job *SyncJob) SyncJob {
	out := *job
	out.Scope = slices.Clone(job.Scope)
	out.Errors = slices.Clone(job.Errors)
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
