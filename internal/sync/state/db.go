package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pokemnky/catalog-sync/internal/db/pgtypes"
	"github.com/pokemnky/catalog-sync/internal/db/sqlc"
)

type dbStateService struct {
	pool *pgxpool.Pool
}

var _ Service = (*dbStateService)(nil)

// NewDBStateService creates a new database-backed job ledger
func NewDBStateService(pool *pgxpool.Pool) Service {
	return &dbStateService{pool: pool}
}

func (d *dbStateService) Create(ctx context.Context, mode Mode, scope []string) (SyncJob, error) {
	if scope == nil {
		scope = []string{}
	}
	row, err := sqlc.New(d.pool).InsertSyncJob(ctx, sqlc.InsertSyncJobParams{Mode: string(mode), Scope: scope})
	if err != nil {
		return SyncJob{}, fmt.Errorf("failed to create %s job: %w", mode, err)
	}
	return fromRow(row)
}

func (d *dbStateService) RecordSuccess(ctx context.Context, id uuid.UUID, n int64) error {
	rows, err := sqlc.New(d.pool).IncrementJobSucceeded(ctx, sqlc.IncrementJobSucceededParams{Delta: n, ID: id})
	if err != nil {
		return fmt.Errorf("failed to record success on job %s: %w", id, err)
	}
	return d.checkAffected(ctx, id, rows)
}

func (d *dbStateService) RecordFailure(ctx context.Context, id uuid.UUID, entry ErrorEntry) error {
	entry.Message = truncate(entry.Message, MaxErrorMessageBytes)
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode error entry: %w", err)
	}

	rows, err := sqlc.New(d.pool).AppendJobFailure(ctx, sqlc.AppendJobFailureParams{
		MaxEntries: MaxErrorEntries,
		Entry:      raw,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("failed to record failure on job %s: %w", id, err)
	}
	return d.checkAffected(ctx, id, rows)
}

func (d *dbStateService) AddRemaining(ctx context.Context, id uuid.UUID, delta int64) error {
	rows, err := sqlc.New(d.pool).AddJobRemaining(ctx, sqlc.AddJobRemainingParams{Delta: delta, ID: id})
	if err != nil {
		return fmt.Errorf("failed to adjust remaining on job %s: %w", id, err)
	}
	return d.checkAffected(ctx, id, rows)
}

func (d *dbStateService) SetRemaining(ctx context.Context, id uuid.UUID, n int64) error {
	rows, err := sqlc.New(d.pool).SetJobRemaining(ctx, sqlc.SetJobRemainingParams{Remaining: max(n, 0), ID: id})
	if err != nil {
		return fmt.Errorf("failed to set remaining on job %s: %w", id, err)
	}
	return d.checkAffected(ctx, id, rows)
}

func (d *dbStateService) Finish(ctx context.Context, id uuid.UUID, status Status, message string) (SyncJob, error) {
	if err := validateFinish(status); err != nil {
		return SyncJob{}, err
	}

	var msg *string
	if message != "" {
		msg = &message
	}

	row, err := sqlc.New(d.pool).FinishSyncJob(ctx, sqlc.FinishSyncJobParams{Status: string(status), Message: msg, ID: id})
	if errors.Is(err, pgx.ErrNoRows) {
		return SyncJob{}, d.checkAffected(ctx, id, 0)
	}
	if err != nil {
		return SyncJob{}, fmt.Errorf("failed to finish job %s: %w", id, err)
	}
	return fromRow(row)
}

func (d *dbStateService) Get(ctx context.Context, id uuid.UUID) (SyncJob, error) {
	row, err := sqlc.New(d.pool).GetSyncJob(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return SyncJob{}, ErrJobNotFound
	}
	if err != nil {
		return SyncJob{}, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return fromRow(row)
}

func (d *dbStateService) List(ctx context.Context, filter ListFilter) ([]SyncJob, error) {
	params := sqlc.ListSyncJobsParams{MaxRows: int32(min(listLimit(filter), 1000))} //nolint:gosec // bounded above
	if filter.Mode != "" {
		mode := string(filter.Mode)
		params.Mode = &mode
	}

	rows, err := sqlc.New(d.pool).ListSyncJobs(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	out := make([]SyncJob, 0, len(rows))
	for _, row := range rows {
		job, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

func (d *dbStateService) FailStale(ctx context.Context, olderThan time.Duration) (int, error) {
	msg := staleMessage
	n, err := sqlc.New(d.pool).FailStaleSyncJobs(ctx, sqlc.FailStaleSyncJobsParams{
		Message:    &msg,
		StaleAfter: pgtypes.NewInterval(olderThan),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale jobs: %w", err)
	}
	return int(n), nil
}

// checkAffected maps a guarded update that touched no row to the reason it was skipped
func (d *dbStateService) checkAffected(ctx context.Context, id uuid.UUID, rows int64) error {
	if rows > 0 {
		return nil
	}
	job, err := d.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return ErrJobFinalized
	}
	return fmt.Errorf("job %s was not updated", id)
}

func fromRow(row sqlc.SyncJob) (SyncJob, error) {
	job := SyncJob{
		ID:          row.ID,
		Mode:        Mode(row.Mode),
		Status:      Status(row.Status),
		Scope:       row.Scope,
		Succeeded:   row.SucceededCount,
		Failed:      row.FailedCount,
		Remaining:   row.RemainingCount,
		StartedAt:   row.StartedAt,
		HeartbeatAt: row.HeartbeatAt,
		CompletedAt: row.CompletedAt,
		Errors:      []ErrorEntry{},
	}
	if row.Message != nil {
		job.Message = *row.Message
	}
	if len(row.ErrorLog) > 0 {
		if err := json.Unmarshal(row.ErrorLog, &job.Errors); err != nil {
			return SyncJob{}, fmt.Errorf("failed to decode error log of job %s: %w", row.ID, err)
		}
	}
	return job, nil
}
