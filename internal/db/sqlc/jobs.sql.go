package sqlc

import (
	"context"

	"github.com/google/uuid"

	"github.com/pokemnky/catalog-sync/internal/db/pgtypes"
)

const addJobRemaining = `-- name: AddJobRemaining :execrows
UPDATE sync_job
SET remaining_count = GREATEST(remaining_count + $1::bigint, 0),
    heartbeat_at    = now()
WHERE id = $2 AND status = 'running'
`

type AddJobRemainingParams struct {
	Delta int64
	ID    uuid.UUID
}

func (q *Queries) AddJobRemaining(ctx context.Context, arg AddJobRemainingParams) (int64, error) {
	result, err := q.db.Exec(ctx, addJobRemaining, arg.Delta, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const appendJobFailure = `-- name: AppendJobFailure :execrows
UPDATE sync_job
SET failed_count = failed_count + 1,
    error_log    = CASE
        WHEN jsonb_array_length(error_log) < $1::integer
            THEN error_log || jsonb_build_array($2::jsonb)
        ELSE error_log
    END,
    heartbeat_at = now()
WHERE id = $3 AND status = 'running'
`

type AppendJobFailureParams struct {
	MaxEntries int32
	Entry      []byte
	ID         uuid.UUID
}

func (q *Queries) AppendJobFailure(ctx context.Context, arg AppendJobFailureParams) (int64, error) {
	result, err := q.db.Exec(ctx, appendJobFailure, arg.MaxEntries, arg.Entry, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const failStaleSyncJobs = `-- name: FailStaleSyncJobs :execrows
UPDATE sync_job
SET status       = 'failed',
    message      = $1,
    completed_at = now()
WHERE status = 'running'
  AND heartbeat_at < now() - $2::interval
`

type FailStaleSyncJobsParams struct {
	Message    *string
	StaleAfter pgtypes.Interval
}

func (q *Queries) FailStaleSyncJobs(ctx context.Context, arg FailStaleSyncJobsParams) (int64, error) {
	result, err := q.db.Exec(ctx, failStaleSyncJobs, arg.Message, arg.StaleAfter)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const finishSyncJob = `-- name: FinishSyncJob :one
UPDATE sync_job
SET status       = $1,
    message      = $2,
    completed_at = now(),
    heartbeat_at = now()
WHERE id = $3 AND status = 'running'
RETURNING id, mode, status, scope, succeeded_count, failed_count, remaining_count,
          error_log, message, started_at, heartbeat_at, completed_at
`

type FinishSyncJobParams struct {
	Status  string
	Message *string
	ID      uuid.UUID
}

func (q *Queries) FinishSyncJob(ctx context.Context, arg FinishSyncJobParams) (SyncJob, error) {
	row := q.db.QueryRow(ctx, finishSyncJob, arg.Status, arg.Message, arg.ID)
	var i SyncJob
	err := row.Scan(
		&i.ID,
		&i.Mode,
		&i.Status,
		&i.Scope,
		&i.SucceededCount,
		&i.FailedCount,
		&i.RemainingCount,
		&i.ErrorLog,
		&i.Message,
		&i.StartedAt,
		&i.HeartbeatAt,
		&i.CompletedAt,
	)
	return i, err
}

const getSyncJob = `-- name: GetSyncJob :one
SELECT id, mode, status, scope, succeeded_count, failed_count, remaining_count,
       error_log, message, started_at, heartbeat_at, completed_at
FROM sync_job
WHERE id = $1
`

func (q *Queries) GetSyncJob(ctx context.Context, id uuid.UUID) (SyncJob, error) {
	row := q.db.QueryRow(ctx, getSyncJob, id)
	var i SyncJob
	err := row.Scan(
		&i.ID,
		&i.Mode,
		&i.Status,
		&i.Scope,
		&i.SucceededCount,
		&i.FailedCount,
		&i.RemainingCount,
		&i.ErrorLog,
		&i.Message,
		&i.StartedAt,
		&i.HeartbeatAt,
		&i.CompletedAt,
	)
	return i, err
}

const incrementJobSucceeded = `-- name: IncrementJobSucceeded :execrows
UPDATE sync_job
SET succeeded_count = succeeded_count + $1::bigint,
    heartbeat_at    = now()
WHERE id = $2 AND status = 'running'
`

type IncrementJobSucceededParams struct {
	Delta int64
	ID    uuid.UUID
}

func (q *Queries) IncrementJobSucceeded(ctx context.Context, arg IncrementJobSucceededParams) (int64, error) {
	result, err := q.db.Exec(ctx, incrementJobSucceeded, arg.Delta, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const insertSyncJob = `-- name: InsertSyncJob :one
INSERT INTO sync_job (mode, scope)
VALUES ($1, $2::text[])
RETURNING id, mode, status, scope, succeeded_count, failed_count, remaining_count,
          error_log, message, started_at, heartbeat_at, completed_at
`

type InsertSyncJobParams struct {
	Mode  string
	Scope []string
}

func (q *Queries) InsertSyncJob(ctx context.Context, arg InsertSyncJobParams) (SyncJob, error) {
	row := q.db.QueryRow(ctx, insertSyncJob, arg.Mode, arg.Scope)
	var i SyncJob
	err := row.Scan(
		&i.ID,
		&i.Mode,
		&i.Status,
		&i.Scope,
		&i.SucceededCount,
		&i.FailedCount,
		&i.RemainingCount,
		&i.ErrorLog,
		&i.Message,
		&i.StartedAt,
		&i.HeartbeatAt,
		&i.CompletedAt,
	)
	return i, err
}

const listSyncJobs = `-- name: ListSyncJobs :many
SELECT id, mode, status, scope, succeeded_count, failed_count, remaining_count,
       error_log, message, started_at, heartbeat_at, completed_at
FROM sync_job
WHERE $1::text IS NULL OR mode = $1::text
ORDER BY started_at DESC, id
LIMIT $2
`

type ListSyncJobsParams struct {
	Mode    *string
	MaxRows int32
}

func (q *Queries) ListSyncJobs(ctx context.Context, arg ListSyncJobsParams) ([]SyncJob, error) {
	rows, err := q.db.Query(ctx, listSyncJobs, arg.Mode, arg.MaxRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SyncJob
	for rows.Next() {
		var i SyncJob
		if err := rows.Scan(
			&i.ID,
			&i.Mode,
			&i.Status,
			&i.Scope,
			&i.SucceededCount,
			&i.FailedCount,
			&i.RemainingCount,
			&i.ErrorLog,
			&i.Message,
			&i.StartedAt,
			&i.HeartbeatAt,
			&i.CompletedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setJobRemaining = `-- name: SetJobRemaining :execrows
UPDATE sync_job
SET remaining_count = $1::bigint,
    heartbeat_at    = now()
WHERE id = $2 AND status = 'running'
`

type SetJobRemainingParams struct {
	Remaining int64
	ID        uuid.UUID
}

func (q *Queries) SetJobRemaining(ctx context.Context, arg SetJobRemainingParams) (int64, error) {
	result, err := q.db.Exec(ctx, setJobRemaining, arg.Remaining, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
