package sqlc

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pokemnky/catalog-sync/internal/db/pgtypes"
)

const ackItem = `-- name: AckItem :execrows
DELETE FROM work_queue
WHERE lease_id = $1
`

func (q *Queries) AckItem(ctx context.Context, leaseID *uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, ackItem, leaseID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const countPending = `-- name: CountPending :one
SELECT COUNT(*)::bigint
FROM work_queue
WHERE queue_name = $1
  AND dead_lettered_at IS NULL
  AND (cardinality($2::text[]) = 0 OR kind = ANY($2::text[]))
`

type CountPendingParams struct {
	QueueName string
	Kinds     []string
}

func (q *Queries) CountPending(ctx context.Context, arg CountPendingParams) (int64, error) {
	row := q.db.QueryRow(ctx, countPending, arg.QueueName, arg.Kinds)
	var column_1 int64
	err := row.Scan(&column_1)
	return column_1, err
}

const deadLetterExhausted = `-- name: DeadLetterExhausted :execrows
UPDATE work_queue
SET dead_lettered_at = now(),
    lease_id = NULL
WHERE queue_name = $1
  AND dead_lettered_at IS NULL
  AND visible_at <= now()
  AND attempts >= $2::integer
`

type DeadLetterExhaustedParams struct {
	QueueName   string
	MaxAttempts int32
}

func (q *Queries) DeadLetterExhausted(ctx context.Context, arg DeadLetterExhaustedParams) (int64, error) {
	result, err := q.db.Exec(ctx, deadLetterExhausted, arg.QueueName, arg.MaxAttempts)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

type EnqueueItemsParams struct {
	QueueName string
	Kind      string
	SourceURL string
	Metadata  []byte
}

const leaseItems = `-- name: LeaseItems :many
WITH next AS (
    SELECT id
    FROM work_queue
    WHERE queue_name = $1
      AND dead_lettered_at IS NULL
      AND visible_at <= now()
      AND (cardinality($2::text[]) = 0 OR kind = ANY($2::text[]))
    ORDER BY id
    LIMIT $3
    FOR UPDATE SKIP LOCKED
)
UPDATE work_queue q
SET lease_id   = gen_random_uuid(),
    leased_at  = now(),
    visible_at = now() + $4::interval,
    attempts   = q.attempts + 1
FROM next
WHERE q.id = next.id
RETURNING q.id, q.queue_name, q.kind, q.source_url, q.metadata, q.lease_id, q.attempts, q.enqueued_at, q.visible_at
`

type LeaseItemsParams struct {
	QueueName  string
	Kinds      []string
	BatchSize  int32
	Visibility pgtypes.Interval
}

type LeaseItemsRow struct {
	ID         int64
	QueueName  string
	Kind       string
	SourceURL  string
	Metadata   []byte
	LeaseID    *uuid.UUID
	Attempts   int32
	EnqueuedAt time.Time
	VisibleAt  time.Time
}

func (q *Queries) LeaseItems(ctx context.Context, arg LeaseItemsParams) ([]LeaseItemsRow, error) {
	rows, err := q.db.Query(ctx, leaseItems,
		arg.QueueName,
		arg.Kinds,
		arg.BatchSize,
		arg.Visibility,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LeaseItemsRow
	for rows.Next() {
		var i LeaseItemsRow
		if err := rows.Scan(
			&i.ID,
			&i.QueueName,
			&i.Kind,
			&i.SourceURL,
			&i.Metadata,
			&i.LeaseID,
			&i.Attempts,
			&i.EnqueuedAt,
			&i.VisibleAt,
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

const listDeadLetters = `-- name: ListDeadLetters :many
SELECT id, queue_name, kind, source_url, metadata, attempts, enqueued_at, dead_lettered_at, last_error
FROM work_queue
WHERE queue_name = $1
  AND dead_lettered_at IS NOT NULL
ORDER BY dead_lettered_at DESC, id
LIMIT $2
`

type ListDeadLettersParams struct {
	QueueName string
	MaxRows   int32
}

type ListDeadLettersRow struct {
	ID             int64
	QueueName      string
	Kind           string
	SourceURL      string
	Metadata       []byte
	Attempts       int32
	EnqueuedAt     time.Time
	DeadLetteredAt *time.Time
	LastError      *string
}

func (q *Queries) ListDeadLetters(ctx context.Context, arg ListDeadLettersParams) ([]ListDeadLettersRow, error) {
	rows, err := q.db.Query(ctx, listDeadLetters, arg.QueueName, arg.MaxRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListDeadLettersRow
	for rows.Next() {
		var i ListDeadLettersRow
		if err := rows.Scan(
			&i.ID,
			&i.QueueName,
			&i.Kind,
			&i.SourceURL,
			&i.Metadata,
			&i.Attempts,
			&i.EnqueuedAt,
			&i.DeadLetteredAt,
			&i.LastError,
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

const queueDepthByKind = `-- name: QueueDepthByKind :many
SELECT kind,
       COUNT(*) FILTER (WHERE dead_lettered_at IS NULL AND visible_at <= now())::bigint AS visible,
       COUNT(*) FILTER (WHERE dead_lettered_at IS NULL AND visible_at > now())::bigint  AS leased,
       COUNT(*) FILTER (WHERE dead_lettered_at IS NOT NULL)::bigint                     AS dead_lettered
FROM work_queue
WHERE queue_name = $1
GROUP BY kind
ORDER BY kind
`

type QueueDepthByKindRow struct {
	Kind         string
	Visible      int64
	Leased       int64
	DeadLettered int64
}

func (q *Queries) QueueDepthByKind(ctx context.Context, queueName string) ([]QueueDepthByKindRow, error) {
	rows, err := q.db.Query(ctx, queueDepthByKind, queueName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []QueueDepthByKindRow
	for rows.Next() {
		var i QueueDepthByKindRow
		if err := rows.Scan(
			&i.Kind,
			&i.Visible,
			&i.Leased,
			&i.DeadLettered,
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

const recordItemError = `-- name: RecordItemError :execrows
UPDATE work_queue
SET last_error = $1
WHERE lease_id = $2
`

type RecordItemErrorParams struct {
	LastError *string
	LeaseID   *uuid.UUID
}

func (q *Queries) RecordItemError(ctx context.Context, arg RecordItemErrorParams) (int64, error) {
	result, err := q.db.Exec(ctx, recordItemError, arg.LastError, arg.LeaseID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const releaseItem = `-- name: ReleaseItem :execrows
UPDATE work_queue
SET visible_at = now(),
    lease_id   = NULL,
    leased_at  = NULL,
    attempts   = GREATEST(attempts - 1, 0)
WHERE lease_id = $1
`

func (q *Queries) ReleaseItem(ctx context.Context, leaseID *uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, releaseItem, leaseID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const requeueDeadLetters = `-- name: RequeueDeadLetters :execrows
UPDATE work_queue
SET dead_lettered_at = NULL,
    attempts         = 0,
    visible_at       = now(),
    lease_id         = NULL,
    leased_at        = NULL
WHERE queue_name = $1
  AND dead_lettered_at IS NOT NULL
  AND (cardinality($2::text[]) = 0 OR kind = ANY($2::text[]))
`

type RequeueDeadLettersParams struct {
	QueueName string
	Kinds     []string
}

func (q *Queries) RequeueDeadLetters(ctx context.Context, arg RequeueDeadLettersParams) (int64, error) {
	result, err := q.db.Exec(ctx, requeueDeadLetters, arg.QueueName, arg.Kinds)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
