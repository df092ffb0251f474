package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/db/pgtypes"
	"github.com/pokemnky/catalog-sync/internal/db/sqlc"
	"github.com/pokemnky/catalog-sync/internal/otel"
)

// DBQueue is a Queue stored in the work_queue table
type DBQueue struct {
	pool        *pgxpool.Pool
	name        string
	maxAttempts int
	tracer      trace.Tracer
}

var _ Queue = (*DBQueue)(nil)

// NewDBQueue returns the named queue backed by PostgreSQL
func NewDBQueue(pool *pgxpool.Pool, name string, opts ...Option) (*DBQueue, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if name == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	o := applyOptions(opts)
	return &DBQueue{pool: pool, name: name, maxAttempts: o.maxAttempts, tracer: o.tracer}, nil
}

// Enqueue implements Queue
func (q *DBQueue) Enqueue(ctx context.Context, items []Item) (int, error) {
	ctx, span := q.startSpan(ctx, "queue.Enqueue")
	defer span.End()

	if len(items) == 0 {
		return 0, nil
	}

	params := make([]sqlc.EnqueueItemsParams, 0, len(items))
	for _, it := range items {
		meta, err := encodeMetadata(it.Metadata)
		if err != nil {
			return 0, err
		}
		params = append(params, sqlc.EnqueueItemsParams{
			QueueName: q.name,
			Kind:      string(it.Kind),
			SourceURL: it.SourceURL,
			Metadata:  meta,
		})
	}

	n, err := sqlc.New(q.pool).EnqueueItems(ctx, params)
	if err != nil {
		otel.RecordError(span, err)
		return 0, fmt.Errorf("failed to enqueue items: %w", err)
	}
	span.SetAttributes(otel.AttrResultCount.Int64(n))
	return int(n), nil
}

// Lease implements Queue. Dead-lettering and leasing run in one transaction.
func (q *DBQueue) Lease(ctx context.Context, req LeaseRequest) ([]Leased, error) {
	ctx, span := q.startSpan(ctx, "queue.Lease", trace.WithAttributes(otel.AttrBatchSize.Int(req.BatchSize)))
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	tx, err := q.pool.Begin(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to begin lease transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Error("Failed to roll back lease transaction", "queue", q.name, "error", rbErr)
		}
	}()

	queries := sqlc.New(q.pool).WithTx(tx)

	moved, err := queries.DeadLetterExhausted(ctx, sqlc.DeadLetterExhaustedParams{
		QueueName:   q.name,
		MaxAttempts: int32(q.maxAttempts), //nolint:gosec // small positive value
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to dead-letter exhausted items: %w", err)
	}
	if moved > 0 {
		slog.Warn("Dead-lettered exhausted queue items", "queue", q.name, "count", moved, "max_attempts", q.maxAttempts)
	}

	rows, err := queries.LeaseItems(ctx, sqlc.LeaseItemsParams{
		QueueName:  q.name,
		Kinds:      catalog.Strings(req.Kinds),
		BatchSize:  int32(min(req.BatchSize, 1<<20)), //nolint:gosec // bounded above
		Visibility: pgtypes.NewInterval(req.VisibilityTimeout),
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to lease items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to commit lease: %w", err)
	}

	out := make([]Leased, 0, len(rows))
	for _, row := range rows {
		l := Leased{
			ID:           row.ID,
			Kind:         catalog.Kind(row.Kind),
			SourceURL:    row.SourceURL,
			Attempts:     int(row.Attempts),
			EnqueuedAt:   row.EnqueuedAt,
			VisibleAfter: row.VisibleAt,
		}
		if row.LeaseID != nil {
			l.LeaseID = *row.LeaseID
		}
		l.Metadata, err = decodeMetadata(row.Metadata)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(out)))
	return out, nil
}

// Ack implements Queue
func (q *DBQueue) Ack(ctx context.Context, leaseID uuid.UUID) error {
	ctx, span := q.startSpan(ctx, "queue.Ack")
	defer span.End()

	n, err := sqlc.New(q.pool).AckItem(ctx, &leaseID)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to ack lease %s: %w", leaseID, err)
	}
	if n == 0 {
		return ErrLeaseNotFound
	}
	return nil
}

// Release implements Queue
func (q *DBQueue) Release(ctx context.Context, leaseID uuid.UUID) error {
	ctx, span := q.startSpan(ctx, "queue.Release")
	defer span.End()

	n, err := sqlc.New(q.pool).ReleaseItem(ctx, &leaseID)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to release lease %s: %w", leaseID, err)
	}
	if n == 0 {
		return ErrLeaseNotFound
	}
	return nil
}

// Fail implements Queue
func (q *DBQueue) Fail(ctx context.Context, leaseID uuid.UUID, reason string) error {
	ctx, span := q.startSpan(ctx, "queue.Fail")
	defer span.End()

	n, err := sqlc.New(q.pool).RecordItemError(ctx, sqlc.RecordItemErrorParams{LastError: &reason, LeaseID: &leaseID})
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to record error for lease %s: %w", leaseID, err)
	}
	if n == 0 {
		return ErrLeaseNotFound
	}
	return nil
}

// Depth implements Queue
func (q *DBQueue) Depth(ctx context.Context) ([]Depth, error) {
	ctx, span := q.startSpan(ctx, "queue.Depth")
	defer span.End()

	rows, err := sqlc.New(q.pool).QueueDepthByKind(ctx, q.name)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to read queue depth: %w", err)
	}

	out := make([]Depth, 0, len(rows))
	for _, row := range rows {
		out = append(out, Depth{
			Kind:         catalog.Kind(row.Kind),
			Visible:      row.Visible,
			Leased:       row.Leased,
			DeadLettered: row.DeadLettered,
		})
	}
	return out, nil
}

// Pending implements Queue
func (q *DBQueue) Pending(ctx context.Context, kinds []catalog.Kind) (int64, error) {
	ctx, span := q.startSpan(ctx, "queue.Pending")
	defer span.End()

	n, err := sqlc.New(q.pool).CountPending(ctx, sqlc.CountPendingParams{
		QueueName: q.name,
		Kinds:     catalog.Strings(kinds),
	})
	if err != nil {
		otel.RecordError(span, err)
		return 0, fmt.Errorf("failed to count pending items: %w", err)
	}
	return n, nil
}

// DeadLetters implements Queue
func (q *DBQueue) DeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	ctx, span := q.startSpan(ctx, "queue.DeadLetters")
	defer span.End()

	if limit <= 0 {
		return nil, nil
	}

	rows, err := sqlc.New(q.pool).ListDeadLetters(ctx, sqlc.ListDeadLettersParams{
		QueueName: q.name,
		MaxRows:   int32(min(limit, 1<<20)), //nolint:gosec // bounded above
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}

	out := make([]DeadLetter, 0, len(rows))
	for _, row := range rows {
		d := DeadLetter{
			ID:         row.ID,
			Kind:       catalog.Kind(row.Kind),
			SourceURL:  row.SourceURL,
			Attempts:   int(row.Attempts),
			EnqueuedAt: row.EnqueuedAt,
		}
		if row.LastError != nil {
			d.LastError = *row.LastError
		}
		if row.DeadLetteredAt != nil {
			d.DeadLetteredAt = *row.DeadLetteredAt
		}
		out = append(out, d)
	}
	return out, nil
}

// RequeueDeadLetters implements Queue
func (q *DBQueue) RequeueDeadLetters(ctx context.Context, kinds []catalog.Kind) (int64, error) {
	ctx, span := q.startSpan(ctx, "queue.RequeueDeadLetters")
	defer span.End()

	n, err := sqlc.New(q.pool).RequeueDeadLetters(ctx, sqlc.RequeueDeadLettersParams{
		QueueName: q.name,
		Kinds:     catalog.Strings(kinds),
	})
	if err != nil {
		otel.RecordError(span, err)
		return 0, fmt.Errorf("failed to requeue dead letters: %w", err)
	}
	return n, nil
}

func (q *DBQueue) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append(opts, trace.WithAttributes(otel.AttrQueueName.String(q.name)))
	return otel.StartDBSpan(ctx, q.tracer, name, opts...)
}

func encodeMetadata(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item metadata: %w", err)
	}
	return b, nil
}

func decodeMetadata(b []byte) (map[string]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to decode item metadata: %w", err)
	}
	return m, nil
}
