package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/db/sqlc"
	"github.com/pokemnky/catalog-sync/internal/otel"
)

// TracerName is the name used for the cache tracer
const TracerName = "github.com/pokemnky/catalog-sync/cache"

type dbStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

var _ Store = (*dbStore)(nil)

// DBOption configures the database-backed store
type DBOption func(*dbStore)

// WithTracer enables tracing of cache queries
func WithTracer(tracer trace.Tracer) DBOption {
	return func(s *dbStore) {
		s.tracer = tracer
	}
}

// NewDBStore returns a Store backed by PostgreSQL
func NewDBStore(pool *pgxpool.Pool, opts ...DBOption) (Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	s := &dbStore{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *dbStore) Upsert(ctx context.Context, entry Entry) (Resource, error) {
	ctx, span := otel.StartDBSpan(ctx, s.tracer, "cache.Upsert",
		trace.WithAttributes(otel.AttrKind.String(string(entry.Kind)), otel.AttrResourceKey.String(entry.NaturalKey)))
	defer span.End()

	params := sqlc.UpsertResourceParams{
		Kind:       string(entry.Kind),
		NaturalKey: entry.NaturalKey,
		SourceURL:  entry.SourceURL,
		Payload:    entry.Payload,
		FetchedAt:  entry.FetchedAt,
		ExpiresAt:  entry.ExpiresAt,
	}
	if n, ok := catalog.NumericKey(entry.NaturalKey); ok {
		params.NumericKey = &n
	}
	if entry.DisplayName != "" {
		params.DisplayName = &entry.DisplayName
	}

	row, err := sqlc.New(s.pool).UpsertResource(ctx, params)
	if err != nil {
		otel.RecordError(span, err)
		return Resource{}, fmt.Errorf("failed to upsert %s/%s: %w", entry.Kind, entry.NaturalKey, err)
	}
	return fromRow(row), nil
}

func (s *dbStore) Get(ctx context.Context, kind catalog.Kind, key string) (Resource, error) {
	ctx, span := otel.StartDBSpan(ctx, s.tracer, "cache.Get",
		trace.WithAttributes(otel.AttrKind.String(string(kind)), otel.AttrResourceKey.String(key)))
	defer span.End()

	row, err := sqlc.New(s.pool).GetResource(ctx, sqlc.GetResourceParams{Kind: string(kind), NaturalKey: key})
	if errors.Is(err, pgx.ErrNoRows) {
		return Resource{}, ErrResourceNotFound
	}
	if err != nil {
		otel.RecordError(span, err)
		return Resource{}, fmt.Errorf("failed to get %s/%s: %w", kind, key, err)
	}
	return fromRow(row), nil
}

func (s *dbStore) MaxNumericKey(ctx context.Context, kind catalog.Kind) (int64, bool, error) {
	ctx, span := otel.StartDBSpan(ctx, s.tracer, "cache.MaxNumericKey",
		trace.WithAttributes(otel.AttrKind.String(string(kind))))
	defer span.End()

	row, err := sqlc.New(s.pool).GetMaxNumericKey(ctx, string(kind))
	if err != nil {
		otel.RecordError(span, err)
		return 0, false, fmt.Errorf("failed to read max key of %s: %w", kind, err)
	}
	return row.MaxKey, row.NumericCount > 0, nil
}

func (s *dbStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]Resource, error) {
	ctx, span := otel.StartDBSpan(ctx, s.tracer, "cache.ListExpired")
	defer span.End()

	if limit <= 0 {
		return nil, nil
	}

	rows, err := sqlc.New(s.pool).ListExpiredResources(ctx, sqlc.ListExpiredResourcesParams{
		Now:     now,
		MaxRows: int32(min(limit, 1<<30)), //nolint:gosec // bounded above
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list expired resources: %w", err)
	}

	out := make([]Resource, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(out)))
	return out, nil
}

func (s *dbStore) CountByKind(ctx context.Context) (map[catalog.Kind]int64, error) {
	ctx, span := otel.StartDBSpan(ctx, s.tracer, "cache.CountByKind")
	defer span.End()

	rows, err := sqlc.New(s.pool).CountResourcesByKind(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to count resources: %w", err)
	}

	out := make(map[catalog.Kind]int64, len(rows))
	for _, row := range rows {
		out[catalog.Kind(row.Kind)] = row.Synced
	}
	return out, nil
}

func (s *dbStore) RecordEstimate(ctx context.Context, kind catalog.Kind, total int64) error {
	ctx, span := otel.StartDBSpan(ctx, s.tracer, "cache.RecordEstimate",
		trace.WithAttributes(otel.AttrKind.String(string(kind))))
	defer span.End()

	err := sqlc.New(s.pool).UpsertKindEstimate(ctx, sqlc.UpsertKindEstimateParams{Kind: string(kind), Total: total})
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to record estimate for %s: %w", kind, err)
	}
	return nil
}

func (s *dbStore) Estimates(ctx context.Context) (map[catalog.Kind]int64, error) {
	ctx, span := otel.StartDBSpan(ctx, s.tracer, "cache.Estimates")
	defer span.End()

	rows, err := sqlc.New(s.pool).ListKindEstimates(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list estimates: %w", err)
	}

	out := make(map[catalog.Kind]int64, len(rows))
	for _, row := range rows {
		out[catalog.Kind(row.Kind)] = row.Total
	}
	return out, nil
}

func (s *dbStore) UpsertPokemon(ctx context.Context, p PokemonProjection) error {
	ctx, span := otel.StartDBSpan(ctx, s.tracer, "cache.UpsertPokemon")
	defer span.End()

	err := sqlc.New(s.pool).UpsertPokemonProjection(ctx, sqlc.UpsertPokemonProjectionParams{
		ID:             p.ID,
		Name:           p.Name,
		Height:         p.Height,
		Weight:         p.Weight,
		BaseExperience: p.BaseExperience,
		IsDefault:      p.IsDefault,
	})
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to project pokemon %d: %w", p.ID, err)
	}
	return nil
}

func (s *dbStore) UpsertType(ctx context.Context, p TypeProjection) error {
	ctx, span := otel.StartDBSpan(ctx, s.tracer, "cache.UpsertType")
	defer span.End()

	err := sqlc.New(s.pool).UpsertTypeProjection(ctx, sqlc.UpsertTypeProjectionParams{
		ID:            p.ID,
		Name:          p.Name,
		GenerationID:  p.GenerationID,
		DamageClassID: p.DamageClassID,
	})
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to project type %d: %w", p.ID, err)
	}
	return nil
}

func (s *dbStore) UpsertAbility(ctx context.Context, p AbilityProjection) error {
	ctx, span := otel.StartDBSpan(ctx, s.tracer, "cache.UpsertAbility")
	defer span.End()

	err := sqlc.New(s.pool).UpsertAbilityProjection(ctx, sqlc.UpsertAbilityProjectionParams{
		ID:           p.ID,
		Name:         p.Name,
		GenerationID: p.GenerationID,
		IsMainSeries: p.IsMainSeries,
	})
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to project ability %d: %w", p.ID, err)
	}
	return nil
}

func (s *dbStore) UpsertMove(ctx context.Context, p MoveProjection) error {
	ctx, span := otel.StartDBSpan(ctx, s.tracer, "cache.UpsertMove")
	defer span.End()

	err := sqlc.New(s.pool).UpsertMoveProjection(ctx, sqlc.UpsertMoveProjectionParams{
		ID:            p.ID,
		Name:          p.Name,
		TypeID:        p.TypeID,
		DamageClassID: p.DamageClassID,
		TargetID:      p.TargetID,
		GenerationID:  p.GenerationID,
		Power:         p.Power,
		Accuracy:      p.Accuracy,
		Pp:            p.PP,
		Priority:      p.Priority,
		EffectChance:  p.EffectChance,
	})
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to project move %d: %w", p.ID, err)
	}
	return nil
}

func fromRow(row sqlc.CatalogResource) Resource {
	r := Resource{
		Kind:       catalog.Kind(row.Kind),
		NaturalKey: row.NaturalKey,
		SourceURL:  row.SourceURL,
		Payload:    row.Payload,
		FetchedAt:  row.FetchedAt,
		UpdatedAt:  row.UpdatedAt,
		ExpiresAt:  row.ExpiresAt,
	}
	if row.DisplayName != nil {
		r.DisplayName = *row.DisplayName
	}
	return r
}
