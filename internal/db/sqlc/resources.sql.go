package sqlc

import (
	"context"
	"time"
)

const countResourcesByKind = `-- name: CountResourcesByKind :many
SELECT kind, COUNT(*)::bigint AS synced
FROM catalog_resource
GROUP BY kind
ORDER BY kind
`

type CountResourcesByKindRow struct {
	Kind   string
	Synced int64
}

func (q *Queries) CountResourcesByKind(ctx context.Context) ([]CountResourcesByKindRow, error) {
	rows, err := q.db.Query(ctx, countResourcesByKind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountResourcesByKindRow
	for rows.Next() {
		var i CountResourcesByKindRow
		if err := rows.Scan(&i.Kind, &i.Synced); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMaxNumericKey = `-- name: GetMaxNumericKey :one
SELECT COALESCE(MAX(numeric_key), 0)::bigint AS max_key,
       COUNT(numeric_key)::bigint AS numeric_count
FROM catalog_resource
WHERE kind = $1
`

type GetMaxNumericKeyRow struct {
	MaxKey       int64
	NumericCount int64
}

func (q *Queries) GetMaxNumericKey(ctx context.Context, kind string) (GetMaxNumericKeyRow, error) {
	row := q.db.QueryRow(ctx, getMaxNumericKey, kind)
	var i GetMaxNumericKeyRow
	err := row.Scan(&i.MaxKey, &i.NumericCount)
	return i, err
}

const getPokemonProjection = `-- name: GetPokemonProjection :one
SELECT id, name, height, weight, base_experience, is_default, updated_at
FROM pokemon_projection
WHERE id = $1
`

func (q *Queries) GetPokemonProjection(ctx context.Context, id int64) (PokemonProjection, error) {
	row := q.db.QueryRow(ctx, getPokemonProjection, id)
	var i PokemonProjection
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Height,
		&i.Weight,
		&i.BaseExperience,
		&i.IsDefault,
		&i.UpdatedAt,
	)
	return i, err
}

const getResource = `-- name: GetResource :one
SELECT kind, natural_key, numeric_key, display_name, source_url, payload, fetched_at, updated_at, expires_at
FROM catalog_resource
WHERE kind = $1 AND natural_key = $2
`

type GetResourceParams struct {
	Kind       string
	NaturalKey string
}

func (q *Queries) GetResource(ctx context.Context, arg GetResourceParams) (CatalogResource, error) {
	row := q.db.QueryRow(ctx, getResource, arg.Kind, arg.NaturalKey)
	var i CatalogResource
	err := row.Scan(
		&i.Kind,
		&i.NaturalKey,
		&i.NumericKey,
		&i.DisplayName,
		&i.SourceURL,
		&i.Payload,
		&i.FetchedAt,
		&i.UpdatedAt,
		&i.ExpiresAt,
	)
	return i, err
}

const listExpiredResources = `-- name: ListExpiredResources :many
SELECT kind, natural_key, numeric_key, display_name, source_url, payload, fetched_at, updated_at, expires_at
FROM catalog_resource
WHERE expires_at IS NOT NULL AND expires_at < $1::timestamptz
ORDER BY expires_at ASC
LIMIT $2
`

type ListExpiredResourcesParams struct {
	Now     time.Time
	MaxRows int32
}

func (q *Queries) ListExpiredResources(ctx context.Context, arg ListExpiredResourcesParams) ([]CatalogResource, error) {
	rows, err := q.db.Query(ctx, listExpiredResources, arg.Now, arg.MaxRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CatalogResource
	for rows.Next() {
		var i CatalogResource
		if err := rows.Scan(
			&i.Kind,
			&i.NaturalKey,
			&i.NumericKey,
			&i.DisplayName,
			&i.SourceURL,
			&i.Payload,
			&i.FetchedAt,
			&i.UpdatedAt,
			&i.ExpiresAt,
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

const listKindEstimates = `-- name: ListKindEstimates :many
SELECT kind, total, observed_at
FROM kind_estimate
ORDER BY kind
`

func (q *Queries) ListKindEstimates(ctx context.Context) ([]KindEstimate, error) {
	rows, err := q.db.Query(ctx, listKindEstimates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []KindEstimate
	for rows.Next() {
		var i KindEstimate
		if err := rows.Scan(&i.Kind, &i.Total, &i.ObservedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertAbilityProjection = `-- name: UpsertAbilityProjection :exec
INSERT INTO ability_projection (id, name, generation_id, is_main_series, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE SET
    name           = EXCLUDED.name,
    generation_id  = EXCLUDED.generation_id,
    is_main_series = EXCLUDED.is_main_series,
    updated_at     = EXCLUDED.updated_at
`

type UpsertAbilityProjectionParams struct {
	ID           int64
	Name         string
	GenerationID *int64
	IsMainSeries bool
}

func (q *Queries) UpsertAbilityProjection(ctx context.Context, arg UpsertAbilityProjectionParams) error {
	_, err := q.db.Exec(ctx, upsertAbilityProjection,
		arg.ID,
		arg.Name,
		arg.GenerationID,
		arg.IsMainSeries,
	)
	return err
}

const upsertKindEstimate = `-- name: UpsertKindEstimate :exec
INSERT INTO kind_estimate (kind, total, observed_at)
VALUES ($1, $2, now())
ON CONFLICT (kind) DO UPDATE SET
    total       = EXCLUDED.total,
    observed_at = EXCLUDED.observed_at
`

type UpsertKindEstimateParams struct {
	Kind  string
	Total int64
}

func (q *Queries) UpsertKindEstimate(ctx context.Context, arg UpsertKindEstimateParams) error {
	_, err := q.db.Exec(ctx, upsertKindEstimate, arg.Kind, arg.Total)
	return err
}

const upsertMoveProjection = `-- name: UpsertMoveProjection :exec
INSERT INTO move_projection (
    id, name, type_id, damage_class_id, target_id, generation_id,
    power, accuracy, pp, priority, effect_chance, updated_at
) VALUES (
    $1, $2, $3, $4,
    $5, $6, $7, $8,
    $9, $10, $11, now()
)
ON CONFLICT (id) DO UPDATE SET
    name            = EXCLUDED.name,
    type_id         = EXCLUDED.type_id,
    damage_class_id = EXCLUDED.damage_class_id,
    target_id       = EXCLUDED.target_id,
    generation_id   = EXCLUDED.generation_id,
    power           = EXCLUDED.power,
    accuracy        = EXCLUDED.accuracy,
    pp              = EXCLUDED.pp,
    priority        = EXCLUDED.priority,
    effect_chance   = EXCLUDED.effect_chance,
    updated_at      = EXCLUDED.updated_at
`

type UpsertMoveProjectionParams struct {
	ID            int64
	Name          string
	TypeID        *int64
	DamageClassID *int64
	TargetID      *int64
	GenerationID  *int64
	Power         *int32
	Accuracy      *int32
	Pp            *int32
	Priority      int32
	EffectChance  *int32
}

func (q *Queries) UpsertMoveProjection(ctx context.Context, arg UpsertMoveProjectionParams) error {
	_, err := q.db.Exec(ctx, upsertMoveProjection,
		arg.ID,
		arg.Name,
		arg.TypeID,
		arg.DamageClassID,
		arg.TargetID,
		arg.GenerationID,
		arg.Power,
		arg.Accuracy,
		arg.Pp,
		arg.Priority,
		arg.EffectChance,
	)
	return err
}

const upsertPokemonProjection = `-- name: UpsertPokemonProjection :exec
INSERT INTO pokemon_projection (id, name, height, weight, base_experience, is_default, updated_at)
VALUES (
    $1, $2, $3, $4,
    $5, $6, now()
)
ON CONFLICT (id) DO UPDATE SET
    name            = EXCLUDED.name,
    height          = EXCLUDED.height,
    weight          = EXCLUDED.weight,
    base_experience = EXCLUDED.base_experience,
    is_default      = EXCLUDED.is_default,
    updated_at      = EXCLUDED.updated_at
`

type UpsertPokemonProjectionParams struct {
	ID             int64
	Name           string
	Height         *int32
	Weight         *int32
	BaseExperience *int32
	IsDefault      bool
}

func (q *Queries) UpsertPokemonProjection(ctx context.Context, arg UpsertPokemonProjectionParams) error {
	_, err := q.db.Exec(ctx, upsertPokemonProjection,
		arg.ID,
		arg.Name,
		arg.Height,
		arg.Weight,
		arg.BaseExperience,
		arg.IsDefault,
	)
	return err
}

const upsertResource = `-- name: UpsertResource :one
INSERT INTO catalog_resource (
    kind, natural_key, numeric_key, display_name, source_url, payload, fetched_at, updated_at, expires_at
) VALUES (
    $1, $2, $3, $4,
    $5, $6, $7, now(), $8
)
ON CONFLICT (kind, natural_key) DO UPDATE SET
    numeric_key  = EXCLUDED.numeric_key,
    display_name = EXCLUDED.display_name,
    source_url   = EXCLUDED.source_url,
    payload      = EXCLUDED.payload,
    fetched_at   = GREATEST(catalog_resource.fetched_at, EXCLUDED.fetched_at),
    updated_at   = GREATEST(catalog_resource.updated_at, now()),
    expires_at   = EXCLUDED.expires_at
RETURNING kind, natural_key, numeric_key, display_name, source_url, payload, fetched_at, updated_at, expires_at
`

type UpsertResourceParams struct {
	Kind        string
	NaturalKey  string
	NumericKey  *int64
	DisplayName *string
	SourceURL   string
	Payload     []byte
	FetchedAt   time.Time
	ExpiresAt   *time.Time
}

func (q *Queries) UpsertResource(ctx context.Context, arg UpsertResourceParams) (CatalogResource, error) {
	row := q.db.QueryRow(ctx, upsertResource,
		arg.Kind,
		arg.NaturalKey,
		arg.NumericKey,
		arg.DisplayName,
		arg.SourceURL,
		arg.Payload,
		arg.FetchedAt,
		arg.ExpiresAt,
	)
	var i CatalogResource
	err := row.Scan(
		&i.Kind,
		&i.NaturalKey,
		&i.NumericKey,
		&i.DisplayName,
		&i.SourceURL,
		&i.Payload,
		&i.FetchedAt,
		&i.UpdatedAt,
		&i.ExpiresAt,
	)
	return i, err
}

const upsertTypeProjection = `-- name: UpsertTypeProjection :exec
INSERT INTO type_projection (id, name, generation_id, damage_class_id, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE SET
    name            = EXCLUDED.name,
    generation_id   = EXCLUDED.generation_id,
    damage_class_id = EXCLUDED.damage_class_id,
    updated_at      = EXCLUDED.updated_at
`

type UpsertTypeProjectionParams struct {
	ID            int64
	Name          string
	GenerationID  *int64
	DamageClassID *int64
}

func (q *Queries) UpsertTypeProjection(ctx context.Context, arg UpsertTypeProjectionParams) error {
	_, err := q.db.Exec(ctx, upsertTypeProjection,
		arg.ID,
		arg.Name,
		arg.GenerationID,
		arg.DamageClassID,
	)
	return err
}
