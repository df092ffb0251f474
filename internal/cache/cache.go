// Package cache provides the resource cache: the local mirror of upstream records,
// keyed by kind and natural key.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pokemnky/catalog-sync/internal/catalog"
)

// ErrResourceNotFound is returned when no record exists for a kind and key
var ErrResourceNotFound = errors.New("resource not found")

// Resource is one cached upstream record
type Resource struct {
	Kind        catalog.Kind    `json:"kind"`
	NaturalKey  string          `json:"natural_key"`
	DisplayName string          `json:"display_name,omitempty"`
	SourceURL   string          `json:"source_url"`
	Payload     json.RawMessage `json:"payload"`
	FetchedAt   time.Time       `json:"fetched_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

// Entry is the input of an upsert
type Entry struct {
	Kind        catalog.Kind
	NaturalKey  string
	DisplayName string
	SourceURL   string
	Payload     []byte
	FetchedAt   time.Time
	ExpiresAt   *time.Time
}

// PokemonProjection is the typed subset of a pokemon record kept alongside the raw payload
type PokemonProjection struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Height         *int32 `json:"height,omitempty"`
	Weight         *int32 `json:"weight,omitempty"`
	BaseExperience *int32 `json:"base_experience,omitempty"`
	IsDefault      bool   `json:"is_default"`
}

// TypeProjection is the typed subset of a type record
type TypeProjection struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	GenerationID  *int64 `json:"generation_id,omitempty"`
	DamageClassID *int64 `json:"damage_class_id,omitempty"`
}

// AbilityProjection is the typed subset of an ability record
type AbilityProjection struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	GenerationID *int64 `json:"generation_id,omitempty"`
	IsMainSeries bool   `json:"is_main_series"`
}

// MoveProjection is the typed subset of a move record. Reference ids are taken from
// the trailing segment of the referenced resource URL.
type MoveProjection struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	TypeID        *int64 `json:"type_id,omitempty"`
	DamageClassID *int64 `json:"damage_class_id,omitempty"`
	TargetID      *int64 `json:"target_id,omitempty"`
	GenerationID  *int64 `json:"generation_id,omitempty"`
	Power         *int32 `json:"power,omitempty"`
	Accuracy      *int32 `json:"accuracy,omitempty"`
	PP            *int32 `json:"pp,omitempty"`
	Priority      int32  `json:"priority"`
	EffectChance  *int32 `json:"effect_chance,omitempty"`
}

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=cache.go Reader,Store

// Reader exposes the read side of the cache
type Reader interface {
	// Get returns one record or ErrResourceNotFound
	Get(ctx context.Context, kind catalog.Kind, key string) (Resource, error)

	// CountByKind returns the number of cached records per kind
	CountByKind(ctx context.Context) (map[catalog.Kind]int64, error)

	// Estimates returns the index totals observed while seeding
	Estimates(ctx context.Context) (map[catalog.Kind]int64, error)
}

// Store is the full cache used by the write path, detector and seeder
type Store interface {
	Reader

	// Upsert inserts or replaces a record. Applying the same entry twice leaves one row
	// and timestamps never move backwards.
	Upsert(ctx context.Context, entry Entry) (Resource, error)

	// MaxNumericKey returns the largest numeric key of a kind and whether any exists
	MaxNumericKey(ctx context.Context, kind catalog.Kind) (int64, bool, error)

	// ListExpired returns up to limit records whose expiry is before now, oldest first
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Resource, error)

	// RecordEstimate stores the index total observed for a kind
	RecordEstimate(ctx context.Context, kind catalog.Kind, total int64) error

	// UpsertPokemon writes the pokemon projection row
	UpsertPokemon(ctx context.Context, p PokemonProjection) error

	UpsertType(ctx context.Context, p TypeProjection) error
	UpsertAbility(ctx context.Context, p AbilityProjection) error
	UpsertMove(ctx context.Context, p MoveProjection) error
}
