// Package writer contains the write path shared by the ingestion worker and the change
// detector: validate a fetched payload, upsert it into the resource cache, run the kind's
// projection, then run best-effort post-store hooks.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/validators"
)

//go:generate mockgen -destination=mocks/mock_writer.go -package=mocks -source=writer.go Writer

// Writer applies fetched payloads to the resource cache
type Writer interface {
	// Apply validates and stores one payload fetched from sourceURL
	Apply(ctx context.Context, kind catalog.Kind, sourceURL string, body []byte, fetchedAt time.Time) Outcome
}

// Hook runs after a record was stored. Hook errors are logged and never fail the item.
type Hook func(ctx context.Context, res cache.Resource, doc gjson.Result) error

// Projection writes a typed view of a stored record. A projection error fails the item.
type Projection func(ctx context.Context, store cache.Store, doc gjson.Result) error

// projections maps kinds to their typed projection
var projections = map[catalog.Kind]Projection{
	catalog.KindPokemon: projectPokemon,
	catalog.KindType:    projectType,
	catalog.KindAbility: projectAbility,
	catalog.KindMove:    projectMove,
}

type namedHook struct {
	name string
	fn   Hook
}

type cacheWriter struct {
	store        cache.Store
	refreshAfter func(catalog.Kind) time.Duration
	hooks        []namedHook
}

// Option configures the writer
type Option func(*cacheWriter)

// WithRefreshAfter sets the per-kind time to live used to compute expiry.
// A zero duration leaves the record without expiry.
func WithRefreshAfter(fn func(catalog.Kind) time.Duration) Option {
	return func(w *cacheWriter) {
		w.refreshAfter = fn
	}
}

// WithHook registers a post-store hook
func WithHook(name string, fn Hook) Option {
	return func(w *cacheWriter) {
		w.hooks = append(w.hooks, namedHook{name: name, fn: fn})
	}
}

// New creates a writer over store
func New(store cache.Store, opts ...Option) Writer {
	w := &cacheWriter{
		store:        store,
		refreshAfter: func(catalog.Kind) time.Duration { return 0 },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *cacheWriter) Apply(
	ctx context.Context, kind catalog.Kind, sourceURL string, body []byte, fetchedAt time.Time,
) Outcome {
	result := validators.Validate(kind, body)
	if !result.Valid {
		return Failed(sourceURL, StageValidate, errors.New(strings.Join(result.Errors, "; ")))
	}

	doc := gjson.ParseBytes(body)
	key, err := NaturalKey(doc, sourceURL)
	if err != nil {
		return Failed(sourceURL, StageValidate, err)
	}

	entry := cache.Entry{
		Kind:       kind,
		NaturalKey: key,
		SourceURL:  sourceURL,
		Payload:    body,
		FetchedAt:  fetchedAt,
	}
	if name := doc.Get("name"); name.Type == gjson.String {
		entry.DisplayName = name.String()
	}
	if ttl := w.refreshAfter(kind); ttl > 0 {
		expires := fetchedAt.Add(ttl)
		entry.ExpiresAt = &expires
	}

	stored, err := w.store.Upsert(ctx, entry)
	if err != nil {
		return Failed(sourceURL, StageStore, fmt.Errorf("failed to upsert %s/%s: %w", kind, key, err))
	}

	if project, ok := projections[kind]; ok {
		if err := project(ctx, w.store, doc); err != nil {
			return Failed(sourceURL, StageStore, fmt.Errorf("failed to project %s/%s: %w", kind, key, err))
		}
	}

	for _, h := range w.hooks {
		if err := h.fn(ctx, stored, doc); err != nil {
			slog.Warn("Post-store hook failed", "hook", h.name, "kind", kind, "key", key, "error", err)
		}
	}

	return Stored(stored)
}

// NaturalKey returns the payload id when it is a number, else its name when it is a string,
// else the key segment of sourceURL. A numeric id that is not an integer is an error.
func NaturalKey(doc gjson.Result, sourceURL string) (string, error) {
	if id := doc.Get("id"); id.Type == gjson.Number {
		n, err := validators.ParseID(id)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	}
	if name := doc.Get("name"); name.Type == gjson.String && name.String() != "" {
		return name.String(), nil
	}
	ref, err := catalog.ParseResourceURL(sourceURL)
	if err != nil {
		return "", fmt.Errorf("no natural key in payload or URL: %w", err)
	}
	return ref.Key, nil
}

func projectPokemon(ctx context.Context, store cache.Store, doc gjson.Result) error {
	p := cache.PokemonProjection{
		ID:             doc.Get("id").Int(),
		Name:           doc.Get("name").String(),
		Height:         optionalInt32(doc.Get("height")),
		Weight:         optionalInt32(doc.Get("weight")),
		BaseExperience: optionalInt32(doc.Get("base_experience")),
		IsDefault:      doc.Get("is_default").Bool(),
	}
	return store.UpsertPokemon(ctx, p)
}

func projectType(ctx context.Context, store cache.Store, doc gjson.Result) error {
	return store.UpsertType(ctx, cache.TypeProjection{
		ID:            doc.Get("id").Int(),
		Name:          doc.Get("name").String(),
		GenerationID:  refID(doc.Get("generation.url")),
		DamageClassID: refID(doc.Get("move_damage_class.url")),
	})
}

func projectAbility(ctx context.Context, store cache.Store, doc gjson.Result) error {
	mainSeries := doc.Get("is_main_series")
	return store.UpsertAbility(ctx, cache.AbilityProjection{
		ID:           doc.Get("id").Int(),
		Name:         doc.Get("name").String(),
		GenerationID: refID(doc.Get("generation.url")),
		// absent means main series, as on every ability the upstream serves today
		IsMainSeries: !mainSeries.Exists() || mainSeries.Bool(),
	})
}

func projectMove(ctx context.Context, store cache.Store, doc gjson.Result) error {
	var priority int32
	if p := optionalInt32(doc.Get("priority")); p != nil {
		priority = *p
	}
	return store.UpsertMove(ctx, cache.MoveProjection{
		ID:            doc.Get("id").Int(),
		Name:          doc.Get("name").String(),
		TypeID:        refID(doc.Get("type.url")),
		DamageClassID: refID(doc.Get("damage_class.url")),
		TargetID:      refID(doc.Get("target.url")),
		GenerationID:  refID(doc.Get("generation.url")),
		Power:         optionalInt32(doc.Get("power")),
		Accuracy:      optionalInt32(doc.Get("accuracy")),
		PP:            optionalInt32(doc.Get("pp")),
		Priority:      priority,
		EffectChance:  optionalInt32(doc.Get("effect_chance")),
	})
}

// refID returns the numeric key at the end of a resource reference URL, or nil
func refID(v gjson.Result) *int64 {
	if v.Type != gjson.String {
		return nil
	}
	ref, err := catalog.ParseResourceURL(v.String())
	if err != nil {
		return nil
	}
	n, ok := catalog.NumericKey(ref.Key)
	if !ok {
		return nil
	}
	return &n
}

func optionalInt32(v gjson.Result) *int32 {
	if v.Type != gjson.Number {
		return nil
	}
	n := int32(v.Int()) //nolint:gosec // upstream values are small
	return &n
}
