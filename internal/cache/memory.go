package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/pokemnky/catalog-sync/internal/catalog"
)

type memoryKey struct {
	kind catalog.Kind
	key  string
}

// MemoryStore is a Store kept in process memory
type MemoryStore struct {
	mu        sync.RWMutex
	now       func() time.Time
	resources map[memoryKey]Resource
	estimates map[catalog.Kind]int64
	pokemon   map[int64]PokemonProjection
	types     map[int64]TypeProjection
	abilities map[int64]AbilityProjection
	moves     map[int64]MoveProjection
}

var _ Store = (*MemoryStore)(nil)

// MemoryOption configures the in-memory store
type MemoryOption func(*MemoryStore)

// WithClock replaces the wall clock used for UpdatedAt
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		now:       time.Now,
		resources: make(map[memoryKey]Resource),
		estimates: make(map[catalog.Kind]int64),
		pokemon:   make(map[int64]PokemonProjection),
		types:     make(map[int64]TypeProjection),
		abilities: make(map[int64]AbilityProjection),
		moves:     make(map[int64]MoveProjection),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Upsert(_ context.Context, entry Entry) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := memoryKey{kind: entry.Kind, key: entry.NaturalKey}
	now := s.now()
	r := Resource{
		Kind:        entry.Kind,
		NaturalKey:  entry.NaturalKey,
		DisplayName: entry.DisplayName,
		SourceURL:   entry.SourceURL,
		Payload:     slices.Clone(entry.Payload),
		FetchedAt:   entry.FetchedAt,
		UpdatedAt:   now,
		ExpiresAt:   entry.ExpiresAt,
	}
	if old, ok := s.resources[k]; ok {
		if old.FetchedAt.After(r.FetchedAt) {
			r.FetchedAt = old.FetchedAt
		}
		if old.UpdatedAt.After(r.UpdatedAt) {
			r.UpdatedAt = old.UpdatedAt
		}
	}
	s.resources[k] = r
	return r, nil
}

func (s *MemoryStore) Get(_ context.Context, kind catalog.Kind, key string) (Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.resources[memoryKey{kind: kind, key: key}]
	if !ok {
		return Resource{}, ErrResourceNotFound
	}
	return r, nil
}

func (s *MemoryStore) MaxNumericKey(_ context.Context, kind catalog.Kind) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		maxKey int64
		found  bool
	)
	for k := range s.resources {
		if k.kind != kind {
			continue
		}
		if n, ok := catalog.NumericKey(k.key); ok {
			found = true
			maxKey = max(maxKey, n)
		}
	}
	return maxKey, found, nil
}

func (s *MemoryStore) ListExpired(_ context.Context, now time.Time, limit int) ([]Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Resource
	for _, r := range s.resources {
		if r.ExpiresAt != nil && r.ExpiresAt.Before(now) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Resource) int {
		return a.ExpiresAt.Compare(*b.ExpiresAt)
	})
	if len(out) > limit {
		out = out[:max(limit, 0)]
	}
	return out, nil
}

func (s *MemoryStore) CountByKind(_ context.Context) (map[catalog.Kind]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[catalog.Kind]int64)
	for k := range s.resources {
		out[k.kind]++
	}
	return out, nil
}

func (s *MemoryStore) RecordEstimate(_ context.Context, kind catalog.Kind, total int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.estimates[kind] = total
	return nil
}

func (s *MemoryStore) Estimates(_ context.Context) (map[catalog.Kind]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[catalog.Kind]int64, len(s.estimates))
	for k, v := range s.estimates {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) UpsertPokemon(_ context.Context, p PokemonProjection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pokemon[p.ID] = p
	return nil
}

// Pokemon returns a projected pokemon row
func (s *MemoryStore) Pokemon(id int64) (PokemonProjection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pokemon[id]
	return p, ok
}

func (s *MemoryStore) UpsertType(_ context.Context, p TypeProjection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.types[p.ID] = p
	return nil
}

func (s *MemoryStore) UpsertAbility(_ context.Context, p AbilityProjection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abilities[p.ID] = p
	return nil
}

func (s *MemoryStore) UpsertMove(_ context.Context, p MoveProjection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.moves[p.ID] = p
	return nil
}

// Type returns a projected type row
func (s *MemoryStore) Type(id int64) (TypeProjection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.types[id]
	return p, ok
}

// Ability returns a projected ability row
func (s *MemoryStore) Ability(id int64) (AbilityProjection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.abilities[id]
	return p, ok
}

// Move returns a projected move row
func (s *MemoryStore) Move(id int64) (MoveProjection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.moves[id]
	return p, ok
}
