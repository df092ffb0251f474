// Package catalog defines the finite set of upstream resource kinds mirrored by the
// sync pipeline, the dependency phase each kind belongs to, and helpers for reading
// kind and key information out of upstream resource URLs.
package catalog

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies a category of upstream resource
type Kind string

// Phase groups kinds by the order in which they should be seeded
type Phase string

const (
	// PhaseMaster holds kinds with no dependencies on other kinds
	PhaseMaster Phase = "master"
	// PhaseReference holds reference data that may point at master data
	PhaseReference Phase = "reference"
	// PhaseSpecies holds species records
	PhaseSpecies Phase = "species"
	// PhasePokemon holds individual pokemon records
	PhasePokemon Phase = "pokemon"
	// PhaseRelationships holds records linking pokemon together
	PhaseRelationships Phase = "relationships"
)

// Known resource kinds
const (
	KindType                    Kind = "type"
	KindStat                    Kind = "stat"
	KindEggGroup                Kind = "egg-group"
	KindGrowthRate              Kind = "growth-rate"
	KindAbility                 Kind = "ability"
	KindMove                    Kind = "move"
	KindGeneration              Kind = "generation"
	KindPokemonColor            Kind = "pokemon-color"
	KindPokemonHabitat          Kind = "pokemon-habitat"
	KindPokemonShape            Kind = "pokemon-shape"
	KindItem                    Kind = "item"
	KindItemAttribute           Kind = "item-attribute"
	KindItemCategory            Kind = "item-category"
	KindItemFlingEffect         Kind = "item-fling-effect"
	KindLocation                Kind = "location"
	KindLocationArea            Kind = "location-area"
	KindPalParkArea             Kind = "pal-park-area"
	KindRegion                  Kind = "region"
	KindPokedex                 Kind = "pokedex"
	KindVersion                 Kind = "version"
	KindVersionGroup            Kind = "version-group"
	KindEncounterMethod         Kind = "encounter-method"
	KindEncounterCondition      Kind = "encounter-condition"
	KindEncounterConditionValue Kind = "encounter-condition-value"
	KindGender                  Kind = "gender"
	KindNature                  Kind = "nature"
	KindCharacteristic          Kind = "characteristic"
	KindBerry                   Kind = "berry"
	KindBerryFirmness           Kind = "berry-firmness"
	KindBerryFlavor             Kind = "berry-flavor"
	KindContestType             Kind = "contest-type"
	KindContestEffect           Kind = "contest-effect"
	KindSuperContestEffect      Kind = "super-contest-effect"
	KindMachine                 Kind = "machine"
	KindMoveAilment             Kind = "move-ailment"
	KindMoveBattleStyle         Kind = "move-battle-style"
	KindMoveCategory            Kind = "move-category"
	KindMoveDamageClass         Kind = "move-damage-class"
	KindMoveLearnMethod         Kind = "move-learn-method"
	KindMoveTarget              Kind = "move-target"
	KindLanguage                Kind = "language"
	KindPokemonSpecies          Kind = "pokemon-species"
	KindPokemon                 Kind = "pokemon"
	KindEvolutionChain          Kind = "evolution-chain"
)

// Definition describes a known kind
type Definition struct {
	Kind  Kind
	Phase Phase
	// Named is false for kinds whose records carry no name field
	Named bool
}

// definitions is the closed set of kinds, in seeding order.
var definitions = []Definition{
	{KindType, PhaseMaster, true},
	{KindStat, PhaseMaster, true},
	{KindEggGroup, PhaseMaster, true},
	{KindGrowthRate, PhaseMaster, true},
	{KindAbility, PhaseMaster, true},
	{KindMove, PhaseMaster, true},

	{KindGeneration, PhaseReference, true},
	{KindPokemonColor, PhaseReference, true},
	{KindPokemonHabitat, PhaseReference, true},
	{KindPokemonShape, PhaseReference, true},
	{KindItem, PhaseReference, true},
	{KindItemAttribute, PhaseReference, true},
	{KindItemCategory, PhaseReference, true},
	{KindItemFlingEffect, PhaseReference, true},
	{KindLocation, PhaseReference, true},
	{KindLocationArea, PhaseReference, true},
	{KindPalParkArea, PhaseReference, true},
	{KindRegion, PhaseReference, true},
	{KindPokedex, PhaseReference, true},
	{KindVersion, PhaseReference, true},
	{KindVersionGroup, PhaseReference, true},
	{KindEncounterMethod, PhaseReference, true},
	{KindEncounterCondition, PhaseReference, true},
	{KindEncounterConditionValue, PhaseReference, true},
	{KindGender, PhaseReference, true},
	{KindNature, PhaseReference, true},
	{KindCharacteristic, PhaseReference, false},
	{KindBerry, PhaseReference, true},
	{KindBerryFirmness, PhaseReference, true},
	{KindBerryFlavor, PhaseReference, true},
	{KindContestType, PhaseReference, true},
	{KindContestEffect, PhaseReference, false},
	{KindSuperContestEffect, PhaseReference, false},
	{KindMachine, PhaseReference, false},
	{KindMoveAilment, PhaseReference, true},
	{KindMoveBattleStyle, PhaseReference, true},
	{KindMoveCategory, PhaseReference, true},
	{KindMoveDamageClass, PhaseReference, true},
	{KindMoveLearnMethod, PhaseReference, true},
	{KindMoveTarget, PhaseReference, true},
	{KindLanguage, PhaseReference, true},

	{KindPokemonSpecies, PhaseSpecies, true},
	{KindPokemon, PhasePokemon, true},
	{KindEvolutionChain, PhaseRelationships, false},
}

var (
	byKind   = make(map[Kind]Definition, len(definitions))
	position = make(map[Kind]int, len(definitions))
)

func init() {
	for i, d := range definitions {
		byKind[d.Kind] = d
		position[d.Kind] = i
	}
}

// All returns every known kind in seeding order
func All() []Kind {
	out := make([]Kind, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, d.Kind)
	}
	return out
}

// Lookup returns the definition of a known kind
func Lookup(k Kind) (Definition, bool) {
	d, ok := byKind[k]
	return d, ok
}

// IsKnown reports whether k belongs to the known set
func (k Kind) IsKnown() bool {
	_, ok := byKind[k]
	return ok
}

// String implements fmt.Stringer
func (k Kind) String() string {
	return string(k)
}

// Parse converts s into a known Kind
func Parse(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(strings.ToLower(s)))
	if !k.IsKnown() {
		return "", fmt.Errorf("unknown resource kind: %q", s)
	}
	return k, nil
}

// ParseAll converts every entry of values into a known Kind.
// An empty input yields an empty result.
func ParseAll(values []string) ([]Kind, error) {
	out := make([]Kind, 0, len(values))
	for _, v := range values {
		k, err := Parse(v)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// Strings converts kinds to plain strings, preserving order
func Strings(kinds []Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// OrderByPhase returns the distinct kinds sorted into seeding order.
// Unknown kinds are placed after every known kind, in input order.
func OrderByPhase(kinds []Kind) []Kind {
	seen := make(map[Kind]struct{}, len(kinds))
	out := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	slices.SortStableFunc(out, func(a, b Kind) int {
		return rank(a) - rank(b)
	})
	return out
}

// rank is the seeding position of k; definitions are already in phase order.
func rank(k Kind) int {
	if i, ok := position[k]; ok {
		return i
	}
	return len(definitions)
}

// PhaseOf returns the phase of a kind, or an empty phase when unknown
func PhaseOf(k Kind) Phase {
	return byKind[k].Phase
}

// ResourceRef is the kind and key extracted from an upstream resource URL
type ResourceRef struct {
	Kind Kind
	Key  string
}

// ParseResourceURL extracts the kind and key from a URL shaped like
// {base}/api/v2/{kind}/{key}/. The kind is not required to be known.
func ParseResourceURL(raw string) (ResourceRef, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ResourceRef{}, fmt.Errorf("failed to parse resource URL: %w", err)
	}

	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) < 2 {
		return ResourceRef{}, fmt.Errorf("resource URL %q has no kind/key segments", raw)
	}

	return ResourceRef{
		Kind: Kind(parts[len(parts)-2]),
		Key:  parts[len(parts)-1],
	}, nil
}

// ResourceURL builds the canonical URL of one resource under baseURL
func ResourceURL(baseURL string, kind Kind, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + string(kind) + "/" + url.PathEscape(key) + "/"
}

// NumericKey returns the integer value of a natural key when it is numeric
func NumericKey(key string) (int64, bool) {
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
