// Package validators checks the structure of upstream resource payloads before they
// are written to the resource cache.
package validators

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pokemnky/catalog-sync/internal/catalog"
)

// Result is the outcome of validating one payload
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validator inspects a parsed object payload and returns its structural defects
type Validator func(doc gjson.Result) []string

// validatorsByKind maps each kind with stricter requirements to its validator.
// Kinds missing from the table are checked by baseValidator.
var validatorsByKind = map[catalog.Kind]Validator{
	catalog.KindPokemon: chain(requireID, requireName,
		requireArray("types"), requireArray("abilities"), requireArray("stats")),
	catalog.KindPokemonSpecies: chain(requireID, requireName, requireString("generation.name")),
	catalog.KindMove: chain(requireID, requireName,
		requireString("type.name"), requireString("damage_class.name")),
	catalog.KindType:           chain(requireID, requireName, requireObject("damage_relations")),
	catalog.KindAbility:        chain(requireID, requireName),
	catalog.KindEvolutionChain: chain(requireID, requireObject("chain")),
}

// Validate checks raw against the rules registered for kind.
// It never panics; malformed input yields an invalid result.
func Validate(kind catalog.Kind, raw []byte) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Errors: []string{fmt.Sprintf("validation aborted: %v", r)}}
		}
	}()

	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return Result{Errors: []string{"Response is not valid JSON"}}
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Result{Errors: []string{"Response is not an object"}}
	}

	errs := validatorFor(kind)(doc)
	return Result{Valid: len(errs) == 0, Errors: errs}
}

// validatorFor returns the validator for a kind. Known kinds without a dedicated
// entry get id and name checks according to their definition; unknown kinds only
// need to be objects.
func validatorFor(kind catalog.Kind) Validator {
	if v, ok := validatorsByKind[kind]; ok {
		return v
	}

	def, ok := catalog.Lookup(kind)
	if !ok {
		return permissive
	}
	if def.Named {
		return chain(requireID, requireName)
	}
	return requireID
}

func permissive(gjson.Result) []string {
	return nil
}

func chain(validators ...Validator) Validator {
	return func(doc gjson.Result) []string {
		var errs []string
		for _, v := range validators {
			errs = append(errs, v(doc)...)
		}
		return errs
	}
}

// ErrInvalidID is returned by ParseID for ids that are not integers within int64
var ErrInvalidID = errors.New("id is not a 64-bit integer")

// ParseID returns the integer held by an id field. Fractions, exponents and values
// outside int64 are rejected rather than truncated.
func ParseID(v gjson.Result) (int64, error) {
	if v.Type != gjson.Number || strings.ContainsAny(v.Raw, ".eE") {
		return 0, fmt.Errorf("%w: %s", ErrInvalidID, v.Raw)
	}
	n, err := strconv.ParseInt(v.Raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidID, v.Raw)
	}
	return n, nil
}

func requireID(doc gjson.Result) []string {
	id := doc.Get("id")
	if id.Type != gjson.Number {
		return []string{"Missing or invalid id field"}
	}
	if _, err := ParseID(id); err != nil {
		return []string{"Invalid id field: must be an integer"}
	}
	return nil
}

func requireName(doc gjson.Result) []string {
	if doc.Get("name").Type != gjson.String {
		return []string{"Missing or invalid name field"}
	}
	return nil
}

func requireString(path string) Validator {
	return func(doc gjson.Result) []string {
		if doc.Get(path).Type != gjson.String {
			return []string{fmt.Sprintf("Missing or invalid %s field", path)}
		}
		return nil
	}
}

func requireArray(path string) Validator {
	return func(doc gjson.Result) []string {
		if !doc.Get(path).IsArray() {
			return []string{fmt.Sprintf("Missing or invalid %s array", path)}
		}
		return nil
	}
}

func requireObject(path string) Validator {
	return func(doc gjson.Result) []string {
		if !doc.Get(path).IsObject() {
			return []string{fmt.Sprintf("Missing or invalid %s object", path)}
		}
		return nil
	}
}
