package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/pokemnky/catalog-sync/internal/catalog"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		kind       catalog.Kind
		payload    string
		wantValid  bool
		wantErrors []string
	}{
		{
			name:      "valid pokemon",
			kind:      catalog.KindPokemon,
			payload:   `{"id":25,"name":"pikachu","types":[],"abilities":[],"stats":[]}`,
			wantValid: true,
		},
		{
			name:    "pokemon missing arrays",
			kind:    catalog.KindPokemon,
			payload: `{"id":25,"name":"pikachu","types":{}}`,
			wantErrors: []string{
				"Missing or invalid types array",
				"Missing or invalid abilities array",
				"Missing or invalid stats array",
			},
		},
		{
			name:       "string id is rejected",
			kind:       catalog.KindAbility,
			payload:    `{"id":"1","name":"stench"}`,
			wantErrors: []string{"Missing or invalid id field"},
		},
		{
			name:       "species needs generation name",
			kind:       catalog.KindPokemonSpecies,
			payload:    `{"id":1,"name":"bulbasaur","generation":{"url":"x"}}`,
			wantErrors: []string{"Missing or invalid generation.name field"},
		},
		{
			name:      "valid move",
			kind:      catalog.KindMove,
			payload:   `{"id":1,"name":"pound","type":{"name":"normal"},"damage_class":{"name":"physical"}}`,
			wantValid: true,
		},
		{
			name:       "type needs damage relations object",
			kind:       catalog.KindType,
			payload:    `{"id":1,"name":"normal","damage_relations":[]}`,
			wantErrors: []string{"Missing or invalid damage_relations object"},
		},
		{
			name:      "unnamed kind only needs id",
			kind:      catalog.KindMachine,
			payload:   `{"id":7}`,
			wantValid: true,
		},
		{
			name:       "named default kind needs name",
			kind:       catalog.KindBerry,
			payload:    `{"id":7}`,
			wantErrors: []string{"Missing or invalid name field"},
		},
		{
			name:      "unknown kind is permissive",
			kind:      catalog.Kind("digimon"),
			payload:   `{"anything":true}`,
			wantValid: true,
		},
		{
			name:       "unknown kind still needs an object",
			kind:       catalog.Kind("digimon"),
			payload:    `[1,2,3]`,
			wantErrors: []string{"Response is not an object"},
		},
		{
			name:       "malformed json",
			kind:       catalog.KindPokemon,
			payload:    `{"id":`,
			wantErrors: []string{"Response is not valid JSON"},
		},
		{
			name:       "empty body",
			kind:       catalog.KindPokemon,
			payload:    ``,
			wantErrors: []string{"Response is not valid JSON"},
		},
		{
			name:       "fractional id is rejected",
			kind:       catalog.KindAbility,
			payload:    `{"id":3.9,"name":"stench"}`,
			wantErrors: []string{"Invalid id field: must be an integer"},
		},
		{
			name:       "exponent id is rejected",
			kind:       catalog.KindAbility,
			payload:    `{"id":1e3,"name":"stench"}`,
			wantErrors: []string{"Invalid id field: must be an integer"},
		},
		{
			name:       "id beyond int64 is rejected",
			kind:       catalog.KindEvolutionChain,
			payload:    `{"id":92233720368547758070,"chain":{}}`,
			wantErrors: []string{"Invalid id field: must be an integer"},
		},
		{
			name:       "null body",
			kind:       catalog.KindPokemon,
			payload:    `null`,
			wantErrors: []string{"Response is not an object"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := Validate(tt.kind, []byte(tt.payload))
			assert.Equal(t, tt.wantValid, res.Valid)
			assert.Equal(t, tt.wantErrors, res.Errors)
		})
	}
}

func TestEveryKnownKindHasAValidator(t *testing.T) {
	t.Parallel()

	for _, k := range catalog.All() {
		res := Validate(k, []byte(`{}`))
		assert.False(t, res.Valid, "kind %s accepted an empty object", k)
		assert.NotEmpty(t, res.Errors)
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: `{"id":25}`, want: 25},
		{raw: `{"id":-1}`, want: -1},
		{raw: `{"id":9223372036854775807}`, want: 9223372036854775807},
		{raw: `{"id":9223372036854775808}`, wantErr: true},
		{raw: `{"id":3.9}`, wantErr: true},
		{raw: `{"id":3.0}`, wantErr: true},
		{raw: `{"id":1e30}`, wantErr: true},
		{raw: `{"id":2E1}`, wantErr: true},
		{raw: `{"id":"7"}`, wantErr: true},
		{raw: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, err := ParseID(gjson.Get(tt.raw, "id"))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
