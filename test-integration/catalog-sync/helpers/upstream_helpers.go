package helpers

import (
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/upstreamtest"
)

// NewUpstream starts a fake upstream holding pokemon 1..pokemon and a few moves.
// The caller closes it.
func NewUpstream(pokemon int) *upstreamtest.Server {
	s := upstreamtest.Start()
	s.AddPokemonRange(1, pokemon)
	for id, name := range []string{"pound", "karate-chop", "double-slap"} {
		s.AddNamed(catalog.KindMove, id+1, name)
	}
	return s
}
