// Package upstreamtest provides an in-process fake of the upstream reference API for tests.
package upstreamtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pokemnky/catalog-sync/internal/catalog"
)

// APIPrefix is the path under which the fake API is served
const APIPrefix = "/api/v2"

type resource struct {
	id   int
	name string
	body string
}

// Server is a fake upstream that serves list indexes and resource details from memory
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	resources map[catalog.Kind][]resource
	failures  map[string]int
	hits      map[string]int
	raw       map[string][]byte
}

// NewServer starts a fake upstream that is closed when the test ends
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := Start()
	t.Cleanup(s.Close)
	return s
}

// Start starts a fake upstream. The caller closes it.
func Start() *Server {
	s := &Server{
		resources: make(map[catalog.Kind][]resource),
		failures:  make(map[string]int),
		hits:      make(map[string]int),
		raw:       make(map[string][]byte),
	}

	r := chi.NewRouter()
	r.Use(s.countHits)
	r.Get("/raw/*", s.serveRaw)
	r.Route(APIPrefix, func(r chi.Router) {
		r.Get("/{kind}", s.serveIndex)
		r.Get("/{kind}/", s.serveIndex)
		r.Get("/{kind}/{key}/", s.serveResource)
	})

	s.Server = httptest.NewServer(r)
	s.Config.SetKeepAlivesEnabled(false)
	return s
}

// BaseURL returns the API root to configure clients with
func (s *Server) BaseURL() string {
	return s.URL + APIPrefix
}

// ResourceURL returns the detail URL of one resource
func (s *Server) ResourceURL(kind catalog.Kind, id int) string {
	return catalog.ResourceURL(s.BaseURL(), kind, strconv.Itoa(id))
}

// Add registers a resource with an explicit JSON body
func (s *Server) Add(kind catalog.Kind, id int, name, body string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := slices.DeleteFunc(s.resources[kind], func(r resource) bool { return r.id == id })
	list = append(list, resource{id: id, name: name, body: body})
	slices.SortFunc(list, func(a, b resource) int { return a.id - b.id })
	s.resources[kind] = list
	return s
}

// AddNamed registers a resource whose body is a minimal valid record of its kind
func (s *Server) AddNamed(kind catalog.Kind, id int, name string) *Server {
	var body string
	switch kind {
	case catalog.KindPokemon:
		body = PokemonBody(id, name, "")
	case catalog.KindMove:
		body = fmt.Sprintf(`{"id":%d,"name":%q,"type":{"name":"normal"},"damage_class":{"name":"physical"}}`, id, name)
	case catalog.KindPokemonSpecies:
		body = fmt.Sprintf(`{"id":%d,"name":%q,"generation":{"name":"generation-i"}}`, id, name)
	case catalog.KindType:
		body = fmt.Sprintf(`{"id":%d,"name":%q,"damage_relations":{}}`, id, name)
	default:
		body = fmt.Sprintf(`{"id":%d,"name":%q}`, id, name)
	}
	return s.Add(kind, id, name, body)
}

// AddPokemonRange registers pokemon with ids from..to inclusive
func (s *Server) AddPokemonRange(from, to int) *Server {
	for id := from; id <= to; id++ {
		s.AddNamed(catalog.KindPokemon, id, "pokemon-"+strconv.Itoa(id))
	}
	return s
}

// AddRaw serves body at {URL}/raw/{path}
func (s *Server) AddRaw(path string, body []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw["/raw/"+path] = body
	return s.URL + "/raw/" + path
}

// Fail makes requests to an absolute URL answer with status
func (s *Server) Fail(rawURL string, status int) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[s.path(rawURL)] = status
	return s
}

// Heal removes a failure registered with Fail
func (s *Server) Heal(rawURL string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, s.path(rawURL))
	return s
}

// Hits returns how many requests reached the path of an absolute URL
func (s *Server) Hits(rawURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[s.path(rawURL)]
}

// TotalHits returns the number of requests served
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.hits {
		n += h
	}
	return n
}

// PokemonBody returns a valid pokemon record. spritesJSON replaces the sprites object when set.
func PokemonBody(id int, name, spritesJSON string) string {
	if spritesJSON == "" {
		spritesJSON = `{"front_default":null}`
	}
	return fmt.Sprintf(`{"id":%d,"name":%q,"height":7,"weight":69,"base_experience":64,"is_default":true,`+
		`"types":[{"slot":1,"type":{"name":"grass"}}],"abilities":[],"stats":[],"sprites":%s}`,
		id, name, spritesJSON)
}

func (s *Server) path(rawURL string) string {
	if len(rawURL) >= len(s.URL) && rawURL[:len(s.URL)] == s.URL {
		return rawURL[len(s.URL):]
	}
	return rawURL
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		status, failing := s.failures[r.URL.Path]
		s.mu.Unlock()

		if failing {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	kind := catalog.Kind(chi.URLParam(r, "kind"))
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	s.mu.Lock()
	list := slices.Clone(s.resources[kind])
	s.mu.Unlock()

	page := map[string]any{"count": len(list), "next": nil, "previous": nil}
	results := []map[string]string{}
	for i := offset; i < len(list) && i < offset+limit; i++ {
		results = append(results, map[string]string{
			"name": list[i].name,
			"url":  s.ResourceURL(kind, list[i].id),
		})
	}
	page["results"] = results
	if offset+limit < len(list) {
		page["next"] = fmt.Sprintf("%s/%s?limit=%d&offset=%d", s.BaseURL(), kind, limit, offset+limit)
	}
	if offset > 0 {
		page["previous"] = fmt.Sprintf("%s/%s?limit=%d&offset=%d", s.BaseURL(), kind, limit, max(offset-limit, 0))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(page)
}

func (s *Server) serveResource(w http.ResponseWriter, r *http.Request) {
	kind := catalog.Kind(chi.URLParam(r, "kind"))
	key := chi.URLParam(r, "key")

	s.mu.Lock()
	list := s.resources[kind]
	idx := slices.IndexFunc(list, func(res resource) bool {
		return strconv.Itoa(res.id) == key || res.name == key
	})
	var body string
	if idx >= 0 {
		body = list[idx].body
	}
	s.mu.Unlock()

	if idx < 0 {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (s *Server) serveRaw(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body, ok := s.raw[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	_, _ = w.Write(body)
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}
