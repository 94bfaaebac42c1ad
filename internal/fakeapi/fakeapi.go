// Package fakeapi is an in-process stand-in for the Flagsmith API used in tests.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/flagsmith/pkg/remote"
	"github.com/dmitrymomot/flagsmith/pkg/requestid"
)

// Endpoint names one of the routes served by Server.
type Endpoint string

const (
	Identities Endpoint = "identities"
	Flags      Endpoint = "flags"
	Traits     Endpoint = "traits"
	Analytics  Endpoint = "analytics"
)

type identity struct {
	flags  []remote.Flag
	traits []remote.Trait
}

// Server serves the four client endpoints from programmable state.
// Unknown identities get the environment flags and no traits, like the real service.
type Server struct {
	srv    *httptest.Server
	envKey string

	mu         sync.Mutex
	flags      []remote.Flag
	identities map[string]*identity
	failures   map[Endpoint]int
	hits       map[Endpoint]int
	headers    map[Endpoint]http.Header
	traits     []remote.TraitWithIdentity
	analytics  []map[string]int
}

// New starts a Server that accepts envKey and stops it on test cleanup.
func New(tb testing.TB, envKey string) *Server {
	tb.Helper()

	s := &Server{
		envKey:     envKey,
		identities: make(map[string]*identity),
		failures:   make(map[Endpoint]int),
		hits:       make(map[Endpoint]int),
		headers:    make(map[Endpoint]http.Header),
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/identities/", s.track(Identities, s.getIdentity))
		r.Get("/flags/", s.track(Flags, s.getFlags))
		r.Post("/traits/", s.track(Traits, s.postTrait))
		r.Post("/analytics/flags/", s.track(Analytics, s.postAnalytics))
	})

	s.srv = httptest.NewServer(r)
	tb.Cleanup(s.srv.Close)
	return s
}

// URL is the API base URL, including the version prefix and trailing slash.
func (s *Server) URL() string { return s.srv.URL + "/api/v1/" }

// Client returns an HTTP client wired to the server.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// Close stops the server early, making every subsequent call a transport error.
func (s *Server) Close() { s.srv.Close() }

// SetFlags replaces the environment flags.
func (s *Server) SetFlags(flags ...remote.Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = slices.Clone(flags)
}

// SetIdentity replaces the flags and traits served for id.
func (s *Server) SetIdentity(id string, flags []remote.Flag, traits []remote.Trait) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[id] = &identity{flags: slices.Clone(flags), traits: slices.Clone(traits)}
}

// Fail makes ep answer with status. Zero restores normal behavior.
func (s *Server) Fail(ep Endpoint, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, ep)
		return
	}
	s.failures[ep] = status
}

// Hits returns how many requests reached ep, failed ones included.
func (s *Server) Hits(ep Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[ep]
}

// LastHeader returns the headers of the latest request to ep.
func (s *Server) LastHeader(ep Endpoint) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[ep].Clone()
}

// PostedTraits returns every successfully posted trait in arrival order.
func (s *Server) PostedTraits() []remote.TraitWithIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.traits)
}

// PostedAnalytics returns every successfully posted analytics batch in arrival order.
func (s *Server) PostedAnalytics() []map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.analytics)
}

// AnalyticsTotals sums every posted batch per flag.
func (s *Server) AnalyticsTotals() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, batch := range s.analytics {
		for k, v := range batch {
			out[k] += v
		}
	}
	return out
}

// Flag builds an enabled or disabled flag, with an optional value.
func Flag(name string, enabled bool, value ...string) remote.Flag {
	f := remote.Flag{Feature: remote.Feature{Name: name}, Enabled: enabled}
	if len(value) > 0 {
		v := value[0]
		f.Value = &v
	}
	return f
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(remote.HeaderEnvironmentKey) != s.envKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid or missing Environment Key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) track(ep Endpoint, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[ep]++
		s.headers[ep] = r.Header.Clone()
		status, failing := s.failures[ep]
		s.mu.Unlock()

		if failing {
			writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
			return
		}
		next(w, r)
	}
}

func (s *Server) getIdentity(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("identity")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "identity is required"})
		return
	}

	s.mu.Lock()
	payload := remote.IdentityFlagsAndTraits{Flags: slices.Clone(s.flags), Traits: []remote.Trait{}}
	if ident, ok := s.identities[id]; ok {
		payload.Flags = slices.Clone(ident.flags)
		payload.Traits = slices.Clone(ident.traits)
	}
	s.mu.Unlock()

	if payload.Flags == nil {
		payload.Flags = []remote.Flag{}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) getFlags(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	flags := slices.Clone(s.flags)
	s.mu.Unlock()

	if flags == nil {
		flags = []remote.Flag{}
	}
	writeJSON(w, http.StatusOK, flags)
}

func (s *Server) postTrait(w http.ResponseWriter, r *http.Request) {
	var in remote.TraitWithIdentity
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Identity.Identifier == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed trait"})
		return
	}

	s.mu.Lock()
	s.traits = append(s.traits, in)
	ident, ok := s.identities[in.Identity.Identifier]
	if !ok {
		ident = &identity{flags: slices.Clone(s.flags)}
		s.identities[in.Identity.Identifier] = ident
	}
	i := slices.IndexFunc(ident.traits, func(t remote.Trait) bool { return t.Key == in.Key })
	if i >= 0 {
		ident.traits[i].Value = in.Value
	} else {
		ident.traits = append(ident.traits, in.Trait())
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, in)
}

func (s *Server) postAnalytics(w http.ResponseWriter, r *http.Request) {
	var in map[string]int
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed analytics"})
		return
	}

	s.mu.Lock()
	s.analytics = append(s.analytics, in)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
