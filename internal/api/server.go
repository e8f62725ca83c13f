// Package api provides the HTTP server for minex. It exposes the mining-task
// action protocol: one envelope endpoint per subject, plus health and
// metrics.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/v4ex/minex/internal/auth"
	"github.com/v4ex/minex/internal/mining"
)

// Server is the minex HTTP API server.
type Server struct {
	dispatcher     *mining.Dispatcher
	authenticator  auth.Authenticator
	roles          auth.RoleFetcher
	roleCacheTTL   time.Duration
	metricsEnabled bool

	// One gate per authenticated caller; the gate owns that caller's
	// role cache.
	mu    sync.Mutex
	gates map[string]*auth.Gate
}

// NewServer creates a new API server.
func NewServer(dispatcher *mining.Dispatcher, authenticator auth.Authenticator, roles auth.RoleFetcher, roleCacheTTL time.Duration) *Server {
	return &Server{
		dispatcher:    dispatcher,
		authenticator: authenticator,
		roles:         roles,
		roleCacheTTL:  roleCacheTTL,
		gates:         make(map[string]*auth.Gate),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	// Mining-task action protocol
	r.Route("/mining-task/{sub}", func(r chi.Router) {
		r.Post("/actions", s.handleAction)
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// handleAction authenticates the caller, decodes the envelope, and hands it
// to the dispatcher. The subject in the path names the task's owning miner;
// the caller may be someone else (a broker or minter acting on it).
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	caller, err := s.authenticator.Authenticate(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	var env mining.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "malformed action envelope")
		return
	}

	sub := chi.URLParam(r, "sub")
	resp := s.dispatcher.Dispatch(r.Context(), s.gateFor(caller), sub, env)
	writeJSON(w, resp.Status, resp)
}

// gateFor returns the caller's gate, creating it on first use.
func (s *Server) gateFor(caller string) *auth.Gate {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gates[caller]
	if !ok {
		g = auth.NewGate(caller, s.roles, s.roleCacheTTL)
		s.gates[caller] = g
	}
	return g
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return h[7:]
	}
	return ""
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}
