// ABOUTME: HTTP management API server: routing, JSON helpers, error mapping
// ABOUTME: Read key covers fetches, admin key covers mutations

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389/relay-console/internal/accounts"
	"github.com/2389/relay-console/internal/policy"
	"github.com/2389/relay-console/internal/relay"
	"github.com/2389/relay-console/internal/store"
)

// Server exposes relay and account management over HTTP.
type Server struct {
	store    store.Store
	registry *accounts.Registry
	engine   *policy.Engine
	logger   *slog.Logger

	readKey  string
	adminKey string

	metricsEnabled bool
	metricsPath    string
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes the Prometheus registry at the given path.
func WithMetrics(path string) Option {
	return func(s *Server) {
		s.metricsEnabled = true
		s.metricsPath = path
	}
}

// NewServer creates a management API server.
func NewServer(st store.Store, registry *accounts.Registry, readKey, adminKey string, opts ...Option) *Server {
	s := &Server{
		store:    st,
		registry: registry,
		engine:   policy.NewEngine(st),
		logger:   slog.Default().With("component", "api"),
		readKey:  readKey,
		adminKey: adminKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the route table. Info and join endpoints are public;
// everything else needs a key.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("POST /api/v1/relay", s.requireAdmin(http.HandlerFunc(s.handleCreateRelay)))
	mux.Handle("GET /api/v1/relay", s.requireRead(http.HandlerFunc(s.handleListRelays)))
	mux.Handle("GET /api/v1/relay/{id}", s.requireRead(http.HandlerFunc(s.handleGetRelay)))
	mux.Handle("PUT /api/v1/relay/{id}", s.requireAdmin(http.HandlerFunc(s.handleUpdateRelay)))
	mux.Handle("DELETE /api/v1/relay/{id}", s.requireAdmin(http.HandlerFunc(s.handleDeleteRelay)))

	mux.HandleFunc("GET /api/v1/relay/{id}/info", s.handleRelayInfo)
	mux.HandleFunc("POST /api/v1/relay/{id}/join", s.handleJoin)
	mux.Handle("POST /api/v1/relay/{id}/event", s.requireAdmin(http.HandlerFunc(s.handleSubmitEvent)))

	mux.Handle("GET /api/v1/account", s.requireRead(http.HandlerFunc(s.handleListAccounts)))
	mux.Handle("PUT /api/v1/account", s.requireAdmin(http.HandlerFunc(s.handleUpsertAccount)))
	mux.Handle("DELETE /api/v1/account/{relayID}/{pubkey}", s.requireAdmin(http.HandlerFunc(s.handleDeleteAccount)))

	if s.metricsEnabled {
		mux.Handle("GET "+s.metricsPath, promhttp.Handler())
	}

	return mux
}

// writeJSON encodes a response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

// sendJSONError writes a JSON error body with the given status.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// sendError maps domain errors onto HTTP statuses.
func (s *Server) sendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.sendJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		s.sendJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, relay.ErrValidation):
		s.sendJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}
