// Package web exposes the operator control surface and the dashboard query
// layer over HTTP.
package web

import (
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"autoforward_bot/internal/config"
	"autoforward_bot/internal/forwarder"
	"autoforward_bot/internal/storage"
)

//go:embed dashboard.html
var dashboardHTML []byte

// Display bounds for the dashboard projection. displayTextLimit is
// independent of the stored truncation bound in internal/model.
const (
	displayTextLimit    = 100
	defaultMessageLimit = 50
	sessionListLimit    = 20
	errorListLimit      = 30
)

// Server serves the control and dashboard endpoints. store may be nil when
// the database is unavailable; the dashboard still renders and the
// data-dependent endpoints report the store as unavailable.
type Server struct {
	manager *forwarder.Manager
	store   storage.Storage
	cfg     *config.Config
	log     *slog.Logger
}

// New creates a Server around the given control surface and store.
func New(manager *forwarder.Manager, store storage.Storage, cfg *config.Config, log *slog.Logger) *Server {
	return &Server{manager: manager, store: store, cfg: cfg, log: log}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleIndex)
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/start", s.handleStart)
	r.Post("/api/stop", s.handleStop)
	r.Get("/api/config", s.handleConfig)
	r.Get("/api/health", s.handleHealth)

	r.Route("/api/database", func(r chi.Router) {
		r.Get("/messages", s.handleMessages)
		r.Get("/sessions", s.handleSessions)
		r.Get("/errors", s.handleErrors)
		r.Post("/errors/{id}/resolve", s.handleResolveError)
		r.Get("/stats", s.handleStats)
	})

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// requireStore guards the data-dependent endpoints: the dashboard must keep
// rendering even when the persistence layer is unavailable.
func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		s.writeError(w, http.StatusInternalServerError, "Database not available")
		return false
	}
	return true
}
