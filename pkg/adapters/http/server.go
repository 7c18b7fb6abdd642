// Package http exposes the relay's admin surface over HTTP: health and
// version probes, handler gauges, subscriber registration and notice
// publishing.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dylansturg/weakevent"
	"github.com/dylansturg/weakevent/internal/logging"
	"github.com/dylansturg/weakevent/pkg/domain"
	"github.com/dylansturg/weakevent/pkg/roster"
)

// Publisher sends a notice out through the relay's transport.
type Publisher interface {
	Publish(ctx context.Context, origin string, n domain.Notice) error
}

// Registrar creates and drops the relay's managed subscribers.
type Registrar interface {
	Register(name string, ttl time.Duration) (roster.Entry, error)
	Drop(name string) bool
	Entries() []roster.Entry
}

// Historian lists recently seen notices, newest first.
type Historian interface {
	Recent(n int) []domain.Notice
}

// Server wires the admin endpoints to the relay internals.
type Server struct {
	Publisher Publisher
	Registrar Registrar
	History   Historian
	Event     *weakevent.Event[domain.Notice]
	Gatherer  prometheus.Gatherer
	Version   string
	Logger    *slog.Logger
}

// NewHandler builds the router for the server. A nil Gatherer disables
// the metrics endpoint; a nil History disables the notice listing.
func NewHandler(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}

	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/handlers", s.GetHandlers)
	r.Get("/subscribers", s.ListSubscribers)
	r.Post("/subscribers/{name}", s.AddSubscriber)
	r.Delete("/subscribers/{name}", s.DropSubscriber)
	r.Post("/notices", s.PostNotice)
	if s.History != nil {
		r.Get("/notices", s.ListNotices)
	}
	if s.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"app":     "weakevent-relay",
		"version": strings.TrimSpace(s.Version),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetHandlers handles the GET /handlers request. It reports how many
// registrations the event carries and how many still reach a living
// subscriber; the difference is the inert remainder awaiting a prune.
func (s *Server) GetHandlers(w http.ResponseWriter, r *http.Request) {
	attached := s.Event.Len()
	live := s.Event.Live()
	resp := map[string]int{
		"attached": attached,
		"live":     live,
		"inert":    attached - live,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListSubscribers handles the GET /subscribers request.
func (s *Server) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Registrar.Entries()); err != nil {
		s.Logger.Error("ListSubscribers response encode failed", "err", err)
	}
}

// AddSubscriber handles the POST /subscribers/{name} request. An
// optional ttl query parameter bounds the subscriber's lease.
func (s *Server) AddSubscriber(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var ttl time.Duration
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		var err error
		ttl, err = time.ParseDuration(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid ttl: %v", err), http.StatusBadRequest)
			s.Logger.Warn("AddSubscriber: invalid ttl", "ttl", raw, "err", err)
			return
		}
	}

	entry, err := s.Registrar.Register(name, ttl)
	if err != nil {
		if errors.Is(err, roster.ErrNameTaken) {
			http.Error(w, fmt.Sprintf("Register error: %v", err), http.StatusConflict)
			return
		}
		http.Error(w, fmt.Sprintf("Register error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("AddSubscriber failed", "name", name, "err", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

// DropSubscriber handles the DELETE /subscribers/{name} request. The
// response comes back before the subscriber is reclaimed: dropping only
// releases the strong reference, the collector does the rest.
func (s *Server) DropSubscriber(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.Registrar.Drop(name) {
		http.Error(w, fmt.Sprintf("Unknown subscriber: %s", name), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotices handles the GET /notices request. An optional limit query
// parameter caps how many of the retained notices come back.
func (s *Server) ListNotices(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid limit: %v", err), http.StatusBadRequest)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.History.Recent(limit)); err != nil {
		s.Logger.Error("ListNotices response encode failed", "err", err)
	}
}

// PostNotice handles the POST /notices request.
func (s *Server) PostNotice(w http.ResponseWriter, r *http.Request) {
	var n domain.Notice
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("PostNotice: invalid request body", "err", err)
		return
	}
	if err := n.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid notice: %v", err), http.StatusBadRequest)
		return
	}

	if err := s.Publisher.Publish(r.Context(), "http", n); err != nil {
		http.Error(w, fmt.Sprintf("Publish error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("PostNotice publish failed", "err", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
