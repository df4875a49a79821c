// Package server exposes the launcher over a local JSON API.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ryanm101/librelauncher/internal/app"
	"github.com/ryanm101/librelauncher/internal/enrich"
	"github.com/ryanm101/librelauncher/internal/game"
	"github.com/ryanm101/librelauncher/internal/launch"
	"github.com/ryanm101/librelauncher/internal/logging"
)

// Library is the part of the launcher core the API drives.
type Library interface {
	Get(key string) (game.Record, error)
	List(filter string) []game.Record
	Select(key string) (game.Record, error)
	Add(ctx context.Context, path string) (game.Record, error)
	Edit(ctx context.Context, key string, ch app.Changes) (game.Record, error)
	Delete(ctx context.Context, key string) error
	ToggleFavorite(ctx context.Context, key string) (game.Record, error)
	Launch(ctx context.Context, key string) error
	Running(key string) bool
	Enrich(key string) (bool, error)
	EnrichAll() int
	RefreshCatalog(ctx context.Context, progress io.Writer) (int, error)
}

// Server handles HTTP requests.
type Server struct {
	lib    Library
	events *EventLog
	router chi.Router
}

// New creates a server. Events, when non-nil, are served from /api/v1/events.
func New(lib Library, events *EventLog) *Server {
	if events == nil {
		events = NewEventLog(0)
	}
	s := &Server{lib: lib, events: events}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the server wrapped with tracing.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s, "librelauncher.api")
}

// HTTPServer returns an http.Server for addr with sensible timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/games", s.handleList)
		r.Post("/games", s.handleAdd)
		r.Post("/games/enrich", s.handleEnrichAll)
		r.Route("/games/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Patch("/", s.handleEdit)
			r.Delete("/", s.handleDelete)
			r.Post("/favorite", s.handleFavorite)
			r.Post("/launch", s.handleLaunch)
			r.Post("/enrich", s.handleEnrich)
			r.Get("/icon", s.handleIcon)
			r.Get("/banner", s.handleBanner)
		})
		r.Post("/catalog/refresh", s.handleCatalogRefresh)
		r.Get("/events", s.handleEvents)
	})
	return r
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// GameID encodes an executable path for use in URLs.
func GameID(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func parseGameID(id string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil || len(b) == 0 {
		return "", game.ErrInvalidArg
	}
	return string(b), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrDuplicate), errors.Is(err, launch.ErrAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, game.ErrInvalidArg):
		status = http.StatusBadRequest
	case errors.Is(err, launch.ErrMissing):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// eventView is the wire form of an event.
type eventView struct {
	Seq   uint64    `json:"seq"`
	Kind  string    `json:"kind"`
	ID    string    `json:"id"`
	Path  string    `json:"exe_path"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

func newEventView(e LoggedEvent) eventView {
	v := eventView{
		Seq:  e.Seq,
		Kind: e.Kind.String(),
		ID:   GameID(e.Key),
		Path: e.Key,
		Time: e.Time,
	}
	if e.Err != nil {
		v.Error = e.Err.Error()
	}
	return v
}

// LoggedEvent is an event with its position in the log.
type LoggedEvent struct {
	enrich.Event
	Seq  uint64
	Time time.Time
}
