package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ryanm101/librelauncher/internal/app"
	"github.com/ryanm101/librelauncher/internal/game"
	"github.com/ryanm101/librelauncher/internal/logging"
)

const maxEventWait = 30 * time.Second

// gameView is the wire form of a record.
type gameView struct {
	ID                 string                              `json:"id"`
	Name               string                              `json:"name"`
	ExePath            string                              `json:"exe_path"`
	Description        string                              `json:"description"`
	HasIcon            bool                                `json:"has_icon"`
	HasBanner          bool                                `json:"has_banner"`
	PlayTimeSeconds    float64                             `json:"play_time_seconds"`
	LastPlayed         *time.Time                          `json:"last_played,omitempty"`
	Favorite           bool                                `json:"is_favorite"`
	ReviewSummary      *string                             `json:"review_summary,omitempty"`
	ReviewPercentage   *int                                `json:"review_percentage,omitempty"`
	ReviewClass        game.ReviewClass                    `json:"review_class"`
	SystemRequirements *string                             `json:"system_requirements,omitempty"`
	Status             map[game.Attribute]game.FieldStatus `json:"status"`
	Running            bool                                `json:"running"`
}

func (s *Server) view(rec game.Record) gameView {
	v := gameView{
		ID:                 GameID(rec.ExePath),
		Name:               rec.Name,
		ExePath:            rec.ExePath,
		Description:        rec.Description,
		HasIcon:            rec.IconPath != "",
		HasBanner:          rec.BannerPath != "",
		PlayTimeSeconds:    game.DurationSeconds(rec.PlayTime),
		LastPlayed:         rec.LastPlayed,
		Favorite:           rec.Favorite,
		ReviewSummary:      rec.ReviewSummary,
		ReviewPercentage:   rec.ReviewPercentage,
		ReviewClass:        game.ReviewNeutral,
		SystemRequirements: rec.SystemRequirements,
		Status:             make(map[game.Attribute]game.FieldStatus, len(game.Attributes)),
		Running:            s.lib.Running(rec.ExePath),
	}
	if rec.ReviewSummary != nil {
		v.ReviewClass = game.ClassifyReview(*rec.ReviewSummary)
	}
	for _, a := range game.Attributes {
		v.Status[a] = rec.StatusOf(a)
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	recs := s.lib.List(r.URL.Query().Get("q"))
	out := make([]gameView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.view(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

type addRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", game.ErrInvalidArg, err))
		return
	}
	rec, err := s.lib.Add(r.Context(), req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(rec))
}

func (s *Server) handleEnrichAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, map[string]int{"dispatched": s.lib.EnrichAll()})
}

// gameKey decodes the {id} URL parameter, writing an error response on
// failure.
func gameKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := parseGameID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return "", false
	}
	return key, true
}

// handleGet returns a record and, like selecting it in a list, schedules
// whatever metadata it is missing.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := gameKey(w, r)
	if !ok {
		return
	}
	rec, err := s.lib.Select(key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec))
}

type editRequest struct {
	Name        *string `json:"name"`
	Path        *string `json:"exe_path"`
	Description *string `json:"description"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	key, ok := gameKey(w, r)
	if !ok {
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", game.ErrInvalidArg, err))
		return
	}
	rec, err := s.lib.Edit(r.Context(), key, app.Changes{
		Name:        req.Name,
		Path:        req.Path,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, ok := gameKey(w, r)
	if !ok {
		return
	}
	if err := s.lib.Delete(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) {
	key, ok := gameKey(w, r)
	if !ok {
		return
	}
	rec, err := s.lib.ToggleFavorite(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec))
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	key, ok := gameKey(w, r)
	if !ok {
		return
	}
	// The game outlives the request.
	if err := s.lib.Launch(context.WithoutCancel(r.Context()), key); err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.lib.Get(key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.view(rec))
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	key, ok := gameKey(w, r)
	if !ok {
		return
	}
	dispatched, err := s.lib.Enrich(key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"dispatched": dispatched})
}

func (s *Server) handleIcon(w http.ResponseWriter, r *http.Request) {
	s.serveImage(w, r, func(rec game.Record) string { return rec.IconPath })
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	s.serveImage(w, r, func(rec game.Record) string { return rec.BannerPath })
}

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request, pick func(game.Record) string) {
	key, ok := gameKey(w, r)
	if !ok {
		return
	}
	rec, err := s.lib.Get(key)
	if err != nil {
		writeError(w, err)
		return
	}
	path := pick(rec)
	if path == "" {
		writeError(w, game.NotFoundError("image", key))
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleCatalogRefresh(w http.ResponseWriter, r *http.Request) {
	n, err := s.lib.RefreshCatalog(r.Context(), io.Discard)
	if err != nil {
		logging.Warn("catalog refresh failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"entries": n})
}

// handleEvents returns events after ?since=N. With ?wait=DURATION it holds
// the request until a new event arrives or the wait elapses.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var since uint64
	if v := q.Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: since: %v", game.ErrInvalidArg, err))
			return
		}
		since = n
	}
	var wait time.Duration
	if v := q.Get("wait"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			writeError(w, fmt.Errorf("%w: wait %q", game.ErrInvalidArg, v))
			return
		}
		wait = min(d, maxEventWait)
	}

	events, notify := s.events.Since(since)
	if len(events) == 0 && wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-notify:
			events, _ = s.events.Since(since)
		case <-timer.C:
		case <-r.Context().Done():
			return
		}
	}

	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, newEventView(e))
	}
	writeJSON(w, http.StatusOK, out)
}
