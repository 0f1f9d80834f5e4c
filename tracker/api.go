package tracker

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/reelwatch/tracker/internal/store"
)

// userIDHeader carries the tenant identity. Authentication happens upstream
// of this service; the header is trusted as-is.
const userIDHeader = "X-User-ID"

// Router builds the HTTP surface over the service.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Get("/parse/status", s.handleParseStatus)

		r.Route("/reels", func(r chi.Router) {
			r.Get("/", s.handleListReels)
			r.Post("/", s.handleCreateReel)
			r.Get("/{id}", s.handleGetReel)
			r.Patch("/{id}", s.handleUpdateReel)
			r.Delete("/{id}", s.handleDeleteReel)
			r.Get("/{id}/history", s.handleHistory)
		})
	})
	return r
}

func tenantID(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrReelNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateReel):
		status = http.StatusConflict
	case errors.Is(err, ErrReelQuotaExceeded):
		status = http.StatusForbidden
	case errors.Is(err, ErrEnqueueTooSoon):
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// ParseRequest is the body for POST /api/parse. An empty reel_id queues the
// tenant's whole enabled set.
type ParseRequest struct {
	ReelID string `json:"reel_id"`
}

func (s *Service) handleParse(w http.ResponseWriter, r *http.Request) {
	userID := tenantID(r)
	if userID == "" {
		http.Error(w, userIDHeader+" required", http.StatusBadRequest)
		return
	}

	var req ParseRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	if req.ReelID != "" {
		job, err := s.EnqueueReel(r.Context(), userID, req.ReelID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, job)
		return
	}

	n, err := s.EnqueueAllEnabled(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"enqueued": n})
}

func (s *Service) handleParseStatus(w http.ResponseWriter, r *http.Request) {
	userID := tenantID(r)
	if userID == "" {
		http.Error(w, userIDHeader+" required", http.StatusBadRequest)
		return
	}

	st, err := s.QueueStatus(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CreateReelRequest is the body for POST /api/reels.
type CreateReelRequest struct {
	Title    string `json:"title"`
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

func (s *Service) handleCreateReel(w http.ResponseWriter, r *http.Request) {
	userID := tenantID(r)
	if userID == "" {
		http.Error(w, userIDHeader+" required", http.StatusBadRequest)
		return
	}

	var req CreateReelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Platform == "" || req.URL == "" {
		http.Error(w, "platform and url required", http.StatusBadRequest)
		return
	}

	reel, err := s.CreateReel(r.Context(), userID, req.Title, req.Platform, req.URL)
	if err != nil {
		if !errorHasStatus(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reel)
}

// errorHasStatus reports whether writeError maps err to a specific status.
// Unmapped CreateReel errors (bad platform) are client errors.
func errorHasStatus(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrReelQuotaExceeded) ||
		errors.Is(err, store.ErrDuplicateReel)
}

func (s *Service) handleListReels(w http.ResponseWriter, r *http.Request) {
	userID := tenantID(r)
	if userID == "" {
		http.Error(w, userIDHeader+" required", http.StatusBadRequest)
		return
	}

	reels, err := s.ListReels(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if reels == nil {
		reels = []*store.Reel{}
	}
	writeJSON(w, http.StatusOK, reels)
}

func (s *Service) handleGetReel(w http.ResponseWriter, r *http.Request) {
	reel, err := s.GetReel(r.Context(), tenantID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reel)
}

// UpdateReelRequest is the body for PATCH /api/reels/{id}. Pointer fields
// distinguish "not sent" from a zero value.
type UpdateReelRequest struct {
	Title   *string `json:"title"`
	Enabled *bool   `json:"enabled"`
}

func (s *Service) handleUpdateReel(w http.ResponseWriter, r *http.Request) {
	var req UpdateReelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	reel, err := s.UpdateReel(r.Context(), tenantID(r), chi.URLParam(r, "id"), req.Title, req.Enabled)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reel)
}

func (s *Service) handleDeleteReel(w http.ResponseWriter, r *http.Request) {
	if err := s.DeleteReel(r.Context(), tenantID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.History(r.Context(), tenantID(r), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []*store.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
