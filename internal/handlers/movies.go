package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/indrasankhag/cinedrive-backend/internal/auth"
	"github.com/indrasankhag/cinedrive-backend/internal/logging"
	"github.com/indrasankhag/cinedrive-backend/internal/models"
	"github.com/indrasankhag/cinedrive-backend/internal/repositories"
	"github.com/indrasankhag/cinedrive-backend/internal/storage"
	"github.com/indrasankhag/cinedrive-backend/internal/stream"
)

const maxPosterBytes = 10 << 20

// MovieHandler provides catalog listing plus the admin mutation endpoints.
type MovieHandler struct {
	Movies  MovieStore
	Admin   *auth.AdminGuard
	Posters storage.PosterStore
	NowFunc func() time.Time
}

type movieResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Source          string     `json:"source"`
	PosterURL       string     `json:"posterUrl,omitempty"`
	StreamCached    bool       `json:"streamCached"`
	StreamExpiresAt *time.Time `json:"streamExpiresAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type createMovieRequest struct {
	Title  string `json:"title"`
	Source string `json:"source"`
}

type updateSourceRequest struct {
	Source string `json:"source"`
}

func toMovieResponse(m models.Movie) movieResponse {
	return movieResponse{
		ID:              m.ID,
		Title:           m.Title,
		Source:          m.Source,
		PosterURL:       m.PosterURL,
		StreamCached:    m.HasStreamCache(),
		StreamExpiresAt: m.StreamExpiresAt,
		CreatedAt:       m.CreatedAt,
	}
}

// List handles GET /api/v1/movies.
func (h MovieHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Movies == nil {
		logger.Error("movie store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "catalog unavailable")
		return
	}

	movies, err := h.Movies.List(ctx, 100)
	if err != nil {
		logger.Error("list movies failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "unable to list movies")
		return
	}

	entries := make([]movieResponse, 0, len(movies))
	for _, m := range movies {
		entries = append(entries, toMovieResponse(m))
	}

	respondJSON(ctx, w, http.StatusOK, map[string][]movieResponse{"movies": entries})
}

// Get handles GET /api/v1/movies/{id}.
func (h MovieHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Movies == nil {
		logger.Error("movie store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "catalog unavailable")
		return
	}

	movie, err := h.Movies.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "not_found", "movie not found")
			return
		}
		logger.Error("movie lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "unable to load movie")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toMovieResponse(movie))
}

// Create handles POST /api/v1/movies (admin).
func (h MovieHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Movies == nil {
		logger.Error("movie store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "catalog unavailable")
		return
	}

	if !h.requireAdmin(w, r) {
		return
	}

	var req createMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid create movie payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Source = strings.TrimSpace(req.Source)
	if req.Title == "" || req.Source == "" {
		respondError(ctx, w, http.StatusBadRequest, "invalid_input", "title and source are required")
		return
	}

	if _, err := stream.ResolveTarget(req.Source); err != nil {
		logger.Warn("create movie with unresolvable source", "source", req.Source, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid_input", "source must be a facebook video id, watch url, or cdn url")
		return
	}

	now := h.now()
	movie := models.Movie{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Source:    req.Source,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Movies.Create(ctx, movie); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "conflict", "movie already exists")
			return
		}
		logger.Error("create movie failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "unable to create movie")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, toMovieResponse(movie))
}

// UpdateSource handles PUT /api/v1/movies/{id}/source (admin). This is the
// corrective action for entries whose stored identifier can no longer be
// resolved to a video.
func (h MovieHandler) UpdateSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Movies == nil {
		logger.Error("movie store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "catalog unavailable")
		return
	}

	if !h.requireAdmin(w, r) {
		return
	}

	var req updateSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid update source payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		respondError(ctx, w, http.StatusBadRequest, "invalid_input", "source is required")
		return
	}

	if _, err := stream.ResolveTarget(req.Source); err != nil {
		logger.Warn("update with unresolvable source", "source", req.Source, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid_input", "source must be a facebook video id, watch url, or cdn url")
		return
	}

	id := r.PathValue("id")
	if err := h.Movies.UpdateSource(ctx, id, req.Source); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "not_found", "movie not found")
			return
		}
		logger.Error("update movie source failed", "movieId", id, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "unable to update source")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "source updated"})
}

// UploadPoster handles PUT /api/v1/movies/{id}/poster (admin). The request
// body is the raw image; its Content-Type is preserved on the stored object.
func (h MovieHandler) UploadPoster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Movies == nil {
		logger.Error("movie store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "catalog unavailable")
		return
	}

	if h.Posters == nil {
		respondError(ctx, w, http.StatusServiceUnavailable, "posters_disabled", "poster storage is not configured")
		return
	}

	if !h.requireAdmin(w, r) {
		return
	}

	id := r.PathValue("id")
	if _, err := h.Movies.FindByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "not_found", "movie not found")
			return
		}
		logger.Error("movie lookup failed", "movieId", id, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "unable to load movie")
		return
	}

	body := io.LimitReader(r.Body, maxPosterBytes)
	location, err := h.Posters.Save(ctx, id, r.Header.Get("Content-Type"), body)
	if err != nil {
		logger.Error("store poster failed", "movieId", id, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "unable to store poster")
		return
	}

	if err := h.Movies.UpdatePoster(ctx, id, location); err != nil {
		logger.Error("record poster location failed", "movieId", id, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "unable to record poster")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"posterUrl": location})
}

func (h MovieHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()
	err := h.Admin.Authorize(r.Header.Get("X-Admin-Key"))
	switch {
	case err == nil:
		return true
	case errors.Is(err, auth.ErrAdminDisabled):
		respondError(ctx, w, http.StatusServiceUnavailable, "admin_disabled", "admin access is not configured")
	default:
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized", "invalid admin key")
	}
	return false
}

func (h MovieHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
