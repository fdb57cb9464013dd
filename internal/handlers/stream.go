package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/indrasankhag/cinedrive-backend/internal/logging"
	"github.com/indrasankhag/cinedrive-backend/internal/metrics"
	"github.com/indrasankhag/cinedrive-backend/internal/repositories"
	"github.com/indrasankhag/cinedrive-backend/internal/stream"
)

// StreamHandler serves the playable URL for a catalog entry: cached when the
// cache is usable, freshly scraped otherwise.
type StreamHandler struct {
	Movies    MovieStore
	Refresher StreamRefresher
	Prober    stream.Prober
	Limiter   RateLimiter
	Metrics   *metrics.Collector
	NowFunc   func() time.Time
}

type streamResponse struct {
	URL       string    `json:"url"`
	Cached    bool      `json:"cached"`
	ExpiresAt time.Time `json:"expiresAt"`
	Quality   string    `json:"quality,omitempty"`
}

// Get handles GET /api/v1/movies/{id}/stream.
func (h StreamHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Movies == nil || h.Refresher == nil {
		logger.Error("stream dependencies unavailable", "hasMovies", h.Movies != nil, "hasRefresher", h.Refresher != nil)
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "stream service unavailable")
		return
	}

	if h.Limiter != nil {
		decision := h.Limiter.Check(rateLimitKey(r, "stream"))
		if !decision.Allowed {
			h.Metrics.RecordRateLimited()
			logger.Warn("client rate limited", "clientIp", clientIP(r), "retryAfterSeconds", decision.RetryAfterSeconds())
			respondRetryAfter(ctx, w, "rate_limited", "too many requests, slow down", decision.RetryAfterSeconds())
			return
		}
	}

	id := r.PathValue("id")
	if id == "" {
		respondError(ctx, w, http.StatusBadRequest, "invalid_input", "movie id is required")
		return
	}

	movie, err := h.Movies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "not_found", "movie not found")
			return
		}
		logger.Error("movie lookup failed", "movieId", id, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "unable to load movie")
		return
	}

	now := h.now()
	eval := stream.EvaluateCache(movie, now)

	missReason := eval.Status.String()
	if eval.Status == stream.CacheHit {
		if err := h.probe(r, eval.URL); err == nil {
			h.Metrics.RecordCacheHit()
			respondJSON(ctx, w, http.StatusOK, streamResponse{
				URL:       eval.URL,
				Cached:    true,
				ExpiresAt: eval.ExpiresAt,
			})
			return
		}
		// Time-valid but already revoked upstream: reacquire.
		logger.Warn("cached url failed reachability probe", "movieId", movie.ID)
		missReason = "probe_failed"
	}

	h.Metrics.RecordCacheMiss(missReason)

	result, err := h.Refresher.Refresh(ctx, movie)
	if err != nil {
		h.respondRefreshError(w, r, movie.ID, err)
		return
	}

	h.Metrics.RecordScrape("success")
	respondJSON(ctx, w, http.StatusOK, streamResponse{
		URL:       result.URL,
		Cached:    false,
		ExpiresAt: result.ExpiresAt,
		Quality:   result.Quality,
	})
}

func (h StreamHandler) respondRefreshError(w http.ResponseWriter, r *http.Request, movieID string, err error) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if wait, ok := stream.IsThrottled(err); ok {
		h.Metrics.RecordThrottleDenied()
		logger.Warn("refresh throttled", "movieId", movieID, "wait", wait)
		respondRetryAfter(ctx, w, "throttled", "stream refresh is throttled, try again shortly", int(wait.Seconds()))
		return
	}

	switch {
	case errors.Is(err, stream.ErrUnresolvableSource):
		logger.Error("movie source needs correction", "movieId", movieID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			Error:   "unresolvable_source",
			Message: "the stored video source cannot be resolved; contact an administrator",
			Details: err.Error(),
		})
	case errors.Is(err, stream.ErrIndirectURL):
		h.Metrics.RecordScrape("indirect")
		logger.Error("scraper returned indirect url", "movieId", movieID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "scrape_failed", "unable to obtain a playable stream url")
	default:
		h.Metrics.RecordScrape("failure")
		logger.Error("stream refresh failed", "movieId", movieID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "scrape_failed", "unable to obtain a playable stream url")
	}
}

func (h StreamHandler) probe(r *http.Request, url string) error {
	if h.Prober == nil {
		return nil
	}
	return h.Prober.Probe(r.Context(), url)
}

func (h StreamHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
