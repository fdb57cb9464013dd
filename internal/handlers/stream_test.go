package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/indrasankhag/cinedrive-backend/internal/models"
	"github.com/indrasankhag/cinedrive-backend/internal/ratelimit"
	"github.com/indrasankhag/cinedrive-backend/internal/repositories"
	"github.com/indrasankhag/cinedrive-backend/internal/stream"
)

type movieStoreStub struct {
	movie   models.Movie
	findErr error

	created      models.Movie
	createErr    error
	list         []models.Movie
	listErr      error
	sourceID     string
	source       string
	sourceErr    error
	posterID     string
	posterURL    string
	posterErr    error
	findByIDCall int
}

func (s *movieStoreStub) Create(ctx context.Context, movie models.Movie) error {
	_ = ctx
	s.created = movie
	return s.createErr
}

func (s *movieStoreStub) FindByID(ctx context.Context, id string) (models.Movie, error) {
	_ = ctx
	_ = id
	s.findByIDCall++
	if s.findErr != nil {
		return models.Movie{}, s.findErr
	}
	return s.movie, nil
}

func (s *movieStoreStub) List(ctx context.Context, limit int) ([]models.Movie, error) {
	_ = ctx
	_ = limit
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.list, nil
}

func (s *movieStoreStub) UpdateSource(ctx context.Context, id, source string) error {
	_ = ctx
	s.sourceID = id
	s.source = source
	return s.sourceErr
}

func (s *movieStoreStub) UpdatePoster(ctx context.Context, id, posterURL string) error {
	_ = ctx
	s.posterID = id
	s.posterURL = posterURL
	return s.posterErr
}

type refresherStub struct {
	result stream.RefreshResult
	err    error
	calls  int
}

func (r *refresherStub) Refresh(ctx context.Context, movie models.Movie) (stream.RefreshResult, error) {
	_ = ctx
	_ = movie
	r.calls++
	return r.result, r.err
}

type proberStub struct {
	err   error
	calls int
}

func (p *proberStub) Probe(ctx context.Context, url string) error {
	_ = ctx
	_ = url
	p.calls++
	return p.err
}

type limiterStub struct {
	decision ratelimit.Decision
	keys     []string
}

func (l *limiterStub) Check(key string) ratelimit.Decision {
	l.keys = append(l.keys, key)
	return l.decision
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
}

func streamRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/movies/"+id+"/stream", nil)
	req.SetPathValue("id", id)
	return req
}

func cachedMovie(url string, expires time.Time) models.Movie {
	return models.Movie{
		ID:              "movie-1",
		Title:           "Cached Movie",
		Source:          "1234567890123",
		StreamURL:       url,
		StreamExpiresAt: &expires,
	}
}

func TestStreamHandlerServesFromCache(t *testing.T) {
	expires := fixedNow().Add(3 * time.Hour)
	store := &movieStoreStub{movie: cachedMovie("https://video.fbcdn.net/v/clip.mp4?oe=abc", expires)}
	refresher := &refresherStub{}

	handler := StreamHandler{Movies: store, Refresher: refresher, NowFunc: fixedNow}

	rec := httptest.NewRecorder()
	handler.Get(rec, streamRequest("movie-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}
	if refresher.calls != 0 {
		t.Fatal("a cache hit must not trigger a scrape")
	}

	var resp struct {
		URL       string    `json:"url"`
		Cached    bool      `json:"cached"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Cached {
		t.Fatal("expected cached response")
	}
	if resp.URL != store.movie.StreamURL {
		t.Fatalf("unexpected url: %s", resp.URL)
	}
	if !resp.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected expiry: %v", resp.ExpiresAt)
	}
}

func TestStreamHandlerRefreshesExpiredCache(t *testing.T) {
	expires := fixedNow().Add(-time.Hour)
	store := &movieStoreStub{movie: cachedMovie("https://video.fbcdn.net/v/old.mp4", expires)}

	freshExpiry := fixedNow().Add(24 * time.Hour)
	refresher := &refresherStub{result: stream.RefreshResult{
		URL:       "https://video.fbcdn.net/v/fresh.mp4",
		Quality:   "hd",
		ExpiresAt: freshExpiry,
	}}

	handler := StreamHandler{Movies: store, Refresher: refresher, NowFunc: fixedNow}

	rec := httptest.NewRecorder()
	handler.Get(rec, streamRequest("movie-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if refresher.calls != 1 {
		t.Fatalf("expected one refresh, got %d", refresher.calls)
	}

	var resp struct {
		URL     string `json:"url"`
		Cached  bool   `json:"cached"`
		Quality string `json:"quality"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Cached {
		t.Fatal("refreshed response must not claim to be cached")
	}
	if resp.URL != "https://video.fbcdn.net/v/fresh.mp4" || resp.Quality != "hd" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestStreamHandlerFailedProbeForcesRefresh(t *testing.T) {
	expires := fixedNow().Add(3 * time.Hour)
	store := &movieStoreStub{movie: cachedMovie("https://video.fbcdn.net/v/revoked.mp4", expires)}
	prober := &proberStub{err: errors.New("403 from cdn")}
	refresher := &refresherStub{result: stream.RefreshResult{
		URL:       "https://video.fbcdn.net/v/fresh.mp4",
		ExpiresAt: fixedNow().Add(24 * time.Hour),
	}}

	handler := StreamHandler{Movies: store, Refresher: refresher, Prober: prober, NowFunc: fixedNow}

	rec := httptest.NewRecorder()
	handler.Get(rec, streamRequest("movie-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if prober.calls != 1 {
		t.Fatalf("expected one probe, got %d", prober.calls)
	}
	if refresher.calls != 1 {
		t.Fatal("a revoked cached url must trigger a refresh")
	}
}

func TestStreamHandlerRateLimited(t *testing.T) {
	store := &movieStoreStub{movie: models.Movie{ID: "movie-1", Source: "1234567890123"}}
	refresher := &refresherStub{}
	limiter := &limiterStub{decision: ratelimit.Decision{Allowed: false, RetryAfter: 42 * time.Second}}

	handler := StreamHandler{Movies: store, Refresher: refresher, Limiter: limiter, NowFunc: fixedNow}

	rec := httptest.NewRecorder()
	handler.Get(rec, streamRequest("movie-1"))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") != "42" {
		t.Fatalf("unexpected Retry-After header: %q", rec.Header().Get("Retry-After"))
	}
	if store.findByIDCall != 0 {
		t.Fatal("rate-limited requests must not reach the store")
	}
	if refresher.calls != 0 {
		t.Fatal("rate-limited requests must not trigger a scrape")
	}

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "rate_limited" || resp.RetryAfterSeconds != 42 {
		t.Fatalf("unexpected error payload: %+v", resp)
	}
}

func TestStreamHandlerThrottled(t *testing.T) {
	store := &movieStoreStub{movie: models.Movie{ID: "movie-1", Source: "1234567890123"}}
	refresher := &refresherStub{err: &stream.ThrottledError{Wait: 4 * time.Second}}

	handler := StreamHandler{Movies: store, Refresher: refresher, NowFunc: fixedNow}

	rec := httptest.NewRecorder()
	handler.Get(rec, streamRequest("movie-1"))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") != "4" {
		t.Fatalf("unexpected Retry-After header: %q", rec.Header().Get("Retry-After"))
	}

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "throttled" {
		t.Fatalf("unexpected error code: %s", resp.Error)
	}
}

func TestStreamHandlerUnresolvableSource(t *testing.T) {
	store := &movieStoreStub{movie: models.Movie{ID: "movie-1", Source: "garbage"}}
	refresher := &refresherStub{err: stream.ErrUnresolvableSource}

	handler := StreamHandler{Movies: store, Refresher: refresher, NowFunc: fixedNow}

	rec := httptest.NewRecorder()
	handler.Get(rec, streamRequest("movie-1"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusInternalServerError)
	}

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "unresolvable_source" {
		t.Fatalf("unexpected error code: %s", resp.Error)
	}
}

func TestStreamHandlerScrapeFailure(t *testing.T) {
	store := &movieStoreStub{movie: models.Movie{ID: "movie-1", Source: "1234567890123"}}

	cases := []struct {
		name string
		err  error
	}{
		{"scrape failed", stream.ErrScrapeFailed},
		{"indirect url", stream.ErrIndirectURL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			refresher := &refresherStub{err: tc.err}
			handler := StreamHandler{Movies: store, Refresher: refresher, NowFunc: fixedNow}

			rec := httptest.NewRecorder()
			handler.Get(rec, streamRequest("movie-1"))

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusInternalServerError)
			}

			var resp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Error != "scrape_failed" {
				t.Fatalf("unexpected error code: %s", resp.Error)
			}
		})
	}
}

func TestStreamHandlerMovieNotFound(t *testing.T) {
	store := &movieStoreStub{findErr: repositories.ErrNotFound}
	handler := StreamHandler{Movies: store, Refresher: &refresherStub{}, NowFunc: fixedNow}

	rec := httptest.NewRecorder()
	handler.Get(rec, streamRequest("missing"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStreamHandlerMethodNotAllowed(t *testing.T) {
	handler := StreamHandler{Movies: &movieStoreStub{}, Refresher: &refresherStub{}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/movies/movie-1/stream", nil)
	req.SetPathValue("id", "movie-1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestRateLimitKeyScopesClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/movies/movie-1/stream", nil)
	req.RemoteAddr = "10.0.0.7:54321"

	if got := rateLimitKey(req, "stream"); got != "stream:10.0.0.7" {
		t.Fatalf("unexpected key: %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := rateLimitKey(req, "stream"); got != "stream:203.0.113.9" {
		t.Fatalf("expected first forwarded address, got %q", got)
	}
}
