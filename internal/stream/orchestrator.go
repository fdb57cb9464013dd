package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/indrasankhag/cinedrive-backend/internal/models"
	"github.com/indrasankhag/cinedrive-backend/internal/scraper"
)

// CacheWriter persists a freshly scraped stream URL with its expiry.
type CacheWriter interface {
	UpdateStreamCache(ctx context.Context, id, url string, expiresAt time.Time) error
}

// RefreshResult is a usable stream URL produced by a refresh.
type RefreshResult struct {
	URL       string
	Quality   string
	ExpiresAt time.Time
}

// Orchestrator runs the synchronous refresh path taken when a client request
// finds no usable cache: resolve a scrape target, pass the shared throttle,
// scrape, validate, persist. It fails fast on throttle denial because a user
// is waiting; the background refresher makes the blocking variant of the same
// sequence.
type Orchestrator struct {
	scraper  scraper.Scraper
	throttle *Throttle
	store    CacheWriter
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator wires the refresh path. The throttle must be the same shared
// instance handed to the background refresher.
func NewOrchestrator(sc scraper.Scraper, throttle *Throttle, store CacheWriter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		scraper:  sc,
		throttle: throttle,
		store:    store,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the time source for tests.
func (o *Orchestrator) WithNowFunc(now func() time.Time) {
	o.now = now
}

// Refresh reacquires a direct stream URL for the entry.
//
// Failure modes, in order of occurrence: ErrUnresolvableSource when the stored
// identifier yields no video id, *ThrottledError when the scrape throttle
// denies, ErrScrapeFailed when the upstream gives no usable result, and
// ErrIndirectURL when the scraper hands back an embed/plugin URL. A cache
// write failure is logged but does not fail the refresh: the caller's need is
// the playable URL, which has already been obtained, and the cache will simply
// be reacquired on the next miss.
func (o *Orchestrator) Refresh(ctx context.Context, movie models.Movie) (RefreshResult, error) {
	target, err := ResolveTarget(movie.Source)
	if err != nil {
		return RefreshResult{}, err
	}

	if ok, wait := o.throttle.TryAcquire(); !ok {
		return RefreshResult{}, &ThrottledError{Wait: wait}
	}

	result, err := o.scraper.Scrape(ctx, target)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}

	if !IsDirectURL(result.URL) {
		return RefreshResult{}, fmt.Errorf("%w: %s", ErrIndirectURL, result.URL)
	}

	expiresAt := result.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = ExpiryFromURL(result.URL, o.now())
	}

	if err := o.store.UpdateStreamCache(ctx, movie.ID, result.URL, expiresAt); err != nil {
		o.logger.Error("persist stream cache",
			"movieId", movie.ID,
			"title", movie.Title,
			"error", err,
		)
	}

	return RefreshResult{URL: result.URL, Quality: result.Quality, ExpiresAt: expiresAt}, nil
}

// IsThrottled reports whether err is a throttle denial and returns the wait.
func IsThrottled(err error) (time.Duration, bool) {
	var throttled *ThrottledError
	if errors.As(err, &throttled) {
		return throttled.Wait, true
	}
	return 0, false
}
