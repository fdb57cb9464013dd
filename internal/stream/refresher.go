package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/indrasankhag/cinedrive-backend/internal/models"
	"github.com/indrasankhag/cinedrive-backend/internal/scraper"
)

// RefreshStore is the persistence surface the background refresher needs.
type RefreshStore interface {
	ListExpiringSoon(ctx context.Context, now time.Time, horizon time.Duration, limit int) ([]models.Movie, error)
	UpdateStreamCache(ctx context.Context, id, url string, expiresAt time.Time) error
	ClearExpiredStreamCache(ctx context.Context, now time.Time) (int64, error)
}

// OutcomeStatus classifies what happened to one entry during a refresh pass.
type OutcomeStatus int

const (
	// OutcomeRefreshed means a fresh direct URL was scraped and persisted.
	OutcomeRefreshed OutcomeStatus = iota
	// OutcomeSkipped means the entry was not attempted (unresolvable source,
	// or shutdown arrived first).
	OutcomeSkipped
	// OutcomeFailed means the scrape was attempted and produced no usable,
	// persisted result.
	OutcomeFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeRefreshed:
		return "refreshed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// EntryOutcome records the result for a single entry in a pass.
type EntryOutcome struct {
	MovieID string
	Title   string
	Status  OutcomeStatus
	Reason  string
}

// PassReport collects per-entry outcomes so a batch's result is observable
// instead of being swallowed into logs.
type PassReport struct {
	Started  time.Time
	Cleared  int64
	Outcomes []EntryOutcome
	Err      error
}

// Count returns how many outcomes carry the given status.
func (r PassReport) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// RefresherConfig controls the background refresh cadence.
type RefresherConfig struct {
	Interval  time.Duration
	Horizon   time.Duration
	BatchSize int
	ItemDelay time.Duration
}

// Refresher keeps the stream cache warm: on a recurring schedule it picks the
// soonest-expiring cached entries and re-scrapes them before clients notice
// the expiry.
//
// Entries are processed strictly one at a time. All of them contend for the
// single shared Throttle, so parallel attempts would only serialize there
// while wasting goroutines on blocked waits. Unlike the client-facing
// orchestrator, the refresher is allowed to sleep on a throttle denial and
// retry, since nobody is waiting synchronously.
type Refresher struct {
	store    RefreshStore
	scraper  scraper.Scraper
	throttle *Throttle
	cfg      RefresherConfig
	logger   *slog.Logger

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	onPass func(PassReport)
}

// NewRefresher constructs the background refresher. The throttle must be the
// same shared instance used by the request-path orchestrator.
func NewRefresher(store RefreshStore, sc scraper.Scraper, throttle *Throttle, cfg RefresherConfig, logger *slog.Logger) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = 2 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.ItemDelay < 0 {
		cfg.ItemDelay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		store:    store,
		scraper:  sc,
		throttle: throttle,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    sleepCtx,
	}
}

// WithNowFunc overrides the time source for tests.
func (r *Refresher) WithNowFunc(now func() time.Time) { r.now = now }

// WithSleepFunc overrides the delay primitive for tests.
func (r *Refresher) WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) {
	r.sleep = sleep
}

// OnPass registers an observer invoked with each completed pass report.
func (r *Refresher) OnPass(fn func(PassReport)) { r.onPass = fn }

// Run executes one pass immediately, then one per interval until the context
// is canceled. Pass-level failures are logged and the loop keeps going.
func (r *Refresher) Run(ctx context.Context) {
	r.logger.Info("background refresher starting",
		"interval", r.cfg.Interval,
		"horizon", r.cfg.Horizon,
		"batchSize", r.cfg.BatchSize,
	)

	r.finishPass(r.RunPass(ctx))

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("background refresher stopping")
			return
		case <-ticker.C:
			r.finishPass(r.RunPass(ctx))
		}
	}
}

func (r *Refresher) finishPass(report PassReport) {
	if report.Err != nil {
		r.logger.Error("refresh pass failed", "error", report.Err)
	} else {
		r.logger.Info("refresh pass completed",
			"refreshed", report.Count(OutcomeRefreshed),
			"skipped", report.Count(OutcomeSkipped),
			"failed", report.Count(OutcomeFailed),
			"cleared", report.Cleared,
			"duration", r.now().Sub(report.Started),
		)
	}
	if r.onPass != nil {
		r.onPass(report)
	}
}

// RunPass executes a single refresh pass and returns its report. Exported so
// tests can drive passes deterministically.
func (r *Refresher) RunPass(ctx context.Context) PassReport {
	report := PassReport{Started: r.now()}

	movies, err := r.store.ListExpiringSoon(ctx, report.Started, r.cfg.Horizon, r.cfg.BatchSize)
	if err != nil {
		report.Err = fmt.Errorf("list expiring entries: %w", err)
		return report
	}

	for _, movie := range movies {
		if ctx.Err() != nil {
			break
		}

		outcome := r.refreshOne(ctx, movie)
		report.Outcomes = append(report.Outcomes, outcome)

		if outcome.Status != OutcomeRefreshed {
			r.logger.Warn("entry not refreshed",
				"movieId", movie.ID,
				"title", movie.Title,
				"status", outcome.Status.String(),
				"reason", outcome.Reason,
			)
		}

		// Courtesy delay between entries, on top of the throttle's minimum.
		if err := r.sleep(ctx, r.cfg.ItemDelay); err != nil {
			break
		}
	}

	cleared, err := r.store.ClearExpiredStreamCache(ctx, r.now())
	if err != nil {
		r.logger.Error("clear expired stream cache", "error", err)
	}
	report.Cleared = cleared

	return report
}

func (r *Refresher) refreshOne(ctx context.Context, movie models.Movie) (outcome EntryOutcome) {
	outcome = EntryOutcome{MovieID: movie.ID, Title: movie.Title}

	// One entry's panic must not take down the batch.
	defer func() {
		if rec := recover(); rec != nil {
			outcome.Status = OutcomeFailed
			outcome.Reason = fmt.Sprintf("panic: %v", rec)
		}
	}()

	target, err := ResolveTarget(movie.Source)
	if err != nil {
		outcome.Status = OutcomeSkipped
		outcome.Reason = err.Error()
		return outcome
	}

	for {
		ok, wait := r.throttle.TryAcquire()
		if ok {
			break
		}
		if err := r.sleep(ctx, wait); err != nil {
			outcome.Status = OutcomeSkipped
			outcome.Reason = "shutdown before throttle grant"
			return outcome
		}
	}

	result, err := r.scraper.Scrape(ctx, target)
	if err != nil {
		outcome.Status = OutcomeFailed
		outcome.Reason = err.Error()
		return outcome
	}

	if !IsDirectURL(result.URL) {
		outcome.Status = OutcomeFailed
		outcome.Reason = fmt.Sprintf("indirect url: %s", result.URL)
		return outcome
	}

	expiresAt := result.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = ExpiryFromURL(result.URL, r.now())
	}

	if err := r.store.UpdateStreamCache(ctx, movie.ID, result.URL, expiresAt); err != nil {
		outcome.Status = OutcomeFailed
		outcome.Reason = fmt.Sprintf("persist: %v", err)
		return outcome
	}

	outcome.Status = OutcomeRefreshed
	return outcome
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
