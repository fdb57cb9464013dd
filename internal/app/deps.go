package app

import (
	"log/slog"

	"github.com/indrasankhag/cinedrive-backend/internal/config"
	"github.com/indrasankhag/cinedrive-backend/internal/db"
	"github.com/indrasankhag/cinedrive-backend/internal/handlers"
	"github.com/indrasankhag/cinedrive-backend/internal/metrics"
	"github.com/indrasankhag/cinedrive-backend/internal/ratelimit"
	"github.com/indrasankhag/cinedrive-backend/internal/repositories"
	"github.com/indrasankhag/cinedrive-backend/internal/scraper"
	"github.com/indrasankhag/cinedrive-backend/internal/stream"
)

// dependencies groups the wired components the serve command manages.
type dependencies struct {
	Handlers  handlers.Dependencies
	Refresher *stream.Refresher
	Limiter   *ratelimit.FixedWindow
}

// buildDependencies wires together concrete implementations used by the HTTP
// handlers and the background refresher. The scrape throttle is constructed
// once here and shared by both refresh paths.
func buildDependencies(pool db.Pool, cfg config.Config, logger *slog.Logger, collector *metrics.Collector) dependencies {
	repo := repositories.NewPostgresMovieRepository(pool)

	throttle := stream.NewThrottle(cfg.ScrapeDelay)
	videoScraper := scraper.Chain{
		scraper.NewChromeScraper(cfg.ChromePath, cfg.ScrapeTimeout, logger),
		scraper.NewHTTPScraper(cfg.ScrapeTimeout),
	}

	orchestrator := stream.NewOrchestrator(videoScraper, throttle, repo, logger)

	refresher := stream.NewRefresher(repo, videoScraper, throttle, stream.RefresherConfig{
		Interval:  cfg.RefreshInterval,
		Horizon:   cfg.RefreshBeforeExpiry,
		BatchSize: cfg.RefreshBatchSize,
		ItemDelay: refresherItemDelay,
	}, logger)
	refresher.OnPass(func(report stream.PassReport) {
		for _, outcome := range report.Outcomes {
			collector.RecordRefreshOutcome(outcome.Status.String())
		}
	})

	var prober stream.Prober
	if cfg.ProbeStreams {
		prober = stream.NewHeadProber(cfg.ProbeTimeout)
	}

	limiter := ratelimit.NewFixedWindow(cfg.RateLimitMaxRequests, cfg.RateLimitWindow)

	return dependencies{
		Handlers: handlers.Dependencies{
			Movies:    repo,
			Refresher: orchestrator,
			Prober:    prober,
			Limiter:   limiter,
			Metrics:   collector,
		},
		Refresher: refresher,
		Limiter:   limiter,
	}
}
