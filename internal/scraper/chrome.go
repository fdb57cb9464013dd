package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromeScraper drives a headless Chrome instance to load the watch page and
// pull the video source out of the rendered markup. This is the heavyweight
// path: the page executes its scripts, so sources that only appear after
// hydration are visible here.
type ChromeScraper struct {
	ExecPath string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// NewChromeScraper constructs a scraper with the given Chrome binary path
// (empty means chromedp's default lookup) and per-scrape timeout.
func NewChromeScraper(execPath string, timeout time.Duration, logger *slog.Logger) *ChromeScraper {
	if timeout <= 0 {
		timeout = 35 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeScraper{ExecPath: execPath, Timeout: timeout, Logger: logger}
}

// Scrape implements Scraper.
func (s *ChromeScraper) Scrape(ctx context.Context, target string) (Result, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(defaultUserAgent),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("mute-audio", true),
	)
	if s.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	runCtx, cancelRun := chromedp.NewContext(allocCtx)
	defer cancelRun()

	runCtx, cancelTimeout := context.WithTimeout(runCtx, s.Timeout)
	defer cancelTimeout()

	start := time.Now()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(target),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return Result{}, fmt.Errorf("chrome scrape %s: %w", target, err)
	}

	url, quality, ok := extractPlayableURL(html)
	if !ok {
		return Result{}, fmt.Errorf("chrome scrape %s: %w", target, ErrNoPlayableURL)
	}

	s.Logger.Info("scraped video source",
		"target", target,
		"quality", quality,
		"duration", time.Since(start),
	)

	return Result{URL: url, Quality: quality}, nil
}
