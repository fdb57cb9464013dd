// Package scraper extracts direct, playable CDN URLs from facebook watch
// pages. Implementations bound their own runtime and may fail for private,
// deleted, or unreachable content.
package scraper

import (
	"context"
	"errors"
	"time"
)

// ErrNoPlayableURL indicates the page loaded but no video source could be
// extracted from it.
var ErrNoPlayableURL = errors.New("no playable url found on page")

// Result is a successful extraction. ExpiresAt is a best-effort planning hint
// and may be zero; callers derive a definitive expiry from the URL itself.
type Result struct {
	URL       string
	Quality   string
	ExpiresAt time.Time
}

// Scraper resolves a watch-page URL to a direct video URL.
type Scraper interface {
	Scrape(ctx context.Context, target string) (Result, error)
}

// Chain tries each scraper in order and returns the first success.
type Chain []Scraper

// Scrape implements Scraper.
func (c Chain) Scrape(ctx context.Context, target string) (Result, error) {
	if len(c) == 0 {
		return Result{}, errors.New("scraper chain is empty")
	}

	var lastErr error
	for _, s := range c {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		result, err := s.Scrape(ctx, target)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return Result{}, lastErr
}
