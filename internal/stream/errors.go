package stream

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnresolvableSource indicates the stored source identifier cannot be
	// turned into a scrapeable video reference. The entry's source data needs
	// manual correction.
	ErrUnresolvableSource = errors.New("source identifier cannot be resolved to a video")
	// ErrIndirectURL indicates the scraper produced an embed/plugin URL
	// instead of a direct CDN link. Such URLs are never cached or served.
	ErrIndirectURL = errors.New("scraper returned a non-direct url")
	// ErrScrapeFailed indicates the upstream video could not be scraped
	// (private, deleted, blocked, or timed out).
	ErrScrapeFailed = errors.New("scrape failed")
)

// ThrottledError reports that the upstream scrape throttle denied the call.
// Wait is rounded up to whole seconds.
type ThrottledError struct {
	Wait time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("scrape throttled, retry in %s", e.Wait)
}
