package stream

import (
	"strings"
	"time"

	"github.com/indrasankhag/cinedrive-backend/internal/models"
)

// CacheStatus classifies a catalog entry's cached stream URL.
type CacheStatus int

const (
	// CacheMiss means no usable cached URL exists and a scrape is required.
	CacheMiss CacheStatus = iota
	// CacheHit means the cached URL is present, direct-shaped, and unexpired.
	CacheHit
	// CacheExpired means a cached URL exists but its expiry has passed.
	CacheExpired
)

func (s CacheStatus) String() string {
	switch s {
	case CacheHit:
		return "hit"
	case CacheExpired:
		return "expired"
	default:
		return "miss"
	}
}

// Evaluation is the outcome of checking a cached stream URL. URL is populated
// on a hit; on expiry it carries the stale URL for diagnostics only and must
// never be served.
type Evaluation struct {
	Status    CacheStatus
	URL       string
	ExpiresAt time.Time
}

// EvaluateCache classifies the entry's cache pair against now.
//
// A half-set pair (URL without expiry, or expiry without URL) is a miss. An
// unexpired URL that is not direct-link shaped also degrades to a miss: plugin
// and embed URLs are not playable media, so serving one would break playback
// regardless of its time validity.
func EvaluateCache(movie models.Movie, now time.Time) Evaluation {
	if !movie.HasStreamCache() {
		return Evaluation{Status: CacheMiss}
	}

	expiresAt := movie.StreamExpiresAt.UTC()
	if !expiresAt.After(now) {
		return Evaluation{Status: CacheExpired, URL: movie.StreamURL, ExpiresAt: expiresAt}
	}

	if !IsDirectURL(movie.StreamURL) {
		return Evaluation{Status: CacheMiss}
	}

	return Evaluation{Status: CacheHit, URL: movie.StreamURL, ExpiresAt: expiresAt}
}

// IsDirectURL reports whether the URL points straight at a CDN-hosted media
// file rather than an embed/plugin wrapper.
func IsDirectURL(raw string) bool {
	if raw == "" {
		return false
	}
	return strings.Contains(raw, "fbcdn") && !strings.Contains(raw, "/plugins/")
}
