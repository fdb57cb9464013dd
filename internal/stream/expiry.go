package stream

import (
	"net/url"
	"strconv"
	"time"
)

// FallbackTTL is assumed when a URL carries no recognizable expiry signal.
const FallbackTTL = 24 * time.Hour

// ExpiryFromURL estimates when a CDN link stops working. fbcdn URLs encode
// their expiry as a hexadecimal Unix timestamp in the "oe" query parameter;
// when that signal is missing or malformed the conservative fallback window is
// returned instead. The function never fails: callers always need some expiry.
func ExpiryFromURL(raw string, now time.Time) time.Time {
	u, err := url.Parse(raw)
	if err == nil {
		if oe := u.Query().Get("oe"); oe != "" {
			if sec, err := strconv.ParseInt(oe, 16, 64); err == nil && sec > 0 {
				return time.Unix(sec, 0).UTC()
			}
		}
	}
	return now.Add(FallbackTTL)
}
