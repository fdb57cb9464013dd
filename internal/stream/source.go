package stream

import (
	"fmt"
	"regexp"
	"strings"
)

// A catalog entry's source field may hold an opaque numeric video id, a
// facebook watch-page URL, or a previously captured fbcdn URL. ResolveTarget
// normalizes all three into the watch-page URL the scraper navigates to.

var (
	numericID = regexp.MustCompile(`^\d{6,}$`)

	watchPagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`[?&]v=(\d{6,})`),
		regexp.MustCompile(`/videos/(\d{6,})`),
		regexp.MustCompile(`/video\.php\?v=(\d{6,})`),
		regexp.MustCompile(`/reel/(\d{6,})`),
	}

	// fbcdn filenames carry the video id as the long middle segment of the
	// underscore-separated object name, e.g. .../10000000_1234567890123456_....mp4
	cdnVideoID = regexp.MustCompile(`_(\d{13,20})_`)
)

// ResolveTarget turns a stored source identifier into a scrapeable watch-page
// URL. It returns ErrUnresolvableSource when no video id can be extracted, in
// which case the entry's source data must be corrected by an operator.
func ResolveTarget(source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", fmt.Errorf("empty source: %w", ErrUnresolvableSource)
	}

	if numericID.MatchString(source) {
		return watchURL(source), nil
	}

	if strings.Contains(source, "fbcdn") {
		if m := cdnVideoID.FindStringSubmatch(source); m != nil {
			return watchURL(m[1]), nil
		}
		return "", fmt.Errorf("no video id in cdn url: %w", ErrUnresolvableSource)
	}

	for _, p := range watchPagePatterns {
		if m := p.FindStringSubmatch(source); m != nil {
			return watchURL(m[1]), nil
		}
	}

	return "", fmt.Errorf("unrecognized source %q: %w", source, ErrUnresolvableSource)
}

func watchURL(videoID string) string {
	return "https://www.facebook.com/watch/?v=" + videoID
}
