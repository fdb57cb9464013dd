package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
)

const maxFallbackBody = 4 << 20

// HTTPScraper fetches the watch page over plain HTTP and looks for a video
// source in the static markup: first the og:video meta tags, then the inline
// script payloads. Cheaper than driving a browser, but blind to anything the
// page only reveals after running its scripts.
type HTTPScraper struct {
	client  *retryablehttp.Client
	timeout time.Duration
}

// NewHTTPScraper constructs the fallback scraper with a bounded retrying client.
func NewHTTPScraper(timeout time.Duration) *HTTPScraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	return &HTTPScraper{client: client, timeout: timeout}
}

// Scrape implements Scraper.
func (s *HTTPScraper) Scrape(ctx context.Context, target string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build scrape request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("fetch %s: unexpected status %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFallbackBody))
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", target, err)
	}

	html := string(body)

	if url, ok := metaVideoURL(html); ok {
		return Result{URL: url, Quality: "sd"}, nil
	}

	if url, quality, ok := extractPlayableURL(html); ok {
		return Result{URL: url, Quality: quality}, nil
	}

	return Result{}, fmt.Errorf("http scrape %s: %w", target, ErrNoPlayableURL)
}

// metaVideoURL reads the OpenGraph video tags out of the document head.
func metaVideoURL(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	for _, property := range []string{"og:video:secure_url", "og:video:url", "og:video"} {
		sel := fmt.Sprintf(`meta[property=%q]`, property)
		if content, ok := doc.Find(sel).Attr("content"); ok && strings.HasPrefix(content, "http") {
			return content, true
		}
	}

	return "", false
}
