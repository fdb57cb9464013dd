package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Prober performs a lightweight existence check against a cached URL before it
// is trusted. A link can be valid by its encoded expiry yet already revoked
// upstream; callers treat a failed probe as a cache miss.
type Prober interface {
	Probe(ctx context.Context, url string) error
}

// HeadProber checks reachability with a HEAD request.
type HeadProber struct {
	client  *retryablehttp.Client
	timeout time.Duration
}

// NewHeadProber constructs a prober with the given per-probe timeout.
func NewHeadProber(timeout time.Duration) *HeadProber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	return &HeadProber{client: client, timeout: timeout}
}

// Probe implements Prober. Any 2xx or 3xx response counts as reachable.
func (p *HeadProber) Probe(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
	}

	return nil
}
