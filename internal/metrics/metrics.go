// Package metrics collects and exposes Prometheus metrics for the stream
// cache and refresh subsystem.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates the service's Prometheus metrics. A nil *Collector is
// safe to use and records nothing, so handlers can treat it as optional.
type Collector struct {
	cacheHits       prometheus.Counter
	cacheMisses     *prometheus.CounterVec
	scrapes         *prometheus.CounterVec
	throttleDenied  prometheus.Counter
	rateLimited     prometheus.Counter
	refreshOutcomes *prometheus.CounterVec
	passDuration    prometheus.Histogram
}

// NewCollector registers the service metrics on the provided registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinedrive_stream_cache_hits_total",
			Help: "Stream requests served from the cached URL.",
		}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinedrive_stream_cache_misses_total",
			Help: "Stream requests that had to reacquire a URL, by reason.",
		}, []string{"reason"}),
		scrapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinedrive_scrapes_total",
			Help: "Upstream scrape attempts by result.",
		}, []string{"result"}),
		throttleDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinedrive_scrape_throttle_denied_total",
			Help: "Scrape attempts denied by the upstream throttle.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinedrive_rate_limited_requests_total",
			Help: "Client requests rejected by the per-client limiter.",
		}),
		refreshOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinedrive_background_refresh_entries_total",
			Help: "Entries processed by background refresh passes, by outcome.",
		}, []string{"outcome"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cinedrive_background_refresh_pass_seconds",
			Help:    "Duration of background refresh passes.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.scrapes,
		c.throttleDenied,
		c.rateLimited,
		c.refreshOutcomes,
		c.passDuration,
	)

	return c
}

// RecordCacheHit counts a request served from cache.
func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

// RecordCacheMiss counts a request that took the refresh path.
func (c *Collector) RecordCacheMiss(reason string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(reason).Inc()
}

// RecordScrape counts a scrape attempt with its result label.
func (c *Collector) RecordScrape(result string) {
	if c == nil {
		return
	}
	c.scrapes.WithLabelValues(result).Inc()
}

// RecordThrottleDenied counts a throttle denial.
func (c *Collector) RecordThrottleDenied() {
	if c == nil {
		return
	}
	c.throttleDenied.Inc()
}

// RecordRateLimited counts a client request rejected by the limiter.
func (c *Collector) RecordRateLimited() {
	if c == nil {
		return
	}
	c.rateLimited.Inc()
}

// RecordRefreshOutcome counts one processed background entry.
func (c *Collector) RecordRefreshOutcome(outcome string) {
	if c == nil {
		return
	}
	c.refreshOutcomes.WithLabelValues(outcome).Inc()
}

// RecordPassDuration observes a completed pass duration in seconds.
func (c *Collector) RecordPassDuration(seconds float64) {
	if c == nil {
		return
	}
	c.passDuration.Observe(seconds)
}

// Handler returns the scrape endpoint for the registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
