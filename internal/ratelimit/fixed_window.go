// Package ratelimit implements the per-client fixed-window request limiter.
// Each key gets a counting window that resets wholesale once its end passes,
// rather than a continuously refilling bucket, so an over-limit client can be
// told exactly how many seconds remain until the window rolls over.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Decision is the answer to a single limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds returns the wait rounded up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

type window struct {
	count   int
	resetAt time.Time
}

// FixedWindow tracks request counts per key (typically a client IP). Limiter
// state lives only in process memory; a restart resets all history, which only
// ever makes limits more permissive.
type FixedWindow struct {
	mu      sync.Mutex
	windows map[string]*window

	maxRequests int
	length      time.Duration
	now         func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewFixedWindow constructs a limiter permitting maxRequests per windowLength
// per key and starts the background sweep that evicts stale windows.
func NewFixedWindow(maxRequests int, windowLength time.Duration) *FixedWindow {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if windowLength <= 0 {
		windowLength = time.Minute
	}

	l := &FixedWindow{
		windows:     make(map[string]*window),
		maxRequests: maxRequests,
		length:      windowLength,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}

	go l.sweepLoop()

	return l
}

// Check records one request attempt for the key and reports whether it is
// allowed. When over the limit, RetryAfter carries the time until the window
// rolls over; the counter itself is not incremented past the threshold.
func (l *FixedWindow) Check(key string) Decision {
	if key == "" {
		key = "unknown"
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		// First request from this key, or the old window has ended: replace
		// it with a fresh one rather than decaying the old count.
		w = &window{count: 1, resetAt: now.Add(l.length)}
		l.windows[key] = w
		return Decision{Allowed: true, Remaining: l.maxRequests - 1}
	}

	if w.count >= l.maxRequests {
		return Decision{Allowed: false, Remaining: 0, RetryAfter: w.resetAt.Sub(now)}
	}

	w.count++
	return Decision{Allowed: true, Remaining: l.maxRequests - w.count}
}

// Stop terminates the background sweep.
func (l *FixedWindow) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// WithNowFunc overrides the time source for tests.
func (l *FixedWindow) WithNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *FixedWindow) sweepLoop() {
	ticker := time.NewTicker(l.length)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops windows that ended more than one extra window-length ago. A
// window still active, or only just ended, is always kept so an in-flight
// Check never observes its record vanish.
func (l *FixedWindow) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.Sub(w.resetAt) > l.length {
			delete(l.windows, key)
		}
	}
}

// Len reports how many keys currently hold a window. For tests and metrics.
func (l *FixedWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
