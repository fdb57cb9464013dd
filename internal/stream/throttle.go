package stream

import (
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Throttle gates every call into the upstream scraper, regardless of whether
// a client request or the background refresher triggered it. One shared
// instance protects the whole process: the scarce resource is the upstream
// relationship, not any single caller's quota.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle enforces at least minDelay between permitted scrape calls.
func NewThrottle(minDelay time.Duration) *Throttle {
	if minDelay <= 0 {
		minDelay = time.Second
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(minDelay), 1)}
}

// TryAcquire asks for permission to scrape now. The check and the grant stamp
// are a single atomic operation inside the limiter, so two near-simultaneous
// callers cannot both be told "allowed" within the minimum delay.
//
// When denied, wait is the time until the next grant, rounded up to whole
// seconds. The throttle never queues: callers decide whether to fail fast or
// sleep and retry.
func (t *Throttle) TryAcquire() (allowed bool, wait time.Duration) {
	r := t.limiter.Reserve()
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return false, ceilSeconds(d)
	}
	return true, 0
}

func ceilSeconds(d time.Duration) time.Duration {
	secs := math.Ceil(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}
