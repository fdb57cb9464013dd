package stream

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/indrasankhag/cinedrive-backend/internal/models"
	"github.com/indrasankhag/cinedrive-backend/internal/scraper"
)

type scraperStub struct {
	result scraper.Result
	err    error

	calls   int
	targets []string
}

func (s *scraperStub) Scrape(ctx context.Context, target string) (scraper.Result, error) {
	_ = ctx
	s.calls++
	s.targets = append(s.targets, target)
	return s.result, s.err
}

type cacheWriterStub struct {
	id        string
	url       string
	expiresAt time.Time
	calls     int
	err       error
}

func (c *cacheWriterStub) UpdateStreamCache(ctx context.Context, id, url string, expiresAt time.Time) error {
	_ = ctx
	c.calls++
	c.id = id
	c.url = url
	c.expiresAt = expiresAt
	return c.err
}

func testNow() time.Time {
	return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
}

func TestOrchestratorRefreshSuccess(t *testing.T) {
	expiry := time.Date(2026, time.March, 2, 18, 0, 0, 0, time.UTC)
	directURL := fmt.Sprintf("https://video.fbcdn.net/v/clip.mp4?oe=%X", expiry.Unix())

	sc := &scraperStub{result: scraper.Result{URL: directURL, Quality: "hd"}}
	store := &cacheWriterStub{}

	o := NewOrchestrator(sc, NewThrottle(time.Millisecond), store, nil)
	o.WithNowFunc(testNow)

	movie := models.Movie{ID: "movie-1", Source: "1234567890123"}

	result, err := o.Refresh(context.Background(), movie)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if result.URL != directURL || result.Quality != "hd" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !result.ExpiresAt.Equal(expiry) {
		t.Fatalf("expected expiry derived from url, got %v", result.ExpiresAt)
	}

	if sc.calls != 1 {
		t.Fatalf("expected one scrape, got %d", sc.calls)
	}
	if sc.targets[0] != "https://www.facebook.com/watch/?v=1234567890123" {
		t.Fatalf("unexpected scrape target: %s", sc.targets[0])
	}

	if store.calls != 1 || store.id != "movie-1" || store.url != directURL {
		t.Fatalf("unexpected persist call: %+v", store)
	}
	if !store.expiresAt.Equal(expiry) {
		t.Fatalf("persisted wrong expiry: %v", store.expiresAt)
	}
}

func TestOrchestratorRefreshFallbackExpiry(t *testing.T) {
	sc := &scraperStub{result: scraper.Result{URL: "https://video.fbcdn.net/v/clip.mp4", Quality: "sd"}}
	store := &cacheWriterStub{}

	o := NewOrchestrator(sc, NewThrottle(time.Millisecond), store, nil)
	o.WithNowFunc(testNow)

	result, err := o.Refresh(context.Background(), models.Movie{ID: "movie-1", Source: "1234567890123"})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	want := testNow().Add(FallbackTTL)
	if !result.ExpiresAt.Equal(want) {
		t.Fatalf("expected fallback expiry %v, got %v", want, result.ExpiresAt)
	}
}

func TestOrchestratorRefreshUnresolvableSource(t *testing.T) {
	sc := &scraperStub{}
	o := NewOrchestrator(sc, NewThrottle(time.Millisecond), &cacheWriterStub{}, nil)

	_, err := o.Refresh(context.Background(), models.Movie{ID: "movie-1", Source: "garbage"})
	if !errors.Is(err, ErrUnresolvableSource) {
		t.Fatalf("expected ErrUnresolvableSource, got %v", err)
	}
	if sc.calls != 0 {
		t.Fatal("scraper must not run for an unresolvable source")
	}
}

func TestOrchestratorRefreshThrottled(t *testing.T) {
	throttle := NewThrottle(time.Hour)
	if allowed, _ := throttle.TryAcquire(); !allowed {
		t.Fatal("expected setup acquire to succeed")
	}

	sc := &scraperStub{}
	o := NewOrchestrator(sc, throttle, &cacheWriterStub{}, nil)

	_, err := o.Refresh(context.Background(), models.Movie{ID: "movie-1", Source: "1234567890123"})

	wait, ok := IsThrottled(err)
	if !ok {
		t.Fatalf("expected throttled error, got %v", err)
	}
	if wait < time.Second {
		t.Fatalf("expected a positive whole-second wait, got %v", wait)
	}
	if sc.calls != 0 {
		t.Fatal("scraper must not run when the throttle denies")
	}
}

func TestOrchestratorRefreshScrapeFailure(t *testing.T) {
	sc := &scraperStub{err: errors.New("page unreachable")}
	store := &cacheWriterStub{}

	o := NewOrchestrator(sc, NewThrottle(time.Millisecond), store, nil)

	_, err := o.Refresh(context.Background(), models.Movie{ID: "movie-1", Source: "1234567890123"})
	if !errors.Is(err, ErrScrapeFailed) {
		t.Fatalf("expected ErrScrapeFailed, got %v", err)
	}
	if store.calls != 0 {
		t.Fatal("nothing must be persisted on scrape failure")
	}
}

func TestOrchestratorRefreshRejectsIndirectURL(t *testing.T) {
	cases := []string{
		"https://www.facebook.com/plugins/video.php?href=x",
		"https://video.fbcdn.net/plugins/wrapped.mp4",
		"https://example.com/video.mp4",
	}

	for _, url := range cases {
		sc := &scraperStub{result: scraper.Result{URL: url}}
		store := &cacheWriterStub{}

		o := NewOrchestrator(sc, NewThrottle(time.Millisecond), store, nil)

		_, err := o.Refresh(context.Background(), models.Movie{ID: "movie-1", Source: "1234567890123"})
		if !errors.Is(err, ErrIndirectURL) {
			t.Fatalf("url %q: expected ErrIndirectURL, got %v", url, err)
		}
		if store.calls != 0 {
			t.Fatalf("url %q: indirect result must never be persisted", url)
		}
	}
}

func TestOrchestratorRefreshSurvivesPersistFailure(t *testing.T) {
	sc := &scraperStub{result: scraper.Result{URL: "https://video.fbcdn.net/v/clip.mp4", Quality: "sd"}}
	store := &cacheWriterStub{err: errors.New("db down")}

	o := NewOrchestrator(sc, NewThrottle(time.Millisecond), store, nil)
	o.WithNowFunc(testNow)

	result, err := o.Refresh(context.Background(), models.Movie{ID: "movie-1", Source: "1234567890123"})
	if err != nil {
		t.Fatalf("persist failure must not fail the refresh: %v", err)
	}
	if result.URL != "https://video.fbcdn.net/v/clip.mp4" {
		t.Fatalf("unexpected result url: %s", result.URL)
	}
	if store.calls != 1 {
		t.Fatal("expected a persist attempt")
	}
}
