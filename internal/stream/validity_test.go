package stream

import (
	"testing"
	"time"

	"github.com/indrasankhag/cinedrive-backend/internal/models"
)

func TestEvaluateCacheHit(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(3 * time.Hour)

	movie := models.Movie{
		ID:              "movie-1",
		StreamURL:       "https://video.fbcdn.net/v/clip.mp4?oe=abc",
		StreamExpiresAt: &expires,
	}

	eval := EvaluateCache(movie, now)
	if eval.Status != CacheHit {
		t.Fatalf("expected hit, got %s", eval.Status)
	}
	if eval.URL != movie.StreamURL {
		t.Fatalf("expected cached url, got %q", eval.URL)
	}
	if !eval.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected expiry: %v", eval.ExpiresAt)
	}
}

func TestEvaluateCacheExpired(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		expires time.Time
	}{
		{"past expiry", now.Add(-time.Hour)},
		{"expiry exactly now", now},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expires := tc.expires
			movie := models.Movie{
				StreamURL:       "https://video.fbcdn.net/v/clip.mp4",
				StreamExpiresAt: &expires,
			}

			eval := EvaluateCache(movie, now)
			if eval.Status != CacheExpired {
				t.Fatalf("expected expired, got %s", eval.Status)
			}
			// The stale URL is surfaced for diagnostics but must never be served.
			if eval.URL != movie.StreamURL {
				t.Fatalf("expected stale url carried for diagnostics, got %q", eval.URL)
			}
		})
	}
}

func TestEvaluateCacheMiss(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	cases := []struct {
		name  string
		movie models.Movie
	}{
		{"no cache at all", models.Movie{}},
		{"url without expiry", models.Movie{StreamURL: "https://video.fbcdn.net/v/clip.mp4"}},
		{"expiry without url", models.Movie{StreamExpiresAt: &future}},
		{"unexpired plugin url", models.Movie{
			StreamURL:       "https://www.facebook.com/plugins/video.php?href=x",
			StreamExpiresAt: &future,
		}},
		{"unexpired non-cdn url", models.Movie{
			StreamURL:       "https://example.com/video.mp4",
			StreamExpiresAt: &future,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eval := EvaluateCache(tc.movie, now)
			if eval.Status != CacheMiss {
				t.Fatalf("expected miss, got %s", eval.Status)
			}
			if eval.URL != "" {
				t.Fatalf("miss must not carry a url, got %q", eval.URL)
			}
		})
	}
}

func TestIsDirectURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://video-arn2-1.xx.fbcdn.net/v/clip.mp4?oe=abc", true},
		{"https://scontent.fbcdn.net/v/t42/clip.mp4", true},
		{"https://www.facebook.com/plugins/video.php?href=x", false},
		{"https://video.fbcdn.net/plugins/wrapped.mp4", false},
		{"https://example.com/clip.mp4", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := IsDirectURL(tc.url); got != tc.want {
			t.Fatalf("IsDirectURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}
