package stream

import (
	"fmt"
	"testing"
	"time"
)

func TestExpiryFromURLReadsHexTimestamp(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, time.March, 2, 18, 30, 0, 0, time.UTC)

	url := fmt.Sprintf("https://video-arn2-1.xx.fbcdn.net/v/t42.1790-2/clip.mp4?oe=%X", expiry.Unix())

	got := ExpiryFromURL(url, now)
	if !got.Equal(expiry) {
		t.Fatalf("unexpected expiry: got %v want %v", got, expiry)
	}
}

func TestExpiryFromURLLowercaseHex(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	expiry := time.Unix(0x68D4A2B0, 0).UTC()

	got := ExpiryFromURL("https://cdn.fbcdn.net/v/clip.mp4?oh=abc&oe=68d4a2b0", now)
	if !got.Equal(expiry) {
		t.Fatalf("unexpected expiry: got %v want %v", got, expiry)
	}
}

func TestExpiryFromURLFallsBack(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	want := now.Add(FallbackTTL)

	cases := []struct {
		name string
		url  string
	}{
		{"no oe param", "https://video.fbcdn.net/v/clip.mp4?oh=abc"},
		{"malformed oe", "https://video.fbcdn.net/v/clip.mp4?oe=zzzz"},
		{"empty oe", "https://video.fbcdn.net/v/clip.mp4?oe="},
		{"unparseable url", "://not-a-url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExpiryFromURL(tc.url, now)
			if !got.Equal(want) {
				t.Fatalf("expected fallback expiry %v, got %v", want, got)
			}
		})
	}
}
