package models

import "time"

// Movie is a catalog entry whose video lives on Facebook. The stream cache
// fields hold the last direct CDN URL obtained by scraping; StreamURL and
// StreamExpiresAt are set and cleared together.
type Movie struct {
	ID        string
	Title     string
	Source    string
	PosterURL string

	StreamURL       string
	StreamExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasStreamCache reports whether both cache fields are present. A half-set
// pair counts as absent.
func (m Movie) HasStreamCache() bool {
	return m.StreamURL != "" && m.StreamExpiresAt != nil
}
