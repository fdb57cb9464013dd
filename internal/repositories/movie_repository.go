package repositories

import (
	"context"
	"time"

	"github.com/indrasankhag/cinedrive-backend/internal/models"
)

// MovieRepository exposes data access for catalog entries.
type MovieRepository interface {
	Create(ctx context.Context, movie models.Movie) error
	FindByID(ctx context.Context, id string) (models.Movie, error)
	List(ctx context.Context, limit int) ([]models.Movie, error)
	UpdateSource(ctx context.Context, id, source string) error
	UpdatePoster(ctx context.Context, id, posterURL string) error
}

// StreamCacheRepository covers the cached stream URL columns. The URL and its
// expiry move together: UpdateStreamCache sets both, ClearExpiredStreamCache
// nulls both.
type StreamCacheRepository interface {
	UpdateStreamCache(ctx context.Context, id, url string, expiresAt time.Time) error
	ListExpiringSoon(ctx context.Context, now time.Time, horizon time.Duration, limit int) ([]models.Movie, error)
	ClearExpiredStreamCache(ctx context.Context, now time.Time) (int64, error)
}
