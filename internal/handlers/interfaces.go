package handlers

import (
	"context"

	"github.com/indrasankhag/cinedrive-backend/internal/models"
	"github.com/indrasankhag/cinedrive-backend/internal/ratelimit"
	"github.com/indrasankhag/cinedrive-backend/internal/stream"
)

// MovieStore captures the persistence operations required by the catalog handlers.
type MovieStore interface {
	Create(ctx context.Context, movie models.Movie) error
	FindByID(ctx context.Context, id string) (models.Movie, error)
	List(ctx context.Context, limit int) ([]models.Movie, error)
	UpdateSource(ctx context.Context, id, source string) error
	UpdatePoster(ctx context.Context, id, posterURL string) error
}

// StreamRefresher reacquires a direct stream URL when the cache is unusable.
type StreamRefresher interface {
	Refresh(ctx context.Context, movie models.Movie) (stream.RefreshResult, error)
}

// RateLimiter gates inbound request volume per client key.
type RateLimiter interface {
	Check(key string) ratelimit.Decision
}
