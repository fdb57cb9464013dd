package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/indrasankhag/cinedrive-backend/internal/db"
	"github.com/indrasankhag/cinedrive-backend/internal/models"
)

// PostgresMovieRepository provides PostgreSQL-backed persistence for the movie catalog.
type PostgresMovieRepository struct {
	pool db.Pool
}

// NewPostgresMovieRepository constructs a movie repository backed by PostgreSQL.
func NewPostgresMovieRepository(pool db.Pool) *PostgresMovieRepository {
	return &PostgresMovieRepository{pool: pool}
}

// Create persists a new catalog entry.
func (r *PostgresMovieRepository) Create(ctx context.Context, movie models.Movie) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO movies (id, title, source, poster_url, stream_url, stream_expires_at, created_at, updated_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
    `, movie.ID, movie.Title, movie.Source, movie.PosterURL, movie.StreamURL, movie.StreamExpiresAt, movie.CreatedAt, movie.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert movie: %w", err)
	}

	return nil
}

// FindByID fetches a single catalog entry.
func (r *PostgresMovieRepository) FindByID(ctx context.Context, id string) (models.Movie, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Movie{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, title, source, poster_url, stream_url, stream_expires_at, created_at, updated_at
        FROM movies
        WHERE id = $1
    `, id)

	movie, err := scanMovie(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Movie{}, ErrNotFound
		}
		return models.Movie{}, fmt.Errorf("select movie: %w", err)
	}

	return movie, nil
}

// List returns catalog entries in reverse chronological order.
func (r *PostgresMovieRepository) List(ctx context.Context, limit int) ([]models.Movie, error) {
	if limit <= 0 {
		limit = 100
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, title, source, poster_url, stream_url, stream_expires_at, created_at, updated_at
        FROM movies
        ORDER BY created_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	defer rows.Close()

	return collectMovies(rows)
}

// UpdateSource replaces the source identifier for a catalog entry. Used by the
// admin path when a stored identifier can no longer be resolved to a video.
func (r *PostgresMovieRepository) UpdateSource(ctx context.Context, id, source string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE movies
        SET source = $2,
            stream_url = NULL,
            stream_expires_at = NULL,
            updated_at = NOW()
        WHERE id = $1
    `, id, source)
	if err != nil {
		return fmt.Errorf("update movie source: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdatePoster records the stored poster location for a catalog entry.
func (r *PostgresMovieRepository) UpdatePoster(ctx context.Context, id, posterURL string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE movies
        SET poster_url = $2,
            updated_at = NOW()
        WHERE id = $1
    `, id, posterURL)
	if err != nil {
		return fmt.Errorf("update movie poster: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateStreamCache stores a freshly scraped stream URL together with its expiry.
func (r *PostgresMovieRepository) UpdateStreamCache(ctx context.Context, id, url string, expiresAt time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE movies
        SET stream_url = $2,
            stream_expires_at = $3,
            updated_at = NOW()
        WHERE id = $1
    `, id, url, expiresAt)
	if err != nil {
		return fmt.Errorf("update stream cache: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListExpiringSoon returns entries whose cached stream URL is still valid but
// expires within the horizon, soonest first, capped at limit.
func (r *PostgresMovieRepository) ListExpiringSoon(ctx context.Context, now time.Time, horizon time.Duration, limit int) ([]models.Movie, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, title, source, poster_url, stream_url, stream_expires_at, created_at, updated_at
        FROM movies
        WHERE stream_url IS NOT NULL
          AND stream_expires_at > $1
          AND stream_expires_at < $2
        ORDER BY stream_expires_at ASC
        LIMIT $3
    `, now, now.Add(horizon), limit)
	if err != nil {
		return nil, fmt.Errorf("query expiring movies: %w", err)
	}
	defer rows.Close()

	return collectMovies(rows)
}

// ClearExpiredStreamCache nulls out cache pairs whose expiry has passed and
// reports how many entries were cleared.
func (r *PostgresMovieRepository) ClearExpiredStreamCache(ctx context.Context, now time.Time) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE movies
        SET stream_url = NULL,
            stream_expires_at = NULL,
            updated_at = NOW()
        WHERE stream_url IS NOT NULL
          AND stream_expires_at <= $1
    `, now)
	if err != nil {
		return 0, fmt.Errorf("clear expired stream cache: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanMovie(row pgx.Row) (models.Movie, error) {
	var (
		movie     models.Movie
		posterURL sql.NullString
		streamURL sql.NullString
		expiresAt sql.NullTime
	)

	if err := row.Scan(&movie.ID, &movie.Title, &movie.Source, &posterURL, &streamURL, &expiresAt, &movie.CreatedAt, &movie.UpdatedAt); err != nil {
		return models.Movie{}, err
	}

	if posterURL.Valid {
		movie.PosterURL = posterURL.String
	}
	if streamURL.Valid {
		movie.StreamURL = streamURL.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		movie.StreamExpiresAt = &t
	}

	return movie, nil
}

func collectMovies(rows pgx.Rows) ([]models.Movie, error) {
	var movies []models.Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, movie)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}

	return movies, nil
}

var _ MovieRepository = (*PostgresMovieRepository)(nil)
var _ StreamCacheRepository = (*PostgresMovieRepository)(nil)
