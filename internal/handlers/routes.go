package handlers

import (
	"net/http"

	"github.com/indrasankhag/cinedrive-backend/internal/auth"
	"github.com/indrasankhag/cinedrive-backend/internal/metrics"
	"github.com/indrasankhag/cinedrive-backend/internal/storage"
	"github.com/indrasankhag/cinedrive-backend/internal/stream"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Movies    MovieStore
	Refresher StreamRefresher
	Prober    stream.Prober
	Limiter   RateLimiter
	Admin     *auth.AdminGuard
	Posters   storage.PosterStore
	Metrics   *metrics.Collector
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	movies := MovieHandler{Movies: deps.Movies, Admin: deps.Admin, Posters: deps.Posters}
	streams := StreamHandler{
		Movies:    deps.Movies,
		Refresher: deps.Refresher,
		Prober:    deps.Prober,
		Limiter:   deps.Limiter,
		Metrics:   deps.Metrics,
	}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/movies", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			movies.Create(w, r)
			return
		}
		movies.List(w, r)
	})
	mux.HandleFunc("/api/v1/movies/{id}", movies.Get)
	mux.HandleFunc("/api/v1/movies/{id}/stream", streams.Get)
	mux.HandleFunc("/api/v1/movies/{id}/source", movies.UpdateSource)
	mux.HandleFunc("/api/v1/movies/{id}/poster", movies.UploadPoster)
}
