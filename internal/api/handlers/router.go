// Package handlers implements the HTTP API.
package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/fatura-itau/internal/api/middleware"
	"github.com/dvloznov/fatura-itau/internal/jobs"
)

// RouterConfig wires the router's collaborators.
type RouterConfig struct {
	Converter Converter
	JobStore  jobs.JobStore
	Publisher jobs.Publisher
	APIKey    string
	Log       zerolog.Logger
}

// NewRouter returns the API's routes wrapped in the middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	convertHandler := NewConvertHandler(cfg.Converter)
	jobsHandler := NewJobsHandler(cfg.JobStore, cfg.Publisher)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/convert", convertHandler.Convert)
	mux.HandleFunc("POST /api/preview", convertHandler.Preview)

	mux.HandleFunc("POST /api/jobs", jobsHandler.CreateJob)
	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(cfg.Log)(
		middleware.RequestID(
			middleware.Logger(cfg.Log)(
				middleware.CORS(
					middleware.APIKey(cfg.APIKey, "/health")(mux),
				),
			),
		),
	)
}
