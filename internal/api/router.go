package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/headlines-etl/internal/api/handlers"
	"github.com/dvloznov/headlines-etl/internal/api/middleware"
)

// NewRouter registers the API routes and wraps them in the standard middleware chain.
func NewRouter(transforms *handlers.TransformsHandler, runs *handlers.RunsHandler, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Transform endpoints
	mux.HandleFunc("/api/transforms", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transforms.ListTransforms(w, r)
		case http.MethodPost:
			transforms.CreateTransform(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transforms/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/transforms/")
		if jobID == "" || strings.Contains(jobID, "/") {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		transforms.GetTransform(w, r, jobID)
	})

	// Run history
	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			runs.ListRuns(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", handlers.Health)
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)
}
