package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/headlines-etl/internal/api/middleware"
	bq "github.com/dvloznov/headlines-etl/internal/bigquery"
	"github.com/dvloznov/headlines-etl/internal/headlines"
	"github.com/dvloznov/headlines-etl/internal/jobs"
)

const maxListLimit = 100

// TransformsHandler handles transform job endpoints.
type TransformsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	pipelines headlines.Pipelines
	log       zerolog.Logger
}

// NewTransformsHandler creates a new transforms handler.
func NewTransformsHandler(publisher jobs.Publisher, store jobs.JobStore, pipelines headlines.Pipelines, log zerolog.Logger) *TransformsHandler {
	return &TransformsHandler{
		publisher: publisher,
		store:     store,
		pipelines: pipelines,
		log:       log,
	}
}

// CreateTransform handles POST /api/transforms
func (h *TransformsHandler) CreateTransform(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pipeline           string `json:"pipeline"`
		ExecutionTimestamp string `json:"execution_ts"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Pipeline == "" {
		middleware.WriteError(w, http.StatusBadRequest, "pipeline is required")
		return
	}

	if _, err := h.pipelines.ModeFor(req.Pipeline); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	job := &jobs.TransformJob{
		Pipeline:           req.Pipeline,
		ExecutionTimestamp: req.ExecutionTimestamp,
	}

	if err := h.publisher.PublishTransform(ctx, job); err != nil {
		h.log.Error().Err(err).Str("pipeline", req.Pipeline).Msg("Failed to enqueue transform job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue transform job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("pipeline", job.Pipeline).Msg("Transform job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// GetTransform handles GET /api/transforms/{id}
func (h *TransformsHandler) GetTransform(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListTransforms handles GET /api/transforms
func (h *TransformsHandler) ListTransforms(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Pipeline: query.Get("pipeline"),
		Status:   jobs.JobStatus(query.Get("status")),
	}

	var ok bool
	if filter.Limit, ok = intParam(w, query.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, query.Get("offset"), "offset"); !ok {
		return
	}
	if filter.Limit == 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// RunsHandler serves the transform run history.
type RunsHandler struct {
	runs bq.RunRepository
	log  zerolog.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(runs bq.RunRepository, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		runs: runs,
		log:  log,
	}
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		middleware.WriteError(w, http.StatusNotImplemented, "Run history requires BigQuery")
		return
	}

	limit, ok := intParam(w, r.URL.Query().Get("limit"), "limit")
	if !ok {
		return
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	if runs == nil {
		runs = []*bq.TransformRunRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// intParam parses a non-negative query parameter. An empty value is 0. It writes a 400
// and reports false on a bad value.
func intParam(w http.ResponseWriter, value, name string) (int, bool) {
	if value == "" {
		return 0, true
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return n, true
}
