package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dvloznov/fatura-itau/internal/api/middleware"
	"github.com/dvloznov/fatura-itau/internal/gcsuploader"
	"github.com/dvloznov/fatura-itau/internal/jobs"
	"github.com/dvloznov/fatura-itau/internal/logger"
)

// MaxBatchSize caps the number of statements in one batch job.
const MaxBatchSize = 100

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
}

// NewJobsHandler creates a new jobs handler. A nil publisher disables job
// creation, for servers without cloud configuration.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher) *JobsHandler {
	return &JobsHandler{store: store, publisher: publisher}
}

// CreateJob handles POST /api/jobs
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Batch ingestion is not configured")
		return
	}

	var req struct {
		GCSURIs []string `json:"gcs_uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.GCSURIs) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uris is required")
		return
	}
	if len(req.GCSURIs) > MaxBatchSize {
		middleware.WriteError(w, http.StatusBadRequest, "Too many documents in one batch")
		return
	}
	for _, uri := range req.GCSURIs {
		if _, _, err := gcsuploader.ParseURI(uri); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	job := &jobs.ConvertBatchJob{GCSURIs: req.GCSURIs}
	if err := h.publisher.PublishConvertBatch(r.Context(), job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue batch job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue batch job")
		return
	}

	log.Info().Str("job_id", job.JobID).Int("documents", len(job.GCSURIs)).Msg("Batch job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.JobID,
		"status": job.Status,
		"count":  len(job.GCSURIs),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
