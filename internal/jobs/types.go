// Package jobs defines batch conversion jobs and the queue and store contracts they run on.
package jobs

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrJobNotFound is returned by a JobStore for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeConvertBatch ingests a batch of statements stored in GCS.
	JobTypeConvertBatch JobType = "convert_batch"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates every document of the job succeeded.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job gave up with at least one failed document.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// Terminal reports whether no further processing follows s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// DefaultMaxRetries applies when a job is published without MaxRetries.
const DefaultMaxRetries = 3

// DocumentResult is the outcome of one statement of a batch.
type DocumentResult struct {
	GCSURI       string `json:"gcs_uri"`
	DocumentID   string `json:"document_id,omitempty"`
	ParsingRunID string `json:"parsing_run_id,omitempty"`
	ExportURI    string `json:"export_uri,omitempty"`
	Records      int    `json:"records"`
	// Total is the sum of the statement's values, e.g. "1234.56".
	Total string `json:"total,omitempty"`
	Error string `json:"error,omitempty"`
}

// Succeeded reports whether the document was ingested.
func (r DocumentResult) Succeeded() bool {
	return r.Error == "" && r.DocumentID != ""
}

// ConvertBatchJob ingests every statement in GCSURIs.
type ConvertBatchJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// GCSURIs lists the statements to ingest, in request order.
	GCSURIs []string `json:"gcs_uris"`

	// Documents holds one result per URI once the job has run.
	Documents []DocumentResult `json:"documents,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Result returns the stored result for uri.
func (j *ConvertBatchJob) Result(uri string) (DocumentResult, bool) {
	for _, r := range j.Documents {
		if r.GCSURI == uri {
			return r, true
		}
	}
	return DocumentResult{}, false
}

// SetResult records res, replacing an earlier result for the same URI.
func (j *ConvertBatchJob) SetResult(res DocumentResult) {
	for i, r := range j.Documents {
		if r.GCSURI == res.GCSURI {
			j.Documents[i] = res
			return
		}
	}
	j.Documents = append(j.Documents, res)
}

// Clone returns a deep copy, safe to hand out of a store.
func (j *ConvertBatchJob) Clone() *ConvertBatchJob {
	c := *j
	c.GCSURIs = append([]string(nil), j.GCSURIs...)
	c.Documents = append([]DocumentResult(nil), j.Documents...)
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// ApplyStatus sets the status, keeps the previous error unless errorMsg is
// given, and stamps CompletedAt the first time the job turns terminal.
func (j *ConvertBatchJob) ApplyStatus(status JobStatus, errorMsg string, now time.Time) {
	j.Status = status
	if errorMsg != "" {
		j.Error = errorMsg
	}
	if status.Terminal() && j.CompletedAt == nil {
		j.CompletedAt = &now
	}
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ConvertBatchJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ConvertBatchJob) GetType() JobType {
	return JobTypeConvertBatch
}

// GetStatus implements the Job interface.
func (j *ConvertBatchJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishConvertBatch publishes a batch conversion job.
	PublishConvertBatch(ctx context.Context, job *ConvertBatchJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
// This allows tracking job execution across service restarts.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ConvertBatchJob) error

	// GetJob retrieves a job by ID. Unknown IDs give ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*ConvertBatchJob, error)

	// ListJobs retrieves jobs, newest first, with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ConvertBatchJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// Match reports whether job passes the filter's status criterion.
func (f JobFilter) Match(job *ConvertBatchJob) bool {
	return f.Status == "" || job.Status == f.Status
}

// Page sorts jobs newest first and applies Offset and Limit.
func (f JobFilter) Page(list []*ConvertBatchJob) []*ConvertBatchJob {
	sortNewestFirst(list)
	if f.Offset > 0 {
		if f.Offset >= len(list) {
			return []*ConvertBatchJob{}
		}
		list = list[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(list) {
		list = list[:f.Limit]
	}
	return list
}

func sortNewestFirst(list []*ConvertBatchJob) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].JobID < list[j].JobID
	})
}
