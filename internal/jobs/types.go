package jobs

import (
	"context"
	"errors"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeTransformHeadlines represents a headline transformation run.
	JobTypeTransformHeadlines JobType = "transform_headlines"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ErrJobNotFound is returned by stores for unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

// TransformJob represents a request to run the headlines pipeline once.
type TransformJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Pipeline is the pipeline identity selecting the transformation branch.
	Pipeline string `json:"pipeline"`

	// ExecutionTimestamp names the produced CSVs. Empty means the time the run starts.
	ExecutionTimestamp string `json:"execution_ts,omitempty"`

	// RunID is the ID of the transform run in BigQuery.
	RunID string `json:"run_id,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Outputs lists the CSVs written, or their uploaded URIs.
	Outputs []string `json:"outputs,omitempty"`

	// Rows is the number of headline rows written.
	Rows int `json:"rows"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
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
func (j *TransformJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *TransformJob) GetType() JobType {
	return JobTypeTransformHeadlines
}

// GetStatus implements the Job interface.
func (j *TransformJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishTransform publishes a headline transformation job.
	PublishTransform(ctx context.Context, job *TransformJob) error

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
// It should return an error if the job failed; wrap it with Permanent to skip retries.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *TransformJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*TransformJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*TransformJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Pipeline filters jobs by pipeline identity.
	Pipeline string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// PermanentError marks a job failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the queue does not retry it. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsRetryable reports whether a failed job should be retried.
func IsRetryable(err error) bool {
	var perm *PermanentError
	return err != nil && !errors.As(err, &perm)
}
