package domain

import "time"

// JobType identifies the kind of work a job carries.
type JobType string

// JobTypeProcessDocument runs the full ingestion pipeline for one document.
const JobTypeProcessDocument JobType = "process_document"

// JobStatus tracks a queued unit of work.
type JobStatus string

const (
	// JobPending means the job is waiting for a worker.
	JobPending JobStatus = "pending"

	// JobProcessing means a worker has claimed the job.
	JobProcessing JobStatus = "processing"

	// JobCompleted means all pipeline stages succeeded.
	JobCompleted JobStatus = "completed"

	// JobFailed means the job failed terminally (attempts exhausted or
	// a non-retryable error).
	JobFailed JobStatus = "failed"
)

// DefaultMaxAttempts is how many times a job is tried before failing
// terminally.
const DefaultMaxAttempts = 3

// DefaultStaleness is how long a processing job may go without a
// heartbeat before the recovery sweep treats it as stuck.
const DefaultStaleness = 2 * time.Minute

// Job is a queued unit of work driving the pipeline. Attempts increments
// on every failure; jobs exceeding MaxAttempts terminate as failed.
type Job struct {
	// ID is the unique identifier for the job.
	ID string

	// Type is the kind of work.
	Type JobType

	// Payload carries the document reference.
	Payload JobPayload

	// Status is the queue state.
	Status JobStatus

	// Attempts counts how many times the job has been started.
	Attempts int

	// MaxAttempts bounds retries; a failure at Attempts >= MaxAttempts
	// is terminal.
	MaxAttempts int

	// LastError holds the most recent failure message.
	LastError string

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	// HeartbeatAt is bumped by the worker between pipeline stages.
	// A processing job whose heartbeat is older than the staleness
	// threshold is stuck.
	HeartbeatAt time.Time
}

// JobPayload identifies the document a job processes.
type JobPayload struct {
	DocumentID string `json:"document_id"`
	OwnerID    string `json:"owner_id"`
	Location   string `json:"location"`
	FileName   string `json:"file_name"`
	FileType   string `json:"file_type,omitempty"`
}

// Retryable reports whether the job has attempts remaining.
func (j *Job) Retryable() bool {
	return j.Attempts < j.MaxAttempts
}

// Stuck reports whether a processing job has gone without a heartbeat
// for longer than staleness.
func (j *Job) Stuck(now time.Time, staleness time.Duration) bool {
	if j.Status != JobProcessing {
		return false
	}
	last := j.HeartbeatAt
	if last.IsZero() {
		last = j.StartedAt
	}
	return !last.IsZero() && now.Sub(last) > staleness
}

// QueueStats summarises queue state for the health surface.
type QueueStats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
