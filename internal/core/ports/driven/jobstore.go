package driven

import (
	"context"
	"time"

	"github.com/corpus-ai/corpus/internal/core/domain"
)

// JobStore is the durable job queue backing the processing pipeline.
// Backed by SQLite; claim semantics rely on a conditional update so
// concurrent workers never double-claim a job.
type JobStore interface {
	// Enqueue inserts a new pending job.
	Enqueue(ctx context.Context, job *domain.Job) error

	// ClaimNext atomically claims the oldest pending job: it marks the
	// job processing, increments attempts and stamps StartedAt in a
	// single conditional update. Returns domain.ErrNotFound when the
	// queue is empty.
	ClaimNext(ctx context.Context) (*domain.Job, error)

	// Heartbeat records liveness for a processing job between stages.
	Heartbeat(ctx context.Context, jobID string) error

	// MarkCompleted finishes a job successfully.
	MarkCompleted(ctx context.Context, jobID string) error

	// MarkFailed terminates a job with an error message.
	MarkFailed(ctx context.Context, jobID, errMsg string) error

	// Requeue returns a failed-in-flight job to pending for another
	// attempt, recording the error message.
	Requeue(ctx context.Context, jobID, errMsg string) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)

	// GetJobForDocument returns the most recent job for a document, or
	// domain.ErrNotFound.
	GetJobForDocument(ctx context.Context, documentID string) (*domain.Job, error)

	// ListStuck returns processing jobs whose heartbeat is older than
	// the staleness threshold.
	ListStuck(ctx context.Context, staleness time.Duration) ([]domain.Job, error)

	// Stats summarises queue state.
	Stats(ctx context.Context) (domain.QueueStats, error)
}
