package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
)

// jobStore implements driven.JobStore.
type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

const jobColumns = `id, type, payload, status, attempts, max_attempts, last_error,
	created_at, started_at, completed_at, heartbeat_at`

// Enqueue inserts a new pending job.
func (s *jobStore) Enqueue(ctx context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = domain.JobPending
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = domain.DefaultMaxAttempts
	}

	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("marshalling job payload: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, payload, status, attempts, max_attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, job.ID, string(job.Type), string(payload), string(job.Status),
		job.Attempts, job.MaxAttempts, job.CreatedAt.UTC())

	if err != nil {
		return fmt.Errorf("%w: enqueuing job: %v", domain.ErrStorage, err)
	}
	return nil
}

// ClaimNext atomically claims the oldest pending job. The conditional
// update is the claim: if another worker got there first, zero rows
// change and we move to the next candidate.
func (s *jobStore) ClaimNext(ctx context.Context) (*domain.Job, error) {
	for {
		var id string
		err := s.store.db.QueryRowContext(ctx, `
			SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1
		`, string(domain.JobPending)).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("%w: selecting pending job: %v", domain.ErrStorage, err)
		}

		now := time.Now().UTC()
		res, err := s.store.db.ExecContext(ctx, `
			UPDATE jobs
			SET status = ?, attempts = attempts + 1, started_at = ?, heartbeat_at = ?
			WHERE id = ? AND status = ?
		`, string(domain.JobProcessing), now, now, id, string(domain.JobPending))
		if err != nil {
			return nil, fmt.Errorf("%w: claiming job: %v", domain.ErrStorage, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("%w: rows affected: %v", domain.ErrStorage, err)
		}
		if n == 0 {
			// Lost the race; try the next pending job.
			continue
		}

		return s.GetJob(ctx, id)
	}
}

// Heartbeat records liveness for a processing job between stages.
func (s *jobStore) Heartbeat(ctx context.Context, jobID string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE jobs SET heartbeat_at = ? WHERE id = ? AND status = ?
	`, time.Now().UTC(), jobID, string(domain.JobProcessing))
	if err != nil {
		return fmt.Errorf("%w: recording heartbeat: %v", domain.ErrStorage, err)
	}
	return requireRow(res)
}

// MarkCompleted finishes a job successfully. Only a processing job can
// settle; zero rows means the sweep already requeued it and someone else
// now owns it, so a stale claimant must not overwrite that.
func (s *jobStore) MarkCompleted(ctx context.Context, jobID string) error {
	_, err := s.store.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, completed_at = ?, last_error = NULL
		WHERE id = ? AND status = ?
	`, string(domain.JobCompleted), time.Now().UTC(), jobID, string(domain.JobProcessing))
	if err != nil {
		return fmt.Errorf("%w: completing job: %v", domain.ErrStorage, err)
	}
	return nil
}

// MarkFailed terminates a job with an error message. Same ownership rule
// as MarkCompleted.
func (s *jobStore) MarkFailed(ctx context.Context, jobID, errMsg string) error {
	_, err := s.store.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, completed_at = ?, last_error = ?
		WHERE id = ? AND status = ?
	`, string(domain.JobFailed), time.Now().UTC(), nullString(errMsg), jobID, string(domain.JobProcessing))
	if err != nil {
		return fmt.Errorf("%w: failing job: %v", domain.ErrStorage, err)
	}
	return nil
}

// Requeue returns a job to pending for another attempt.
func (s *jobStore) Requeue(ctx context.Context, jobID, errMsg string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, last_error = ?, started_at = NULL, heartbeat_at = NULL
		WHERE id = ?
	`, string(domain.JobPending), nullString(errMsg), jobID)
	if err != nil {
		return fmt.Errorf("%w: requeuing job: %v", domain.ErrStorage, err)
	}
	return requireRow(res)
}

// GetJob retrieves a job by ID.
func (s *jobStore) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE id = ?
	`, jobID)
	return scanJob(row.Scan)
}

// GetJobForDocument returns the most recent job for a document.
func (s *jobStore) GetJobForDocument(ctx context.Context, documentID string) (*domain.Job, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE json_extract(payload, '$.document_id') = ?
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, documentID)
	return scanJob(row.Scan)
}

// ListStuck returns processing jobs whose heartbeat is older than the
// staleness threshold.
func (s *jobStore) ListStuck(ctx context.Context, staleness time.Duration) ([]domain.Job, error) {
	cutoff := time.Now().UTC().Add(-staleness)

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = ? AND COALESCE(heartbeat_at, started_at) < ?
		ORDER BY created_at
	`, string(domain.JobProcessing), cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: querying stuck jobs: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var jobs []domain.Job //nolint:prealloc // size unknown from query
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating stuck jobs: %v", domain.ErrStorage, err)
	}
	return jobs, nil
}

// Stats summarises queue state.
func (s *jobStore) Stats(ctx context.Context) (domain.QueueStats, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM jobs GROUP BY status
	`)
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("%w: querying queue stats: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var stats domain.QueueStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return domain.QueueStats{}, fmt.Errorf("%w: scanning queue stats: %v", domain.ErrStorage, err)
		}
		switch domain.JobStatus(status) {
		case domain.JobPending:
			stats.Pending = count
		case domain.JobProcessing:
			stats.Processing = count
		case domain.JobCompleted:
			stats.Completed = count
		case domain.JobFailed:
			stats.Failed = count
		}
	}

	if err := rows.Err(); err != nil {
		return domain.QueueStats{}, fmt.Errorf("%w: iterating queue stats: %v", domain.ErrStorage, err)
	}
	return stats, nil
}

// scanJob scans one job row via the given Scan func.
func scanJob(scan func(...any) error) (*domain.Job, error) {
	var job domain.Job
	var jobType, status, payload string
	var lastError sql.NullString
	var startedAt, completedAt, heartbeatAt sql.NullTime

	err := scan(&job.ID, &jobType, &payload, &status, &job.Attempts, &job.MaxAttempts,
		&lastError, &job.CreatedAt, &startedAt, &completedAt, &heartbeatAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning job: %v", domain.ErrStorage, err)
	}

	if err := json.Unmarshal([]byte(payload), &job.Payload); err != nil {
		return nil, fmt.Errorf("unmarshalling job payload: %w", err)
	}

	job.Type = domain.JobType(jobType)
	job.Status = domain.JobStatus(status)
	job.LastError = lastError.String
	job.StartedAt = timeOrZero(startedAt)
	job.CompletedAt = timeOrZero(completedAt)
	job.HeartbeatAt = timeOrZero(heartbeatAt)
	return &job, nil
}
