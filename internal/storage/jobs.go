package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnloop/mentor-be/internal/domain"
)

// CreateJob inserts a new queued job. Timestamps come from the database
// clock so keyset ordering follows insertion order.
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, user_id, kind, payload,
			status, progress, progress_message, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, NOW(), NOW()
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.UserID,
		job.Kind,
		job.Payload,
		job.Status,
		job.Progress,
		job.ProgressMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob retrieves a job by ID
func (s *Storage) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		SELECT
			job_id, user_id, kind, payload, status,
			progress, progress_message, result, error,
			cancel_requested, started_at, created_at, updated_at
		FROM jobs
		WHERE job_id = $1
	`

	var job domain.Job
	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// JobFilter narrows a job listing
type JobFilter struct {
	UserID   string
	Kind     string
	Status   string
	PageSize int
	Cursor   *JobCursor
}

// JobCursor is a keyset pagination position
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns up to PageSize+1 jobs, newest first. The extra row lets
// the caller detect whether another page exists.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `
		SELECT
			job_id, user_id, kind, payload, status,
			progress, progress_message, result, error,
			cancel_requested, started_at, created_at, updated_at
		FROM jobs
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}

	if filter.Kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", argIdx)
		args = append(args, filter.Kind)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// ClaimJob transitions a queued job to running. The WHERE guard makes the
// claim exclusive: a second claimer sees zero rows.
func (s *Storage) ClaimJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    started_at = NOW(),
		    last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $2
		  AND status = $3
		RETURNING job_id, user_id, kind, payload, cancel_requested, created_at
	`

	var job domain.Job
	err := s.db.QueryRowContext(ctx, query, domain.JobStatusRunning, jobID, domain.JobStatusQueued).Scan(
		&job.JobID,
		&job.UserID,
		&job.Kind,
		&job.Payload,
		&job.CancelRequested,
		&job.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.Status = domain.JobStatusRunning

	s.logger.Info("job claimed",
		slog.String("job_id", jobID),
		slog.String("kind", job.Kind),
	)

	return &job, nil
}

// UpdateJobProgress advances a running job's progress. GREATEST keeps
// progress monotonic even if updates arrive out of order.
func (s *Storage) UpdateJobProgress(ctx context.Context, jobID string, progress int, message string) error {
	query := `
		UPDATE jobs
		SET progress = GREATEST(progress, $1),
		    progress_message = $2,
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	_, err := s.db.ExecContext(ctx, query, progress, message, jobID, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	return nil
}

// CompleteJob finalizes a job with its result. Terminal states never change
// again; the guard refuses updates to already-finished jobs.
func (s *Storage) CompleteJob(ctx context.Context, jobID string, result string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    result = $2,
		    progress = 100,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status IN ($4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		domain.JobStatusCompleted, result, jobID,
		domain.JobStatusQueued, domain.JobStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	s.logger.Info("job completed", slog.String("job_id", jobID))
	return nil
}

// FailJob finalizes a job with an error message
func (s *Storage) FailJob(ctx context.Context, jobID string, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    error = $2,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status IN ($4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		domain.JobStatusFailed, errMsg, jobID,
		domain.JobStatusQueued, domain.JobStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}

	s.logger.Info("job failed",
		slog.String("job_id", jobID),
		slog.String("error", errMsg),
	)
	return nil
}

// CancelJob cancels a queued job immediately or flags a running one for
// cooperative cancellation. Terminal jobs return ErrNotCancelable.
func (s *Storage) CancelJob(ctx context.Context, jobID string) (*domain.Job, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin cancel transaction: %w", err)
	}
	defer tx.Rollback()

	var job domain.Job
	err = tx.GetContext(ctx, &job, `
		SELECT
			job_id, user_id, kind, payload, status,
			progress, progress_message, result, error,
			cancel_requested, started_at, created_at, updated_at
		FROM jobs
		WHERE job_id = $1
		FOR UPDATE
	`, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to lock job for cancel: %w", err)
	}

	switch job.Status {
	case domain.JobStatusQueued:
		_, err = tx.ExecContext(ctx, `
			UPDATE jobs
			SET status = $1,
			    error = $2,
			    cancel_requested = TRUE,
			    completed_at = NOW(),
			    updated_at = NOW()
			WHERE job_id = $3
		`, domain.JobStatusFailed, "canceled before execution", jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to cancel queued job: %w", err)
		}
		job.Status = domain.JobStatusFailed
		canceled := "canceled before execution"
		job.Error = &canceled

	case domain.JobStatusRunning:
		_, err = tx.ExecContext(ctx, `
			UPDATE jobs
			SET cancel_requested = TRUE,
			    updated_at = NOW()
			WHERE job_id = $1
		`, jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to request cancel: %w", err)
		}
		job.CancelRequested = true

	default:
		return nil, domain.ErrNotCancelable
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancel: %w", err)
	}

	s.logger.Info("job cancel requested",
		slog.String("job_id", jobID),
		slog.String("status", job.Status),
	)

	return &job, nil
}

// CancelRequested reports whether a cancel flag is set. Workers poll this at
// pipeline checkpoints.
func (s *Storage) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	var requested bool
	err := s.db.GetContext(ctx, &requested,
		`SELECT cancel_requested FROM jobs WHERE job_id = $1`, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrJobNotFound
		}
		return false, fmt.Errorf("failed to read cancel flag: %w", err)
	}
	return requested, nil
}

// UpdateJobHeartbeat refreshes the liveness timestamp of a running job
func (s *Storage) UpdateJobHeartbeat(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $1 AND status = $2
	`

	result, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to update job heartbeat: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		s.logger.Warn("heartbeat skipped, job not running",
			slog.String("job_id", jobID),
		)
	}

	return nil
}
