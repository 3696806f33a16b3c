package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnloop/mentor-be/internal/agents"
	"github.com/learnloop/mentor-be/internal/domain"
	"github.com/learnloop/mentor-be/internal/events"
	"github.com/learnloop/mentor-be/internal/gateway"
	"github.com/learnloop/mentor-be/internal/workflow"
)

// processJob claims a job, runs the workflow bound to its kind and writes
// the terminal status. The returned error drives the ACK/NACK decision.
func (w *Worker) processJob(ctx context.Context, jobID string) error {
	job, err := w.storage.ClaimJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			w.logger.Warn("Job already claimed or terminal, skipping",
				slog.String("job_id", jobID),
			)
			return fmt.Errorf("job not claimable: %w", err)
		}
		if errors.Is(err, domain.ErrJobNotFound) {
			w.logger.Warn("Job message references unknown job",
				slog.String("job_id", jobID),
			)
			return fmt.Errorf("job not found: %w", err)
		}
		return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
	}

	if job.CancelRequested {
		return w.failCanceled(ctx, job.JobID)
	}

	var payload map[string]interface{}
	if job.Payload != "" {
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			w.logger.Error("Failed to parse job payload",
				slog.String("job_id", job.JobID),
				slog.String("error", err.Error()),
			)
			w.failJob(ctx, job.JobID, fmt.Sprintf("invalid payload JSON: %s", err))
			return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
		}
	}

	nodes, err := w.registry.Pipeline(job.Kind)
	if err != nil {
		w.failJob(ctx, job.JobID, err.Error())
		return fmt.Errorf("no workflow for job: %w", err)
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	heartbeatDone := make(chan struct{})
	go w.sendJobHeartbeat(jobCtx, job.JobID, heartbeatDone)
	defer close(heartbeatDone)

	// The cancel flag is polled at node boundaries; flipping it aborts the
	// run before the next node starts.
	runCtx, abort := context.WithCancel(jobCtx)
	defer abort()
	canceled := false

	engine := workflow.NewEngine(w.logger, workflow.Hooks{
		OnNodeStart: func(name string, index, total int) {
			requested, err := w.storage.CancelRequested(jobCtx, job.JobID)
			if err != nil {
				w.logger.Warn("Failed to poll cancel flag",
					slog.String("job_id", job.JobID),
					slog.String("error", err.Error()),
				)
				return
			}
			if requested {
				canceled = true
				abort()
				return
			}

			w.updateProgress(jobCtx, job.JobID, index*100/total, "running "+name)
		},
		OnNodeDone: func(name string, index, total int, err error, policy workflow.FailurePolicy, elapsed time.Duration) {
			w.logger.Debug("Workflow node finished",
				slog.String("job_id", job.JobID),
				slog.String("node", name),
				slog.Duration("elapsed", elapsed),
				slog.Bool("failed", err != nil),
			)
			if err == nil {
				progress := (index + 1) * 100 / total
				if progress > 99 {
					progress = 99
				}
				w.updateProgress(jobCtx, job.JobID, progress, name+" finished")
			}
		},
	})

	initial := workflow.State{
		agents.KeyUserID:   job.UserID,
		agents.KeyPayload:  payload,
		agents.KeyAgentLog: []agents.ActivityEntry{},
	}

	final, err := engine.Run(runCtx, nodes, initial)
	if err != nil {
		if canceled {
			return w.failCanceled(ctx, job.JobID)
		}
		return w.failTerminal(ctx, job, err)
	}

	result, err := agents.Result(job.Kind, final)
	if err != nil {
		w.failJob(ctx, job.JobID, err.Error())
		return fmt.Errorf("failed to render result: %w", err)
	}

	if err := w.storage.CompleteJob(ctx, job.JobID, result); err != nil {
		w.logger.Error("Failed to mark job completed",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		// The workflow side effects are already persisted; retrying the
		// whole job would rerun them.
	}

	w.publishInvalidation(ctx, job)

	w.logger.Info("Job completed",
		slog.String("job_id", job.JobID),
		slog.String("kind", job.Kind),
	)

	return nil
}

// failTerminal writes a terminal failure and classifies the error for the
// requeue decision. Workflow and model failures are deterministic, so they
// are never requeued; only an interrupted run goes back on the queue.
func (w *Worker) failTerminal(ctx context.Context, job *domain.Job, runErr error) error {
	switch {
	case errors.Is(runErr, context.DeadlineExceeded):
		w.failJob(ctx, job.JobID, domain.ErrJobTimeout.Error())
		return fmt.Errorf("%w: %s", domain.ErrJobTimeout, job.JobID)

	case errors.Is(runErr, context.Canceled):
		// Shutdown mid-run. Leave the job to the stale-claim sweep and
		// requeue the message for another instance.
		return domain.NewRetryableError(fmt.Errorf("run interrupted: %w", runErr))
	}

	var exhausted *gateway.ExhaustedError
	if errors.As(runErr, &exhausted) {
		w.failJob(ctx, job.JobID, runErr.Error())
		return fmt.Errorf("model backends exhausted: %w", runErr)
	}

	w.failJob(ctx, job.JobID, runErr.Error())
	return fmt.Errorf("workflow failed: %w", runErr)
}

// failCanceled ends a job whose cancel flag was honored. The message is
// ACKed; cancellation is a normal outcome.
func (w *Worker) failCanceled(ctx context.Context, jobID string) error {
	w.failJob(ctx, jobID, "canceled by user request")
	w.logger.Info("Job canceled",
		slog.String("job_id", jobID),
	)
	return nil
}

func (w *Worker) failJob(ctx context.Context, jobID, message string) {
	if err := w.storage.FailJob(ctx, jobID, message); err != nil {
		w.logger.Error("Failed to mark job failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

func (w *Worker) updateProgress(ctx context.Context, jobID string, progress int, message string) {
	if err := w.storage.UpdateJobProgress(ctx, jobID, progress, message); err != nil {
		w.logger.Warn("Failed to update job progress",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// publishInvalidation tells API instances to drop cached reads the job
// made stale. Best effort; a lost event only delays freshness by one TTL.
func (w *Worker) publishInvalidation(ctx context.Context, job *domain.Job) {
	if w.events == nil {
		return
	}

	namespaces := agents.InvalidatedNamespaces(job.Kind)
	if len(namespaces) == 0 {
		return
	}

	inv := events.Invalidation{
		UserID:     job.UserID,
		Namespaces: namespaces,
		Reason:     job.Kind + "_completed",
	}
	if err := w.events.Publish(ctx, inv); err != nil {
		w.logger.Warn("Failed to publish cache invalidation",
			slog.String("job_id", job.JobID),
			slog.String("user_id", job.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// sendJobHeartbeat periodically refreshes the job's heartbeat so stale
// claims from dead workers can be detected.
func (w *Worker) sendJobHeartbeat(ctx context.Context, jobID string, done <-chan struct{}) {
	interval := w.heartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := w.storage.UpdateJobHeartbeat(ctx, jobID); err != nil {
				w.logger.Warn("Failed to update job heartbeat",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
