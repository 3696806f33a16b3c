package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/learnloop/mentor-be/internal/domain"
)

// ReplaceJourney swaps a user's journey for a new topic set in one
// transaction. Positions are expected dense and 1-based.
func (s *Storage) ReplaceJourney(ctx context.Context, userID string, topics []domain.JourneyTopic) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin journey transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM journey_topics WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear journey: %w", err)
	}

	insert := `
		INSERT INTO journey_topics (
			user_id, topic, position, status, description,
			prerequisites, estimated_hours, is_milestone, reasoning,
			started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, t := range topics {
		_, err := tx.ExecContext(ctx, insert,
			userID,
			t.Topic,
			t.Position,
			t.Status,
			t.Description,
			t.Prerequisites,
			t.EstimatedHours,
			t.IsMilestone,
			t.Reasoning,
			t.StartedAt,
			t.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert journey topic %q: %w", t.Topic, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit journey: %w", err)
	}

	s.logger.Info("journey replaced",
		slog.String("user_id", userID),
		slog.Int("topics", len(topics)),
	)

	return nil
}

// GetJourney returns a user's journey in position order
func (s *Storage) GetJourney(ctx context.Context, userID string) ([]domain.JourneyTopic, error) {
	query := `
		SELECT user_id, topic, position, status, description,
		       prerequisites, estimated_hours, is_milestone, reasoning,
		       started_at, completed_at
		FROM journey_topics
		WHERE user_id = $1
		ORDER BY position ASC
	`

	var topics []domain.JourneyTopic
	if err := s.db.SelectContext(ctx, &topics, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get journey: %w", err)
	}

	return topics, nil
}

// StartTopic moves an available topic into progress. The status guard is
// the prerequisite gate: locked topics never match.
func (s *Storage) StartTopic(ctx context.Context, userID, topic string) error {
	query := `
		UPDATE journey_topics
		SET status = $1, started_at = NOW()
		WHERE user_id = $2 AND topic = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TopicInProgress, userID, topic, domain.TopicAvailable)
	if err != nil {
		return fmt.Errorf("failed to start topic: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTopicNotFound
	}

	return nil
}

// CompleteTopic marks a topic completed and unlocks any locked topic whose
// prerequisites are now all completed.
func (s *Storage) CompleteTopic(ctx context.Context, userID, topic string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin completion transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE journey_topics
		SET status = $1, completed_at = NOW()
		WHERE user_id = $2 AND topic = $3 AND status != $1
	`, domain.TopicCompleted, userID, topic)
	if err != nil {
		return fmt.Errorf("failed to complete topic: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Either unknown or already completed. Unknown is an error; the
		// sweep below is harmless either way.
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM journey_topics WHERE user_id = $1 AND topic = $2)`,
			userID, topic); err != nil {
			return fmt.Errorf("failed to check topic: %w", err)
		}
		if !exists {
			return domain.ErrTopicNotFound
		}
	}

	unlocked, err := tx.ExecContext(ctx, `
		UPDATE journey_topics jt
		SET status = $1
		WHERE jt.user_id = $2
		  AND jt.status = $3
		  AND NOT EXISTS (
			SELECT 1
			FROM unnest(jt.prerequisites) AS prereq
			WHERE prereq NOT IN (
				SELECT topic FROM journey_topics
				WHERE user_id = $2 AND status = $4
			)
		  )
	`, domain.TopicAvailable, userID, domain.TopicLocked, domain.TopicCompleted)
	if err != nil {
		return fmt.Errorf("failed to unlock dependent topics: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}

	if n, err := unlocked.RowsAffected(); err == nil && n > 0 {
		s.logger.Info("topics unlocked",
			slog.String("user_id", userID),
			slog.Int64("count", n),
		)
	}

	return nil
}

// GetTopic fetches one journey topic
func (s *Storage) GetTopic(ctx context.Context, userID, topic string) (*domain.JourneyTopic, error) {
	query := `
		SELECT user_id, topic, position, status, description,
		       prerequisites, estimated_hours, is_milestone, reasoning,
		       started_at, completed_at
		FROM journey_topics
		WHERE user_id = $1 AND topic = $2
	`

	var t domain.JourneyTopic
	err := s.db.GetContext(ctx, &t, query, userID, topic)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}

	return &t, nil
}
