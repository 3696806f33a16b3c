package storage

import (
	"context"
	"fmt"

	"github.com/learnloop/mentor-be/internal/domain"
)

// InsertQuizAttempt records one completed assessment
func (s *Storage) InsertQuizAttempt(ctx context.Context, a *domain.QuizAttempt) error {
	query := `
		INSERT INTO quiz_attempts (
			id, user_id, topic, difficulty, score,
			total_questions, percentage, time_spent, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.Topic,
		a.Difficulty,
		a.Score,
		a.TotalQuestions,
		a.Percentage,
		a.TimeSpent,
		a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quiz attempt: %w", err)
	}

	return nil
}

// ListQuizAttempts returns a user's attempt history in chronological order,
// which is what trend analysis expects. A positive limit keeps only the most
// recent attempts; 0 means no limit.
func (s *Storage) ListQuizAttempts(ctx context.Context, userID string, limit int) ([]domain.QuizAttempt, error) {
	query := `
		SELECT id, user_id, topic, difficulty, score,
		       total_questions, percentage, time_spent, completed_at
		FROM quiz_attempts
		WHERE user_id = $1
		ORDER BY completed_at ASC
	`
	args := []interface{}{userID}

	if limit > 0 {
		query = `
			SELECT id, user_id, topic, difficulty, score,
			       total_questions, percentage, time_spent, completed_at
			FROM (
				SELECT id, user_id, topic, difficulty, score,
				       total_questions, percentage, time_spent, completed_at
				FROM quiz_attempts
				WHERE user_id = $1
				ORDER BY completed_at DESC
				LIMIT $2
			) recent
			ORDER BY completed_at ASC
		`
		args = append(args, limit)
	}

	var attempts []domain.QuizAttempt
	if err := s.db.SelectContext(ctx, &attempts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list quiz attempts: %w", err)
	}

	return attempts, nil
}
