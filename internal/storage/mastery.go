package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/learnloop/mentor-be/internal/domain"
)

// UpsertMastery stores the updated mastery estimate for one topic
func (s *Storage) UpsertMastery(ctx context.Context, m *domain.TopicMastery) error {
	query := `
		INSERT INTO topic_mastery (
			user_id, topic, skill_level, mastery_score, attempts, last_attempted
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, topic) DO UPDATE SET
			skill_level = EXCLUDED.skill_level,
			mastery_score = EXCLUDED.mastery_score,
			attempts = EXCLUDED.attempts,
			last_attempted = EXCLUDED.last_attempted
	`

	_, err := s.db.ExecContext(ctx, query,
		m.UserID,
		m.Topic,
		m.SkillLevel,
		m.MasteryScore,
		m.Attempts,
		m.LastAttempted,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert mastery: %w", err)
	}

	return nil
}

// GetMastery returns every mastery record for a user
func (s *Storage) GetMastery(ctx context.Context, userID string) ([]domain.TopicMastery, error) {
	query := `
		SELECT user_id, topic, skill_level, mastery_score, attempts, last_attempted
		FROM topic_mastery
		WHERE user_id = $1
		ORDER BY topic ASC
	`

	var records []domain.TopicMastery
	if err := s.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get mastery: %w", err)
	}

	return records, nil
}

// GetTopicMastery returns one topic's record, or nil when the user has
// never been assessed on it.
func (s *Storage) GetTopicMastery(ctx context.Context, userID, topic string) (*domain.TopicMastery, error) {
	query := `
		SELECT user_id, topic, skill_level, mastery_score, attempts, last_attempted
		FROM topic_mastery
		WHERE user_id = $1 AND topic = $2
	`

	var m domain.TopicMastery
	err := s.db.GetContext(ctx, &m, query, userID, topic)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get topic mastery: %w", err)
	}

	return &m, nil
}
