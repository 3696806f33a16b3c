package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/learnloop/mentor-be/internal/domain"
)

// UpsertProfile replaces a user's learner profile. Re-onboarding overwrites
// every field; profiles are never merged.
func (s *Storage) UpsertProfile(ctx context.Context, p *domain.LearnerProfile) error {
	query := `
		INSERT INTO learner_profiles (
			user_id, skill_level, learning_style, priority_topics,
			pace, summary, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			skill_level = EXCLUDED.skill_level,
			learning_style = EXCLUDED.learning_style,
			priority_topics = EXCLUDED.priority_topics,
			pace = EXCLUDED.pace,
			summary = EXCLUDED.summary,
			updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		p.UserID,
		p.SkillLevel,
		p.LearningStyle,
		p.PriorityTopics,
		p.Pace,
		p.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

// GetProfile retrieves a user's learner profile
func (s *Storage) GetProfile(ctx context.Context, userID string) (*domain.LearnerProfile, error) {
	query := `
		SELECT user_id, skill_level, learning_style, priority_topics,
		       pace, summary, created_at, updated_at
		FROM learner_profiles
		WHERE user_id = $1
	`

	var p domain.LearnerProfile
	err := s.db.GetContext(ctx, &p, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}
