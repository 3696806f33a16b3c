package storage

import (
	"context"
	"fmt"

	"github.com/learnloop/mentor-be/internal/domain"
)

// InsertDecision appends one audit record. Decisions are never updated or
// deleted.
func (s *Storage) InsertDecision(ctx context.Context, d *domain.AgentDecision) error {
	query := `
		INSERT INTO agent_decisions (
			user_id, agent_name, decision_type, input_data,
			output_data, reasoning, confidence, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err := s.db.ExecContext(ctx, query,
		d.UserID,
		d.AgentName,
		d.DecisionType,
		d.InputData,
		d.OutputData,
		d.Reasoning,
		d.Confidence,
	)
	if err != nil {
		return fmt.Errorf("failed to insert agent decision: %w", err)
	}

	return nil
}

// DecisionFilter narrows an audit trail listing
type DecisionFilter struct {
	UserID       string
	AgentName    string
	DecisionType string
	Limit        int
}

// ListDecisions returns a user's audit trail, newest first, optionally
// filtered by agent name and decision type.
func (s *Storage) ListDecisions(ctx context.Context, filter DecisionFilter) ([]domain.AgentDecision, error) {
	query := `
		SELECT id, user_id, agent_name, decision_type, input_data,
		       output_data, reasoning, confidence, created_at
		FROM agent_decisions
		WHERE user_id = $1
	`
	args := []interface{}{filter.UserID}
	argIdx := 2

	if filter.AgentName != "" {
		query += fmt.Sprintf(" AND agent_name = $%d", argIdx)
		args = append(args, filter.AgentName)
		argIdx++
	}

	if filter.DecisionType != "" {
		query += fmt.Sprintf(" AND decision_type = $%d", argIdx)
		args = append(args, filter.DecisionType)
		argIdx++
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
	}

	var decisions []domain.AgentDecision
	if err := s.db.SelectContext(ctx, &decisions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list agent decisions: %w", err)
	}

	return decisions, nil
}
