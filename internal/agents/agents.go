// Package agents compiles the per-job-kind workflow pipelines. Each job
// kind maps to a fixed, pre-validated node list; nothing about the shape of
// a pipeline is decided at run time.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/learnloop/mentor-be/internal/domain"
	"github.com/learnloop/mentor-be/internal/gateway"
	"github.com/learnloop/mentor-be/internal/workflow"
)

// Store is the slice of the persistence layer the pipelines touch.
// *storage.Storage satisfies it.
type Store interface {
	UpsertProfile(ctx context.Context, p *domain.LearnerProfile) error
	GetProfile(ctx context.Context, userID string) (*domain.LearnerProfile, error)
	GetMastery(ctx context.Context, userID string) ([]domain.TopicMastery, error)
	GetTopicMastery(ctx context.Context, userID, topic string) (*domain.TopicMastery, error)
	ListQuizAttempts(ctx context.Context, userID string, limit int) ([]domain.QuizAttempt, error)
	ReplaceJourney(ctx context.Context, userID string, topics []domain.JourneyTopic) error
	InsertDecision(ctx context.Context, d *domain.AgentDecision) error
}

// State keys shared across pipelines. Every pipeline starts with the user,
// the decoded job payload and an empty activity log.
const (
	KeyUserID   = "user_id"
	KeyPayload  = "payload"
	KeyAgentLog = "agent_log"
)

// InitialKeys lists what the job processor seeds into every pipeline
var InitialKeys = []string{KeyUserID, KeyPayload, KeyAgentLog}

// ActivityEntry is one step of the pipeline's activity log: which agent
// acted, what it decided and why. Job results surface the accumulated log
// so a caller can trace how its outcome was reached.
type ActivityEntry struct {
	Agent      string  `json:"agent"`
	Decision   string  `json:"decision"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// Deps carries what nodes need to run
type Deps struct {
	Gateway *gateway.Gateway
	Store   Store
	Logger  *slog.Logger
}

// Registry builds and validates pipelines per job kind
type Registry struct {
	deps Deps
}

// NewRegistry creates a registry. Pipelines are validated on first build,
// so a miswired node list fails the worker at startup rather than mid-job.
func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps}
}

// Pipeline returns the node list bound to a job kind
func (r *Registry) Pipeline(kind string) ([]workflow.Node, error) {
	var nodes []workflow.Node

	switch kind {
	case domain.JobKindOnboarding:
		nodes = r.onboardingNodes()
	case domain.JobKindJourneyAdjustment:
		nodes = r.journeyAdjustmentNodes()
	case domain.JobKindPerformanceAnalysis:
		nodes = r.performanceNodes()
	case domain.JobKindQuizGeneration:
		nodes = r.quizNodes()
	case domain.JobKindContentGeneration:
		nodes = r.contentNodes()
	case domain.JobKindFeedback:
		nodes = r.feedbackNodes()
	default:
		return nil, fmt.Errorf("no pipeline bound to job kind %q", kind)
	}

	if err := workflow.Validate(nodes, InitialKeys); err != nil {
		return nil, fmt.Errorf("pipeline for %q is miswired: %w", kind, err)
	}

	return nodes, nil
}

// audit appends one decision record and returns the matching activity log
// entry. Audit failures are logged, never propagated: losing an audit row
// must not fail a job.
func (r *Registry) audit(ctx context.Context, userID, agentName, decisionType string, input, output any, reasoning string, confidence float64) ActivityEntry {
	inputJSON, err := json.Marshal(input)
	if err != nil {
		inputJSON = []byte("{}")
	}
	outputJSON, err := json.Marshal(output)
	if err != nil {
		outputJSON = []byte("{}")
	}

	decision := &domain.AgentDecision{
		UserID:       userID,
		AgentName:    agentName,
		DecisionType: decisionType,
		InputData:    string(inputJSON),
		OutputData:   string(outputJSON),
		Reasoning:    reasoning,
		Confidence:   confidence,
	}

	if err := r.deps.Store.InsertDecision(ctx, decision); err != nil {
		r.deps.Logger.Warn("failed to record agent decision",
			slog.String("agent", agentName),
			slog.String("decision_type", decisionType),
			slog.Any("error", err),
		)
	}

	return ActivityEntry{
		Agent:      agentName,
		Decision:   decisionType,
		Reasoning:  reasoning,
		Confidence: confidence,
	}
}

// appendActivity extends the pipeline's activity log without mutating the
// slice an earlier node wrote.
func appendActivity(s workflow.State, entry ActivityEntry) []ActivityEntry {
	prev, _ := s[KeyAgentLog].([]ActivityEntry)
	log := make([]ActivityEntry, 0, len(prev)+1)
	log = append(log, prev...)
	return append(log, entry)
}

func stateString(s workflow.State, key string) string {
	v, _ := s[key].(string)
	return v
}

func payloadMap(s workflow.State) map[string]any {
	m, _ := s[KeyPayload].(map[string]any)
	return m
}

func payloadString(s workflow.State, key string) string {
	v, _ := payloadMap(s)[key].(string)
	return v
}
