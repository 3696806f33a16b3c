package domain

import (
	"time"

	"github.com/lib/pq"
)

// Skill levels derived from mastery scores.
const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
)

// Journey topic statuses. A topic may only leave "locked" once every
// prerequisite topic is completed.
const (
	TopicLocked     = "locked"
	TopicAvailable  = "available"
	TopicInProgress = "in_progress"
	TopicCompleted  = "completed"
)

// Recommendation sources, in the order strategies run.
const (
	SourceJourney          = "journey"
	SourceKnowledgeGap     = "knowledge_gap"
	SourceStrengthBuilding = "strength_building"
	SourceExploration      = "exploration"
)

// LearnerProfile is created by the profiling workflow and replaced, not
// merged, on re-onboarding.
type LearnerProfile struct {
	UserID         string         `db:"user_id"`
	SkillLevel     string         `db:"skill_level"`
	LearningStyle  string         `db:"learning_style"`
	PriorityTopics pq.StringArray `db:"priority_topics"`
	Pace           string         `db:"pace"`
	Summary        string         `db:"summary"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// JourneyTopic is one step of a user's prerequisite-gated learning path.
// Positions are dense and 1-based within a user's journey.
type JourneyTopic struct {
	UserID         string         `db:"user_id"`
	Topic          string         `db:"topic"`
	Position       int            `db:"position"`
	Status         string         `db:"status"`
	Description    string         `db:"description"`
	Prerequisites  pq.StringArray `db:"prerequisites"`
	EstimatedHours int            `db:"estimated_hours"`
	IsMilestone    bool           `db:"is_milestone"`
	Reasoning      string         `db:"reasoning"`
	StartedAt      *time.Time     `db:"started_at"`
	CompletedAt    *time.Time     `db:"completed_at"`
}

// TopicMastery is the per-user, per-topic proficiency estimate, updated
// (never replaced) after each assessment.
type TopicMastery struct {
	UserID        string     `db:"user_id"`
	Topic         string     `db:"topic"`
	SkillLevel    string     `db:"skill_level"`
	MasteryScore  float64    `db:"mastery_score"`
	Attempts      int        `db:"attempts"`
	LastAttempted *time.Time `db:"last_attempted"`
}

// QuizAttempt records one completed assessment.
type QuizAttempt struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	Topic          string    `db:"topic"`
	Difficulty     string    `db:"difficulty"`
	Score          int       `db:"score"`
	TotalQuestions int       `db:"total_questions"`
	Percentage     float64   `db:"percentage"`
	TimeSpent      int       `db:"time_spent"` // seconds
	CompletedAt    time.Time `db:"completed_at"`
}

// Recommendation is a transient next-topic suggestion; recomputed on demand
// and cached with a short TTL, never persisted.
type Recommendation struct {
	Topic          string  `json:"topic"`
	Source         string  `json:"source"`
	CompositeScore float64 `json:"composite_score"` // [0,1]
	Reasoning      string  `json:"reasoning"`
}

// AgentDecision is an append-only audit record of one consequential
// workflow node invocation.
type AgentDecision struct {
	ID           int64     `db:"id"`
	UserID       string    `db:"user_id"`
	AgentName    string    `db:"agent_name"`
	DecisionType string    `db:"decision_type"`
	InputData    string    `db:"input_data"`  // JSON snapshot
	OutputData   string    `db:"output_data"` // JSON snapshot
	Reasoning    string    `db:"reasoning"`
	Confidence   float64   `db:"confidence"` // [0,1]
	CreatedAt    time.Time `db:"created_at"`
}
