package dto

import (
	"github.com/learnloop/mentor-be/internal/domain"
	"github.com/learnloop/mentor-be/internal/mastery"
)

type SubmitQuizRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	Topic          string `json:"topic" binding:"required"`
	Difficulty     string `json:"difficulty"`
	Score          int    `json:"score" binding:"min=0"`
	TotalQuestions int    `json:"total_questions" binding:"required,min=1"`
	TimeSpent      int    `json:"time_spent" binding:"min=0"`
}

type SubmitQuizResponse struct {
	Topic          string  `json:"topic"`
	Percentage     float64 `json:"percentage"`
	MasteryScore   float64 `json:"mastery_score"`
	SkillLevel     string  `json:"skill_level"`
	Attempts       int     `json:"attempts"`
	TopicCompleted bool    `json:"topic_completed"`
}

type ProfileResponse struct {
	UserID         string   `json:"user_id"`
	SkillLevel     string   `json:"skill_level"`
	LearningStyle  string   `json:"learning_style"`
	PriorityTopics []string `json:"priority_topics"`
	Pace           string   `json:"pace"`
	Summary        string   `json:"summary,omitempty"`
}

type JourneyResponse struct {
	UserID string            `json:"user_id"`
	Topics []JourneyTopicDTO `json:"topics"`
}

type JourneyTopicDTO struct {
	Topic          string   `json:"topic"`
	Position       int      `json:"position"`
	Status         string   `json:"status"`
	Description    string   `json:"description,omitempty"`
	Prerequisites  []string `json:"prerequisites"`
	EstimatedHours int      `json:"estimated_hours"`
	IsMilestone    bool     `json:"is_milestone"`
	Reasoning      string   `json:"reasoning,omitempty"`
}

type MasteryResponse struct {
	UserID  string            `json:"user_id"`
	Records []TopicMasteryDTO `json:"records"`
}

type TopicMasteryDTO struct {
	Topic        string  `json:"topic"`
	MasteryScore float64 `json:"mastery_score"`
	SkillLevel   string  `json:"skill_level"`
	Attempts     int     `json:"attempts"`
}

type PerformanceResponse struct {
	UserID           string                        `json:"user_id"`
	TotalAttempts    int                           `json:"total_attempts"`
	Gaps             []string                      `json:"gaps"`
	Strengths        []string                      `json:"strengths"`
	Trends           map[string]mastery.TopicTrend `json:"trends"`
	LearningVelocity float64                       `json:"learning_velocity"`
}

type RecommendationsResponse struct {
	UserID          string                  `json:"user_id"`
	Recommendations []domain.Recommendation `json:"recommendations"`
}

type ListDecisionsRequest struct {
	UserID       string `form:"user_id" binding:"required"`
	AgentName    string `form:"agent_name"`
	DecisionType string `form:"decision_type"`
	Limit        int    `form:"limit"`
}

type DecisionDTO struct {
	ID           int64   `json:"id"`
	AgentName    string  `json:"agent_name"`
	DecisionType string  `json:"decision_type"`
	Reasoning    string  `json:"reasoning,omitempty"`
	Confidence   float64 `json:"confidence"`
	CreatedAt    string  `json:"created_at"`
}

type ListDecisionsResponse struct {
	Decisions []DecisionDTO `json:"decisions"`
}
