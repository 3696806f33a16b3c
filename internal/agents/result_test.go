package agents

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor-be/internal/cache"
	"github.com/learnloop/mentor-be/internal/domain"
	"github.com/learnloop/mentor-be/internal/workflow"
)

func TestResult_Onboarding(t *testing.T) {
	state := workflow.State{
		"profile": &domain.LearnerProfile{
			UserID:     "u1",
			SkillLevel: "beginner",
			Pace:       "steady",
		},
		"journey": []domain.JourneyTopic{
			{Topic: "variables"},
			{Topic: "loops"},
		},
		KeyAgentLog: []ActivityEntry{
			{Agent: "learner_profiler", Decision: "profile_built", Reasoning: "beginner learner", Confidence: 0.8},
			{Agent: "journey_architect", Decision: "journey_designed", Reasoning: "sequenced 2 topics", Confidence: 0.75},
		},
	}

	raw, err := Result(domain.JobKindOnboarding, state)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	assert.Equal(t, float64(2), out["topic_count"])
	assert.Equal(t, "beginner", out["skill_level"])
	assert.Equal(t, []any{"variables", "loops"}, out["topics"])

	log, ok := out["agent_log"].([]any)
	require.True(t, ok)
	require.Len(t, log, 2)
	first, ok := log[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "learner_profiler", first["agent"])
	assert.Equal(t, "profile_built", first["decision"])
	assert.Equal(t, "beginner learner", first["reasoning"])
	assert.Equal(t, 0.8, first["confidence"])
}

func TestResult_QuizPassesStateThrough(t *testing.T) {
	state := workflow.State{
		"quiz": map[string]any{
			"topic":      "loops",
			"difficulty": "medium",
		},
	}

	raw, err := Result(domain.JobKindQuizGeneration, state)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	assert.Equal(t, "loops", out["topic"])
	assert.Equal(t, "medium", out["difficulty"])
}

func TestResult_UnknownKind(t *testing.T) {
	_, err := Result("mystery", workflow.State{})
	assert.Error(t, err)
}

func TestInvalidatedNamespaces(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{cache.NamespaceProfile, cache.NamespaceJourney, cache.NamespaceRecommendations},
		InvalidatedNamespaces(domain.JobKindOnboarding),
	)
	assert.Equal(t,
		[]string{cache.NamespacePerformance},
		InvalidatedNamespaces(domain.JobKindPerformanceAnalysis),
	)
	assert.Empty(t, InvalidatedNamespaces(domain.JobKindFeedback))
}
