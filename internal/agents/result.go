package agents

import (
	"encoding/json"
	"fmt"

	"github.com/learnloop/mentor-be/internal/cache"
	"github.com/learnloop/mentor-be/internal/domain"
	"github.com/learnloop/mentor-be/internal/workflow"
)

// Result renders the client-visible outcome of a finished pipeline as a
// JSON string, stored on the job row.
func Result(kind string, state workflow.State) (string, error) {
	var out any

	switch kind {
	case domain.JobKindOnboarding:
		profile, _ := state["profile"].(*domain.LearnerProfile)
		journey, _ := state["journey"].([]domain.JourneyTopic)
		log, _ := state[KeyAgentLog].([]ActivityEntry)
		result := map[string]any{
			"topic_count": len(journey),
			"topics":      topicList(journey),
			"agent_log":   log,
		}
		if profile != nil {
			result["skill_level"] = profile.SkillLevel
			result["learning_style"] = profile.LearningStyle
			result["pace"] = profile.Pace
			result["summary"] = profile.Summary
		}
		out = result

	case domain.JobKindJourneyAdjustment:
		journey, _ := state["journey"].([]domain.JourneyTopic)
		out = map[string]any{
			"topic_count": len(journey),
			"topics":      topicList(journey),
		}

	case domain.JobKindPerformanceAnalysis:
		summary, _ := state["summary"].(string)
		confidence, _ := state["confidence"].(float64)
		gaps, _ := state["gaps"].([]domain.TopicMastery)
		strengths, _ := state["strengths"].([]domain.TopicMastery)
		insights, _ := state["insights"].(string)
		recs, _ := state["difficulty_recommendations"].(map[string]string)
		out = map[string]any{
			"summary":                    summary,
			"confidence":                 confidence,
			"gaps":                       masteryTopics(gaps),
			"strengths":                  masteryTopics(strengths),
			"insights":                   insights,
			"difficulty_recommendations": recs,
		}

	case domain.JobKindQuizGeneration:
		out = state["quiz"]

	case domain.JobKindContentGeneration:
		out = state["content"]

	case domain.JobKindFeedback:
		out = state["feedback"]

	default:
		return "", fmt.Errorf("unknown job kind: %s", kind)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s result: %w", kind, err)
	}

	return string(data), nil
}

// InvalidatedNamespaces lists the cache namespaces a finished pipeline
// makes stale. Kinds that persist nothing invalidate nothing.
func InvalidatedNamespaces(kind string) []string {
	switch kind {
	case domain.JobKindOnboarding:
		return []string{
			cache.NamespaceProfile,
			cache.NamespaceJourney,
			cache.NamespaceRecommendations,
		}
	case domain.JobKindJourneyAdjustment:
		return []string{
			cache.NamespaceJourney,
			cache.NamespaceRecommendations,
		}
	case domain.JobKindPerformanceAnalysis:
		return []string{cache.NamespacePerformance}
	}
	return nil
}

func topicList(journey []domain.JourneyTopic) []string {
	topics := make([]string, len(journey))
	for i, t := range journey {
		topics[i] = t.Topic
	}
	return topics
}

func masteryTopics(records []domain.TopicMastery) []string {
	topics := make([]string, len(records))
	for i, r := range records {
		topics[i] = r.Topic
	}
	return topics
}
