package agents

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/learnloop/mentor-be/internal/domain"
	"github.com/learnloop/mentor-be/internal/gateway"
	"github.com/learnloop/mentor-be/internal/mastery"
	"github.com/learnloop/mentor-be/internal/workflow"
)

const performanceAgent = "performance_analyzer"

const performanceSystemPrompt = "You are a learning performance analyst. " +
	"You always answer with a single JSON object and nothing else."

// attemptsForFullConfidence is the attempt count at which analysis
// confidence saturates at 1.0.
const attemptsForFullConfidence = 20

// historyWindow bounds how many recent attempts feed trend analysis
const historyWindow = 50

func (r *Registry) performanceNodes() []workflow.Node {
	return []workflow.Node{
		r.historyLoaderNode(),
		r.statisticalAnalyzerNode(),
		r.knowledgeGapIdentifierNode(),
		r.adaptationRecommenderNode(),
		r.summaryGeneratorNode(),
	}
}

func (r *Registry) historyLoaderNode() workflow.Node {
	return workflow.Node{
		Name:      "history_loader",
		Reads:     []string{KeyUserID},
		Writes:    []string{"history", "mastery_records"},
		OnFailure: workflow.Fatal,
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			userID := stateString(s, KeyUserID)

			history, err := r.deps.Store.ListQuizAttempts(ctx, userID, historyWindow)
			if err != nil {
				return nil, err
			}
			records, err := r.deps.Store.GetMastery(ctx, userID)
			if err != nil {
				return nil, err
			}

			return map[string]any{
				"history":         history,
				"mastery_records": records,
			}, nil
		},
	}
}

// statisticalAnalyzerNode computes per-topic trends and overall averages
// without touching the model.
func (r *Registry) statisticalAnalyzerNode() workflow.Node {
	return workflow.Node{
		Name:      "statistical_analyzer",
		Reads:     []string{"history"},
		Writes:    []string{"trends", "overall_average"},
		OnFailure: workflow.Fatal,
		Run: func(_ context.Context, s workflow.State) (map[string]any, error) {
			history, _ := s["history"].([]domain.QuizAttempt)

			trends, overall := mastery.Trends(history)

			return map[string]any{
				"trends":          trends,
				"overall_average": overall,
			}, nil
		},
	}
}

// knowledgeGapIdentifierNode derives gaps and strengths from mastery scores
// and asks the model for narrative insights. The scores always land; only
// the narrative degrades when the model is down.
func (r *Registry) knowledgeGapIdentifierNode() workflow.Node {
	return workflow.Node{
		Name:      "knowledge_gap_identifier",
		Reads:     []string{"mastery_records", "trends"},
		Writes:    []string{"gaps", "strengths", "insights"},
		OnFailure: workflow.Recoverable,
		Fallback: map[string]any{
			"gaps":      []domain.TopicMastery{},
			"strengths": []domain.TopicMastery{},
			"insights":  "",
		},
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			records, _ := s["mastery_records"].([]domain.TopicMastery)

			gaps := mastery.Gaps(records)
			strengths := mastery.Strengths(records)

			insights := ""
			if len(records) > 0 {
				var sb strings.Builder
				for _, m := range records {
					fmt.Fprintf(&sb, "%s: %.0f%% over %d attempts\n", m.Topic, m.MasteryScore, m.Attempts)
				}

				var out struct {
					Insights string `json:"insights"`
				}
				req := gateway.Request{
					System: performanceSystemPrompt,
					Prompt: fmt.Sprintf(
						"Summarize this learner's knowledge gaps and strengths in two or three sentences as {\"insights\": \"...\"}.\n\n%s",
						sb.String(),
					),
				}
				if err := r.deps.Gateway.Generate(ctx, req, &out); err != nil {
					// Keep the computed scores; only the narrative is lost.
					r.deps.Logger.Warn("insights generation failed", "error", err)
				} else {
					insights = out.Insights
				}
			}

			return map[string]any{
				"gaps":      gaps,
				"strengths": strengths,
				"insights":  insights,
			}, nil
		},
	}
}

// adaptationRecommenderNode picks the next quiz difficulty per assessed
// topic from score and trend.
func (r *Registry) adaptationRecommenderNode() workflow.Node {
	return workflow.Node{
		Name:      "adaptation_recommender",
		Reads:     []string{"mastery_records", "trends"},
		Writes:    []string{"difficulty_recommendations"},
		OnFailure: workflow.Fatal,
		Run: func(_ context.Context, s workflow.State) (map[string]any, error) {
			records, _ := s["mastery_records"].([]domain.TopicMastery)
			trends, _ := s["trends"].(map[string]mastery.TopicTrend)

			recs := make(map[string]string, len(records))
			for _, m := range records {
				recs[m.Topic] = mastery.RecommendDifficulty(m.MasteryScore, trends[m.Topic].Trend)
			}

			return map[string]any{"difficulty_recommendations": recs}, nil
		},
	}
}

// summaryGeneratorNode assembles the human-readable report and its
// confidence, then records the analysis.
func (r *Registry) summaryGeneratorNode() workflow.Node {
	return workflow.Node{
		Name:      "summary_generator",
		Reads:     []string{KeyUserID, "history", "gaps", "strengths", "insights", "overall_average", KeyAgentLog},
		Writes:    []string{"summary", "confidence", KeyAgentLog},
		OnFailure: workflow.Fatal,
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			userID := stateString(s, KeyUserID)
			history, _ := s["history"].([]domain.QuizAttempt)
			gaps, _ := s["gaps"].([]domain.TopicMastery)
			strengths, _ := s["strengths"].([]domain.TopicMastery)
			insights, _ := s["insights"].(string)
			overall, _ := s["overall_average"].(float64)

			confidence := math.Min(1, float64(len(history))/attemptsForFullConfidence)

			summary := fmt.Sprintf(
				"%d attempts, %.0f%% average. %d gap(s), %d strength(s).",
				len(history), overall, len(gaps), len(strengths),
			)
			if insights != "" {
				summary += " " + insights
			}

			entry := r.audit(ctx, userID, performanceAgent, "performance_analyzed",
				map[string]any{"attempts": len(history)},
				map[string]any{"gaps": len(gaps), "strengths": len(strengths), "average": overall},
				summary,
				confidence,
			)

			return map[string]any{
				"summary":    summary,
				"confidence": confidence,
				KeyAgentLog:  appendActivity(s, entry),
			}, nil
		},
	}
}
