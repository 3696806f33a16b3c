package agents

import (
	"context"
	"fmt"

	"github.com/learnloop/mentor-be/internal/gateway"
	"github.com/learnloop/mentor-be/internal/mastery"
	"github.com/learnloop/mentor-be/internal/workflow"
)

const quizAgent = "quiz_generator"

const quizSystemPrompt = "You are a quiz author. " +
	"You always answer with a single JSON object and nothing else."

const defaultQuestionCount = 5

// QuizQuestion is one generated question
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

func validDifficulty(d string) bool {
	switch d {
	case "easy", "medium", "hard":
		return true
	}
	return false
}

func (r *Registry) quizNodes() []workflow.Node {
	return []workflow.Node{
		r.difficultyResolverNode(),
		r.questionGeneratorNode(),
	}
}

// difficultyResolverNode picks the quiz difficulty from the user's mastery
// and trend for the requested topic. An explicit payload difficulty wins.
// Its Continue predicate skips generation entirely when no valid difficulty
// could be resolved, finishing the pipeline early.
func (r *Registry) difficultyResolverNode() workflow.Node {
	return workflow.Node{
		Name:      "difficulty_resolver",
		Reads:     []string{KeyUserID, KeyPayload, KeyAgentLog},
		Writes:    []string{"difficulty", "topic", KeyAgentLog},
		OnFailure: workflow.Fatal,
		Continue: func(s workflow.State) bool {
			return validDifficulty(stateString(s, "difficulty"))
		},
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			userID := stateString(s, KeyUserID)
			topic := payloadString(s, "topic")
			if topic == "" {
				// Nothing to quiz on; the predicate will stop the pipeline.
				return map[string]any{"difficulty": "", "topic": ""}, nil
			}

			difficulty := payloadString(s, "difficulty")
			if !validDifficulty(difficulty) {
				record, err := r.deps.Store.GetTopicMastery(ctx, userID, topic)
				if err != nil {
					return nil, err
				}

				if record == nil {
					difficulty = "easy"
				} else {
					history, err := r.deps.Store.ListQuizAttempts(ctx, userID, historyWindow)
					if err != nil {
						return nil, err
					}
					trends, _ := mastery.Trends(history)
					difficulty = mastery.RecommendDifficulty(record.MasteryScore, trends[topic].Trend)
				}
			}

			entry := r.audit(ctx, userID, quizAgent, "difficulty_resolved",
				map[string]any{"topic": topic},
				map[string]any{"difficulty": difficulty},
				fmt.Sprintf("resolved %s difficulty for %s", difficulty, topic),
				0.9,
			)

			return map[string]any{
				"difficulty": difficulty,
				"topic":      topic,
				KeyAgentLog:  appendActivity(s, entry),
			}, nil
		},
	}
}

// questionGeneratorNode produces the quiz body
func (r *Registry) questionGeneratorNode() workflow.Node {
	return workflow.Node{
		Name:      "question_generator",
		Reads:     []string{"topic", "difficulty", KeyPayload},
		Writes:    []string{"quiz"},
		OnFailure: workflow.Fatal,
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			topic := stateString(s, "topic")
			difficulty := stateString(s, "difficulty")

			count := defaultQuestionCount
			if n, ok := payloadMap(s)["num_questions"].(float64); ok && n >= 1 && n <= 20 {
				count = int(n)
			}

			var out struct {
				Questions []QuizQuestion `json:"questions"`
			}
			req := gateway.Request{
				System: quizSystemPrompt,
				Prompt: fmt.Sprintf(
					"Write %d %s multiple-choice questions about %q as {\"questions\": [{\"question\", \"options\", \"correct_index\", \"explanation\"}]}. Four options each.",
					count, difficulty, topic,
				),
			}
			if err := r.deps.Gateway.Generate(ctx, req, &out); err != nil {
				return nil, err
			}
			if len(out.Questions) == 0 {
				return nil, fmt.Errorf("model produced no questions")
			}

			return map[string]any{"quiz": map[string]any{
				"topic":      topic,
				"difficulty": difficulty,
				"questions":  out.Questions,
			}}, nil
		},
	}
}
