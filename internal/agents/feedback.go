package agents

import (
	"context"
	"fmt"

	"github.com/learnloop/mentor-be/internal/gateway"
	"github.com/learnloop/mentor-be/internal/workflow"
)

const feedbackAgent = "feedback_coach"

const feedbackSystemPrompt = "You are an encouraging learning coach. " +
	"Be specific and brief."

func (r *Registry) feedbackNodes() []workflow.Node {
	return []workflow.Node{
		r.sentimentAnalyzerNode(),
		r.motivatorNode(),
	}
}

// sentimentAnalyzerNode classifies the learner's message so the coach can
// match its tone. Unknown sentiment defaults to neutral.
func (r *Registry) sentimentAnalyzerNode() workflow.Node {
	return workflow.Node{
		Name:      "sentiment_analyzer",
		Reads:     []string{KeyPayload},
		Writes:    []string{"sentiment"},
		OnFailure: workflow.Recoverable,
		Fallback:  map[string]any{"sentiment": "neutral"},
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			var out struct {
				Sentiment string `json:"sentiment"`
			}
			req := gateway.Request{
				System: feedbackSystemPrompt,
				Prompt: fmt.Sprintf(
					"Classify the sentiment of this learner message as {\"sentiment\": \"frustrated|neutral|motivated\"}.\n\n%s",
					payloadString(s, "message"),
				),
			}
			if err := r.deps.Gateway.Generate(ctx, req, &out); err != nil {
				return nil, err
			}

			switch out.Sentiment {
			case "frustrated", "neutral", "motivated":
			default:
				out.Sentiment = "neutral"
			}

			return map[string]any{"sentiment": out.Sentiment}, nil
		},
	}
}

// motivatorNode writes the coaching reply
func (r *Registry) motivatorNode() workflow.Node {
	return workflow.Node{
		Name:      "motivator",
		Reads:     []string{KeyUserID, KeyPayload, "sentiment", KeyAgentLog},
		Writes:    []string{"feedback", KeyAgentLog},
		OnFailure: workflow.Fatal,
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			sentiment := stateString(s, "sentiment")

			var text string
			req := gateway.Request{
				System: feedbackSystemPrompt,
				Prompt: fmt.Sprintf(
					"The learner sounds %s. Reply to their message in two or three sentences, acknowledging how they feel and suggesting one concrete next step.\n\nMessage: %s",
					sentiment, payloadString(s, "message"),
				),
			}
			if err := r.deps.Gateway.Generate(ctx, req, &text); err != nil {
				return nil, err
			}

			entry := r.audit(ctx, stateString(s, KeyUserID), feedbackAgent, "feedback_given",
				map[string]any{"sentiment": sentiment},
				map[string]any{"length": len(text)},
				fmt.Sprintf("responded to %s message", sentiment),
				0.7,
			)

			return map[string]any{
				"feedback": map[string]any{
					"sentiment": sentiment,
					"message":   text,
				},
				KeyAgentLog: appendActivity(s, entry),
			}, nil
		},
	}
}
