package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/learnloop/mentor-be/internal/domain"
	"github.com/learnloop/mentor-be/internal/gateway"
	"github.com/learnloop/mentor-be/internal/workflow"
)

const contentAgent = "content_generator"

const contentSystemPrompt = "You are a patient technical tutor writing short lessons."

func (r *Registry) contentNodes() []workflow.Node {
	return []workflow.Node{
		r.contentContextNode(),
		r.contentWriterNode(),
	}
}

// contentContextNode loads the profile so the lesson matches the learner's
// level. A missing profile just means a generic lesson.
func (r *Registry) contentContextNode() workflow.Node {
	return workflow.Node{
		Name:      "content_context",
		Reads:     []string{KeyUserID},
		Writes:    []string{"profile"},
		OnFailure: workflow.Recoverable,
		Fallback:  map[string]any{"profile": (*domain.LearnerProfile)(nil)},
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			profile, err := r.deps.Store.GetProfile(ctx, stateString(s, KeyUserID))
			if err != nil {
				if errors.Is(err, domain.ErrProfileNotFound) {
					return map[string]any{"profile": (*domain.LearnerProfile)(nil)}, nil
				}
				return nil, err
			}
			return map[string]any{"profile": profile}, nil
		},
	}
}

// contentWriterNode produces the lesson text
func (r *Registry) contentWriterNode() workflow.Node {
	return workflow.Node{
		Name:      "content_writer",
		Reads:     []string{KeyUserID, KeyPayload, "profile", KeyAgentLog},
		Writes:    []string{"content", KeyAgentLog},
		OnFailure: workflow.Fatal,
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			topic := payloadString(s, "topic")
			if topic == "" {
				return nil, domain.NewValidationError("topic", "topic is required for content generation")
			}

			format := payloadString(s, "format")
			if format == "" {
				format = "lesson"
			}

			audience := "a general audience"
			if profile, _ := s["profile"].(*domain.LearnerProfile); profile != nil {
				audience = fmt.Sprintf("a %s learner with a %s style", profile.SkillLevel, profile.LearningStyle)
			}

			var text string
			req := gateway.Request{
				System: contentSystemPrompt,
				Prompt: fmt.Sprintf("Write a %s about %q for %s. Keep it under 600 words.", format, topic, audience),
			}
			if err := r.deps.Gateway.Generate(ctx, req, &text); err != nil {
				return nil, err
			}

			entry := r.audit(ctx, stateString(s, KeyUserID), contentAgent, "content_generated",
				map[string]any{"topic": topic, "format": format},
				map[string]any{"length": len(text)},
				fmt.Sprintf("generated %s for %s", format, topic),
				0.7,
			)

			return map[string]any{
				"content": map[string]any{
					"topic":  topic,
					"format": format,
					"body":   text,
				},
				KeyAgentLog: appendActivity(s, entry),
			}, nil
		},
	}
}
