package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/learnloop/mentor-be/internal/domain"
	"github.com/learnloop/mentor-be/internal/gateway"
	"github.com/learnloop/mentor-be/internal/workflow"
)

const profilerAgent = "learner_profiler"

const profilerSystemPrompt = "You are a learning profile analyst. " +
	"You always answer with a single JSON object and nothing else."

// onboardingNodes runs profiling and then the journey design over the fresh
// profile, in one pipeline.
func (r *Registry) onboardingNodes() []workflow.Node {
	nodes := []workflow.Node{
		r.interestAnalyzerNode(),
		r.skillAssessorNode(),
		r.profileBuilderNode(),
	}
	return append(nodes, r.journeyDesignNodes("profile")...)
}

// interestAnalyzerNode extracts prioritized interests from the stated goals.
// When the model is unavailable the raw interests from the payload stand in.
func (r *Registry) interestAnalyzerNode() workflow.Node {
	return workflow.Node{
		Name:      "interest_analyzer",
		Reads:     []string{KeyUserID, KeyPayload},
		Writes:    []string{"interests"},
		OnFailure: workflow.Recoverable,
		Fallback:  map[string]any{"interests": []string{}},
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			goals := payloadString(s, "goals")
			background := payloadString(s, "background")

			var out struct {
				Interests []string `json:"interests"`
			}
			req := gateway.Request{
				System: profilerSystemPrompt,
				Prompt: fmt.Sprintf(
					"Extract the learner's topic interests, most important first, as {\"interests\": [...]}.\n\nGoals: %s\nBackground: %s",
					goals, background,
				),
			}
			if err := r.deps.Gateway.Generate(ctx, req, &out); err != nil {
				return nil, err
			}

			return map[string]any{"interests": out.Interests}, nil
		},
	}
}

// skillAssessorNode estimates skill level, learning style and pace. The
// fallback is the learner's own declared level.
func (r *Registry) skillAssessorNode() workflow.Node {
	fallback := map[string]any{
		"skill_level":    domain.SkillBeginner,
		"learning_style": "balanced",
		"pace":           "steady",
	}

	return workflow.Node{
		Name:      "skill_assessor",
		Reads:     []string{KeyPayload},
		Writes:    []string{"skill_level", "learning_style", "pace"},
		OnFailure: workflow.Recoverable,
		Fallback:  fallback,
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			var out struct {
				SkillLevel    string `json:"skill_level"`
				LearningStyle string `json:"learning_style"`
				Pace          string `json:"pace"`
			}
			req := gateway.Request{
				System: profilerSystemPrompt,
				Prompt: fmt.Sprintf(
					"Assess this learner. skill_level must be one of beginner, intermediate, advanced.\n\nSelf-description: %s\nDeclared level: %s\nWeekly hours: %s",
					payloadString(s, "background"),
					payloadString(s, "experience_level"),
					payloadString(s, "time_commitment"),
				),
			}
			if err := r.deps.Gateway.Generate(ctx, req, &out); err != nil {
				return nil, err
			}

			switch out.SkillLevel {
			case domain.SkillBeginner, domain.SkillIntermediate, domain.SkillAdvanced:
			default:
				out.SkillLevel = domain.SkillBeginner
			}
			if out.LearningStyle == "" {
				out.LearningStyle = "balanced"
			}
			if out.Pace == "" {
				out.Pace = "steady"
			}

			return map[string]any{
				"skill_level":    out.SkillLevel,
				"learning_style": out.LearningStyle,
				"pace":           out.Pace,
			}, nil
		},
	}
}

// profileBuilderNode persists the assembled profile. Re-onboarding replaces
// the previous profile wholesale.
func (r *Registry) profileBuilderNode() workflow.Node {
	return workflow.Node{
		Name:      "profile_builder",
		Reads:     []string{KeyUserID, "interests", "skill_level", "learning_style", "pace", KeyAgentLog},
		Writes:    []string{"profile", KeyAgentLog},
		OnFailure: workflow.Fatal,
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			userID := stateString(s, KeyUserID)
			interests, _ := s["interests"].([]string)

			profile := &domain.LearnerProfile{
				UserID:         userID,
				SkillLevel:     stateString(s, "skill_level"),
				LearningStyle:  stateString(s, "learning_style"),
				PriorityTopics: interests,
				Pace:           stateString(s, "pace"),
				Summary: fmt.Sprintf("%s learner, %s style, %s pace, focused on %s",
					stateString(s, "skill_level"),
					stateString(s, "learning_style"),
					stateString(s, "pace"),
					strings.Join(interests, ", "),
				),
				UpdatedAt: time.Now().UTC(),
			}

			if err := r.deps.Store.UpsertProfile(ctx, profile); err != nil {
				return nil, err
			}

			entry := r.audit(ctx, userID, profilerAgent, "profile_built",
				map[string]any{"interests": interests},
				profile,
				profile.Summary,
				0.8,
			)

			return map[string]any{
				"profile":   profile,
				KeyAgentLog: appendActivity(s, entry),
			}, nil
		},
	}
}
