package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/learnloop/mentor-be/internal/domain"
	"github.com/learnloop/mentor-be/internal/gateway"
	"github.com/learnloop/mentor-be/internal/mastery"
	"github.com/learnloop/mentor-be/internal/workflow"
)

const journeyAgent = "journey_architect"

const journeySystemPrompt = "You are a curriculum designer. " +
	"You always answer with a single JSON object and nothing else."

// milestoneEvery marks every Nth topic as a milestone
const milestoneEvery = 5

// plannedTopic is the model's raw journey proposal before sequencing
type plannedTopic struct {
	Topic          string   `json:"topic"`
	Description    string   `json:"description"`
	Prerequisites  []string `json:"prerequisites"`
	EstimatedHours int      `json:"estimated_hours"`
	Reasoning      string   `json:"reasoning"`
}

// journeyAdjustmentNodes rebuilds the journey for an already-profiled user,
// feeding the planner the user's mastery picture.
func (r *Registry) journeyAdjustmentNodes() []workflow.Node {
	nodes := []workflow.Node{r.profileLoaderNode()}
	return append(nodes, r.journeyDesignNodes("profile")...)
}

// profileLoaderNode loads the stored profile; without one there is nothing
// to adjust.
func (r *Registry) profileLoaderNode() workflow.Node {
	return workflow.Node{
		Name:      "profile_loader",
		Reads:     []string{KeyUserID},
		Writes:    []string{"profile"},
		OnFailure: workflow.Fatal,
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			profile, err := r.deps.Store.GetProfile(ctx, stateString(s, KeyUserID))
			if err != nil {
				return nil, err
			}
			return map[string]any{"profile": profile}, nil
		},
	}
}

// journeyDesignNodes is the shared tail of onboarding and adjustment:
// expand topics, sequence them, persist the result.
func (r *Registry) journeyDesignNodes(profileKey string) []workflow.Node {
	return []workflow.Node{
		r.topicExpanderNode(profileKey),
		r.journeySequencerNode(),
		r.journeyFinalizerNode(),
	}
}

// topicExpanderNode asks the model for an ordered topic plan grounded in
// the profile and, when present, the user's mastery gaps.
func (r *Registry) topicExpanderNode(profileKey string) workflow.Node {
	return workflow.Node{
		Name:      "topic_expander",
		Reads:     []string{KeyUserID, profileKey},
		Writes:    []string{"planned_topics"},
		OnFailure: workflow.Fatal,
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			profile, _ := s[profileKey].(*domain.LearnerProfile)
			if profile == nil {
				return nil, fmt.Errorf("profile missing from state")
			}

			records, err := r.deps.Store.GetMastery(ctx, stateString(s, KeyUserID))
			if err != nil {
				return nil, err
			}

			var gapNote string
			if gaps := mastery.Gaps(records); len(gaps) > 0 {
				names := make([]string, len(gaps))
				for i, g := range gaps {
					names[i] = g.Topic
				}
				gapNote = "Known weak topics to revisit: " + strings.Join(names, ", ")
			}

			var out struct {
				Topics []plannedTopic `json:"topics"`
			}
			req := gateway.Request{
				System: journeySystemPrompt,
				Prompt: fmt.Sprintf(
					"Design an ordered learning path of 5 to 12 topics as {\"topics\": [{\"topic\", \"description\", \"prerequisites\", \"estimated_hours\", \"reasoning\"}]}. Prerequisites must name earlier topics in the same list.\n\nLearner: %s (%s, %s pace)\nPriorities: %s\n%s",
					profile.SkillLevel,
					profile.LearningStyle,
					profile.Pace,
					strings.Join(profile.PriorityTopics, ", "),
					gapNote,
				),
			}
			if err := r.deps.Gateway.Generate(ctx, req, &out); err != nil {
				return nil, err
			}
			if len(out.Topics) == 0 {
				return nil, fmt.Errorf("model proposed an empty journey")
			}

			return map[string]any{"planned_topics": out.Topics}, nil
		},
	}
}

// journeySequencerNode turns the plan into journey rows: dense 1-based
// positions, milestone every Nth topic, topics without prerequisites start
// available and the rest locked.
func (r *Registry) journeySequencerNode() workflow.Node {
	return workflow.Node{
		Name:      "journey_sequencer",
		Reads:     []string{KeyUserID, "planned_topics"},
		Writes:    []string{"journey"},
		OnFailure: workflow.Fatal,
		Run: func(_ context.Context, s workflow.State) (map[string]any, error) {
			planned, _ := s["planned_topics"].([]plannedTopic)
			userID := stateString(s, KeyUserID)

			known := make(map[string]bool, len(planned))
			for _, p := range planned {
				known[p.Topic] = true
			}

			journey := make([]domain.JourneyTopic, 0, len(planned))
			for i, p := range planned {
				// Drop prerequisite references to topics outside the plan.
				prereqs := make([]string, 0, len(p.Prerequisites))
				for _, pre := range p.Prerequisites {
					if known[pre] && pre != p.Topic {
						prereqs = append(prereqs, pre)
					}
				}

				status := domain.TopicLocked
				if len(prereqs) == 0 {
					status = domain.TopicAvailable
				}

				journey = append(journey, domain.JourneyTopic{
					UserID:         userID,
					Topic:          p.Topic,
					Position:       i + 1,
					Status:         status,
					Description:    p.Description,
					Prerequisites:  prereqs,
					EstimatedHours: p.EstimatedHours,
					IsMilestone:    (i+1)%milestoneEvery == 0,
					Reasoning:      p.Reasoning,
				})
			}

			return map[string]any{"journey": journey}, nil
		},
	}
}

// journeyFinalizerNode persists the sequenced journey and records the
// design decision.
func (r *Registry) journeyFinalizerNode() workflow.Node {
	return workflow.Node{
		Name:      "journey_finalizer",
		Reads:     []string{KeyUserID, "journey", KeyAgentLog},
		Writes:    []string{"journey_saved", KeyAgentLog},
		OnFailure: workflow.Fatal,
		Run: func(ctx context.Context, s workflow.State) (map[string]any, error) {
			userID := stateString(s, KeyUserID)
			journey, _ := s["journey"].([]domain.JourneyTopic)

			if err := r.deps.Store.ReplaceJourney(ctx, userID, journey); err != nil {
				return nil, err
			}

			topics := make([]string, len(journey))
			for i, t := range journey {
				topics[i] = t.Topic
			}
			entry := r.audit(ctx, userID, journeyAgent, "journey_designed",
				map[string]any{"topic_count": len(journey)},
				map[string]any{"topics": topics},
				fmt.Sprintf("sequenced %d topics with milestone every %d", len(journey), milestoneEvery),
				0.75,
			)

			return map[string]any{
				"journey_saved": true,
				KeyAgentLog:     appendActivity(s, entry),
			}, nil
		},
	}
}
