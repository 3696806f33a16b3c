package agents

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor-be/internal/domain"
	"github.com/learnloop/mentor-be/internal/gateway"
	"github.com/learnloop/mentor-be/internal/workflow"
)

type fakeStore struct {
	profile   *domain.LearnerProfile
	mastery   []domain.TopicMastery
	attempts  []domain.QuizAttempt
	journey   []domain.JourneyTopic
	decisions []domain.AgentDecision
}

func (f *fakeStore) UpsertProfile(_ context.Context, p *domain.LearnerProfile) error {
	f.profile = p
	return nil
}

func (f *fakeStore) GetProfile(_ context.Context, _ string) (*domain.LearnerProfile, error) {
	if f.profile == nil {
		return nil, domain.ErrProfileNotFound
	}
	return f.profile, nil
}

func (f *fakeStore) GetMastery(_ context.Context, _ string) ([]domain.TopicMastery, error) {
	return f.mastery, nil
}

func (f *fakeStore) GetTopicMastery(_ context.Context, _, topic string) (*domain.TopicMastery, error) {
	for i := range f.mastery {
		if f.mastery[i].Topic == topic {
			return &f.mastery[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListQuizAttempts(_ context.Context, _ string, _ int) ([]domain.QuizAttempt, error) {
	return f.attempts, nil
}

func (f *fakeStore) ReplaceJourney(_ context.Context, _ string, topics []domain.JourneyTopic) error {
	f.journey = topics
	return nil
}

func (f *fakeStore) InsertDecision(_ context.Context, d *domain.AgentDecision) error {
	f.decisions = append(f.decisions, *d)
	return nil
}

type replyBackend struct {
	replies map[string]string // matched by substring of the prompt
}

func (b *replyBackend) Name() string { return "fake" }

func (b *replyBackend) Generate(_ context.Context, req gateway.Request) (string, error) {
	for needle, reply := range b.replies {
		if strings.Contains(req.Prompt, needle) {
			return reply, nil
		}
	}
	return "", errors.New("no scripted reply")
}

func testRegistry(store *fakeStore, backend gateway.Backend) *Registry {
	logger := slog.New(slog.DiscardHandler)
	gw := gateway.New([]gateway.Backend{backend}, 2, time.Second, logger)
	return NewRegistry(Deps{Gateway: gw, Store: store, Logger: logger})
}

func runPipeline(t *testing.T, r *Registry, kind string, payload map[string]any) (workflow.State, error) {
	t.Helper()

	nodes, err := r.Pipeline(kind)
	require.NoError(t, err)

	engine := workflow.NewEngine(slog.New(slog.DiscardHandler), workflow.Hooks{})
	return engine.Run(context.Background(), nodes, workflow.State{
		KeyUserID:   "u1",
		KeyPayload:  payload,
		KeyAgentLog: []ActivityEntry{},
	})
}

func TestPipeline_AllKindsValidate(t *testing.T) {
	r := testRegistry(&fakeStore{}, &replyBackend{})

	for _, kind := range []string{
		domain.JobKindOnboarding,
		domain.JobKindJourneyAdjustment,
		domain.JobKindPerformanceAnalysis,
		domain.JobKindQuizGeneration,
		domain.JobKindContentGeneration,
		domain.JobKindFeedback,
	} {
		t.Run(kind, func(t *testing.T) {
			nodes, err := r.Pipeline(kind)
			require.NoError(t, err)
			assert.NotEmpty(t, nodes)
		})
	}
}

func TestPipeline_UnknownKind(t *testing.T) {
	r := testRegistry(&fakeStore{}, &replyBackend{})

	_, err := r.Pipeline("mystery")
	assert.ErrorContains(t, err, "no pipeline bound")
}

func TestOnboarding_BuildsProfileAndJourney(t *testing.T) {
	store := &fakeStore{}
	backend := &replyBackend{replies: map[string]string{
		"topic interests": `{"interests": ["go basics", "concurrency"]}`,
		"Assess":          `{"skill_level": "intermediate", "learning_style": "hands-on", "pace": "fast"}`,
		"learning path": `{"topics": [
			{"topic": "go basics", "description": "syntax", "prerequisites": [], "estimated_hours": 4, "reasoning": "start"},
			{"topic": "functions", "description": "funcs", "prerequisites": ["go basics"], "estimated_hours": 3, "reasoning": "next"},
			{"topic": "structs", "description": "types", "prerequisites": ["functions"], "estimated_hours": 3, "reasoning": ""},
			{"topic": "interfaces", "description": "contracts", "prerequisites": ["structs"], "estimated_hours": 4, "reasoning": ""},
			{"topic": "concurrency", "description": "goroutines", "prerequisites": ["interfaces"], "estimated_hours": 6, "reasoning": "goal"}
		]}`,
	}}

	state, err := runPipeline(t, testRegistry(store, backend), domain.JobKindOnboarding, map[string]any{
		"goals":            "learn Go",
		"background":       "two years of Python",
		"experience_level": "intermediate",
	})
	require.NoError(t, err)

	require.NotNil(t, store.profile)
	assert.Equal(t, "intermediate", store.profile.SkillLevel)
	assert.Equal(t, []string{"go basics", "concurrency"}, []string(store.profile.PriorityTopics))

	require.Len(t, store.journey, 5)

	// Dense 1-based positions, first topic available, the rest locked.
	for i, topic := range store.journey {
		assert.Equal(t, i+1, topic.Position)
	}
	assert.Equal(t, domain.TopicAvailable, store.journey[0].Status)
	for _, topic := range store.journey[1:] {
		assert.Equal(t, domain.TopicLocked, topic.Status)
	}

	// Milestone every fifth topic.
	assert.False(t, store.journey[3].IsMilestone)
	assert.True(t, store.journey[4].IsMilestone)

	assert.Equal(t, true, state["journey_saved"])
	assert.NotEmpty(t, store.decisions)

	// Each auditing node appended one activity entry in pipeline order.
	log, ok := state[KeyAgentLog].([]ActivityEntry)
	require.True(t, ok)
	require.Len(t, log, 2)
	assert.Equal(t, profilerAgent, log[0].Agent)
	assert.Equal(t, "profile_built", log[0].Decision)
	assert.Equal(t, journeyAgent, log[1].Agent)
	assert.Equal(t, "journey_designed", log[1].Decision)
}

func TestOnboarding_ModelDownUsesFallbacks(t *testing.T) {
	store := &fakeStore{}
	// Only the journey planner answers; profiling calls all fail.
	backend := &replyBackend{replies: map[string]string{
		"learning path": `{"topics": [
			{"topic": "foundations", "description": "", "prerequisites": [], "estimated_hours": 2, "reasoning": ""}
		]}`,
	}}

	_, err := runPipeline(t, testRegistry(store, backend), domain.JobKindOnboarding, map[string]any{
		"goals": "learn something",
	})
	require.NoError(t, err)

	// Recoverable profiling nodes fell back to defaults.
	require.NotNil(t, store.profile)
	assert.Equal(t, domain.SkillBeginner, store.profile.SkillLevel)
	assert.Equal(t, "balanced", store.profile.LearningStyle)
	assert.Len(t, store.journey, 1)
}

func TestJourneyAdjustment_RequiresProfile(t *testing.T) {
	store := &fakeStore{} // no profile stored

	_, err := runPipeline(t, testRegistry(store, &replyBackend{}), domain.JobKindJourneyAdjustment, map[string]any{})

	var nodeErr *workflow.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "profile_loader", nodeErr.Node)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestQuiz_ResolvesDifficultyFromMastery(t *testing.T) {
	store := &fakeStore{
		mastery: []domain.TopicMastery{
			{UserID: "u1", Topic: "pointers", MasteryScore: 85, Attempts: 6},
		},
	}
	backend := &replyBackend{replies: map[string]string{
		"multiple-choice": `{"questions": [
			{"question": "q1", "options": ["a","b","c","d"], "correct_index": 1, "explanation": "e"}
		]}`,
	}}

	state, err := runPipeline(t, testRegistry(store, backend), domain.JobKindQuizGeneration, map[string]any{
		"topic": "pointers",
	})
	require.NoError(t, err)

	// 85% mastery with no trend data resolves to hard.
	assert.Equal(t, "hard", state["difficulty"])

	quiz, ok := state["quiz"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pointers", quiz["topic"])
}

func TestQuiz_MissingTopicShortCircuits(t *testing.T) {
	store := &fakeStore{}
	// No scripted replies: if generation ran, the pipeline would fail.
	state, err := runPipeline(t, testRegistry(store, &replyBackend{}), domain.JobKindQuizGeneration, map[string]any{})

	require.NoError(t, err)
	_, generated := state["quiz"]
	assert.False(t, generated)
}

func TestQuiz_UnassessedTopicGetsEasy(t *testing.T) {
	store := &fakeStore{}
	backend := &replyBackend{replies: map[string]string{
		"multiple-choice": `{"questions": [
			{"question": "q1", "options": ["a","b","c","d"], "correct_index": 0, "explanation": ""}
		]}`,
	}}

	state, err := runPipeline(t, testRegistry(store, backend), domain.JobKindQuizGeneration, map[string]any{
		"topic": "generics",
	})
	require.NoError(t, err)
	assert.Equal(t, "easy", state["difficulty"])
}

func TestPerformance_EmptyHistory(t *testing.T) {
	store := &fakeStore{}

	state, err := runPipeline(t, testRegistry(store, &replyBackend{}), domain.JobKindPerformanceAnalysis, map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, float64(0), state["confidence"])
	assert.Contains(t, state["summary"], "0 attempts")
}

func TestFeedback_FallsBackToNeutral(t *testing.T) {
	store := &fakeStore{}
	backend := &replyBackend{replies: map[string]string{
		"Reply to their message": "Keep going, you are closer than you think.",
	}}

	state, err := runPipeline(t, testRegistry(store, backend), domain.JobKindFeedback, map[string]any{
		"message": "I keep failing these quizzes",
	})
	require.NoError(t, err)

	feedback, ok := state["feedback"].(map[string]any)
	require.True(t, ok)
	// Sentiment classification failed, so the coach treated it as neutral.
	assert.Equal(t, "neutral", feedback["sentiment"])
	assert.NotEmpty(t, feedback["message"])
}
