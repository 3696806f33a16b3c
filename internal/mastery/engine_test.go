package mastery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor-be/internal/domain"
)

func TestUpdate_FirstObservation(t *testing.T) {
	now := time.Now()
	got := Update(nil, "u1", "Python Basics", 72, now)

	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "Python Basics", got.Topic)
	assert.Equal(t, 72.0, got.MasteryScore)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, domain.SkillIntermediate, got.SkillLevel)
	require.NotNil(t, got.LastAttempted)
	assert.Equal(t, now, *got.LastAttempted)
}

func TestUpdate_WeightedRecency(t *testing.T) {
	prev := &domain.TopicMastery{
		UserID:       "u1",
		Topic:        "Data Structures",
		MasteryScore: 70,
		Attempts:     3,
	}

	got := Update(prev, "u1", "Data Structures", 90, time.Now())

	// (70*3 + 90*2) / 5 = 78
	assert.InDelta(t, 78.0, got.MasteryScore, 1e-9)
	assert.Equal(t, 4, got.Attempts)
	assert.Equal(t, domain.SkillIntermediate, got.SkillLevel)
}

func TestUpdate_NeverOvershootsObservation(t *testing.T) {
	tests := []struct {
		name     string
		previous float64
		attempts int
		observed float64
	}{
		{"improving", 40, 2, 95},
		{"declining", 90, 5, 10},
		{"stable", 60, 10, 60},
		{"extremes low", 0, 1, 100},
		{"extremes high", 100, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := &domain.TopicMastery{UserID: "u", Topic: "t", MasteryScore: tt.previous, Attempts: tt.attempts}
			got := Update(prev, "u", "t", tt.observed, time.Now())

			assert.GreaterOrEqual(t, got.MasteryScore, 0.0)
			assert.LessOrEqual(t, got.MasteryScore, 100.0)

			// The update moves toward the observation but never past it.
			if tt.observed > tt.previous {
				assert.Greater(t, got.MasteryScore, tt.previous)
				assert.LessOrEqual(t, got.MasteryScore, tt.observed)
			} else if tt.observed < tt.previous {
				assert.Less(t, got.MasteryScore, tt.previous)
				assert.GreaterOrEqual(t, got.MasteryScore, tt.observed)
			} else {
				assert.Equal(t, tt.previous, got.MasteryScore)
			}
		})
	}
}

func TestUpdate_ClampsObservedScore(t *testing.T) {
	got := Update(nil, "u", "t", 140, time.Now())
	assert.Equal(t, 100.0, got.MasteryScore)

	got = Update(nil, "u", "t", -5, time.Now())
	assert.Equal(t, 0.0, got.MasteryScore)
}

func TestSkillLevel_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0, domain.SkillBeginner},
		{49.9, domain.SkillBeginner},
		{50, domain.SkillIntermediate},
		{79.9, domain.SkillIntermediate},
		{80, domain.SkillAdvanced},
		{100, domain.SkillAdvanced},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SkillLevel(tt.score), "score %.1f", tt.score)
	}
}

func TestGapsAndStrengths(t *testing.T) {
	records := []domain.TopicMastery{
		{Topic: "A", MasteryScore: 20},
		{Topic: "B", MasteryScore: 49.99},
		{Topic: "C", MasteryScore: 50},
		{Topic: "D", MasteryScore: 80},
		{Topic: "E", MasteryScore: 100},
	}

	gaps := Gaps(records)
	require.Len(t, gaps, 2)
	assert.Equal(t, "A", gaps[0].Topic)
	assert.Equal(t, "B", gaps[1].Topic)

	strengths := Strengths(records)
	require.Len(t, strengths, 2)
	assert.Equal(t, "D", strengths[0].Topic)
	assert.Equal(t, "E", strengths[1].Topic)
}

func TestRecommendDifficulty(t *testing.T) {
	assert.Equal(t, "hard", RecommendDifficulty(85, TrendStable))
	assert.Equal(t, "easy", RecommendDifficulty(85, TrendDeclining))
	assert.Equal(t, "medium", RecommendDifficulty(65, TrendStable))
	assert.Equal(t, "easy", RecommendDifficulty(30, TrendImproving))
	assert.Equal(t, "medium", RecommendDifficulty(45, TrendStable))
}

func TestTrends(t *testing.T) {
	history := []domain.QuizAttempt{
		{Topic: "A", Percentage: 40},
		{Topic: "A", Percentage: 50},
		{Topic: "A", Percentage: 70},
		{Topic: "A", Percentage: 80},
		{Topic: "B", Percentage: 55},
	}

	trends, velocity := Trends(history)

	require.Contains(t, trends, "A")
	assert.Equal(t, TrendImproving, trends["A"].Trend)
	assert.Equal(t, 4, trends["A"].Attempts)
	// Recent average over the last three attempts.
	assert.InDelta(t, (50.0+70+80)/3, trends["A"].RecentAvg, 1e-9)

	assert.Equal(t, TrendInsufficientData, trends["B"].Trend)
	assert.Greater(t, velocity, 0.0)
}

func TestTrends_Empty(t *testing.T) {
	trends, velocity := Trends(nil)
	assert.Empty(t, trends)
	assert.Equal(t, 0.0, velocity)
}
