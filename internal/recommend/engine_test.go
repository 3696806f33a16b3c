package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor-be/internal/domain"
)

func journeyFixture() []domain.JourneyTopic {
	return []domain.JourneyTopic{
		{UserID: "u1", Topic: "variables", Position: 1, Status: domain.TopicCompleted},
		{UserID: "u1", Topic: "functions", Position: 2, Status: domain.TopicAvailable, Prerequisites: []string{"variables"}},
		{UserID: "u1", Topic: "closures", Position: 3, Status: domain.TopicLocked, Prerequisites: []string{"functions"}},
		{UserID: "u1", Topic: "goroutines", Position: 4, Status: domain.TopicLocked, Prerequisites: []string{"closures"}},
	}
}

func TestRecommend_ColdStart(t *testing.T) {
	profile := &domain.LearnerProfile{
		UserID:         "u1",
		PriorityTopics: []string{"functions", "generics"},
	}

	got := Recommend(profile, journeyFixture(), nil, 5)
	require.NotEmpty(t, got)

	for _, r := range got {
		assert.NotEqual(t, domain.SourceKnowledgeGap, r.Source)
		assert.NotEqual(t, domain.SourceStrengthBuilding, r.Source)
	}

	// The available journey topic outranks everything without mastery data.
	assert.Equal(t, "functions", got[0].Topic)
	assert.Equal(t, domain.SourceJourney, got[0].Source)
}

func TestRecommend_DedupeKeepsMaxScore(t *testing.T) {
	// "functions" is both the next journey step (0.9) and a declared
	// interest (0.45): one entry survives, at the journey score.
	profile := &domain.LearnerProfile{
		UserID:         "u1",
		PriorityTopics: []string{"functions"},
	}

	got := Recommend(profile, journeyFixture(), nil, 5)

	seen := 0
	for _, r := range got {
		if r.Topic == "functions" {
			seen++
			assert.Equal(t, domain.SourceJourney, r.Source)
			assert.InDelta(t, 0.9, r.CompositeScore, 1e-9)
		}
	}
	assert.Equal(t, 1, seen)
}

func TestRecommend_SortedDescWithNameTiebreak(t *testing.T) {
	records := []domain.TopicMastery{
		{UserID: "u1", Topic: "pointers", MasteryScore: 40, Attempts: 3},
		{UserID: "u1", Topic: "interfaces", MasteryScore: 40, Attempts: 2},
	}

	got := Recommend(nil, nil, records, 5)
	require.Len(t, got, 2)

	// Equal gap scores: alphabetical order decides.
	assert.Equal(t, "interfaces", got[0].Topic)
	assert.Equal(t, "pointers", got[1].Topic)
}

func TestRecommend_Deterministic(t *testing.T) {
	profile := &domain.LearnerProfile{UserID: "u1", PriorityTopics: []string{"generics", "testing"}}
	records := []domain.TopicMastery{
		{UserID: "u1", Topic: "variables", MasteryScore: 92, Attempts: 6},
		{UserID: "u1", Topic: "errors", MasteryScore: 30, Attempts: 4},
	}

	first := Recommend(profile, journeyFixture(), records, 5)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Recommend(profile, journeyFixture(), records, 5))
	}
}

func TestRecommend_DiversityBreaksLongRuns(t *testing.T) {
	// Five knowledge gaps with near-identical scores plus one journey
	// candidate close behind: the run cap forces the journey pick in
	// before the gaps exhaust the list.
	records := []domain.TopicMastery{
		{UserID: "u1", Topic: "a", MasteryScore: 8, Attempts: 2},
		{UserID: "u1", Topic: "b", MasteryScore: 9, Attempts: 2},
		{UserID: "u1", Topic: "c", MasteryScore: 10, Attempts: 2},
		{UserID: "u1", Topic: "d", MasteryScore: 11, Attempts: 2},
		{UserID: "u1", Topic: "e", MasteryScore: 12, Attempts: 2},
	}
	journey := []domain.JourneyTopic{
		{UserID: "u1", Topic: "z-next", Position: 1, Status: domain.TopicAvailable},
	}

	got := Recommend(nil, journey, records, 5)
	require.Len(t, got, 5)

	// Two sources, limit 5: at most ceil(5/2) = 3 consecutive picks from
	// one source, and the journey candidate scores within the window of
	// the fourth gap (0.9 vs 0.89), so it must appear by index 3.
	foundJourney := false
	for i, r := range got {
		if r.Source == domain.SourceJourney {
			foundJourney = true
			assert.LessOrEqual(t, i, 3)
		}
	}
	assert.True(t, foundJourney)
}

func TestRecommend_LimitRespected(t *testing.T) {
	records := []domain.TopicMastery{
		{UserID: "u1", Topic: "a", MasteryScore: 10, Attempts: 1},
		{UserID: "u1", Topic: "b", MasteryScore: 20, Attempts: 1},
		{UserID: "u1", Topic: "c", MasteryScore: 30, Attempts: 1},
	}

	got := Recommend(nil, nil, records, 2)
	assert.Len(t, got, 2)
}

func TestRecommend_StrengthBuilding(t *testing.T) {
	records := []domain.TopicMastery{
		{UserID: "u1", Topic: "variables", MasteryScore: 90, Attempts: 5},
	}

	got := Recommend(nil, journeyFixture(), records, 5)

	var strength *domain.Recommendation
	for i := range got {
		if got[i].Source == domain.SourceStrengthBuilding {
			strength = &got[i]
		}
	}

	// "functions" lists variables as a prerequisite, but the journey
	// strategy already claims it with a higher score, so the strength
	// candidate loses the dedupe. Verify attribution went to the max.
	assert.Nil(t, strength)
	assert.Equal(t, "functions", got[0].Topic)
	assert.Equal(t, domain.SourceJourney, got[0].Source)
}
