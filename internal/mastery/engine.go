// Package mastery implements the proficiency scoring rules shared by the
// quiz fast path and the performance analysis workflow. All functions are
// pure; persistence of the returned records is the caller's responsibility.
package mastery

import (
	"time"

	"github.com/learnloop/mentor-be/internal/domain"
)

// Classification thresholds. Bands are inclusive on the lower bound and
// exclusive on the upper, except the top band which is closed at 100.
const (
	GapThreshold      = 50.0
	StrengthThreshold = 80.0
)

// Update folds one observed score in [0,100] into the user's mastery record.
// Recent observations carry a fixed weight of 2 against the accumulated
// attempt count, so the score moves toward the observation without
// overshooting it. A nil previous record starts at the observed score.
func Update(previous *domain.TopicMastery, userID, topic string, observed float64, at time.Time) domain.TopicMastery {
	observed = clamp(observed)

	if previous == nil {
		return domain.TopicMastery{
			UserID:        userID,
			Topic:         topic,
			SkillLevel:    SkillLevel(observed),
			MasteryScore:  observed,
			Attempts:      1,
			LastAttempted: &at,
		}
	}

	score := (previous.MasteryScore*float64(previous.Attempts) + observed*2) / float64(previous.Attempts+2)
	score = clamp(score)

	return domain.TopicMastery{
		UserID:        previous.UserID,
		Topic:         previous.Topic,
		SkillLevel:    SkillLevel(score),
		MasteryScore:  score,
		Attempts:      previous.Attempts + 1,
		LastAttempted: &at,
	}
}

// SkillLevel classifies a mastery score into a skill band.
func SkillLevel(score float64) string {
	switch {
	case score >= StrengthThreshold:
		return domain.SkillAdvanced
	case score >= GapThreshold:
		return domain.SkillIntermediate
	default:
		return domain.SkillBeginner
	}
}

// Gaps returns the topics a user struggles with, sorted by name via the
// caller if ordering matters. Topics are independent; no cross-topic
// normalization is applied.
func Gaps(records []domain.TopicMastery) []domain.TopicMastery {
	var gaps []domain.TopicMastery
	for _, m := range records {
		if m.MasteryScore < GapThreshold {
			gaps = append(gaps, m)
		}
	}
	return gaps
}

// Strengths returns the topics a user excels at.
func Strengths(records []domain.TopicMastery) []domain.TopicMastery {
	var strengths []domain.TopicMastery
	for _, m := range records {
		if m.MasteryScore >= StrengthThreshold {
			strengths = append(strengths, m)
		}
	}
	return strengths
}

// RecommendDifficulty maps a topic's mastery and trend to a quiz difficulty.
func RecommendDifficulty(score float64, trend string) string {
	switch {
	case score >= StrengthThreshold && trend != TrendDeclining:
		return "hard"
	case score >= 60:
		return "medium"
	case score < 40 || trend == TrendDeclining:
		return "easy"
	default:
		return "medium"
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
