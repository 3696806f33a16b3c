package mastery

import "github.com/learnloop/mentor-be/internal/domain"

// Trend labels for a topic's recent score movement.
const (
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// TopicTrend summarizes recent quiz scores for one topic.
type TopicTrend struct {
	Trend     string  `json:"trend"`
	RecentAvg float64 `json:"recent_avg"`
	Attempts  int     `json:"attempts"`
	Velocity  float64 `json:"velocity"` // score delta per attempt
}

// Trends computes per-topic score trends plus the overall learning velocity
// from quiz history. Attempts are expected oldest first; a topic with fewer
// than two attempts reports insufficient data.
func Trends(history []domain.QuizAttempt) (map[string]TopicTrend, float64) {
	byTopic := make(map[string][]float64)
	for _, q := range history {
		byTopic[q.Topic] = append(byTopic[q.Topic], q.Percentage)
	}

	trends := make(map[string]TopicTrend, len(byTopic))
	var velocities []float64

	for topic, scores := range byTopic {
		t := TopicTrend{Attempts: len(scores), RecentAvg: recentAverage(scores, 3)}

		if len(scores) < 2 {
			t.Trend = TrendInsufficientData
			trends[topic] = t
			continue
		}

		// Compare the first half of attempts to the second half.
		mid := len(scores) / 2
		improvement := average(scores[mid:]) - average(scores[:mid])

		switch {
		case improvement > 10:
			t.Trend = TrendImproving
		case improvement < -10:
			t.Trend = TrendDeclining
		default:
			t.Trend = TrendStable
		}

		t.Velocity = improvement / float64(len(scores))
		velocities = append(velocities, t.Velocity)
		trends[topic] = t
	}

	return trends, average(velocities)
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func recentAverage(scores []float64, window int) float64 {
	if len(scores) > window {
		scores = scores[len(scores)-window:]
	}
	return average(scores)
}
