// Package recommend combines several candidate-generation strategies into a
// ranked, deduplicated, source-diverse list of next-topic suggestions. The
// engine is deterministic: identical inputs produce identical output, with
// ties broken by topic name.
package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/learnloop/mentor-be/internal/domain"
	"github.com/learnloop/mentor-be/internal/mastery"
)

// DefaultLimit is the number of recommendations returned when the caller
// does not ask for a specific count.
const DefaultLimit = 5

// scoreWindow is how close an alternative's score must be to the next pick
// for the diversity rule to prefer it over a same-source run.
const scoreWindow = 0.05

// Recommend produces up to limit suggestions for a user from their profile,
// journey and mastery records. A user with no mastery data yields no
// knowledge-gap or strength-building candidates.
func Recommend(profile *domain.LearnerProfile, journey []domain.JourneyTopic, records []domain.TopicMastery, limit int) []domain.Recommendation {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var candidates []domain.Recommendation
	candidates = append(candidates, journeyCandidates(journey)...)
	candidates = append(candidates, gapCandidates(records)...)
	candidates = append(candidates, strengthCandidates(journey, records)...)
	candidates = append(candidates, explorationCandidates(profile, journey)...)

	candidates = dedupe(candidates)
	sortCandidates(candidates)

	return selectDiverse(candidates, limit)
}

// journeyCandidates suggests the next topics in position order: available
// topics first, then the nearest locked topic as a preview.
func journeyCandidates(journey []domain.JourneyTopic) []domain.Recommendation {
	ordered := make([]domain.JourneyTopic, len(journey))
	copy(ordered, journey)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	var out []domain.Recommendation
	available := 0
	lockedSeen := false

	for _, t := range ordered {
		switch t.Status {
		case domain.TopicAvailable, domain.TopicInProgress:
			if available >= 3 {
				continue
			}
			out = append(out, domain.Recommendation{
				Topic:          t.Topic,
				Source:         domain.SourceJourney,
				CompositeScore: 0.9 - 0.1*float64(available),
				Reasoning:      fmt.Sprintf("Next step in your learning path (position %d)", t.Position),
			})
			available++
		case domain.TopicLocked:
			if lockedSeen {
				continue
			}
			lockedSeen = true
			out = append(out, domain.Recommendation{
				Topic:          t.Topic,
				Source:         domain.SourceJourney,
				CompositeScore: 0.55,
				Reasoning:      fmt.Sprintf("Unlocks after %d prerequisite(s)", len(t.Prerequisites)),
			})
		}
	}
	return out
}

// gapCandidates scores struggling topics inversely to mastery.
func gapCandidates(records []domain.TopicMastery) []domain.Recommendation {
	var out []domain.Recommendation
	for _, m := range mastery.Gaps(records) {
		out = append(out, domain.Recommendation{
			Topic:          m.Topic,
			Source:         domain.SourceKnowledgeGap,
			CompositeScore: 1 - m.MasteryScore/100,
			Reasoning:      fmt.Sprintf("Mastery at %.0f%% after %d attempt(s); review recommended", m.MasteryScore, m.Attempts),
		})
	}
	return out
}

// strengthCandidates suggests journey topics sharing a prerequisite edge
// with a strength topic: either direction of the edge counts as adjacent.
func strengthCandidates(journey []domain.JourneyTopic, records []domain.TopicMastery) []domain.Recommendation {
	strengths := mastery.Strengths(records)
	if len(strengths) == 0 {
		return nil
	}

	strengthScore := make(map[string]float64, len(strengths))
	for _, s := range strengths {
		strengthScore[s.Topic] = s.MasteryScore
	}

	prereqsOf := make(map[string][]string, len(journey))
	for _, t := range journey {
		prereqsOf[t.Topic] = t.Prerequisites
	}

	var out []domain.Recommendation
	for _, t := range journey {
		if t.Status == domain.TopicCompleted {
			continue
		}

		base, ok := adjacentStrength(t, strengthScore, prereqsOf)
		if !ok {
			continue
		}

		out = append(out, domain.Recommendation{
			Topic:          t.Topic,
			Source:         domain.SourceStrengthBuilding,
			CompositeScore: 0.5 + strengthScore[base]/400,
			Reasoning:      fmt.Sprintf("Builds on your strength in %s", base),
		})
	}
	return out
}

func adjacentStrength(t domain.JourneyTopic, strengthScore map[string]float64, prereqsOf map[string][]string) (string, bool) {
	for _, p := range t.Prerequisites {
		if _, ok := strengthScore[p]; ok {
			return p, true
		}
	}
	for _, p := range prereqsOf[t.Topic] {
		if _, ok := strengthScore[p]; ok {
			return p, true
		}
	}
	// A strength that lists this topic among its own prerequisites is also
	// adjacent.
	for s := range strengthScore {
		for _, p := range prereqsOf[s] {
			if p == t.Topic {
				return s, true
			}
		}
	}
	return "", false
}

// explorationCandidates proposes declared interests not covered by the
// current journey.
func explorationCandidates(profile *domain.LearnerProfile, journey []domain.JourneyTopic) []domain.Recommendation {
	if profile == nil {
		return nil
	}

	inJourney := make(map[string]bool, len(journey))
	for _, t := range journey {
		inJourney[t.Topic] = true
	}

	var out []domain.Recommendation
	for i, topic := range profile.PriorityTopics {
		if inJourney[topic] {
			continue
		}
		score := 0.45 - 0.05*float64(i)
		if score < 0.25 {
			score = 0.25
		}
		out = append(out, domain.Recommendation{
			Topic:          topic,
			Source:         domain.SourceExploration,
			CompositeScore: score,
			Reasoning:      "Outside your current path but matches your declared interests",
		})
	}
	return out
}

// dedupe keeps one candidate per topic: the composite score is the max
// across sources (never summed) and the source attribution follows the
// highest-scoring strategy.
func dedupe(candidates []domain.Recommendation) []domain.Recommendation {
	best := make(map[string]domain.Recommendation, len(candidates))
	for _, c := range candidates {
		if prev, ok := best[c.Topic]; !ok || c.CompositeScore > prev.CompositeScore {
			best[c.Topic] = c
		}
	}

	out := make([]domain.Recommendation, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	return out
}

func sortCandidates(candidates []domain.Recommendation) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CompositeScore != candidates[j].CompositeScore {
			return candidates[i].CompositeScore > candidates[j].CompositeScore
		}
		return candidates[i].Topic < candidates[j].Topic
	})
}

// selectDiverse picks the top candidates while capping consecutive picks
// from one source at ceil(limit / nonempty sources), provided an alternative
// from another source scores within the window of the next pick.
func selectDiverse(candidates []domain.Recommendation, limit int) []domain.Recommendation {
	if len(candidates) == 0 {
		return nil
	}

	sources := make(map[string]bool)
	for _, c := range candidates {
		sources[c.Source] = true
	}
	maxRun := int(math.Ceil(float64(limit) / float64(len(sources))))

	selected := make([]domain.Recommendation, 0, limit)
	remaining := candidates
	runSource := ""
	runLen := 0

	for len(selected) < limit && len(remaining) > 0 {
		idx := 0
		if remaining[0].Source == runSource && runLen >= maxRun {
			for j, c := range remaining {
				if c.Source != runSource && remaining[0].CompositeScore-c.CompositeScore <= scoreWindow {
					idx = j
					break
				}
			}
		}

		pick := remaining[idx]
		remaining = append(remaining[:idx:idx], remaining[idx+1:]...)

		if pick.Source == runSource {
			runLen++
		} else {
			runSource = pick.Source
			runLen = 1
		}
		selected = append(selected, pick)
	}

	return selected
}
