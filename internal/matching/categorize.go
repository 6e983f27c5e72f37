package matching

import "sort"

// Categorize places a final score into a tier using the default thresholds.
func Categorize(score int) Category {
	return DefaultConfig().Categorize(score)
}

// Categorize places a final score into a tier.
func (c Config) Categorize(score int) Category {
	c = c.withDefaults()
	switch {
	case score >= c.HighlyRecommendedThreshold:
		return CategoryHighlyRecommended
	case score >= c.PartiallySuitableThreshold:
		return CategoryPartiallySuitable
	default:
		return CategoryExploreAndPrepare
	}
}

// Recommendation pairs a scholarship with its match result.
type Recommendation struct {
	ScholarshipID string `json:"scholarshipId"`
	Scholarship   any    `json:"scholarship"`
	MatchResult
}

// Rank orders recommendations by score descending, then sooner deadline first.
// The scholarship id breaks any remaining tie so ordering is deterministic.
func Rank(items []Recommendation) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DaysUntilDeadline != b.DaysUntilDeadline {
			return a.DaysUntilDeadline < b.DaysUntilDeadline
		}
		return a.ScholarshipID < b.ScholarshipID
	})
}

// Tiers groups ranked recommendations by category, keeping at most limit per tier.
type Tiers struct {
	HighlyRecommended []Recommendation `json:"highlyRecommended"`
	PartiallySuitable []Recommendation `json:"partiallyRecommended"`
	ExploreAndPrepare []Recommendation `json:"exploreAndPrepare"`
}

// SplitTiers expects items already ranked and preserves their order.
func SplitTiers(items []Recommendation, limit int) Tiers {
	t := Tiers{
		HighlyRecommended: []Recommendation{},
		PartiallySuitable: []Recommendation{},
		ExploreAndPrepare: []Recommendation{},
	}
	for _, it := range items {
		switch it.Category {
		case CategoryHighlyRecommended:
			t.HighlyRecommended = appendCapped(t.HighlyRecommended, it, limit)
		case CategoryPartiallySuitable:
			t.PartiallySuitable = appendCapped(t.PartiallySuitable, it, limit)
		default:
			t.ExploreAndPrepare = appendCapped(t.ExploreAndPrepare, it, limit)
		}
	}
	return t
}

// Flatten concatenates the tiers best first.
func (t Tiers) Flatten() []Recommendation {
	out := make([]Recommendation, 0, len(t.HighlyRecommended)+len(t.PartiallySuitable)+len(t.ExploreAndPrepare))
	out = append(out, t.HighlyRecommended...)
	out = append(out, t.PartiallySuitable...)
	return append(out, t.ExploreAndPrepare...)
}

func appendCapped(list []Recommendation, it Recommendation, limit int) []Recommendation {
	if limit > 0 && len(list) >= limit {
		return list
	}
	return append(list, it)
}
