package recommendation

import "math"

const (
	maxScore            = 100
	historyBonusWeight  = 10.0
	categoryBonusPoints = 5.0
)

// HistoryEntry is a project the user previously joined through an accepted match.
type HistoryEntry struct {
	Technologies []string
	Category     string
}

// Input is everything a score depends on.
type Input struct {
	Skills       []string
	Technologies []string
	Category     string
	History      []HistoryEntry
}

// Score rates how well a user fits a project on a 0-100 scale.
//
// The base is the share of the user's skills the project uses, so the
// denominator is the user's skill count. A history bonus of up to 10 points
// is the share of previously joined projects sharing any technology with this
// one, and a flat 5 points is added when any of them has the same category.
func Score(in Input) int {
	skills := toSet(in.Skills)
	technologies := toSet(in.Technologies)

	base := 0.0
	if len(skills) > 0 {
		matching := 0
		for s := range skills {
			if _, ok := technologies[s]; ok {
				matching++
			}
		}
		base = float64(matching) / float64(len(skills)) * 100
	}

	history := 0.0
	if len(in.History) > 0 {
		similar := 0
		for _, h := range in.History {
			if intersects(h.Technologies, technologies) {
				similar++
			}
		}
		history = float64(similar) / float64(len(in.History)) * historyBonusWeight
	}

	category := 0.0
	for _, h := range in.History {
		if h.Category == in.Category {
			category = categoryBonusPoints
			break
		}
	}

	score := int(math.Round(base + history + category))
	return clamp(score, 0, maxScore)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func intersects(values []string, set map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func clamp(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
