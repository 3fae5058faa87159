package troupe

import "strings"

// ──────────────────────────────────────────────
// Activity Router — match personas to the user's declared activity
// ──────────────────────────────────────────────

const (
	scoreExactLabel    = 100
	scoreCategoryMatch = 50
	scoreKeywordMatch  = 25
)

// SelectByActivity scores every candidate against the user's declared
// activity and returns the best one at or above the threshold, or "" when
// routing should fall through to the caller's fallback policy. Ties break
// by declaration order among candidates: the first highest scorer wins,
// so the result is deterministic and stable.
func SelectByActivity(candidates []*Persona, activity *UserActivity, threshold int) string {
	if activity == nil {
		return ""
	}

	best := ""
	bestScore := 0
	for _, p := range candidates {
		score := activityScore(p, activity)
		if score > bestScore {
			best = p.ID
			bestScore = score
		}
	}
	if bestScore < threshold {
		return ""
	}
	return best
}

func activityScore(p *Persona, activity *UserActivity) int {
	label := strings.ToLower(strings.TrimSpace(activity.Label))
	category := strings.ToLower(strings.TrimSpace(activity.Category))

	score := 0
	for cat, keywords := range p.ActivityKeywords {
		catLower := strings.ToLower(cat)
		if category != "" && catLower == category {
			score += scoreCategoryMatch
		}
		for _, kw := range keywords {
			kwLower := strings.ToLower(kw)
			if label == "" || kwLower == "" {
				continue
			}
			if label == kwLower {
				score += scoreExactLabel
			} else if strings.Contains(label, kwLower) || strings.Contains(kwLower, label) {
				score += scoreKeywordMatch
			}
		}
	}
	return score
}
