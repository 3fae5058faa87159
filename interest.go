package troupe

import "strings"

// ──────────────────────────────────────────────
// Topic Interest Filter — avoidance veto + additive interest bonus
// ──────────────────────────────────────────────

const (
	interestBonusPerMatch = 0.3
	interestBonusCap      = 0.9
)

// EngagementModifier scores the detected topics against the persona's
// interest and avoidance tables. Any avoidance match is a hard veto:
// engagement probability is forced to zero regardless of other modifiers.
// Otherwise each matched interest adds +0.3, capped at +0.9 total.
func EngagementModifier(p *Persona, detectedTopics []string) (modifier float64, vetoed bool) {
	for _, topic := range detectedTopics {
		for _, avoid := range p.TopicAvoidances {
			if strings.EqualFold(topic, avoid) {
				return 0, true
			}
		}
	}

	for _, topic := range detectedTopics {
		for _, interest := range p.TopicInterests {
			if strings.EqualFold(topic, interest) {
				modifier += interestBonusPerMatch
				break
			}
		}
	}
	if modifier > interestBonusCap {
		modifier = interestBonusCap
	}
	return modifier, false
}
