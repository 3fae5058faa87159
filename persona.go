package troupe

// Persona is the static identity + framework composition driving one
// character's voice. It is produced by an external configuration loader;
// the engine holds it read-only and never mutates it. Unknown fields added
// by future loader versions are simply ignored here.
type Persona struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Identity string `json:"identity"` // base identity text for the prompt

	SpeechStyle   string   `json:"speech_style,omitempty"`
	KnowledgeTags []string `json:"knowledge_tags,omitempty"`

	// BaseFramework is the framework ID always active for this persona.
	// BlendRules may mix in secondaries per conversational context.
	BaseFramework string                       `json:"base_framework"`
	BlendRules    map[ContextClass][]BlendRule `json:"blend_rules,omitempty"`

	// Preference tables consumed by the Topic Interest Filter.
	TopicInterests  []string `json:"topic_interests,omitempty"`
	TopicAvoidances []string `json:"topic_avoidances,omitempty"`

	// Activity matching: category -> keywords. Categories follow the
	// platform activity kinds (playing / listening / watching / streaming).
	ActivityKeywords map[string][]string `json:"activity_keywords,omitempty"`

	Curiosity CuriosityTier `json:"curiosity"`

	// Milestones must be sorted by ascending Threshold. Validate rejects
	// unsorted or duplicate thresholds.
	Milestones []Milestone `json:"milestones,omitempty"`

	// Verbosity is a free-form directive appended to every composed
	// prompt, e.g. "keep replies under three sentences".
	Verbosity string `json:"verbosity,omitempty"`
}

// Framework is a reusable behavioral ruleset shared across personas.
// Frameworks are registered once at engine construction; blend rules refer
// to them by ID and are resolved to *Framework at load time, never by
// string lookup during Decide.
type Framework struct {
	ID             string `json:"id"`
	PromptFragment string `json:"prompt_fragment"`
	ResponseLength string `json:"response_length,omitempty"` // short / medium / long
}

// BlendRule weights one framework inside a context-specific blend.
// Weights are independent dials in [0,1]; they are not normalized.
type BlendRule struct {
	FrameworkID string  `json:"framework_id"`
	Weight      float64 `json:"weight"`
}

// Milestone is an interaction-count threshold that unlocks behavior
// modifiers. Unlocks are cumulative unless Exclusive is set, in which case
// the milestone supersedes all earlier unlocks.
type Milestone struct {
	Threshold      int      `json:"threshold"`
	Tone           string   `json:"tone,omitempty"`
	Quirks         []string `json:"quirks,omitempty"`
	KnowledgeFlags []string `json:"knowledge_flags,omitempty"`
	Exclusive      bool     `json:"exclusive,omitempty"`
}

// CuriosityTier maps to a fixed follow-up trigger probability.
type CuriosityTier string

const (
	CuriosityLow        CuriosityTier = "low"
	CuriosityMild       CuriosityTier = "mild"
	CuriosityHigh       CuriosityTier = "high"
	CuriosityInsatiable CuriosityTier = "insatiable"
)

// Probability returns the fixed trigger probability for the tier.
// Unknown tiers fall back to low.
func (t CuriosityTier) Probability() float64 {
	switch t {
	case CuriosityMild:
		return 0.25
	case CuriosityHigh:
		return 0.50
	case CuriosityInsatiable:
		return 0.75
	default:
		return 0.10
	}
}

// Validate checks the persona definition against the registered
// frameworks. A failure is a ConfigError: fatal for this persona only.
func (p *Persona) Validate(frameworks map[string]*Framework) error {
	if p.ID == "" {
		return &ConfigError{PersonaID: p.ID, Reason: "empty persona ID"}
	}
	if p.BaseFramework != "" {
		if _, ok := frameworks[p.BaseFramework]; !ok {
			return &ConfigError{PersonaID: p.ID, Reason: "unknown base framework " + p.BaseFramework}
		}
	}
	for ctx, rules := range p.BlendRules {
		for _, r := range rules {
			if _, ok := frameworks[r.FrameworkID]; !ok {
				return &ConfigError{PersonaID: p.ID, Reason: "unknown framework " + r.FrameworkID + " in blend for " + string(ctx)}
			}
		}
	}
	last := -1
	for _, m := range p.Milestones {
		if m.Threshold <= last {
			return &ConfigError{PersonaID: p.ID, Reason: "milestone thresholds must be strictly ascending"}
		}
		last = m.Threshold
	}
	return nil
}
