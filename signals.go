package troupe

import "strings"

// ──────────────────────────────────────────────
// Signal extractors — cheap synchronous classifiers, run once per event
// ──────────────────────────────────────────────

// TriggerClass is the discrete cue accompanying a sentiment scalar.
type TriggerClass string

const (
	TriggerNone        TriggerClass = "none"
	TriggerQuestion    TriggerClass = "question"
	TriggerSilence     TriggerClass = "silence"
	TriggerPositiveCue TriggerClass = "positive"
	TriggerNegativeCue TriggerClass = "negative"
)

// SentimentSignal is a polarity in [-1,1] plus a trigger class.
type SentimentSignal struct {
	Polarity float64
	Trigger  TriggerClass
}

type weightedKeyword struct {
	keyword string
	weight  float64
}

var positiveCues = []weightedKeyword{
	{keyword: "awesome", weight: 0.5}, {keyword: "love it", weight: 0.5},
	{keyword: "great", weight: 0.4}, {keyword: "nice", weight: 0.3},
	{keyword: "haha", weight: 0.3}, {keyword: "thanks", weight: 0.3},
	{keyword: "cool", weight: 0.3}, {keyword: "amazing", weight: 0.5},
	{keyword: "best", weight: 0.3}, {keyword: "fun", weight: 0.3},
}

var negativeCues = []weightedKeyword{
	{keyword: "terrible", weight: 0.5}, {keyword: "awful", weight: 0.5},
	{keyword: "hate", weight: 0.5}, {keyword: "useless", weight: 0.4},
	{keyword: "annoying", weight: 0.4}, {keyword: "wtf", weight: 0.4},
	{keyword: "boring", weight: 0.3}, {keyword: "sad", weight: 0.3},
	{keyword: "sigh", weight: 0.3}, {keyword: "disappointed", weight: 0.4},
}

// ExtractSentiment scores message text into a SentimentSignal. When the
// event carries a precomputed sentiment the caller should prefer that and
// skip this extractor entirely.
func ExtractSentiment(text string) SentimentSignal {
	lower := strings.ToLower(text)

	var pos, neg float64
	for _, kw := range positiveCues {
		if strings.Contains(lower, kw.keyword) {
			pos += kw.weight
		}
	}
	for _, kw := range negativeCues {
		if strings.Contains(lower, kw.keyword) {
			neg += kw.weight
		}
	}

	// Exclamation boost: amplifies whichever side already leads.
	exclam := strings.Count(text, "!")
	if exclam >= 2 {
		boost := 0.1 * float64(exclam)
		if boost > 0.2 {
			boost = 0.2
		}
		if pos > neg {
			pos += boost
		} else if neg > pos {
			neg += boost
		}
	}

	polarity := pos - neg
	if polarity > 1 {
		polarity = 1
	}
	if polarity < -1 {
		polarity = -1
	}

	trigger := TriggerNone
	switch {
	case strings.Contains(text, "?") || strings.Contains(text, "？"):
		trigger = TriggerQuestion
	case polarity >= 0.3:
		trigger = TriggerPositiveCue
	case polarity <= -0.3:
		trigger = TriggerNegativeCue
	}

	return SentimentSignal{Polarity: polarity, Trigger: trigger}
}

// ──────────────────────────────────────────────
// Conversational context classification (for the framework blender)
// ──────────────────────────────────────────────

// ContextClass is a mutually exclusive conversational context. First match
// wins in the priority order listed in contextPriority.
type ContextClass string

const (
	ContextEmotionalSupport ContextClass = "emotional_support"
	ContextCreativeTask     ContextClass = "creative_task"
	ContextAnalyticalTask   ContextClass = "analytical_task"
	ContextDebate           ContextClass = "debate"
	ContextPlayfulChat      ContextClass = "playful_chat"
)

var contextPriority = []ContextClass{
	ContextEmotionalSupport,
	ContextCreativeTask,
	ContextAnalyticalTask,
	ContextDebate,
	ContextPlayfulChat,
}

var contextKeywords = map[ContextClass][]string{
	ContextEmotionalSupport: {"feel", "feeling", "lonely", "stressed", "anxious", "worried", "upset", "crying", "depressed", "miss you"},
	ContextCreativeTask:     {"write a", "story", "poem", "imagine", "draw", "brainstorm", "idea for", "design a"},
	ContextAnalyticalTask:   {"explain", "why does", "how does", "compare", "calculate", "analyze", "difference between", "what causes"},
	ContextDebate:           {"disagree", "prove", "argument", "debate", "wrong about", "change my mind", "versus"},
}

// ClassifyContext returns the conversational context for the text.
// Falls back to playful chat when nothing else matches.
func ClassifyContext(text string) ContextClass {
	lower := strings.ToLower(text)
	for _, class := range contextPriority {
		for _, kw := range contextKeywords[class] {
			if strings.Contains(lower, kw) {
				return class
			}
		}
	}
	return ContextPlayfulChat
}
