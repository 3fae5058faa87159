package troupe

import "time"

// Event is one classified message event handed in by the hosting chat
// adapter. Text is raw; Sentiment may be precomputed upstream (nil means
// the engine's own extractor runs).
type Event struct {
	ID        string
	ChannelID string
	UserID    string
	Text      string
	Timestamp time.Time

	// MentionedPersonas lists persona IDs directly addressed in the
	// message. A mention forces a response from that persona unless the
	// avoidance veto applies.
	MentionedPersonas []string

	// Activity is the user's declared presence, if any.
	Activity *UserActivity

	// Sentiment, when non-nil, replaces the built-in sentiment extractor.
	Sentiment *SentimentSignal
}

// UserActivity is the user's declared platform presence.
type UserActivity struct {
	Category string // playing / listening / watching / streaming
	Label    string // free-text, e.g. "Elden Ring"
}

// Decision is the output of Engine.Decide for one event.
type Decision struct {
	ShouldRespond bool
	PersonaID     string
	Reason        string // "mention" / "activity" / "sticky" / "roll" / "veto" / "silence"
	Modifiers     StyleModifiers
}

// StyleModifiers carries every style input the Prompt Composer consumes,
// plus the numeric modifiers the caller may want for analytics.
type StyleModifiers struct {
	MoodTone         string
	MoodMultiplier   float64
	InterestBonus    float64
	BanterMultiplier float64
	ConflictTone     string
	AmbientProb      float64 // ambient probability multiplier for the channel
	AmbientCooldown  float64 // ambient cooldown multiplier for the channel

	Frameworks  WeightedFrameworkSet
	Evolution   []string // active evolution unlock descriptors, oldest first
	FollowUp    *FollowUpDirective
	Probability float64 // final engagement probability used for the roll
}

// FollowUpDirective asks the caller to have the persona pose a follow-up
// question about Topic.
type FollowUpDirective struct {
	Topic  string
	Prompt string
}

// WeightedFramework is one framework's contribution to a blend.
type WeightedFramework struct {
	Framework *Framework
	Weight    float64
}

// WeightedFrameworkSet is ordered by weight descending, framework ID
// ascending on ties, so composition is deterministic.
type WeightedFrameworkSet []WeightedFramework
