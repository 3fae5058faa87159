package troupe

import (
	"errors"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for engine tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.AmbientPerMinute = 60000 // keep the global limiter out of the way
	cfg.AmbientBurst = 1000
	return cfg
}

// newTestEngine builds an engine with a three-persona cast, a fake clock,
// deterministic rolls (always respond, never ask follow-ups), and an
// in-memory store.
func newTestEngine(t *testing.T, cfg Config) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	e := New(cfg, WithClock(clock))
	e.rollFn = func() float64 { return 0 }
	e.curiosity.rollFn = func() float64 { return 1 }

	e.RegisterFramework(&Framework{ID: "companion", PromptFragment: "Be a warm, steady presence."})

	cast := []*Persona{
		{ID: "nova", Name: "Nova", Identity: "an upbeat gamer", BaseFramework: "companion",
			TopicInterests: []string{"gaming"}},
		{ID: "pixel", Name: "Pixel", Identity: "a music nerd", BaseFramework: "companion",
			TopicInterests:   []string{"music"},
			ActivityKeywords: map[string][]string{"gaming": {"valorant"}}},
		{ID: "sage", Name: "Sage", Identity: "a quiet reader", BaseFramework: "companion",
			TopicInterests:  []string{"books"},
			TopicAvoidances: []string{"politics"}},
	}
	for _, p := range cast {
		if err := e.RegisterPersona(p); err != nil {
			t.Fatalf("register %s: %v", p.ID, err)
		}
	}
	return e, clock
}

func TestDecide_MentionAlwaysResponds(t *testing.T) {
	e, _ := newTestEngine(t, testEngineConfig())
	e.rollFn = func() float64 { return 0.9999 } // roll would normally fail

	d, err := e.Decide(Event{ID: "e1", ChannelID: "general", Text: "hey", MentionedPersonas: []string{"pixel"}})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !d.ShouldRespond || d.PersonaID != "pixel" || d.Reason != "mention" {
		t.Fatalf("decision = %+v, want pixel via mention", d)
	}
	if d.Modifiers.Probability != 1.0 {
		t.Fatalf("mention probability = %v, want 1.0", d.Modifiers.Probability)
	}
}

func TestDecide_AvoidanceVetoesMentionedPersona(t *testing.T) {
	e, _ := newTestEngine(t, testEngineConfig())

	// Sage avoids politics; a mention cannot override the veto.
	d, err := e.Decide(Event{ID: "e1", ChannelID: "general",
		Text: "what do you think about the election?", MentionedPersonas: []string{"sage"}})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.PersonaID == "sage" {
		t.Fatalf("vetoed persona selected: %+v", d)
	}
}

func TestDecide_AllVetoed(t *testing.T) {
	cfg := testEngineConfig()
	e, _ := newTestEngine(t, cfg)
	for _, p := range e.orderedPersonas() {
		p.TopicAvoidances = []string{"politics"}
	}

	d, err := e.Decide(Event{ID: "e1", ChannelID: "general", Text: "election night!"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.ShouldRespond || d.Reason != "veto" {
		t.Fatalf("decision = %+v, want veto", d)
	}
}

func TestDecide_ActivityRouting(t *testing.T) {
	e, _ := newTestEngine(t, testEngineConfig())

	d, err := e.Decide(Event{ID: "e1", ChannelID: "general", Text: "gl hf",
		Activity: &UserActivity{Category: "gaming", Label: "valorant"}})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.PersonaID != "pixel" || d.Reason != "activity" {
		t.Fatalf("decision = %+v, want pixel via activity", d)
	}
}

func TestDecide_InterestBonusBreaksFallback(t *testing.T) {
	e, _ := newTestEngine(t, testEngineConfig())

	d, err := e.Decide(Event{ID: "e1", ChannelID: "general", Text: "new album just dropped"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.PersonaID != "pixel" || d.Reason != "roll" {
		t.Fatalf("decision = %+v, want pixel via interest fallback", d)
	}
	if d.Modifiers.InterestBonus != 0.3 {
		t.Fatalf("interest bonus = %v, want 0.3", d.Modifiers.InterestBonus)
	}
}

func TestDecide_StickyRoutingWithinWindow(t *testing.T) {
	e, clock := newTestEngine(t, testEngineConfig())

	d, _ := e.Decide(Event{ID: "e1", ChannelID: "general", Text: "new album just dropped"})
	if d.PersonaID != "pixel" {
		t.Fatalf("setup decision = %+v", d)
	}
	if _, err := e.RecordCompletion("e1"); err != nil {
		t.Fatalf("RecordCompletion: %v", err)
	}

	// Within the window a topic-neutral message sticks to pixel.
	clock.advance(2 * time.Minute)
	d, _ = e.Decide(Event{ID: "e2", ChannelID: "general", Text: "hmm okay then"})
	if d.PersonaID != "pixel" || d.Reason != "sticky" {
		t.Fatalf("decision = %+v, want pixel via sticky", d)
	}

	// Past the window routing falls back to declaration order.
	clock.advance(10 * time.Minute)
	d, _ = e.Decide(Event{ID: "e3", ChannelID: "general", Text: "hmm okay then"})
	if d.Reason == "sticky" {
		t.Fatalf("sticky must expire: %+v", d)
	}
}

func TestDecide_RollFailureStaysSilent(t *testing.T) {
	e, _ := newTestEngine(t, testEngineConfig())
	e.rollFn = func() float64 { return 0.9999 }

	d, err := e.Decide(Event{ID: "e1", ChannelID: "general", Text: "hmm okay then"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.ShouldRespond || d.Reason != "silence" {
		t.Fatalf("decision = %+v, want silence", d)
	}
	// Modifiers are still returned for observability.
	if d.Modifiers.Probability <= 0 {
		t.Fatalf("modifiers missing on silent decision: %+v", d.Modifiers)
	}
}

func TestDecide_NoPersonas(t *testing.T) {
	e := New(testEngineConfig())
	d, err := e.Decide(Event{ID: "e1", ChannelID: "general", Text: "anyone here?"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.ShouldRespond || d.Reason != "silence" {
		t.Fatalf("decision = %+v, want silence", d)
	}
}

func TestRecordCompletion_CommitsStagedEffects(t *testing.T) {
	e, _ := newTestEngine(t, testEngineConfig())

	d, _ := e.Decide(Event{ID: "e1", ChannelID: "general", Text: "new album just dropped"})
	if !d.ShouldRespond {
		t.Fatalf("setup decision = %+v", d)
	}

	if got := e.GetEvolution("pixel").InteractionCount; got != 0 {
		t.Fatalf("interaction committed before completion: %d", got)
	}
	if _, err := e.RecordCompletion("e1"); err != nil {
		t.Fatalf("RecordCompletion: %v", err)
	}
	if got := e.GetEvolution("pixel").InteractionCount; got != 1 {
		t.Fatalf("interaction count = %d, want 1", got)
	}

	// Double commit is rejected.
	if _, err := e.RecordCompletion("e1"); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("second commit err = %v, want ErrUnknownEvent", err)
	}
}

func TestAbandon_DropsStagedEffects(t *testing.T) {
	e, _ := newTestEngine(t, testEngineConfig())

	e.Decide(Event{ID: "e1", ChannelID: "general", Text: "new album just dropped"})
	if err := e.Abandon("e1"); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if got := e.GetEvolution("pixel").InteractionCount; got != 0 {
		t.Fatalf("abandoned event committed effects: %d", got)
	}
	if err := e.Abandon("nope"); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("unknown abandon err = %v, want ErrUnknownEvent", err)
	}
}

func TestDecide_SpeakCooldown(t *testing.T) {
	e, clock := newTestEngine(t, testEngineConfig())

	e.Decide(Event{ID: "e1", ChannelID: "general", Text: "new album just dropped"})
	e.RecordCompletion("e1")

	// pixel spoke seconds ago; sticky routing picks it again but the
	// cooldown holds it back.
	clock.advance(5 * time.Second)
	d, _ := e.Decide(Event{ID: "e2", ChannelID: "general", Text: "more music talk"})
	if d.ShouldRespond || d.Reason != "cooldown" {
		t.Fatalf("decision = %+v, want cooldown", d)
	}

	// A mention bypasses the cooldown.
	d, _ = e.Decide(Event{ID: "e3", ChannelID: "general", Text: "more music talk",
		MentionedPersonas: []string{"pixel"}})
	if !d.ShouldRespond || d.Reason != "mention" {
		t.Fatalf("decision = %+v, want mention bypass", d)
	}
}

func TestDecide_GlobalRateLimiter(t *testing.T) {
	cfg := testEngineConfig()
	cfg.AmbientPerMinute = 0.006 // effectively no refill during the test
	cfg.AmbientBurst = 1
	e, clock := newTestEngine(t, cfg)

	d, _ := e.Decide(Event{ID: "e1", ChannelID: "general", Text: "new album just dropped"})
	if !d.ShouldRespond {
		t.Fatalf("first decision = %+v, want respond", d)
	}

	clock.advance(time.Minute) // clear the speak cooldown path
	d, _ = e.Decide(Event{ID: "e2", ChannelID: "other", Text: "new album just dropped"})
	if d.ShouldRespond || d.Reason != "ratelimited" {
		t.Fatalf("second decision = %+v, want ratelimited", d)
	}
}

func TestStats_Counters(t *testing.T) {
	e, _ := newTestEngine(t, testEngineConfig())

	e.Decide(Event{ID: "e1", ChannelID: "general", Text: "new album just dropped"})
	e.RecordCompletion("e1")
	e.Decide(Event{ID: "e2", ChannelID: "dms", Text: "hello there"})
	e.Abandon("e2")

	s := e.Stats()
	if s.Events != 2 || s.Responses != 1 || s.Abandoned != 1 {
		t.Fatalf("stats = %+v", s)
	}
}
