package troupe

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestCuriosityEngine(cfg Config) *CuriosityEngine {
	e := newCuriosityEngine(NewInMemoryStateStore(), newKeyLocks(), zerolog.Nop(), cfg)
	e.rollFn = func() float64 { return 0 } // curiosity always fires
	return e
}

func curiousPersona() *Persona {
	return &Persona{ID: "p1", Curiosity: CuriosityHigh}
}

func TestCuriosity_FIFOBlocksRepeat(t *testing.T) {
	e := newTestCuriosityEngine(DefaultConfig())
	p := curiousPersona()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	directive, commit := e.MaybeAskFollowUp(p, []string{"gaming"}, now)
	if directive == nil {
		t.Fatal("expected follow-up directive")
	}
	if directive.Topic != "gaming" {
		t.Fatalf("expected gaming topic, got %s", directive.Topic)
	}
	commit()

	// Same topic hours later: cooldown has passed but the FIFO still
	// remembers it.
	directive, _ = e.MaybeAskFollowUp(p, []string{"gaming"}, now.Add(6*time.Hour))
	if directive != nil {
		t.Fatalf("FIFO should block repeat topic, got %+v", directive)
	}
}

func TestCuriosity_TopicCooldown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CuriosityFIFOSize = 1 // evict quickly so only the cooldown gates
	e := newTestCuriosityEngine(cfg)
	p := curiousPersona()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	_, commit := e.MaybeAskFollowUp(p, []string{"gaming"}, now)
	commit()
	_, commit = e.MaybeAskFollowUp(p, []string{"music"}, now.Add(time.Minute))
	commit() // evicts gaming from the FIFO

	// gaming is out of the FIFO but still inside its 5m cooldown.
	directive, _ := e.MaybeAskFollowUp(p, []string{"gaming"}, now.Add(2*time.Minute))
	if directive != nil {
		t.Fatalf("cooldown should block topic, got %+v", directive)
	}

	// After 20 minutes the window has room again and the cooldown expired.
	directive, _ = e.MaybeAskFollowUp(p, []string{"gaming"}, now.Add(20*time.Minute))
	if directive == nil {
		t.Fatal("expected follow-up after cooldown expiry")
	}
}

func TestCuriosity_RollingWindowCap(t *testing.T) {
	e := newTestCuriosityEngine(DefaultConfig())
	p := curiousPersona()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	topics := []string{"gaming", "music", "food", "travel"}
	fired := 0
	for i, topic := range topics {
		directive, commit := e.MaybeAskFollowUp(p, []string{topic}, now.Add(time.Duration(i)*time.Minute))
		if directive != nil {
			commit()
			fired++
		}
	}
	if fired != 3 {
		t.Fatalf("window cap: expected 3 follow-ups, got %d", fired)
	}

	// Once the oldest ask leaves the 15m window a new one is allowed.
	directive, _ := e.MaybeAskFollowUp(p, []string{"science"}, now.Add(16*time.Minute))
	if directive == nil {
		t.Fatal("expected follow-up after window slid")
	}
}

func TestCuriosity_UncommittedEffectsLeaveNoTrace(t *testing.T) {
	e := newTestCuriosityEngine(DefaultConfig())
	p := curiousPersona()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	// Fire without committing: nothing must be recorded.
	for i := 0; i < 10; i++ {
		directive, _ := e.MaybeAskFollowUp(p, []string{"gaming"}, now.Add(time.Duration(i)*time.Second))
		if directive == nil {
			t.Fatalf("uncommitted ask %d left state behind", i)
		}
	}
}

func TestCuriosity_TierProbabilityGate(t *testing.T) {
	e := newTestCuriosityEngine(DefaultConfig())
	e.rollFn = func() float64 { return 0.6 } // above high (0.5), below insatiable (0.75)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	directive, _ := e.MaybeAskFollowUp(&Persona{ID: "p1", Curiosity: CuriosityHigh}, []string{"gaming"}, now)
	if directive != nil {
		t.Fatal("roll above tier probability must not fire")
	}
	directive, _ = e.MaybeAskFollowUp(&Persona{ID: "p2", Curiosity: CuriosityInsatiable}, []string{"gaming"}, now)
	if directive == nil {
		t.Fatal("roll below tier probability should fire")
	}
}

func TestCuriosity_StagedCommitsRespectWindowCap(t *testing.T) {
	e := newTestCuriosityEngine(DefaultConfig())
	p := curiousPersona()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	// Five decisions in flight before any response is confirmed: each
	// passes the gate against committed state.
	topics := []string{"gaming", "music", "food", "travel", "science"}
	var commits []func() bool
	for _, topic := range topics {
		directive, commit := e.MaybeAskFollowUp(p, []string{topic}, now)
		if directive == nil {
			t.Fatalf("staged ask for %s did not fire", topic)
		}
		commits = append(commits, commit)
	}

	// Committing all of them must still hold the 3-per-window cap.
	committed := 0
	for _, commit := range commits {
		if commit() {
			committed++
		}
	}
	if committed != 3 {
		t.Fatalf("committed %d follow-ups, want window cap 3", committed)
	}
}

func TestCuriosity_StagedRepeatTopicCommitsOnce(t *testing.T) {
	e := newTestCuriosityEngine(DefaultConfig())
	p := curiousPersona()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	d1, c1 := e.MaybeAskFollowUp(p, []string{"gaming"}, now)
	d2, c2 := e.MaybeAskFollowUp(p, []string{"gaming"}, now.Add(time.Second))
	if d1 == nil || d2 == nil {
		t.Fatal("both staged asks should fire against committed state")
	}

	if !c1() {
		t.Fatal("first commit must apply")
	}
	if c2() {
		t.Fatal("second commit of the same topic must be dropped")
	}
}
