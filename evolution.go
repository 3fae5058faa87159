package troupe

import (
	"time"

	"github.com/rs/zerolog"
)

// ──────────────────────────────────────────────
// Evolution Tracker — milestone unlocks on cumulative interaction count
// ──────────────────────────────────────────────

// EvolutionState is the per-persona growth record. HighestReached is an
// index into the persona's milestone list (-1 = none yet). Milestones
// unlock monotonically and exactly once each; the state never regresses.
type EvolutionState struct {
	InteractionCount int       `json:"interaction_count"`
	HighestReached   int       `json:"highest_reached"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func defaultEvolutionState(now time.Time) EvolutionState {
	return EvolutionState{HighestReached: -1, UpdatedAt: now}
}

// MilestoneUnlock is emitted exactly once when a threshold is crossed.
type MilestoneUnlock struct {
	PersonaID string
	Index     int
	Milestone Milestone
}

// EvolutionTracker owns the evolution slice of the state store.
type EvolutionTracker struct {
	store StateStore
	locks *keyLocks
	log   zerolog.Logger
}

func newEvolutionTracker(store StateStore, locks *keyLocks, log zerolog.Logger) *EvolutionTracker {
	return &EvolutionTracker{
		store: store,
		locks: locks,
		log:   log.With().Str("component", "evolution").Logger(),
	}
}

// RecordInteraction increments the cumulative counter and, if the new
// count crosses the next unreached threshold, emits exactly one unlock
// and advances the highest-reached pointer. Re-evaluating at the same
// count never produces a duplicate unlock.
func (t *EvolutionTracker) RecordInteraction(p *Persona, now time.Time) (*MilestoneUnlock, error) {
	unlock := t.locks.lock(nsEvolution, p.ID)
	defer unlock()

	st := t.load(p.ID, now)
	st.InteractionCount++
	st.UpdatedAt = now

	var emitted *MilestoneUnlock
	next := st.HighestReached + 1
	if next < len(p.Milestones) && st.InteractionCount >= p.Milestones[next].Threshold {
		st.HighestReached = next
		emitted = &MilestoneUnlock{PersonaID: p.ID, Index: next, Milestone: p.Milestones[next]}
		t.log.Info().Str("persona", p.ID).Int("milestone", next).Int("count", st.InteractionCount).Msg("milestone unlocked")
	}

	if err := putRecord(t.store, nsEvolution, p.ID, &st); err != nil {
		return emitted, err
	}
	return emitted, nil
}

// Get returns the current evolution state.
func (t *EvolutionTracker) Get(personaID string, now time.Time) EvolutionState {
	return t.load(personaID, now)
}

// ActiveDescriptors returns the unlock descriptors in effect, oldest
// first. Later milestones are cumulative; an Exclusive milestone
// supersedes everything before it.
func (t *EvolutionTracker) ActiveDescriptors(p *Persona, now time.Time) []string {
	st := t.load(p.ID, now)
	if st.HighestReached < 0 {
		return nil
	}
	start := 0
	for i := st.HighestReached; i >= 0; i-- {
		if p.Milestones[i].Exclusive {
			start = i
			break
		}
	}
	var out []string
	for i := start; i <= st.HighestReached && i < len(p.Milestones); i++ {
		m := p.Milestones[i]
		if m.Tone != "" {
			out = append(out, "Tone shift: "+m.Tone)
		}
		for _, q := range m.Quirks {
			out = append(out, "Quirk: "+q)
		}
		for _, k := range m.KnowledgeFlags {
			out = append(out, "Expanded knowledge: "+k)
		}
	}
	return out
}

func (t *EvolutionTracker) load(personaID string, now time.Time) EvolutionState {
	st := defaultEvolutionState(now)
	if _, err := getRecord(t.store, nsEvolution, personaID, &st); err != nil {
		t.log.Warn().Err(err).Str("persona", personaID).Msg("evolution record reset")
		st = defaultEvolutionState(now)
	}
	return st
}
