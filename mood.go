package troupe

import (
	"math"
	"time"

	"github.com/rs/zerolog"
)

// ──────────────────────────────────────────────
// Mood Tracker — gradual transitions, time-based decay toward neutral
// ──────────────────────────────────────────────

// MoodLabel is one of the fixed mood enumeration.
type MoodLabel string

const (
	MoodNeutral    MoodLabel = "neutral"
	MoodExcited    MoodLabel = "excited"
	MoodCurious    MoodLabel = "curious"
	MoodBored      MoodLabel = "bored"
	MoodSad        MoodLabel = "sad"
	MoodFrustrated MoodLabel = "frustrated"
)

// MoodState is the per-persona mood record. Intensity stays in [0,1];
// UpdatedAt feeds the elapsed-time decay after restarts.
type MoodState struct {
	Label     MoodLabel `json:"label"`
	Intensity float64   `json:"intensity"`
	UpdatedAt time.Time `json:"updated_at"`
}

func defaultMoodState(now time.Time) MoodState {
	return MoodState{Label: MoodNeutral, Intensity: 0, UpdatedAt: now}
}

// MoodTracker owns the mood slice of the state store.
type MoodTracker struct {
	store    StateStore
	locks    *keyLocks
	log      zerolog.Logger
	step     float64       // max intensity change per event
	halfLife time.Duration // exponential decay half-life toward neutral
}

func newMoodTracker(store StateStore, locks *keyLocks, log zerolog.Logger, step float64, halfLife time.Duration) *MoodTracker {
	return &MoodTracker{
		store:    store,
		locks:    locks,
		log:      log.With().Str("component", "mood").Logger(),
		step:     step,
		halfLife: halfLife,
	}
}

// targetFor maps a sentiment signal to the mood it pulls toward and the
// intensity ceiling for that pull.
func targetFor(sig SentimentSignal) (MoodLabel, float64) {
	switch sig.Trigger {
	case TriggerQuestion:
		return MoodCurious, 0.6
	case TriggerSilence:
		return MoodBored, 0.4
	case TriggerPositiveCue:
		return MoodExcited, clamp01(math.Abs(sig.Polarity))
	case TriggerNegativeCue:
		if sig.Polarity <= -0.6 {
			return MoodFrustrated, clamp01(math.Abs(sig.Polarity))
		}
		return MoodSad, clamp01(math.Abs(sig.Polarity))
	default:
		return MoodNeutral, 0
	}
}

// UpdateMood applies one event's sentiment signal. Intensity moves at most
// one step per event; a label change must first drain intensity through
// the low end, so moods never jump directly between arbitrary states.
func (m *MoodTracker) UpdateMood(personaID string, sig SentimentSignal, now time.Time) (MoodState, error) {
	unlock := m.locks.lock(nsMood, personaID)
	defer unlock()

	st := m.load(personaID, now)
	st = decayMood(st, now, m.halfLife)

	target, targetIntensity := targetFor(sig)
	switch {
	case st.Label == target:
		st.Intensity = stepToward(st.Intensity, targetIntensity, m.step)
	case target == MoodNeutral:
		st.Intensity = stepToward(st.Intensity, 0, m.step)
		if st.Intensity <= moodNeutralFloor {
			st.Label = MoodNeutral
		}
	default:
		st.Intensity = stepToward(st.Intensity, 0, m.step)
		if st.Intensity <= m.step {
			st.Label = target
		}
	}
	st.Intensity = clamp01(st.Intensity)
	st.UpdatedAt = now

	if err := putRecord(m.store, nsMood, personaID, &st); err != nil {
		return st, err
	}
	m.log.Debug().Str("persona", personaID).Str("label", string(st.Label)).Float64("intensity", st.Intensity).Msg("mood updated")
	return st, nil
}

// Get returns the current mood with lazy decay applied (read-only; the
// stored record is untouched so repeated reads stay idempotent).
func (m *MoodTracker) Get(personaID string, now time.Time) MoodState {
	st := m.load(personaID, now)
	return decayMood(st, now, m.halfLife)
}

// Sweep applies decay in place for every persisted mood. Run from the
// background sweeper so decay holds even with zero traffic.
func (m *MoodTracker) Sweep(now time.Time) {
	keys, err := m.store.ListKeys(nsMood)
	if err != nil {
		m.log.Warn().Err(err).Msg("mood sweep: list failed")
		return
	}
	for _, personaID := range keys {
		unlock := m.locks.lock(nsMood, personaID)
		st := m.load(personaID, now)
		decayed := decayMood(st, now, m.halfLife)
		decayed.UpdatedAt = now
		if err := putRecord(m.store, nsMood, personaID, &decayed); err != nil {
			m.log.Warn().Err(err).Str("persona", personaID).Msg("mood sweep: save failed")
		}
		unlock()
	}
}

func (m *MoodTracker) load(personaID string, now time.Time) MoodState {
	st := defaultMoodState(now)
	if _, err := getRecord(m.store, nsMood, personaID, &st); err != nil {
		m.log.Warn().Err(err).Str("persona", personaID).Msg("mood record reset")
		st = defaultMoodState(now)
	}
	return st
}

// moodNeutralFloor is the intensity under which a mood collapses back to
// the neutral label.
const moodNeutralFloor = 0.05

// decayMood applies exponential decay toward neutral based on elapsed
// wall time, not event count.
func decayMood(st MoodState, now time.Time, halfLife time.Duration) MoodState {
	if halfLife <= 0 || st.UpdatedAt.IsZero() {
		return st
	}
	elapsed := now.Sub(st.UpdatedAt)
	if elapsed <= 0 {
		return st
	}
	factor := math.Pow(0.5, elapsed.Seconds()/halfLife.Seconds())
	st.Intensity = clamp01(st.Intensity * factor)
	if st.Intensity < moodNeutralFloor {
		st.Label = MoodNeutral
	}
	return st
}

func stepToward(current, target, step float64) float64 {
	diff := target - current
	if diff > step {
		diff = step
	}
	if diff < -step {
		diff = -step
	}
	return current + diff
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// moodEngagementBase is the full-intensity engagement multiplier per label.
var moodEngagementBase = map[MoodLabel]float64{
	MoodNeutral:    1.0,
	MoodExcited:    1.3,
	MoodCurious:    1.2,
	MoodBored:      0.8,
	MoodSad:        0.7,
	MoodFrustrated: 0.6,
}

// EngagementMultiplier scales proactive-engagement probability by mood.
// The pull away from 1.0 is proportional to intensity.
func (st MoodState) EngagementMultiplier() float64 {
	base, ok := moodEngagementBase[st.Label]
	if !ok {
		return 1.0
	}
	return 1.0 + (base-1.0)*st.Intensity
}

var moodToneText = map[MoodLabel]string{
	MoodExcited:    "You are in an excited mood: upbeat, energetic, quick to enthuse.",
	MoodCurious:    "You are in a curious mood: inquisitive, eager to dig into details.",
	MoodBored:      "You are in a bored mood: a little flat, easily distracted.",
	MoodSad:        "You are in a sad mood: subdued, gentle, shorter sentences.",
	MoodFrustrated: "You are in a frustrated mood: terse, impatient, slightly sharp.",
}

// ToneDescriptor renders the textual tone modifier for the prompt.
// Neutral or faint moods produce no descriptor.
func (st MoodState) ToneDescriptor() string {
	if st.Label == MoodNeutral || st.Intensity < moodNeutralFloor {
		return ""
	}
	text, ok := moodToneText[st.Label]
	if !ok {
		return ""
	}
	switch {
	case st.Intensity >= 0.7:
		return text + " The mood is strong right now."
	case st.Intensity >= 0.35:
		return text
	default:
		return text + " Only a hint of it shows."
	}
}
