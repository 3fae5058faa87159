package troupe

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ──────────────────────────────────────────────
// Conflict Manager — pair relationship affinity + decaying conflicts
// ──────────────────────────────────────────────

// RelationshipStage is the discrete stage an affinity score maps to.
type RelationshipStage string

const (
	StageStrangers     RelationshipStage = "strangers"
	StageAcquaintances RelationshipStage = "acquaintances"
	StageFrenemies     RelationshipStage = "frenemies"
	StageFriends       RelationshipStage = "friends"
	StageBesties       RelationshipStage = "besties"
)

// ConflictState is an active tension between two personas tied to one
// topic. At most one conflict per pair is active at a time.
type ConflictState struct {
	Topic         string    `json:"topic"`
	Severity      float64   `json:"severity"` // [0,1]
	LastEscalated time.Time `json:"last_escalated"`
}

// RelationshipState is keyed by the unordered persona pair.
type RelationshipState struct {
	Affinity         float64        `json:"affinity"` // [0,100]
	InteractionCount int            `json:"interaction_count"`
	Conflict         *ConflictState `json:"conflict,omitempty"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func defaultRelationshipState(now time.Time) RelationshipState {
	return RelationshipState{UpdatedAt: now}
}

// Stage maps the affinity score to its discrete stage.
func (r *RelationshipState) Stage() RelationshipStage {
	switch {
	case r.Affinity >= 80:
		return StageBesties
	case r.Affinity >= 50:
		return StageFriends
	case r.Affinity >= 30:
		return StageFrenemies
	case r.Affinity >= 10:
		return StageAcquaintances
	default:
		return StageStrangers
	}
}

// BanterMultiplier dampens playful engagement while a conflict is hot.
func (r *RelationshipState) BanterMultiplier() float64 {
	if r.Conflict == nil {
		return 1.0
	}
	return 1.0 - r.Conflict.Severity*0.8
}

// ToneDescriptor renders the argumentative-tone band for the prompt.
// Empty when there is no active conflict.
func (r *RelationshipState) ToneDescriptor(partnerName string) string {
	if r.Conflict == nil || r.Conflict.Severity <= 0 {
		return ""
	}
	sev := r.Conflict.Severity
	switch {
	case sev > 2.0/3.0:
		return "You are in a heated disagreement with " + partnerName + " about " + r.Conflict.Topic + ". Be openly argumentative with them, though never cruel."
	case sev > 1.0/3.0:
		return "There is real friction between you and " + partnerName + " over " + r.Conflict.Topic + ". Push back firmly when they speak."
	default:
		return "You and " + partnerName + " have a mild disagreement about " + r.Conflict.Topic + ". Let a little needling show."
	}
}

// pairKey builds the unordered pair key.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// ConflictManager owns the relationship slice of the state store.
type ConflictManager struct {
	store StateStore
	locks *keyLocks
	log   zerolog.Logger

	step            float64 // severity bump per trigger detection
	decayPerHour    float64 // severity decay per hour without mentions
	friendDampening float64 // escalation-step multiplier at friends or better

	// triggers maps pairKey -> trigger topics for that pair.
	triggers map[string][]string
}

func newConflictManager(store StateStore, locks *keyLocks, log zerolog.Logger, cfg Config) *ConflictManager {
	return &ConflictManager{
		store:           store,
		locks:           locks,
		log:             log.With().Str("component", "conflict").Logger(),
		step:            cfg.ConflictStep,
		decayPerHour:    cfg.ConflictDecayPerHour,
		friendDampening: cfg.ConflictFriendDampening,
		triggers:        make(map[string][]string),
	}
}

// SetTriggers declares the trigger topics for a persona pair. Detection
// of any of these topics in an event starts or escalates a conflict.
func (c *ConflictManager) SetTriggers(a, b string, topics ...string) {
	key := pairKey(a, b)
	lowered := make([]string, 0, len(topics))
	for _, t := range topics {
		lowered = append(lowered, strings.ToLower(t))
	}
	c.triggers[key] = lowered
}

// Observe processes the detected topics of one event for the pair.
// A trigger topic starts a conflict at one step of severity, or escalates
// the active conflict by a step (clamped at 1). Deep friendships escalate
// more slowly when dampening is configured.
func (c *ConflictManager) Observe(a, b string, topics []string, now time.Time) RelationshipState {
	key := pairKey(a, b)
	trigger := c.matchTrigger(key, topics)

	unlock := c.locks.lock(nsRelationship, key)
	defer unlock()

	st := c.load(key, now)
	st = decayConflict(st, now, c.decayPerHour)

	if trigger != "" {
		step := c.step
		if c.friendDampening > 0 && c.friendDampening < 1 {
			if stage := st.Stage(); stage == StageFriends || stage == StageBesties {
				step *= c.friendDampening
			}
		}
		if st.Conflict == nil {
			st.Conflict = &ConflictState{Topic: trigger, Severity: clamp01(step), LastEscalated: now}
			c.log.Info().Str("pair", key).Str("topic", trigger).Msg("conflict started")
		} else {
			st.Conflict.Severity = clamp01(st.Conflict.Severity + step)
			st.Conflict.LastEscalated = now
		}
	}
	st.UpdatedAt = now

	if err := putRecord(c.store, nsRelationship, key, &st); err != nil {
		c.log.Warn().Err(err).Str("pair", key).Msg("relationship save failed")
	}
	return st
}

// RecordInteraction bumps the pair's affinity and interaction counter.
// Called only after a response was confirmed sent.
func (c *ConflictManager) RecordInteraction(a, b string, now time.Time) {
	key := pairKey(a, b)
	unlock := c.locks.lock(nsRelationship, key)
	defer unlock()

	st := c.load(key, now)
	st.InteractionCount++
	st.Affinity = st.Affinity + 1
	if st.Affinity > 100 {
		st.Affinity = 100
	}
	st.UpdatedAt = now

	if err := putRecord(c.store, nsRelationship, key, &st); err != nil {
		c.log.Warn().Err(err).Str("pair", key).Msg("relationship save failed")
	}
}

// Get returns the pair state with lazy conflict decay applied.
func (c *ConflictManager) Get(a, b string, now time.Time) RelationshipState {
	key := pairKey(a, b)
	st := c.load(key, now)
	return decayConflict(st, now, c.decayPerHour)
}

// Sweep decays every persisted conflict. Severity falls linearly with
// elapsed hours; reaching zero clears the conflict.
func (c *ConflictManager) Sweep(now time.Time) {
	keys, err := c.store.ListKeys(nsRelationship)
	if err != nil {
		c.log.Warn().Err(err).Msg("conflict sweep: list failed")
		return
	}
	for _, key := range keys {
		unlock := c.locks.lock(nsRelationship, key)
		st := c.load(key, now)
		decayed := decayConflict(st, now, c.decayPerHour)
		decayed.UpdatedAt = now
		if err := putRecord(c.store, nsRelationship, key, &decayed); err != nil {
			c.log.Warn().Err(err).Str("pair", key).Msg("conflict sweep: save failed")
		}
		unlock()
	}
}

func (c *ConflictManager) matchTrigger(key string, topics []string) string {
	trigs := c.triggers[key]
	if len(trigs) == 0 {
		return ""
	}
	for _, topic := range topics {
		for _, trig := range trigs {
			if strings.EqualFold(topic, trig) {
				return trig
			}
		}
	}
	return ""
}

func (c *ConflictManager) load(key string, now time.Time) RelationshipState {
	st := defaultRelationshipState(now)
	if _, err := getRecord(c.store, nsRelationship, key, &st); err != nil {
		c.log.Warn().Err(err).Str("pair", key).Msg("relationship record reset")
		st = defaultRelationshipState(now)
	}
	return st
}

// decayConflict applies linear severity decay since the last escalation.
// The returned state is current as of now (LastEscalated advances with the
// decayed severity), so persisting it never double-counts elapsed time.
func decayConflict(st RelationshipState, now time.Time, perHour float64) RelationshipState {
	if st.Conflict == nil {
		return st
	}
	elapsed := now.Sub(st.Conflict.LastEscalated)
	if elapsed <= 0 {
		return st
	}
	sev := st.Conflict.Severity - perHour*elapsed.Hours()
	if sev <= 0 {
		st.Conflict = nil
		return st
	}
	conflict := *st.Conflict
	conflict.Severity = sev
	conflict.LastEscalated = now
	st.Conflict = &conflict
	return st
}
