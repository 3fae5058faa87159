package troupe

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ──────────────────────────────────────────────
// Curiosity Engine — cooldown-gated follow-up questions
// ──────────────────────────────────────────────

// topicMemory is the per-persona curiosity record: cooldown stamps, the
// rolling ask window, and a bounded FIFO of recently asked topics.
type topicMemory struct {
	LastAsked map[string]time.Time `json:"last_asked"`
	AskTimes  []time.Time          `json:"ask_times"`
	Recent    []string             `json:"recent"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func defaultTopicMemory(now time.Time) topicMemory {
	return topicMemory{LastAsked: make(map[string]time.Time), UpdatedAt: now}
}

// CuriosityEngine decides whether a persona asks a follow-up question.
// Side effects (cooldown stamps, FIFO entry) are returned as a commit
// closure and only applied once the caller confirms the response was
// actually sent.
type CuriosityEngine struct {
	store StateStore
	locks *keyLocks
	log   zerolog.Logger

	topicCooldown time.Duration // per-topic cooldown
	window        time.Duration // rolling window length
	windowCap     int           // max follow-ups inside the window
	fifoSize      int           // recent-topic FIFO capacity

	rngMu  sync.Mutex
	rng    *rand.Rand
	rollFn func() float64 // overridable in tests
}

func newCuriosityEngine(store StateStore, locks *keyLocks, log zerolog.Logger, cfg Config) *CuriosityEngine {
	e := &CuriosityEngine{
		store:         store,
		locks:         locks,
		log:           log.With().Str("component", "curiosity").Logger(),
		topicCooldown: cfg.CuriosityTopicCooldown,
		window:        cfg.CuriosityWindow,
		windowCap:     cfg.CuriosityWindowCap,
		fifoSize:      cfg.CuriosityFIFOSize,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	e.rollFn = func() float64 {
		e.rngMu.Lock()
		defer e.rngMu.Unlock()
		return e.rng.Float64()
	}
	return e
}

// MaybeAskFollowUp returns a follow-up directive when the persona's
// curiosity fires, plus the commit closure that records the side effects.
// Both the per-topic cooldown and the rolling window cap must pass; a
// topic still in the FIFO is skipped regardless of cooldown state.
//
// The gates run here against committed state, then again inside the
// commit closure under the key lock. Several staged decisions can each
// pass the first check concurrently; the second keeps the cap, cooldown,
// and FIFO invariants over what actually commits. The closure reports
// whether the follow-up was recorded.
func (e *CuriosityEngine) MaybeAskFollowUp(p *Persona, topics []string, now time.Time) (*FollowUpDirective, func() bool) {
	if len(topics) == 0 {
		return nil, nil
	}

	unlock := e.locks.lock(nsTopicMemory, p.ID)
	mem := e.load(p.ID, now)
	unlock()

	mem.AskTimes = pruneTimes(mem.AskTimes, now.Add(-e.window))
	if len(mem.AskTimes) >= e.windowCap {
		return nil, nil
	}

	if e.rollFn() >= p.Curiosity.Probability() {
		return nil, nil
	}

	for _, topic := range topics {
		if containsString(mem.Recent, topic) {
			continue
		}
		if last, ok := mem.LastAsked[topic]; ok && now.Sub(last) < e.topicCooldown {
			continue
		}

		directive := &FollowUpDirective{
			Topic:  topic,
			Prompt: fmt.Sprintf("Ask one genuine follow-up question about %s before moving on.", topic),
		}
		personaID, chosen := p.ID, topic
		commit := func() bool { return e.record(personaID, chosen, now) }
		return directive, commit
	}
	return nil, nil
}

// record applies the staged side effects for one sent follow-up. The
// gates are re-checked under the key lock: another staged decision may
// have committed since MaybeAskFollowUp evaluated them, and a stale
// commit must not push the window past its cap, repeat a FIFO topic, or
// break a fresh per-topic cooldown. Returns whether the effects applied.
func (e *CuriosityEngine) record(personaID, topic string, now time.Time) bool {
	unlock := e.locks.lock(nsTopicMemory, personaID)
	defer unlock()

	mem := e.load(personaID, now)
	mem.AskTimes = pruneTimes(mem.AskTimes, now.Add(-e.window))
	if len(mem.AskTimes) >= e.windowCap {
		e.log.Debug().Str("persona", personaID).Str("topic", topic).Msg("staged follow-up dropped: window cap")
		return false
	}
	if containsString(mem.Recent, topic) {
		e.log.Debug().Str("persona", personaID).Str("topic", topic).Msg("staged follow-up dropped: repeat topic")
		return false
	}
	if last, ok := mem.LastAsked[topic]; ok && now.Sub(last) < e.topicCooldown {
		e.log.Debug().Str("persona", personaID).Str("topic", topic).Msg("staged follow-up dropped: topic cooldown")
		return false
	}

	if mem.LastAsked == nil {
		mem.LastAsked = make(map[string]time.Time)
	}
	mem.LastAsked[topic] = now
	mem.AskTimes = append(mem.AskTimes, now)
	mem.Recent = append(mem.Recent, topic)
	if len(mem.Recent) > e.fifoSize {
		mem.Recent = mem.Recent[len(mem.Recent)-e.fifoSize:]
	}
	mem.UpdatedAt = now

	if err := putRecord(e.store, nsTopicMemory, personaID, &mem); err != nil {
		e.log.Warn().Err(err).Str("persona", personaID).Msg("topic memory save failed")
	}
	return true
}

func (e *CuriosityEngine) load(personaID string, now time.Time) topicMemory {
	mem := defaultTopicMemory(now)
	if _, err := getRecord(e.store, nsTopicMemory, personaID, &mem); err != nil {
		e.log.Warn().Err(err).Str("persona", personaID).Msg("topic memory reset")
		mem = defaultTopicMemory(now)
	}
	return mem
}

func pruneTimes(ts []time.Time, cutoff time.Time) []time.Time {
	var kept []time.Time
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
