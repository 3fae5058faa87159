package troupe

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Engine is the behavior decision engine for a cast of personas. It owns
// all sub-engines and the keyed state store, and exposes the four-call
// surface the hosting adapter drives: Decide, ComposePrompt,
// RecordCompletion (or Abandon), and the state inspection getters.
//
// Usage:
//
//	cfg, _ := troupe.LoadConfig()
//	eng := troupe.New(cfg, troupe.WithStore(fileStore))
//	eng.RegisterFramework(&troupe.Framework{ID: "banter", PromptFragment: "..."})
//	eng.RegisterPersona(&persona)
//	eng.Start()
//	defer eng.Stop()
//
//	decision, _ := eng.Decide(event)
//	if decision.ShouldRespond {
//	    prompt, _ := eng.ComposePrompt(decision.PersonaID, decision.Modifiers)
//	    // ... call the model backend, send the reply ...
//	    eng.RecordCompletion(event.ID)
//	}
type Engine struct {
	cfg   Config
	log   zerolog.Logger
	clock Clock
	store StateStore
	locks *keyLocks

	taxonomy   *TopicTaxonomy
	frameworks map[string]*Framework

	personaMu    sync.RWMutex
	personas     map[string]*Persona
	personaOrder []string

	mood      *MoodTracker
	curiosity *CuriosityEngine
	evolution *EvolutionTracker
	conflict  *ConflictManager
	ambient   *AmbientTimer
	blender   *FrameworkBlender

	limiter *rate.Limiter
	stats   statCounters

	rngMu  sync.Mutex
	rng    *rand.Rand
	rollFn func() float64

	pendingMu sync.Mutex
	pending   map[string]*pendingEffects

	spokeMu   sync.Mutex
	lastSpoke map[string]time.Time

	lifecycleMu sync.Mutex
	running     bool
	stopCh      chan struct{}
}

// pendingEffects is the staged, not-yet-committed side effect set of one
// decision. Committed by RecordCompletion, dropped by Abandon, evicted by
// the sweep after PendingTTL.
type pendingEffects struct {
	persona   *Persona
	partnerID string // last different responder in the channel, if any
	channelID string
	followUp  func() bool // curiosity commit, nil when no directive fired
	at        time.Time
}

// Option customizes the Engine at construction.
type Option func(*Engine)

// WithLogger wires a zerolog logger; the default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock injects a clock for deterministic tests.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithStore replaces the default in-memory StateStore.
func WithStore(s StateStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithRandSource seeds the probability rolls (tests).
func WithRandSource(seed int64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewSource(seed)) }
}

// New creates an Engine. Register frameworks before personas so persona
// validation can resolve blend references.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		log:        zerolog.Nop(),
		clock:      SystemClock(),
		store:      NewInMemoryStateStore(),
		locks:      newKeyLocks(),
		taxonomy:   NewTopicTaxonomy(),
		frameworks: make(map[string]*Framework),
		personas:   make(map[string]*Persona),
		pending:    make(map[string]*pendingEffects),
		lastSpoke:  make(map[string]time.Time),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}

	perSecond := cfg.AmbientPerMinute / 60.0
	if perSecond <= 0 {
		perSecond = 0.1
	}
	burst := cfg.AmbientBurst
	if burst < 1 {
		burst = 1
	}
	e.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)

	e.rollFn = func() float64 {
		e.rngMu.Lock()
		defer e.rngMu.Unlock()
		return e.rng.Float64()
	}

	e.mood = newMoodTracker(e.store, e.locks, e.log, cfg.MoodStep, cfg.MoodHalfLife)
	e.curiosity = newCuriosityEngine(e.store, e.locks, e.log, cfg)
	e.evolution = newEvolutionTracker(e.store, e.locks, e.log)
	e.conflict = newConflictManager(e.store, e.locks, e.log, cfg)
	e.ambient = newAmbientTimer(e.store, e.locks, e.log, cfg)
	e.blender = newFrameworkBlender(e.frameworks)
	return e
}

// RegisterFramework adds a framework to the closed registry.
func (e *Engine) RegisterFramework(fw *Framework) {
	e.frameworks[fw.ID] = fw
}

// RegisterPersona validates and adds a persona. A validation failure
// rejects this persona only; previously registered personas are
// untouched.
func (e *Engine) RegisterPersona(p *Persona) error {
	if err := p.Validate(e.frameworks); err != nil {
		e.log.Error().Err(err).Str("persona", p.ID).Msg("persona rejected")
		return err
	}
	e.personaMu.Lock()
	defer e.personaMu.Unlock()
	if _, exists := e.personas[p.ID]; !exists {
		e.personaOrder = append(e.personaOrder, p.ID)
	}
	e.personas[p.ID] = p
	return nil
}

// SetConflictTriggers declares trigger topics for a persona pair.
func (e *Engine) SetConflictTriggers(a, b string, topics ...string) {
	e.conflict.SetTriggers(a, b, topics...)
}

// LoadTaxonomyYAML extends the topic taxonomy from YAML.
func (e *Engine) LoadTaxonomyYAML(data []byte) error {
	return e.taxonomy.LoadTaxonomyYAML(data)
}

// orderedPersonas returns all personas in declaration order.
func (e *Engine) orderedPersonas() []*Persona {
	e.personaMu.RLock()
	defer e.personaMu.RUnlock()
	out := make([]*Persona, 0, len(e.personaOrder))
	for _, id := range e.personaOrder {
		out = append(out, e.personas[id])
	}
	return out
}

// RecordCompletion commits the staged side effects of a decided event
// after the caller confirmed the response was actually sent: cumulative
// interaction counter (and any milestone unlock), the pair relationship
// delta, curiosity cooldowns and topic memory, sticky routing, and the
// persona's speaking cooldown.
func (e *Engine) RecordCompletion(eventID string) (*MilestoneUnlock, error) {
	e.pendingMu.Lock()
	fx, ok := e.pending[eventID]
	delete(e.pending, eventID)
	e.pendingMu.Unlock()
	if !ok {
		return nil, ErrUnknownEvent
	}

	now := e.clock.Now()
	unlock, err := e.evolution.RecordInteraction(fx.persona, now)
	if err != nil {
		e.log.Warn().Err(err).Str("persona", fx.persona.ID).Msg("evolution record failed")
	}
	if fx.partnerID != "" {
		e.conflict.RecordInteraction(fx.persona.ID, fx.partnerID, now)
	}
	if fx.followUp != nil && fx.followUp() {
		e.stats.followUps.Inc()
	}
	e.saveSticky(fx.channelID, fx.persona.ID, now)

	e.spokeMu.Lock()
	e.lastSpoke[fx.persona.ID] = now
	e.spokeMu.Unlock()

	e.stats.responses.Inc()
	return unlock, nil
}

// Abandon drops the staged side effects of an event whose response was
// never sent. Committed effects from prior events are never undone.
func (e *Engine) Abandon(eventID string) error {
	e.pendingMu.Lock()
	_, ok := e.pending[eventID]
	delete(e.pending, eventID)
	e.pendingMu.Unlock()
	if !ok {
		return ErrUnknownEvent
	}
	e.stats.abandoned.Inc()
	return nil
}

// GetMood returns the persona's current mood with decay applied.
func (e *Engine) GetMood(personaID string) MoodState {
	return e.mood.Get(personaID, e.clock.Now())
}

// GetEvolution returns the persona's evolution state.
func (e *Engine) GetEvolution(personaID string) EvolutionState {
	return e.evolution.Get(personaID, e.clock.Now())
}

// GetRelationship returns the state for an unordered persona pair.
func (e *Engine) GetRelationship(a, b string) RelationshipState {
	return e.conflict.Get(a, b, e.clock.Now())
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// Flush forces the backing store to persist, when it supports flushing.
func (e *Engine) Flush() error {
	if f, ok := e.store.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// ─── sticky routing memory ───

type stickyRecord struct {
	PersonaID string    `json:"persona_id"`
	At        time.Time `json:"at"`
}

func (e *Engine) saveSticky(channelID, personaID string, now time.Time) {
	unlock := e.locks.lock(nsSticky, channelID)
	defer unlock()
	rec := stickyRecord{PersonaID: personaID, At: now}
	if err := putRecord(e.store, nsSticky, channelID, &rec); err != nil {
		e.log.Warn().Err(err).Str("channel", channelID).Msg("sticky save failed")
	}
}

func (e *Engine) loadSticky(channelID string) stickyRecord {
	var rec stickyRecord
	if _, err := getRecord(e.store, nsSticky, channelID, &rec); err != nil {
		e.log.Warn().Err(err).Str("channel", channelID).Msg("sticky record reset")
		rec = stickyRecord{}
	}
	return rec
}
