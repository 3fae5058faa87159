package troupe

import "time"

// Decide runs one event through the full evaluation order: topic
// detection, avoidance veto, mention check, activity routing, sticky and
// fallback routing, modifier collection, final probability roll. The
// message is always recorded in the channel activity profile; everything
// that should only count after a sent response is staged until
// RecordCompletion.
func (e *Engine) Decide(event Event) (Decision, error) {
	e.stats.events.Inc()

	now := event.Timestamp
	if now.IsZero() {
		now = e.clock.Now()
	}

	e.ambient.RecordMessage(event.ChannelID, now)

	candidates := e.orderedPersonas()
	if len(candidates) == 0 {
		return Decision{Reason: "silence"}, nil
	}

	topics := e.taxonomy.Detect(event.Text)

	sentiment := ExtractSentiment(event.Text)
	if event.Sentiment != nil {
		sentiment = *event.Sentiment
	}

	// Avoidance veto filters the candidate set before any routing.
	type scored struct {
		persona *Persona
		bonus   float64
	}
	var eligible []scored
	vetoed := make(map[string]bool)
	for _, p := range candidates {
		bonus, veto := EngagementModifier(p, topics)
		if veto {
			vetoed[p.ID] = true
			continue
		}
		eligible = append(eligible, scored{persona: p, bonus: bonus})
	}
	if len(eligible) == 0 {
		e.stats.vetoes.Inc()
		return Decision{Reason: "veto"}, nil
	}

	// Routing: mention wins, then activity match, then sticky, then the
	// highest interest bonus in declaration order.
	var chosen *Persona
	var bonus float64
	reason := ""

	for _, mentioned := range event.MentionedPersonas {
		if vetoed[mentioned] {
			e.stats.vetoes.Inc()
			continue
		}
		for _, s := range eligible {
			if s.persona.ID == mentioned {
				chosen, bonus, reason = s.persona, s.bonus, "mention"
				break
			}
		}
		if chosen != nil {
			break
		}
	}

	if chosen == nil {
		pool := make([]*Persona, len(eligible))
		for i, s := range eligible {
			pool[i] = s.persona
		}
		if id := SelectByActivity(pool, event.Activity, e.cfg.ActivityScoreThreshold); id != "" {
			for _, s := range eligible {
				if s.persona.ID == id {
					chosen, bonus, reason = s.persona, s.bonus, "activity"
					break
				}
			}
		}
	}

	sticky := e.loadSticky(event.ChannelID)
	if chosen == nil && sticky.PersonaID != "" && now.Sub(sticky.At) <= e.cfg.StickyWindow {
		for _, s := range eligible {
			if s.persona.ID == sticky.PersonaID {
				chosen, bonus, reason = s.persona, s.bonus, "sticky"
				break
			}
		}
	}

	if chosen == nil {
		best := eligible[0]
		for _, s := range eligible[1:] {
			if s.bonus > best.bonus {
				best = s
			}
		}
		chosen, bonus, reason = best.persona, best.bonus, "roll"
	}

	isMention := reason == "mention"

	// Modifier collection.
	ambientMod := e.ambient.Modifier(event.ChannelID, now)

	if !isMention && e.onSpeakCooldown(chosen.ID, now, ambientMod.CooldownMultiplier) {
		return Decision{Reason: "cooldown"}, nil
	}

	moodState, err := e.mood.UpdateMood(chosen.ID, sentiment, now)
	if err != nil {
		e.stats.subEngineErrors.Inc()
		e.log.Warn().Err(err).Str("persona", chosen.ID).Msg("mood update degraded")
		moodState = defaultMoodState(now)
	}

	partnerID := ""
	if sticky.PersonaID != "" && sticky.PersonaID != chosen.ID {
		partnerID = sticky.PersonaID
	}
	banter := 1.0
	conflictTone := ""
	if partnerID != "" {
		rel := e.conflict.Observe(chosen.ID, partnerID, topics, now)
		banter = rel.BanterMultiplier()
		conflictTone = rel.ToneDescriptor(e.personaName(partnerID))
	}

	frameworks := e.blender.Blend(chosen, ClassifyContext(event.Text))
	evolutionMods := e.evolution.ActiveDescriptors(chosen, now)

	followUp, followUpCommit := e.curiosity.MaybeAskFollowUp(chosen, topics, now)

	probability := clamp01((e.cfg.BaseProbability + bonus) *
		moodState.EngagementMultiplier() * banter * ambientMod.ProbabilityMultiplier)
	if isMention {
		probability = 1.0
	}

	mods := StyleModifiers{
		MoodTone:         moodState.ToneDescriptor(),
		MoodMultiplier:   moodState.EngagementMultiplier(),
		InterestBonus:    bonus,
		BanterMultiplier: banter,
		ConflictTone:     conflictTone,
		AmbientProb:      ambientMod.ProbabilityMultiplier,
		AmbientCooldown:  ambientMod.CooldownMultiplier,
		Frameworks:       frameworks,
		Evolution:        evolutionMods,
		FollowUp:         followUp,
		Probability:      probability,
	}

	shouldRespond := isMention || e.rollFn() < probability
	if shouldRespond && !isMention && !e.limiter.Allow() {
		shouldRespond = false
		reason = "ratelimited"
	}
	if !shouldRespond {
		if reason == "roll" || reason == "sticky" || reason == "activity" {
			reason = "silence"
		}
		return Decision{Reason: reason, Modifiers: mods}, nil
	}

	e.pendingMu.Lock()
	e.pending[event.ID] = &pendingEffects{
		persona:   chosen,
		partnerID: partnerID,
		channelID: event.ChannelID,
		followUp:  followUpCommit,
		at:        now,
	}
	e.pendingMu.Unlock()

	e.log.Debug().
		Str("event", event.ID).
		Str("persona", chosen.ID).
		Str("reason", reason).
		Float64("probability", probability).
		Msg("decision")

	return Decision{
		ShouldRespond: true,
		PersonaID:     chosen.ID,
		Reason:        reason,
		Modifiers:     mods,
	}, nil
}

// onSpeakCooldown holds a persona back for SpeakCooldown after it last
// spoke, stretched or shortened by the ambient cooldown multiplier.
// Mentions bypass this check entirely.
func (e *Engine) onSpeakCooldown(personaID string, now time.Time, cooldownMult float64) bool {
	e.spokeMu.Lock()
	last, ok := e.lastSpoke[personaID]
	e.spokeMu.Unlock()
	if !ok {
		return false
	}
	cooldown := time.Duration(float64(e.cfg.SpeakCooldown) * cooldownMult)
	return now.Sub(last) < cooldown
}

func (e *Engine) personaName(personaID string) string {
	e.personaMu.RLock()
	defer e.personaMu.RUnlock()
	if p, ok := e.personas[personaID]; ok && p.Name != "" {
		return p.Name
	}
	return personaID
}
