package troupe

import (
	"time"

	"github.com/rs/zerolog"
)

// ──────────────────────────────────────────────
// Adaptive Ambient Timer — rolling channel activity profile
// ──────────────────────────────────────────────

// HourClass is the classification of the current hour for a channel.
type HourClass string

const (
	HourPeak   HourClass = "peak"
	HourQuiet  HourClass = "quiet"
	HourNormal HourClass = "normal"
)

// AmbientModifier is the (probability, cooldown) multiplier pair for a
// channel at a given moment.
type AmbientModifier struct {
	Class                 HourClass
	ProbabilityMultiplier float64
	CooldownMultiplier    float64
}

// ChannelActivityProfile is a rolling 7-day histogram of message counts
// in hourly buckets, keyed "2006-01-02T15". Increment is O(1); buckets
// older than the window are pruned by the sweep.
type ChannelActivityProfile struct {
	Buckets   map[string]int `json:"buckets"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func defaultActivityProfile(now time.Time) ChannelActivityProfile {
	return ChannelActivityProfile{Buckets: make(map[string]int), UpdatedAt: now}
}

const hourBucketLayout = "2006-01-02T15"

// AmbientTimer maintains per-channel activity profiles and derives the
// ambient engagement modifiers from them.
type AmbientTimer struct {
	store  StateStore
	locks  *keyLocks
	log    zerolog.Logger
	window time.Duration // rolling window, default 7 days

	highFreqPerHour float64 // msgs/hour above which a channel is high-frequency
	lowFreqPerHour  float64 // msgs/hour below which a channel is low-frequency
}

func newAmbientTimer(store StateStore, locks *keyLocks, log zerolog.Logger, cfg Config) *AmbientTimer {
	return &AmbientTimer{
		store:           store,
		locks:           locks,
		log:             log.With().Str("component", "ambient").Logger(),
		window:          cfg.ActivityWindow,
		highFreqPerHour: cfg.HighFrequencyPerHour,
		lowFreqPerHour:  cfg.LowFrequencyPerHour,
	}
}

// RecordMessage increments the current hour bucket for the channel.
func (a *AmbientTimer) RecordMessage(channelID string, now time.Time) {
	unlock := a.locks.lock(nsActivity, channelID)
	defer unlock()

	prof := a.load(channelID, now)
	if prof.Buckets == nil {
		prof.Buckets = make(map[string]int)
	}
	prof.Buckets[now.UTC().Format(hourBucketLayout)]++
	prof.UpdatedAt = now

	if err := putRecord(a.store, nsActivity, channelID, &prof); err != nil {
		a.log.Warn().Err(err).Str("channel", channelID).Msg("activity save failed")
	}
}

// Modifier classifies "now" for the channel and returns the ambient
// probability and cooldown multipliers. Peak hours damp ambient
// engagement and stretch cooldowns; quiet hours do the inverse. Channel
// frequency tier applies an additional adjustment on top.
func (a *AmbientTimer) Modifier(channelID string, now time.Time) AmbientModifier {
	prof := a.load(channelID, now)
	class, rate := classifyHour(prof, now, a.window)

	mod := AmbientModifier{Class: class, ProbabilityMultiplier: 1.0, CooldownMultiplier: 1.0}
	switch class {
	case HourPeak:
		mod.ProbabilityMultiplier = 0.8
		mod.CooldownMultiplier = 1.5
	case HourQuiet:
		mod.ProbabilityMultiplier = 1.3
		mod.CooldownMultiplier = 0.7
	}

	switch {
	case rate > a.highFreqPerHour:
		mod.ProbabilityMultiplier *= 0.85
		mod.CooldownMultiplier *= 1.25
	case rate < a.lowFreqPerHour:
		mod.ProbabilityMultiplier *= 1.15
		mod.CooldownMultiplier *= 0.8
	}
	return mod
}

// Sweep prunes buckets older than the rolling window for every channel.
func (a *AmbientTimer) Sweep(now time.Time) {
	keys, err := a.store.ListKeys(nsActivity)
	if err != nil {
		a.log.Warn().Err(err).Msg("activity sweep: list failed")
		return
	}
	cutoff := now.Add(-a.window).UTC().Format(hourBucketLayout)
	for _, channelID := range keys {
		unlock := a.locks.lock(nsActivity, channelID)
		prof := a.load(channelID, now)
		for bucket := range prof.Buckets {
			if bucket < cutoff {
				delete(prof.Buckets, bucket)
			}
		}
		prof.UpdatedAt = now
		if err := putRecord(a.store, nsActivity, channelID, &prof); err != nil {
			a.log.Warn().Err(err).Str("channel", channelID).Msg("activity sweep: save failed")
		}
		unlock()
	}
}

func (a *AmbientTimer) load(channelID string, now time.Time) ChannelActivityProfile {
	prof := defaultActivityProfile(now)
	if _, err := getRecord(a.store, nsActivity, channelID, &prof); err != nil {
		a.log.Warn().Err(err).Str("channel", channelID).Msg("activity record reset")
		prof = defaultActivityProfile(now)
	}
	return prof
}

// classifyHour compares the historical average of the current hour-of-day
// against the overall hourly mean inside the window. Returns the class
// and the channel's overall msgs/hour rate.
func classifyHour(prof ChannelActivityProfile, now time.Time, window time.Duration) (HourClass, float64) {
	cutoff := now.Add(-window).UTC().Format(hourBucketLayout)
	hourOfDay := now.UTC().Format("15")

	total := 0
	hourTotal := 0
	hourDays := 0
	for bucket, count := range prof.Buckets {
		if bucket < cutoff {
			continue
		}
		total += count
		if len(bucket) >= len(hourBucketLayout) && bucket[len(bucket)-2:] == hourOfDay {
			hourTotal += count
			hourDays++
		}
	}

	windowHours := window.Hours()
	if windowHours <= 0 {
		windowHours = 1
	}
	overallRate := float64(total) / windowHours
	if total == 0 {
		return HourNormal, 0
	}

	days := windowHours / 24
	if days < 1 {
		days = 1
	}
	hourAvg := float64(hourTotal) / days

	class := HourNormal
	switch {
	case hourAvg >= 1.5*overallRate:
		class = HourPeak
	case hourAvg <= 0.5*overallRate:
		class = HourQuiet
	}
	return class, overallRate
}
