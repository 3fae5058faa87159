package troupe

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the behavior engine. Defaults match the
// documented production values; override via environment variables
// (TROUPE_* prefix) or by mutating the struct before New.
type Config struct {
	// Mood
	MoodStep     float64       `env:"TROUPE_MOOD_STEP" envDefault:"0.1"`
	MoodHalfLife time.Duration `env:"TROUPE_MOOD_HALF_LIFE" envDefault:"30m"`

	// Curiosity
	CuriosityTopicCooldown time.Duration `env:"TROUPE_CURIOSITY_TOPIC_COOLDOWN" envDefault:"5m"`
	CuriosityWindow        time.Duration `env:"TROUPE_CURIOSITY_WINDOW" envDefault:"15m"`
	CuriosityWindowCap     int           `env:"TROUPE_CURIOSITY_WINDOW_CAP" envDefault:"3"`
	CuriosityFIFOSize      int           `env:"TROUPE_CURIOSITY_FIFO_SIZE" envDefault:"20"`

	// Conflict
	ConflictStep            float64 `env:"TROUPE_CONFLICT_STEP" envDefault:"0.2"`
	ConflictDecayPerHour    float64 `env:"TROUPE_CONFLICT_DECAY_PER_HOUR" envDefault:"0.1"`
	ConflictFriendDampening float64 `env:"TROUPE_CONFLICT_FRIEND_DAMPENING" envDefault:"0.5"`

	// Activity routing
	ActivityScoreThreshold int           `env:"TROUPE_ACTIVITY_SCORE_THRESHOLD" envDefault:"50"`
	StickyWindow           time.Duration `env:"TROUPE_STICKY_WINDOW" envDefault:"5m"`

	// Ambient timing
	ActivityWindow       time.Duration `env:"TROUPE_ACTIVITY_WINDOW" envDefault:"168h"`
	HighFrequencyPerHour float64       `env:"TROUPE_HIGH_FREQUENCY_PER_HOUR" envDefault:"10"`
	LowFrequencyPerHour  float64       `env:"TROUPE_LOW_FREQUENCY_PER_HOUR" envDefault:"1"`

	// Decision
	BaseProbability  float64       `env:"TROUPE_BASE_PROBABILITY" envDefault:"0.3"`
	SpeakCooldown    time.Duration `env:"TROUPE_SPEAK_COOLDOWN" envDefault:"30s"`
	AmbientPerMinute float64       `env:"TROUPE_AMBIENT_PER_MINUTE" envDefault:"6"`
	AmbientBurst     int           `env:"TROUPE_AMBIENT_BURST" envDefault:"3"`

	// Background sweeps and staged-effect retention
	SweepInterval time.Duration `env:"TROUPE_SWEEP_INTERVAL" envDefault:"60s"`
	PendingTTL    time.Duration `env:"TROUPE_PENDING_TTL" envDefault:"10m"`
}

// DefaultConfig returns the documented defaults without reading the
// environment.
func DefaultConfig() Config {
	return Config{
		MoodStep:                0.1,
		MoodHalfLife:            30 * time.Minute,
		CuriosityTopicCooldown:  5 * time.Minute,
		CuriosityWindow:         15 * time.Minute,
		CuriosityWindowCap:      3,
		CuriosityFIFOSize:       20,
		ConflictStep:            0.2,
		ConflictDecayPerHour:    0.1,
		ConflictFriendDampening: 0.5,
		ActivityScoreThreshold:  50,
		StickyWindow:            5 * time.Minute,
		ActivityWindow:          7 * 24 * time.Hour,
		HighFrequencyPerHour:    10,
		LowFrequencyPerHour:     1,
		BaseProbability:         0.3,
		SpeakCooldown:           30 * time.Second,
		AmbientPerMinute:        6,
		AmbientBurst:            3,
		SweepInterval:           60 * time.Second,
		PendingTTL:              10 * time.Minute,
	}
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
