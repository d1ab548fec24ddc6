package difficulty

import "time"

// Configuration is a difficulty tuning profile. Only one configuration is
// active at a time; superseded ones are kept as inactive records.
type Configuration struct {
	ID   int64  `json:"id" yaml:"-" toml:"-"`
	Name string `json:"name" yaml:"name" toml:"name"`

	SignalsLow    int `json:"signals_low" yaml:"signals_low" toml:"signals_low" validate:"gte=1,lte=10"`
	SignalsMedium int `json:"signals_medium" yaml:"signals_medium" toml:"signals_medium" validate:"gte=1,lte=15"`
	SignalsHigh   int `json:"signals_high" yaml:"signals_high" toml:"signals_high" validate:"gte=1,lte=20"`

	// Time limits per signal, in seconds.
	TimeLow    float64 `json:"time_low" yaml:"time_low" toml:"time_low" validate:"gte=1,lte=60"`
	TimeMedium float64 `json:"time_medium" yaml:"time_medium" toml:"time_medium" validate:"gte=1,lte=30"`
	TimeHigh   float64 `json:"time_high" yaml:"time_high" toml:"time_high" validate:"gte=1,lte=20"`

	InitialTier         Tier    `json:"initial_tier" yaml:"initial_tier" toml:"initial_tier" validate:"gte=0,lte=2"`
	RoundsPerZone       int     `json:"rounds_per_zone" yaml:"rounds_per_zone" toml:"rounds_per_zone" validate:"gte=1,lte=20"`
	MinRoundsToComplete int     `json:"min_rounds_to_complete" yaml:"min_rounds_to_complete" toml:"min_rounds_to_complete" validate:"gte=1,lte=10"`
	MinHitRate          float64 `json:"min_hit_rate" yaml:"min_hit_rate" toml:"min_hit_rate" validate:"gt=0,lte=1"`
	UseModel            bool    `json:"use_model" yaml:"use_model" toml:"use_model"`

	UpdatedAt time.Time `json:"updated_at" yaml:"-" toml:"-"`
}

// DefaultConfiguration returns the profile seeded into an empty database.
func DefaultConfiguration() Configuration {
	return Configuration{
		Name:                "default",
		SignalsLow:          3,
		SignalsMedium:       5,
		SignalsHigh:         7,
		TimeLow:             12,
		TimeMedium:          8,
		TimeHigh:            5,
		InitialTier:         TierLow,
		RoundsPerZone:       6,
		MinRoundsToComplete: 4,
		MinHitRate:          0.7,
		UseModel:            true,
	}
}

// SignalCount returns how many signals are shown per round at tier t.
func (c Configuration) SignalCount(t Tier) int {
	switch ClampTier(int(t)) {
	case TierMedium:
		return c.SignalsMedium
	case TierHigh:
		return c.SignalsHigh
	default:
		return c.SignalsLow
	}
}

// TimeLimit returns the per-signal answer window in seconds at tier t.
func (c Configuration) TimeLimit(t Tier) float64 {
	switch ClampTier(int(t)) {
	case TierMedium:
		return c.TimeMedium
	case TierHigh:
		return c.TimeHigh
	default:
		return c.TimeLow
	}
}
