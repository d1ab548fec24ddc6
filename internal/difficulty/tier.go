package difficulty

import (
	"fmt"
	"strconv"
	"strings"
)

// Tier is a difficulty level. The numeric values are part of the wire
// contract with the simulator and the classifier artifact.
type Tier int

const (
	TierLow    Tier = 0
	TierMedium Tier = 1
	TierHigh   Tier = 2
)

// AllTiers lists tiers from easiest to hardest.
var AllTiers = []Tier{TierLow, TierMedium, TierHigh}

// ClampTier maps any integer onto a valid tier.
func ClampTier(v int) Tier {
	switch {
	case v < int(TierLow):
		return TierLow
	case v > int(TierHigh):
		return TierHigh
	default:
		return Tier(v)
	}
}

// Valid reports whether t is one of the three defined tiers.
func (t Tier) Valid() bool {
	return t >= TierLow && t <= TierHigh
}

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// DisplayName returns a capitalized label for reports.
func (t Tier) DisplayName() string {
	switch t {
	case TierLow:
		return "Low"
	case TierMedium:
		return "Medium"
	case TierHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// ParseTier accepts a tier name ("low", "medium", "high") or its number.
func ParseTier(s string) (Tier, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "low", "baja":
		return TierLow, nil
	case "medium", "media":
		return TierMedium, nil
	case "high", "alta":
		return TierHigh, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unknown tier %q", s)
	}
	t := Tier(n)
	if !t.Valid() {
		return 0, fmt.Errorf("tier %d out of range", n)
	}
	return t, nil
}
