// Package decision recommends the next difficulty tier from a learner's
// recent performance, using a trained classifier when one is loaded and a
// hit-rate threshold rule otherwise.
package decision

import (
	"log/slog"
	"strconv"

	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/logging"
	"github.com/abhisek/signcoach/internal/telemetry"
)

// Fallback thresholds on hit rate.
const (
	HighHitRate   = 0.8
	MediumHitRate = 0.5
)

// Engine is stateless; it is safe for concurrent use.
type Engine struct {
	classifier Classifier
	logger     *slog.Logger
}

// NewEngine creates an engine. classifier may be nil.
func NewEngine(classifier Classifier, logger *slog.Logger) *Engine {
	if classifier == nil {
		classifier = Unavailable{}
	}
	return &Engine{classifier: classifier, logger: logging.OrDiscard(logger)}
}

// ModelAvailable reports whether a classifier is loaded.
func (e *Engine) ModelAvailable() bool {
	return e.classifier.Available()
}

// Decide returns the recommended tier for f. When useModel is true and a
// classifier is available its prediction is used; a failing classifier is
// logged and the fallback rule answers instead. Decide never fails.
func (e *Engine) Decide(f FeatureVector, useModel bool) Decision {
	hitRate := f.HitRate()

	if useModel {
		if tier, ok := e.predict(f); ok {
			return e.record(Decision{Tier: tier, Rationale: RationaleModel, HitRate: hitRate})
		}
	}

	return e.record(Decision{Tier: FallbackTier(hitRate), Rationale: RationaleFallback, HitRate: hitRate})
}

func (e *Engine) predict(f FeatureVector) (difficulty.Tier, bool) {
	if !e.classifier.Available() {
		telemetry.ModelUnavailable.Inc()
		e.logger.Debug("difficulty model not loaded, using fallback rule")
		return 0, false
	}
	raw, err := e.classifier.Predict(f)
	if err != nil {
		telemetry.ModelUnavailable.Inc()
		e.logger.Warn("difficulty model prediction failed, using fallback rule", "error", err)
		return 0, false
	}
	return difficulty.ClampTier(raw), true
}

func (e *Engine) record(d Decision) Decision {
	telemetry.DifficultyDecisions.WithLabelValues(string(d.Rationale), strconv.Itoa(int(d.Tier))).Inc()
	return d
}

// FallbackTier applies the deterministic threshold rule.
func FallbackTier(hitRate float64) difficulty.Tier {
	switch {
	case hitRate >= HighHitRate:
		return difficulty.TierHigh
	case hitRate >= MediumHitRate:
		return difficulty.TierMedium
	default:
		return difficulty.TierLow
	}
}
