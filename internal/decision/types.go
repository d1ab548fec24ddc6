package decision

import (
	"errors"

	"github.com/abhisek/signcoach/internal/difficulty"
)

// FeatureVector is the five-number performance summary the classifier was
// trained on. Field order matches the artifact's feature order.
type FeatureVector struct {
	Zone         int     `json:"zone"`
	SignalsShown int     `json:"signals_shown"`
	Hits         int     `json:"hits"`
	Misses       int     `json:"misses"`
	AvgLatency   float64 `json:"avg_latency"`
}

// FeatureNames is the canonical feature order.
var FeatureNames = []string{"zone", "signals_shown", "hits", "misses", "avg_latency"}

// Values returns the vector in canonical order.
func (f FeatureVector) Values() []float64 {
	return []float64{
		float64(f.Zone),
		float64(f.SignalsShown),
		float64(f.Hits),
		float64(f.Misses),
		f.AvgLatency,
	}
}

// HitRate is hits over signals shown, with signals shown clamped to at least 1.
func (f FeatureVector) HitRate() float64 {
	shown := f.SignalsShown
	if shown < 1 {
		shown = 1
	}
	return float64(f.Hits) / float64(shown)
}

// Rationale records which path produced a decision.
type Rationale string

const (
	RationaleModel    Rationale = "model"
	RationaleFallback Rationale = "fallback"
)

// Decision is the engine's recommendation.
type Decision struct {
	Tier      difficulty.Tier `json:"tier"`
	Rationale Rationale       `json:"rationale"`
	HitRate   float64         `json:"hit_rate"`
}

// ErrModelUnavailable means the classifier could not serve a prediction.
// It never reaches callers of Decide; it triggers the fallback rule.
var ErrModelUnavailable = errors.New("difficulty model unavailable")

// Classifier is an opaque trained model mapping features to a tier number.
type Classifier interface {
	// Available reports whether Predict can be called.
	Available() bool
	// Predict returns a tier number, nominally in {0,1,2}.
	Predict(f FeatureVector) (int, error)
}

// Unavailable is a Classifier that never predicts. Reason explains why.
type Unavailable struct {
	Reason error
}

func (Unavailable) Available() bool { return false }

func (u Unavailable) Predict(FeatureVector) (int, error) {
	if u.Reason != nil {
		return 0, errors.Join(ErrModelUnavailable, u.Reason)
	}
	return 0, ErrModelUnavailable
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(FeatureVector) (int, error)

func (ClassifierFunc) Available() bool { return true }

func (fn ClassifierFunc) Predict(f FeatureVector) (int, error) { return fn(f) }
