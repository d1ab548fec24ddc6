package diagnosis

import (
	"fmt"
	"strings"
)

// ErrorCategory classifies a missed signal.
type ErrorCategory string

const (
	CategoryConfusion  ErrorCategory = "confusion"
	CategoryTimeout    ErrorCategory = "timeout"
	CategoryDistractor ErrorCategory = "distractor"
)

// AllCategories lists every known category in display order.
var AllCategories = []ErrorCategory{CategoryConfusion, CategoryTimeout, CategoryDistractor}

// ParseCategory maps a category name onto an ErrorCategory. The simulator's
// legacy "tiempo_agotado" spelling is accepted for timeouts.
func ParseCategory(s string) (ErrorCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "confusion":
		return CategoryConfusion, nil
	case "timeout", "tiempo_agotado":
		return CategoryTimeout, nil
	case "distractor":
		return CategoryDistractor, nil
	default:
		return "", fmt.Errorf("unknown error category %q", s)
	}
}

// TimeoutMarker is the answer text the simulator sends when the timer runs out.
const TimeoutMarker = "Tiempo agotado"

// ClassifyInput holds the context for classification.
type ClassifyInput struct {
	SignalName string
	Answer     *string // nil when the learner gave no answer
	Latency    float64 // seconds
	TimeLimit  float64 // seconds allowed at the tier the signal was shown; 0 if unknown
}

// answered reports whether the learner picked an answer.
func (in *ClassifyInput) answered() bool {
	return in.Answer != nil && strings.TrimSpace(*in.Answer) != ""
}

// DiagnosisResult is the output of classifying a missed signal.
type DiagnosisResult struct {
	Category       ErrorCategory `json:"category"`
	Confidence     float64       `json:"confidence"`
	ClassifierName string        `json:"classifier"`
}
