package diagnosis

import "strings"

// DistractorClassifier flags answers that picked one of the configured
// distractor signs shown alongside the target.
type DistractorClassifier struct {
	signs map[string]struct{}
}

// NewDistractorClassifier builds a classifier for the given sign names.
// Matching is case-insensitive.
func NewDistractorClassifier(signs []string) *DistractorClassifier {
	set := make(map[string]struct{}, len(signs))
	for _, s := range signs {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			set[s] = struct{}{}
		}
	}
	return &DistractorClassifier{signs: set}
}

func (c *DistractorClassifier) Name() string { return "distractor" }

func (c *DistractorClassifier) Classify(input *ClassifyInput) (ErrorCategory, float64) {
	if !input.answered() {
		return "", 0
	}
	if _, ok := c.signs[strings.ToLower(strings.TrimSpace(*input.Answer))]; ok {
		return CategoryDistractor, 0.8
	}
	return "", 0
}
