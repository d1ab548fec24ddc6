package diagnosis

import "strings"

// TimeoutClassifier flags misses where the learner ran out of time: no
// answer, the simulator's timeout marker, or a latency at the time limit.
type TimeoutClassifier struct{}

func (c *TimeoutClassifier) Name() string { return "timeout" }

func (c *TimeoutClassifier) Classify(input *ClassifyInput) (ErrorCategory, float64) {
	if !input.answered() || strings.EqualFold(strings.TrimSpace(*input.Answer), TimeoutMarker) {
		return CategoryTimeout, 1.0
	}
	if input.TimeLimit > 0 && input.Latency >= input.TimeLimit {
		return CategoryTimeout, 0.9
	}
	return "", 0
}
