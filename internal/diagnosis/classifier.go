package diagnosis

// Classifier is a rule-based error classifier.
// Returns a category and confidence (0.0–1.0), or ("", 0) if the rule doesn't apply.
type Classifier interface {
	Name() string
	Classify(input *ClassifyInput) (ErrorCategory, float64)
}

// DefaultClassifiers returns classifiers in priority order. A timeout wins
// over a distractor pick because an expired timer says nothing about which
// sign the learner was considering.
func DefaultClassifiers(distractors []string) []Classifier {
	return []Classifier{
		&TimeoutClassifier{},
		NewDistractorClassifier(distractors),
	}
}

// RunClassifiers executes rule-based classifiers in order.
// Returns the first match, or ("", 0, "") if no rules apply.
func RunClassifiers(classifiers []Classifier, input *ClassifyInput) (ErrorCategory, float64, string) {
	for _, c := range classifiers {
		cat, conf := c.Classify(input)
		if cat != "" {
			return cat, conf, c.Name()
		}
	}
	return "", 0, ""
}

// Diagnose classifies a miss. Anything no rule claims is a confusion between
// the target sign and the one the learner chose.
func Diagnose(classifiers []Classifier, input *ClassifyInput) DiagnosisResult {
	if cat, conf, name := RunClassifiers(classifiers, input); cat != "" {
		return DiagnosisResult{Category: cat, Confidence: conf, ClassifierName: name}
	}
	return DiagnosisResult{Category: CategoryConfusion, Confidence: 0.5, ClassifierName: "fallback"}
}
