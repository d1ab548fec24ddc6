package difficulty

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Rule identifies a configuration invariant.
type Rule string

const (
	RuleTimeOrder        Rule = "time-order"
	RuleSignalOrder      Rule = "signal-order"
	RuleRoundsWithinZone Rule = "rounds-within-zone"
	RuleBounds           Rule = "bounds"
)

// Violation describes one broken rule.
type Violation struct {
	Rule    Rule   `json:"rule"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationError lists every rule a candidate configuration violates.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return fmt.Sprintf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Has reports whether rule r is among the violations.
func (e *ValidationError) Has(r Rule) bool {
	for _, v := range e.Violations {
		if v.Rule == r {
			return true
		}
	}
	return false
}

var configValidate = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks a candidate configuration against all invariants and
// returns a *ValidationError naming every violation, or nil.
func Validate(c Configuration) error {
	var out []Violation

	if c.TimeMedium >= c.TimeLow {
		out = append(out, Violation{
			Rule:    RuleTimeOrder,
			Field:   "time_medium",
			Message: fmt.Sprintf("medium time limit (%gs) must be less than low time limit (%gs)", c.TimeMedium, c.TimeLow),
		})
	}
	if c.TimeHigh >= c.TimeMedium {
		out = append(out, Violation{
			Rule:    RuleTimeOrder,
			Field:   "time_high",
			Message: fmt.Sprintf("high time limit (%gs) must be less than medium time limit (%gs)", c.TimeHigh, c.TimeMedium),
		})
	}

	if c.SignalsMedium <= c.SignalsLow {
		out = append(out, Violation{
			Rule:    RuleSignalOrder,
			Field:   "signals_medium",
			Message: fmt.Sprintf("medium signal count (%d) must be greater than low signal count (%d)", c.SignalsMedium, c.SignalsLow),
		})
	}
	if c.SignalsHigh <= c.SignalsMedium {
		out = append(out, Violation{
			Rule:    RuleSignalOrder,
			Field:   "signals_high",
			Message: fmt.Sprintf("high signal count (%d) must be greater than medium signal count (%d)", c.SignalsHigh, c.SignalsMedium),
		})
	}

	if c.MinRoundsToComplete > c.RoundsPerZone {
		out = append(out, Violation{
			Rule:    RuleRoundsWithinZone,
			Field:   "min_rounds_to_complete",
			Message: fmt.Sprintf("minimum rounds to complete (%d) cannot exceed rounds per zone (%d)", c.MinRoundsToComplete, c.RoundsPerZone),
		})
	}

	out = append(out, boundViolations(c)...)

	if len(out) == 0 {
		return nil
	}
	return &ValidationError{Violations: out}
}

func boundViolations(c Configuration) []Violation {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Violation{{Rule: RuleBounds, Message: err.Error()}}
	}
	out := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, Violation{
			Rule:    RuleBounds,
			Field:   fe.Field(),
			Message: fmt.Sprintf("%s = %v violates %s", fe.Field(), fe.Value(), boundText(fe.Tag(), fe.Param())),
		})
	}
	return out
}

func boundText(tag, param string) string {
	switch tag {
	case "gte":
		return ">= " + param
	case "gt":
		return "> " + param
	case "lte":
		return "<= " + param
	case "lt":
		return "< " + param
	default:
		return tag + " " + param
	}
}
