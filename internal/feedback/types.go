package feedback

import (
	"time"

	"github.com/abhisek/signcoach/internal/difficulty"
)

// Request describes one missed signal.
type Request struct {
	SignalName    string          `json:"signal_name" binding:"required"`
	Answer        string          `json:"answer"`
	Latency       float64         `json:"latency"`
	Tier          difficulty.Tier `json:"tier"`
	Zone          int             `json:"zone"`
	PriorAttempts int             `json:"prior_attempts"`
}

// TimedOut reports whether the learner ran out of time instead of answering.
func (r Request) TimedOut() bool {
	return isTimeout(r.Answer)
}

// Feedback is the coaching shown after a miss. Success is false when the
// text came from the built-in fallback.
type Feedback struct {
	Success      bool   `json:"success"`
	Meaning      string `json:"meaning"`
	ErrorReason  string `json:"error_reason"`
	RealExample  string `json:"real_example"`
	Mnemonic     string `json:"mnemonic"`
	Message      string `json:"message"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Config holds generation settings.
type Config struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	// Language is the language the model answers in.
	Language string
}

func DefaultConfig() Config {
	return Config{
		MaxTokens:   400,
		Temperature: 0.4,
		Timeout:     20 * time.Second,
		Language:    "Spanish",
	}
}
