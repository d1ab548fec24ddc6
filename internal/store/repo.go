package store

import (
	"context"
	"time"

	"github.com/abhisek/signcoach/internal/difficulty"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match when set
}

// Learner is a registered trainee.
type Learner struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Identifier string    `json:"identifier"`
	CreatedAt  time.Time `json:"created_at"`
	Sessions   int       `json:"sessions"`
}

// Session lifecycle states.
const (
	StatusCreated   = "created"
	StatusActive    = "active"
	StatusFinalized = "finalized"
)

// Session is the single mutable aggregate per training run.
type Session struct {
	ID              string          `json:"id"`
	Sequence        int64           `json:"-"`
	LearnerID       *int64          `json:"learner_id,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	EndedAt         *time.Time      `json:"ended_at,omitempty"`
	DurationSecs    float64         `json:"duration_secs"`
	Hits            int             `json:"hits"`
	Misses          int             `json:"misses"`
	AvgLatency      float64         `json:"avg_latency"`
	ZonesCompleted  int             `json:"zones_completed"`
	MaxZone         int             `json:"max_zone"`
	InitialTier     difficulty.Tier `json:"initial_tier"`
	CurrentTier     difficulty.Tier `json:"current_tier"`
	FinalTier       difficulty.Tier `json:"final_tier"`
	Status          string          `json:"status"`
	Completed       bool            `json:"completed"`
	SufficientData  bool            `json:"sufficient_data"`
	MetricsVerified bool            `json:"metrics_verified"`
	ClockSkew       bool            `json:"clock_skew"`
}

// Attempt is one recognition attempt. A nil Answer means no answer was given.
type Attempt struct {
	ID         int64           `json:"id"`
	Sequence   int64           `json:"sequence"`
	SessionID  string          `json:"session_id"`
	CreatedAt  time.Time       `json:"created_at"`
	SignalName string          `json:"signal_name"`
	Answer     *string         `json:"answer"`
	Correct    bool            `json:"correct"`
	Latency    float64         `json:"latency"`
	Zone       int             `json:"zone"`
	Round      int             `json:"round"`
	Tier       difficulty.Tier `json:"tier"`
}

// ErrorEvent records a classified mistake.
type ErrorEvent struct {
	ID            int64           `json:"id"`
	Sequence      int64           `json:"sequence"`
	SessionID     string          `json:"session_id"`
	CreatedAt     time.Time       `json:"created_at"`
	SignalName    string          `json:"signal_name"`
	Answer        *string         `json:"answer"`
	Category      string          `json:"category"`
	Latency       float64         `json:"latency"`
	Zone          int             `json:"zone"`
	Tier          difficulty.Tier `json:"tier"`
	PriorAttempts int             `json:"prior_attempts"`
	Feedback      string          `json:"feedback,omitempty"`
}

// Adjustment records a tier change.
type Adjustment struct {
	ID            int64           `json:"id"`
	Sequence      int64           `json:"sequence"`
	SessionID     string          `json:"session_id"`
	CreatedAt     time.Time       `json:"created_at"`
	PreviousTier  difficulty.Tier `json:"previous_tier"`
	NewTier       difficulty.Tier `json:"new_tier"`
	Justification string          `json:"justification"`
	HitRate       float64         `json:"hit_rate"`
	AvgLatency    float64         `json:"avg_latency"`
	Zone          int             `json:"zone"`
	Round         int             `json:"round"`
}

// SessionFilter narrows ListSessions. Zero values mean no filter.
type SessionFilter struct {
	LearnerID *int64
	Completed *bool
	Limit     int
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEventRecord is a stored LLM request event.
type LLMRequestEventRecord struct {
	ID        int64
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsageStats aggregates LLM calls sharing a purpose.
type LLMUsageStats struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// SignalCount pairs a signal with how often it was missed.
type SignalCount struct {
	Signal string `json:"signal"`
	Errors int    `json:"errors"`
}

// GlobalStats summarizes every stored session.
type GlobalStats struct {
	Learners          int           `json:"learners"`
	Sessions          int           `json:"sessions"`
	CompletedSessions int           `json:"completed_sessions"`
	CompletionRate    float64       `json:"completion_rate"`
	AvgHits           float64       `json:"avg_hits"`
	AvgMisses         float64       `json:"avg_misses"`
	AvgLatency        float64       `json:"avg_latency"`
	TopErrorSignals   []SignalCount `json:"top_error_signals"`
}
