// Package telemetry holds the process-wide Prometheus collectors.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DifficultyDecisions counts tier decisions by rationale and resulting tier.
	DifficultyDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signcoach_difficulty_decisions_total",
		Help: "Difficulty tier decisions by rationale and tier",
	}, []string{"rationale", "tier"})

	// ModelUnavailable counts decisions that wanted the classifier but fell back.
	ModelUnavailable = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signcoach_model_unavailable_total",
		Help: "Decisions that fell back because the classifier was unavailable or failed",
	})

	// EventsAppended counts accepted session events by kind.
	EventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signcoach_events_appended_total",
		Help: "Session events appended by kind",
	}, []string{"kind"})

	// AppendsRejected counts appends refused because the session was finalized.
	AppendsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signcoach_appends_rejected_total",
		Help: "Appends rejected because the session was already finalized",
	})

	// SessionsFinalized counts finalized sessions by metrics source.
	SessionsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signcoach_sessions_finalized_total",
		Help: "Finalized sessions by metrics source (event_log or client_echo)",
	}, []string{"source"})

	// ClockSkew counts finalizations whose end time preceded the start time.
	ClockSkew = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signcoach_session_clock_skew_total",
		Help: "Finalizations with a negative raw duration clamped to zero",
	})

	// FeedbackRequests counts feedback generations by outcome.
	FeedbackRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signcoach_feedback_requests_total",
		Help: "Feedback generation requests by outcome (generated or fallback)",
	}, []string{"outcome"})

	// ConfigReplacements counts configuration replacement attempts by result.
	ConfigReplacements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signcoach_config_replacements_total",
		Help: "Difficulty configuration replacement attempts by result",
	}, []string{"result"})

	// LLMRequests counts provider calls by purpose and outcome.
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signcoach_llm_requests_total",
		Help: "LLM provider calls by purpose and outcome (ok or error)",
	}, []string{"purpose", "outcome"})

	// LLMLatency observes provider call latency in seconds.
	LLMLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signcoach_llm_request_seconds",
		Help:    "LLM provider call latency",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
	}, []string{"purpose"})

	// LLMRetries counts retried provider calls.
	LLMRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signcoach_llm_retries_total",
		Help: "LLM provider calls retried after a transient failure",
	})
)
