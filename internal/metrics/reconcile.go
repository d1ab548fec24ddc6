// Package metrics recomputes a session's authoritative aggregates from its
// event log. Client-reported counters only survive when the log is empty.
package metrics

import (
	"context"
	"fmt"
	"math"

	"github.com/abhisek/signcoach/internal/diagnosis"
	"github.com/abhisek/signcoach/internal/store"
)

// ClientReport is the provisional triple the simulator sends on finalize.
type ClientReport struct {
	Hits       int     `json:"hits"`
	Misses     int     `json:"misses"`
	AvgLatency float64 `json:"avg_latency"`
}

// SignalBreakdown aggregates attempts at one signal.
type SignalBreakdown struct {
	Signal      string  `json:"signal"`
	Attempts    int     `json:"attempts"`
	Hits        int     `json:"hits"`
	Misses      int     `json:"misses"`
	MeanLatency float64 `json:"mean_latency"`
}

// CategoryBreakdown aggregates error events of one category.
type CategoryBreakdown struct {
	Category string   `json:"category"`
	Count    int      `json:"count"`
	Signals  []string `json:"signals"`
}

// Authoritative is the reconciled session aggregate.
type Authoritative struct {
	Hits       int     `json:"hits"`
	Misses     int     `json:"misses"`
	AvgLatency float64 `json:"avg_latency"`

	// Verified is false when the triple is the client echo.
	Verified       bool `json:"verified"`
	SufficientData bool `json:"sufficient_data"`
	Attempts       int  `json:"attempts"`

	Signals    []SignalBreakdown   `json:"signals"`
	Categories []CategoryBreakdown `json:"categories"`
}

// HitRate is hits over hits plus misses, or 0 with no data.
func (a Authoritative) HitRate() float64 {
	if a.Hits+a.Misses == 0 {
		return 0
	}
	return float64(a.Hits) / float64(a.Hits+a.Misses)
}

// Reconcile computes the authoritative aggregate. It is pure and never fails.
func Reconcile(attempts []store.Attempt, errs []store.ErrorEvent, client ClientReport) Authoritative {
	out := Authoritative{
		Attempts:   len(attempts),
		Signals:    signalBreakdown(attempts, errs),
		Categories: categoryBreakdown(errs),
	}

	if len(attempts) == 0 {
		out.Hits = max(client.Hits, 0)
		out.Misses = max(client.Misses, 0)
		out.AvgLatency = sanitizeLatency(client.AvgLatency)
		return out
	}

	var (
		sum      float64
		positive int
	)
	for _, a := range attempts {
		if a.Correct {
			out.Hits++
		}
		if a.Latency > 0 {
			sum += a.Latency
			positive++
		}
	}
	out.Misses = len(attempts) - out.Hits
	if positive > 0 {
		out.AvgLatency = sum / float64(positive)
	}
	out.Verified = true
	out.SufficientData = out.Hits+out.Misses >= 1
	return out
}

func sanitizeLatency(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func signalBreakdown(attempts []store.Attempt, errs []store.ErrorEvent) []SignalBreakdown {
	index := make(map[string]int)
	sums := make(map[string]float64)
	var rows []SignalBreakdown

	row := func(signal string) *SignalBreakdown {
		i, ok := index[signal]
		if !ok {
			i = len(rows)
			index[signal] = i
			rows = append(rows, SignalBreakdown{Signal: signal})
		}
		return &rows[i]
	}

	for _, a := range attempts {
		r := row(a.SignalName)
		r.Attempts++
		if a.Correct {
			r.Hits++
		} else {
			r.Misses++
		}
		sums[a.SignalName] += a.Latency
	}
	for _, e := range errs {
		row(e.SignalName)
	}

	for i := range rows {
		if rows[i].Attempts > 0 {
			rows[i].MeanLatency = sums[rows[i].Signal] / float64(rows[i].Attempts)
		}
	}
	if rows == nil {
		rows = []SignalBreakdown{}
	}
	return rows
}

func categoryBreakdown(errs []store.ErrorEvent) []CategoryBreakdown {
	rows := make([]CategoryBreakdown, 0, len(diagnosis.AllCategories))
	index := make(map[string]int)
	for _, c := range diagnosis.AllCategories {
		index[string(c)] = len(rows)
		rows = append(rows, CategoryBreakdown{Category: string(c), Signals: []string{}})
	}

	seen := make(map[string]map[string]bool)
	for _, e := range errs {
		name := e.Category
		if c, err := diagnosis.ParseCategory(name); err == nil {
			name = string(c)
		}
		i, ok := index[name]
		if !ok {
			i = len(rows)
			index[name] = i
			rows = append(rows, CategoryBreakdown{Category: name, Signals: []string{}})
		}
		rows[i].Count++
		if seen[name] == nil {
			seen[name] = make(map[string]bool)
		}
		if !seen[name][e.SignalName] {
			seen[name][e.SignalName] = true
			rows[i].Signals = append(rows[i].Signals, e.SignalName)
		}
	}
	return rows
}

// EventSource lists a session's events in insertion order.
type EventSource interface {
	ListAttempts(ctx context.Context, sessionID string) ([]store.Attempt, error)
	ListErrors(ctx context.Context, sessionID string) ([]store.ErrorEvent, error)
}

// Reconciler loads the event log and reconciles it.
type Reconciler struct {
	events EventSource
}

// NewReconciler creates a Reconciler reading from events.
func NewReconciler(events EventSource) *Reconciler {
	return &Reconciler{events: events}
}

// Reconcile loads every attempt and error of sessionID and reconciles them
// against client. Only store I/O errors are returned.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID string, client ClientReport) (Authoritative, error) {
	attempts, err := r.events.ListAttempts(ctx, sessionID)
	if err != nil {
		return Authoritative{}, fmt.Errorf("load attempts: %w", err)
	}
	errs, err := r.events.ListErrors(ctx, sessionID)
	if err != nil {
		return Authoritative{}, fmt.Errorf("load error events: %w", err)
	}
	return Reconcile(attempts, errs, client), nil
}
