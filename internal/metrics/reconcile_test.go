package metrics

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/signcoach/internal/store"
)

func attempt(signal string, correct bool, latency float64) store.Attempt {
	return store.Attempt{SignalName: signal, Correct: correct, Latency: latency}
}

func TestReconcile_EventLogOverridesClient(t *testing.T) {
	attempts := []store.Attempt{
		attempt("stop", true, 2),
		attempt("yield", false, 4),
		attempt("stop", true, 3),
	}

	clients := []ClientReport{
		{},
		{Hits: 99, Misses: 0, AvgLatency: 0.1},
		{Hits: -5, Misses: 1000, AvgLatency: math.NaN()},
	}
	for _, client := range clients {
		got := Reconcile(attempts, nil, client)
		assert.Equal(t, 2, got.Hits)
		assert.Equal(t, 1, got.Misses)
		assert.Equal(t, 3.0, got.AvgLatency)
		assert.True(t, got.Verified)
		assert.True(t, got.SufficientData)
	}
}

func TestReconcile_ZeroAttemptsEchoesClient(t *testing.T) {
	got := Reconcile(nil, nil, ClientReport{Hits: 4, Misses: 2, AvgLatency: 5.5})

	assert.Equal(t, 4, got.Hits)
	assert.Equal(t, 2, got.Misses)
	assert.Equal(t, 5.5, got.AvgLatency)
	assert.False(t, got.Verified)
	assert.False(t, got.SufficientData)
	assert.Equal(t, 0, got.Attempts)
}

func TestReconcile_ZeroAttemptsSanitizesClient(t *testing.T) {
	got := Reconcile(nil, nil, ClientReport{Hits: -1, Misses: -3, AvgLatency: math.Inf(1)})

	assert.Equal(t, 0, got.Hits)
	assert.Equal(t, 0, got.Misses)
	assert.Equal(t, 0.0, got.AvgLatency)
}

func TestReconcile_AverageExcludesNonPositiveLatency(t *testing.T) {
	attempts := []store.Attempt{
		attempt("stop", false, 0),
		attempt("stop", true, 5),
		attempt("stop", true, 10),
	}
	got := Reconcile(attempts, nil, ClientReport{})
	assert.Equal(t, 7.5, got.AvgLatency)
}

func TestReconcile_AllZeroLatency(t *testing.T) {
	attempts := []store.Attempt{attempt("stop", false, 0), attempt("yield", false, 0)}
	got := Reconcile(attempts, nil, ClientReport{AvgLatency: 9})
	assert.Equal(t, 0.0, got.AvgLatency)
	assert.Equal(t, 2, got.Misses)
	assert.True(t, got.SufficientData)
}

func TestReconcile_Idempotent(t *testing.T) {
	attempts := []store.Attempt{attempt("stop", true, 2), attempt("yield", false, 6)}
	errs := []store.ErrorEvent{{SignalName: "yield", Category: "confusion"}}
	client := ClientReport{Hits: 1}

	assert.Equal(t, Reconcile(attempts, errs, client), Reconcile(attempts, errs, client))
}

func TestReconcile_SignalBreakdown(t *testing.T) {
	attempts := []store.Attempt{
		attempt("yield", false, 6),
		attempt("stop", true, 2),
		attempt("yield", true, 0),
	}
	errs := []store.ErrorEvent{
		{SignalName: "yield", Category: "confusion"},
		{SignalName: "no-entry", Category: "timeout"},
	}

	got := Reconcile(attempts, errs, ClientReport{})
	require.Len(t, got.Signals, 3)

	assert.Equal(t, SignalBreakdown{Signal: "yield", Attempts: 2, Hits: 1, Misses: 1, MeanLatency: 3}, got.Signals[0])
	assert.Equal(t, SignalBreakdown{Signal: "stop", Attempts: 1, Hits: 1, MeanLatency: 2}, got.Signals[1])
	assert.Equal(t, SignalBreakdown{Signal: "no-entry"}, got.Signals[2])
}

func TestReconcile_CategoryBreakdown(t *testing.T) {
	errs := []store.ErrorEvent{
		{SignalName: "yield", Category: "confusion"},
		{SignalName: "stop", Category: "tiempo_agotado"},
		{SignalName: "yield", Category: "confusion"},
		{SignalName: "stop", Category: "timeout"},
		{SignalName: "merge", Category: "glare"},
	}

	got := Reconcile(nil, errs, ClientReport{})
	require.Len(t, got.Categories, 4)

	assert.Equal(t, CategoryBreakdown{Category: "confusion", Count: 2, Signals: []string{"yield"}}, got.Categories[0])
	assert.Equal(t, CategoryBreakdown{Category: "timeout", Count: 2, Signals: []string{"stop"}}, got.Categories[1])
	assert.Equal(t, CategoryBreakdown{Category: "distractor", Signals: []string{}}, got.Categories[2])
	assert.Equal(t, CategoryBreakdown{Category: "glare", Count: 1, Signals: []string{"merge"}}, got.Categories[3])
}

func TestAuthoritative_HitRate(t *testing.T) {
	assert.Equal(t, 0.0, Authoritative{}.HitRate())
	assert.Equal(t, 0.75, Authoritative{Hits: 3, Misses: 1}.HitRate())
}

type fakeEvents struct {
	attempts []store.Attempt
	errs     []store.ErrorEvent
	err      error
}

func (f *fakeEvents) ListAttempts(context.Context, string) ([]store.Attempt, error) {
	return f.attempts, f.err
}

func (f *fakeEvents) ListErrors(context.Context, string) ([]store.ErrorEvent, error) {
	return f.errs, nil
}

func TestReconciler(t *testing.T) {
	src := &fakeEvents{attempts: []store.Attempt{attempt("stop", true, 1)}}
	got, err := NewReconciler(src).Reconcile(context.Background(), "s1", ClientReport{Hits: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Hits)

	boom := errors.New("disk gone")
	_, err = NewReconciler(&fakeEvents{err: boom}).Reconcile(context.Background(), "s1", ClientReport{})
	require.ErrorIs(t, err, boom)
}
