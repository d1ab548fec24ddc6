package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/signcoach/internal/decision"
	"github.com/abhisek/signcoach/internal/diagnosis"
	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/metrics"
	"github.com/abhisek/signcoach/internal/store"
)

type fixture struct {
	ctrl  *Controller
	store *store.Store
	clock *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

func newFixture(t *testing.T, classifier decision.Classifier) *fixture {
	t.Helper()
	st, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	ctrl := NewController(Deps{
		Store:       st,
		Engine:      decision.NewEngine(classifier, nil),
		Config:      difficulty.NewActive(difficulty.DefaultConfiguration(), nil),
		Classifiers: diagnosis.DefaultClassifiers([]string{"school-zone"}),
		Now:         clock.Now,
	})
	return &fixture{ctrl: ctrl, store: st, clock: clock}
}

func str(s string) *string { return &s }

func TestLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.ctrl.Start(ctx, StartRequest{})
	require.NoError(t, err)
	assert.Equal(t, store.StatusCreated, sess.Status)
	assert.Equal(t, difficulty.TierLow, sess.InitialTier)

	_, err = f.ctrl.AppendAttempt(ctx, sess.ID, AttemptInput{SignalName: "stop", Answer: str("stop"), Correct: true, Latency: 0, Zone: 1})
	require.NoError(t, err)
	state, err := f.ctrl.State(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, state)

	_, err = f.ctrl.AppendAttempt(ctx, sess.ID, AttemptInput{SignalName: "yield", Answer: str("stop"), Latency: 5, Zone: 1})
	require.NoError(t, err)
	_, err = f.ctrl.AppendAttempt(ctx, sess.ID, AttemptInput{SignalName: "stop", Answer: str("stop"), Correct: true, Latency: 10, Zone: 2})
	require.NoError(t, err)

	f.clock.Set(f.clock.Now().Add(3 * time.Minute))
	res, err := f.ctrl.Finalize(ctx, sess.ID, FinalizeInput{
		Client: metrics.ClientReport{Hits: 50, Misses: 0, AvgLatency: 1},
	})
	require.NoError(t, err)

	got := res.Session
	assert.Equal(t, 2, got.Hits)
	assert.Equal(t, 1, got.Misses)
	assert.Equal(t, 7.5, got.AvgLatency)
	assert.Equal(t, 180.0, got.DurationSecs)
	assert.Equal(t, 2, got.MaxZone)
	assert.True(t, got.Completed)
	assert.True(t, got.SufficientData)
	assert.True(t, got.MetricsVerified)
	assert.False(t, got.ClockSkew)
	assert.Equal(t, store.StatusFinalized, got.Status)

	stored, err := f.ctrl.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Hits, stored.Hits)
	assert.True(t, stored.Completed)
}

func TestFinalize_ZeroAttempts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.ctrl.Start(ctx, StartRequest{})
	require.NoError(t, err)

	final := 2
	res, err := f.ctrl.Finalize(ctx, sess.ID, FinalizeInput{
		Client:    metrics.ClientReport{Hits: 3, Misses: 1, AvgLatency: 4},
		FinalTier: &final,
	})
	require.NoError(t, err)
	assert.True(t, res.Session.Completed)
	assert.False(t, res.Session.SufficientData)
	assert.False(t, res.Session.MetricsVerified)
	assert.Equal(t, 3, res.Session.Hits)
	assert.Equal(t, difficulty.TierHigh, res.Session.FinalTier)

	_, err = f.ctrl.AppendAttempt(ctx, sess.ID, AttemptInput{SignalName: "stop"})
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = f.ctrl.AppendError(ctx, sess.ID, ErrorInput{SignalName: "stop"})
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = f.ctrl.Finalize(ctx, sess.ID, FinalizeInput{})
	assert.ErrorIs(t, err, ErrSessionClosed)

	attempts, err := f.store.ListAttempts(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestFinalize_ClientFinalTierClamped(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.ctrl.Start(ctx, StartRequest{})
	require.NoError(t, err)
	final := 9
	res, err := f.ctrl.Finalize(ctx, sess.ID, FinalizeInput{FinalTier: &final})
	require.NoError(t, err)
	assert.Equal(t, difficulty.TierHigh, res.Session.FinalTier)
}

func TestFinalize_ClockSkew(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.ctrl.Start(ctx, StartRequest{})
	require.NoError(t, err)

	f.clock.Set(f.clock.Now().Add(-5 * time.Second))
	res, err := f.ctrl.Finalize(ctx, sess.ID, FinalizeInput{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Session.DurationSecs)
	assert.True(t, res.Session.ClockSkew)
}

func TestEvaluate_RecordsAdjustmentOnTierChange(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.ctrl.Start(ctx, StartRequest{})
	require.NoError(t, err)

	ev, err := f.ctrl.Evaluate(ctx, sess.ID, EvaluateInput{Zone: 2, Round: 6, SignalsShown: 10, Hits: 9, Misses: 1, AvgLatency: 3, ZoneCompleted: true})
	require.NoError(t, err)
	assert.True(t, ev.Changed)
	assert.Equal(t, difficulty.TierHigh, ev.Tier)
	assert.Equal(t, decision.RationaleFallback, ev.Rationale)
	assert.Equal(t, 7, ev.SignalCount)
	assert.Equal(t, 5.0, ev.TimeLimit)
	require.NotNil(t, ev.Adjustment)
	assert.Contains(t, ev.Adjustment.Justification, "fallback")

	// Same tier again: no new adjustment.
	ev, err = f.ctrl.Evaluate(ctx, sess.ID, EvaluateInput{Zone: 3, SignalsShown: 10, Hits: 8})
	require.NoError(t, err)
	assert.False(t, ev.Changed)
	assert.Nil(t, ev.Adjustment)

	adjs, err := f.store.ListAdjustments(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, adjs, 1)
	assert.Equal(t, difficulty.TierLow, adjs[0].PreviousTier)
	assert.Equal(t, difficulty.TierHigh, adjs[0].NewTier)
	assert.Equal(t, 0.9, adjs[0].HitRate)

	// The tracked tier wins over the client's final tier once adjusted.
	low := 0
	res, err := f.ctrl.Finalize(ctx, sess.ID, FinalizeInput{FinalTier: &low})
	require.NoError(t, err)
	assert.Equal(t, difficulty.TierHigh, res.Session.FinalTier)
	assert.Equal(t, 1, res.Session.ZonesCompleted)
	assert.Equal(t, 3, res.Session.MaxZone)
}

func TestEvaluate_KeepsCreatedState(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.ctrl.Start(ctx, StartRequest{})
	require.NoError(t, err)

	_, err = f.ctrl.Evaluate(ctx, sess.ID, EvaluateInput{Zone: 2, SignalsShown: 5, Hits: 3})
	require.NoError(t, err)

	got, err := f.ctrl.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCreated, got.Status)
	assert.Equal(t, 2, got.MaxZone)

	_, err = f.ctrl.AppendAttempt(ctx, sess.ID, AttemptInput{SignalName: "stop", Correct: true, Zone: 2})
	require.NoError(t, err)
	state, err := f.ctrl.State(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, state)
}

func TestEvaluate_UsesModel(t *testing.T) {
	model := decision.ClassifierFunc(func(decision.FeatureVector) (int, error) { return 1, nil })
	f := newFixture(t, model)
	ctx := context.Background()

	sess, err := f.ctrl.Start(ctx, StartRequest{})
	require.NoError(t, err)
	ev, err := f.ctrl.Evaluate(ctx, sess.ID, EvaluateInput{SignalsShown: 10, Hits: 10})
	require.NoError(t, err)
	assert.Equal(t, decision.RationaleModel, ev.Rationale)
	assert.Equal(t, difficulty.TierMedium, ev.Tier)
	assert.Contains(t, ev.Adjustment.Justification, "model")
}

func TestAppendError_InfersCategoryAndPriorAttempts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.ctrl.Start(ctx, StartRequest{})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := f.ctrl.AppendAttempt(ctx, sess.ID, AttemptInput{SignalName: "yield", Answer: str("stop"), Latency: 2})
		require.NoError(t, err)
	}

	tests := []struct {
		in   ErrorInput
		want string
	}{
		{ErrorInput{SignalName: "yield", Answer: str("Tiempo agotado"), Latency: 12}, "timeout"},
		{ErrorInput{SignalName: "yield", Answer: str("school-zone"), Latency: 2}, "distractor"},
		{ErrorInput{SignalName: "yield", Answer: str("stop"), Latency: 2}, "confusion"},
		{ErrorInput{SignalName: "yield", Category: "tiempo_agotado"}, "timeout"},
	}
	for _, tt := range tests {
		e, err := f.ctrl.AppendError(ctx, sess.ID, tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, e.Category)
		assert.Equal(t, 2, e.PriorAttempts)
	}

	_, err = f.ctrl.AppendError(ctx, sess.ID, ErrorInput{SignalName: "yield", Category: "glare"})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.ctrl.AppendAttempt(ctx, "nope", AttemptInput{SignalName: "stop"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.ctrl.Evaluate(ctx, "nope", EvaluateInput{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.ctrl.Finalize(ctx, "nope", FinalizeInput{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.ctrl.State(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	missing := int64(42)
	_, err = f.ctrl.Start(ctx, StartRequest{LearnerID: &missing})
	assert.ErrorIs(t, err, ErrLearnerNotFound)
}

func TestConcurrentAppendAndFinalize(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.ctrl.Start(ctx, StartRequest{})
	require.NoError(t, err)

	const writers = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ctrl.AppendAttempt(ctx, sess.ID, AttemptInput{SignalName: "stop", Correct: true, Latency: 1})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrSessionClosed) {
				t.Errorf("unexpected append error: %v", err)
			}
		}()
	}

	var res *FinalizeResult
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		res, err = f.ctrl.Finalize(ctx, sess.ID, FinalizeInput{})
		if err != nil {
			t.Errorf("finalize: %v", err)
		}
	}()
	wg.Wait()

	require.NotNil(t, res)
	assert.Equal(t, accepted, res.Session.Hits, "every accepted append must be counted and none may land after finalize")

	attempts, err := f.store.ListAttempts(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, accepted)
	assert.Zero(t, f.ctrl.locks.size())
}

// Two controllers on one database file stand in for the CLI and the
// server sharing the default database from separate processes.
func TestFinalize_SharedDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signcoach.db")
	open := func() *Controller {
		st, err := store.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		return NewController(Deps{
			Store:  st,
			Engine: decision.NewEngine(nil, nil),
			Config: difficulty.NewActive(difficulty.DefaultConfiguration(), nil),
		})
	}
	server, cli := open(), open()
	ctx := context.Background()

	sess, err := server.Start(ctx, StartRequest{})
	require.NoError(t, err)
	_, err = server.AppendAttempt(ctx, sess.ID, AttemptInput{SignalName: "stop", Correct: true, Latency: 1})
	require.NoError(t, err)

	const writers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted = 1
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cli.AppendAttempt(ctx, sess.ID, AttemptInput{SignalName: "yield", Correct: true, Latency: 2})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrSessionClosed) {
				t.Errorf("unexpected append error: %v", err)
			}
		}()
	}

	res, err := server.Finalize(ctx, sess.ID, FinalizeInput{})
	require.NoError(t, err)
	wg.Wait()

	after, err := cli.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, accepted, after.Hits+after.Misses, "finalized aggregate must match every accepted append")
	assert.Equal(t, res.Session.Hits, after.Hits)

	for _, c := range []*Controller{server, cli} {
		list, err := c.store.(*store.Store).ListAttempts(ctx, sess.ID)
		require.NoError(t, err)
		assert.Len(t, list, accepted)
	}

	_, err = cli.AppendAttempt(ctx, sess.ID, AttemptInput{SignalName: "stop"})
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = cli.Finalize(ctx, sess.ID, FinalizeInput{})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("b")
		unlockB()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
	assert.Zero(t, k.size())
}
