package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func str(s string) *string { return &s }

// seed stores a finalized session with two attempts, one error and one
// adjustment.
func seed(t *testing.T, st *store.Store, learnerID *int64) *store.Session {
	t.Helper()
	ctx := context.Background()

	sess := &store.Session{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		StartedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Status:    store.StatusActive,
	}
	require.NoError(t, st.CreateSession(ctx, sess))

	require.NoError(t, st.AppendAttempt(ctx, &store.Attempt{SessionID: sess.ID, SignalName: "stop", Answer: str("stop"), Correct: true, Latency: 2, Zone: 1, Round: 1}))
	require.NoError(t, st.AppendAttempt(ctx, &store.Attempt{SessionID: sess.ID, SignalName: "yield", Latency: 8, Zone: 1, Round: 2}))
	require.NoError(t, st.AppendError(ctx, &store.ErrorEvent{SessionID: sess.ID, SignalName: "yield", Category: "timeout", Latency: 8, Zone: 1}))
	require.NoError(t, st.AppendAdjustment(ctx, &store.Adjustment{
		SessionID: sess.ID, PreviousTier: difficulty.TierLow, NewTier: difficulty.TierMedium,
		Justification: "fallback: hit rate 0.90", HitRate: 0.9, Zone: 1, Round: 2,
	}))

	sess.Hits, sess.Misses, sess.AvgLatency = 1, 1, 5
	sess.DurationSecs = 95
	sess.FinalTier = difficulty.TierMedium
	sess.Status = store.StatusFinalized
	sess.Completed = true
	require.NoError(t, st.PutSession(ctx, sess))
	return sess
}

func TestBuild(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	l, err := st.CreateLearner(ctx, "Ana", "ana-01")
	require.NoError(t, err)
	sess := seed(t, st, &l.ID)

	r, err := Build(ctx, st, sess.ID)
	require.NoError(t, err)

	assert.Equal(t, "Ana", r.LearnerName)
	assert.Equal(t, 0.5, r.HitRate)
	require.Len(t, r.Attempts, 2)
	assert.Equal(t, "stop", r.Attempts[0].SignalName)
	require.Len(t, r.Errors, 1)
	require.Len(t, r.Adjustments, 1)
	assert.Equal(t, difficulty.TierMedium, r.Adjustments[0].NewTier)

	require.Len(t, r.Signals, 2)
	assert.Equal(t, "yield", r.Signals[1].Signal)
	assert.Equal(t, 8.0, r.Signals[1].MeanLatency)
	assert.Equal(t, "timeout", r.Categories[1].Category)
	assert.Equal(t, 1, r.Categories[1].Count)
}

func TestBuild_UnknownLearner(t *testing.T) {
	st := openStore(t)
	sess := seed(t, st, nil)

	r, err := Build(context.Background(), st, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, UnknownLearner, r.LearnerName)
}

func TestBuild_NotFound(t *testing.T) {
	_, err := Build(context.Background(), openStore(t), "missing")
	assert.True(t, store.IsNotFound(err))
}

func TestExport_RefusesEmptySession(t *testing.T) {
	st := openStore(t)
	sess := &store.Session{ID: uuid.NewString(), StartedAt: time.Now(), Status: store.StatusFinalized}
	require.NoError(t, st.CreateSession(context.Background(), sess))

	r, err := Build(context.Background(), st, sess.ID)
	require.NoError(t, err)

	for _, f := range []Format{FormatJSON, FormatCSV} {
		var buf bytes.Buffer
		assert.ErrorIs(t, Export(&buf, r, f), ErrNoAttempts)
		assert.Zero(t, buf.Len())
	}
}

func TestExport_JSON(t *testing.T) {
	st := openStore(t)
	sess := seed(t, st, nil)
	r, err := Build(context.Background(), st, sess.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, r, FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 0.5, decoded["hit_rate"])
	assert.Len(t, decoded["attempts"], 2)
}

func TestExport_CSV(t *testing.T) {
	st := openStore(t)
	sess := seed(t, st, nil)
	r, err := Build(context.Background(), st, sess.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, r, FormatCSV))
	out := buf.String()

	for _, want := range []string{
		"=== SESSION SUMMARY ===\nMetric,Value\n",
		"Session ID," + sess.ID + "\n",
		"Learner,Unknown\n",
		"Hit rate,50.0%\n",
		"Final tier,Medium\n",
		"=== ERRORS BY CATEGORY ===\nCategory,Count,Signals\n",
		"timeout,1,yield\n",
		"=== PERFORMANCE BY SIGNAL ===\n",
		"yield,8.00,0,1\n",
		"Low,Medium,fallback: hit rate 0.90,90.0%,1,2\n",
		"yield,No answer,No,8.00,1,2,Low\n",
		"stop,stop,Yes,2.00,1,1,Low\n",
	} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 5, strings.Count(out, "=== "))
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatJSON, "JSON": FormatJSON, " csv ": FormatCSV}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xlsx")
	assert.Error(t, err)

	assert.Equal(t, "text/csv", FormatCSV.ContentType())
	assert.Equal(t, "session_abc_metrics.json", FormatJSON.Filename("abc"))
}
