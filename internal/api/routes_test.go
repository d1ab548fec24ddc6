package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/signcoach/internal/decision"
	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/feedback"
	"github.com/abhisek/signcoach/internal/llm"
	"github.com/abhisek/signcoach/internal/session"
	"github.com/abhisek/signcoach/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *store.Store
	active *difficulty.Active
}

func newTestServer(t *testing.T, fb *feedback.Service) *testServer {
	t.Helper()
	st, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg, err := st.EnsureActive(context.Background(), difficulty.DefaultConfiguration())
	require.NoError(t, err)
	active := difficulty.NewActive(cfg, st)
	engine := decision.NewEngine(nil, nil)

	router := NewRouter(Deps{
		Store: st,
		Controller: session.NewController(session.Deps{
			Store:  st,
			Engine: engine,
			Config: active,
		}),
		Engine:   engine,
		Config:   active,
		Feedback: fb,
	})
	return &testServer{router: router, store: st, active: active}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["model_available"])
	assert.Equal(t, false, body["feedback_available"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/v1/predict", map[string]any{"signals_shown": 5, "hits": 5})

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "signcoach_difficulty_decisions_total")
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/v1/learners", map[string]string{"name": "Ana", "identifier": "ana-01"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	learner := decode[store.Learner](t, w)

	w = s.do(t, http.MethodPost, "/v1/sessions", map[string]any{"learner_id": learner.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sess := decode[store.Session](t, w)
	base := "/v1/sessions/" + sess.ID

	w = s.do(t, http.MethodPost, base+"/attempts", map[string]any{"signal_name": "stop", "answer": "stop", "correct": true, "latency": 2, "zone": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, base+"/attempts", map[string]any{"signal_name": "yield", "answer": nil, "latency": 12, "zone": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodPost, base+"/errors", map[string]any{"signal_name": "yield", "answer": nil, "latency": 12, "zone": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "timeout", decode[store.ErrorEvent](t, w).Category)

	w = s.do(t, http.MethodPost, base+"/evaluate", map[string]any{"zone": 1, "round": 1, "signals_shown": 3, "hits": 3})
	require.Equal(t, http.StatusOK, w.Code)
	ev := decode[map[string]any](t, w)
	assert.Equal(t, float64(difficulty.TierHigh), ev["tier"])
	assert.Equal(t, true, ev["changed"])

	w = s.do(t, http.MethodPost, base+"/finalize", map[string]any{"client": map[string]any{"hits": 40, "misses": 0, "avg_latency": 1}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[session.FinalizeResult](t, w)
	assert.Equal(t, 1, res.Session.Hits)
	assert.Equal(t, 1, res.Session.Misses)
	assert.True(t, res.Metrics.Verified)
	assert.Equal(t, difficulty.TierHigh, res.Session.FinalTier)

	w = s.do(t, http.MethodPost, base+"/attempts", map[string]any{"signal_name": "stop"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, base+"/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rep := decode[map[string]any](t, w)
	assert.Equal(t, "Ana", rep["learner_name"])
	assert.Equal(t, 0.5, rep["hit_rate"])

	w = s.do(t, http.MethodGet, base+"/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), sess.ID)
	assert.True(t, strings.HasPrefix(w.Body.String(), "=== SESSION SUMMARY ==="))

	w = s.do(t, http.MethodGet, "/v1/sessions?completed=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]store.Session](t, w), 1)

	w = s.do(t, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[store.GlobalStats](t, w)
	assert.Equal(t, 1, stats.CompletedSessions)
	require.Len(t, stats.TopErrorSignals, 1)
	assert.Equal(t, "yield", stats.TopErrorSignals[0].Signal)
}

func TestExport_NoAttempts(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[store.Session](t, w).ID

	w = s.do(t, http.MethodPost, "/v1/sessions/"+id+"/finalize", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[session.FinalizeResult](t, w).Session.SufficientData)

	w = s.do(t, http.MethodGet, "/v1/sessions/"+id+"/export", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/v1/sessions/"+id+"/finalize", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		method, path string
		body         any
		want         int
	}{
		{http.MethodGet, "/v1/sessions/nope", nil, http.StatusNotFound},
		{http.MethodPost, "/v1/sessions/nope/attempts", map[string]any{"signal_name": "stop"}, http.StatusNotFound},
		{http.MethodGet, "/v1/sessions/nope/report", nil, http.StatusNotFound},
		{http.MethodPost, "/v1/sessions", map[string]any{"learner_id": 99}, http.StatusNotFound},
		{http.MethodGet, "/v1/learners/ghost", nil, http.StatusNotFound},
		{http.MethodPost, "/v1/learners", map[string]any{"name": "x"}, http.StatusBadRequest},
		{http.MethodGet, "/v1/sessions/x/export?format=xml", nil, http.StatusBadRequest},
		{http.MethodPost, "/v1/predict", map[string]any{"hits": -1}, http.StatusBadRequest},
		{http.MethodPost, "/v1/feedback", map[string]any{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := s.do(t, tt.method, tt.path, tt.body)
		assert.Equal(t, tt.want, w.Code, "%s %s: %s", tt.method, tt.path, w.Body.String())
	}
}

func TestDuplicateLearner(t *testing.T) {
	s := newTestServer(t, nil)
	body := map[string]string{"name": "Ana", "identifier": "ana-01"}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/learners", body).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/v1/learners", body).Code)
}

func TestPredict(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/v1/predict", map[string]any{"zone": 1, "signals_shown": 10, "hits": 6, "misses": 4, "avg_latency": 3})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	assert.Equal(t, float64(difficulty.TierMedium), body["tier"])
	assert.Equal(t, "fallback", body["rationale"])
	assert.Equal(t, "Medium (fallback)", body["description"])
	assert.Equal(t, float64(5), body["signal_count"])

	// Stateless: nothing recorded.
	sessions, err := s.store.ListSessions(context.Background(), store.SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestConfigReplace(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPut, "/v1/config", map[string]any{"time_low": 4, "time_medium": 6, "time_high": 8, "signals_low": 9})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[errorBody](t, w)
	assert.GreaterOrEqual(t, len(body.Violations), 3, "every violation is reported")
	assert.Equal(t, 12.0, s.active.Current().TimeLow, "rejected candidate must not apply")

	w = s.do(t, http.MethodPut, "/v1/config", map[string]any{"time_low": 15, "name": "relaxed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 15.0, s.active.Current().TimeLow)

	w = s.do(t, http.MethodGet, "/v1/config", nil)
	assert.Equal(t, "relaxed", decode[difficulty.Configuration](t, w).Name)

	w = s.do(t, http.MethodGet, "/v1/config/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[[]store.ConfigurationRecord](t, w)
	require.Len(t, hist, 2)
	assert.True(t, hist[0].Active)
	assert.False(t, hist[1].Active)
}

func TestFeedback(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockJSON(map[string]string{
		"meaning": "Stop fully.", "error_reason": "Red signs look alike.",
		"real_example": "School crossing.", "mnemonic": "Octagon means halt.",
	}))
	s := newTestServer(t, feedback.NewService(mock, feedback.DefaultConfig(), nil))

	req := map[string]any{"signal_name": "stop", "answer": "yield", "latency": 3, "tier": 7}
	w := s.do(t, http.MethodPost, "/v1/feedback", req)
	require.Equal(t, http.StatusOK, w.Code)
	fb := decode[feedback.Feedback](t, w)
	assert.True(t, fb.Success)
	assert.Equal(t, "Octagon means halt.", fb.Mnemonic)
	assert.Contains(t, mock.Calls[0].Messages[0].Content, "Difficulty: High")

	// Queue exhausted: the endpoint still answers with the fallback.
	w = s.do(t, http.MethodPost, "/v1/feedback", req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[feedback.Feedback](t, w).Success)
}
