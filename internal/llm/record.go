package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/signcoach/internal/logging"
	"github.com/abhisek/signcoach/internal/store"
	"github.com/abhisek/signcoach/internal/telemetry"
)

// RecordingProvider stores every call as an LLM request event and reports
// it to the process metrics. A failed store write is logged, never returned.
type RecordingProvider struct {
	inner  Provider
	repo   store.EventRepo
	logger *slog.Logger
	now    func() time.Time
}

// WithRecording wraps p. A nil repo records metrics only.
func WithRecording(p Provider, repo store.EventRepo, logger *slog.Logger) Provider {
	return &RecordingProvider{inner: p, repo: repo, logger: logging.OrDiscard(logger), now: time.Now}
}

func (r *RecordingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	purpose := PurposeFrom(ctx)
	start := r.now()
	resp, err := r.inner.Generate(ctx, req)
	elapsed := r.now().Sub(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	telemetry.LLMRequests.WithLabelValues(purpose, outcome).Inc()
	telemetry.LLMLatency.WithLabelValues(purpose).Observe(elapsed.Seconds())

	if r.repo == nil {
		return resp, err
	}

	ev := store.LLMRequestEventData{
		Provider:    r.inner.ModelID(),
		Model:       r.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   elapsed.Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if resp != nil {
		ev.Model = resp.Model
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}
	if werr := r.repo.AppendLLMRequest(ctx, ev); werr != nil {
		r.logger.Warn("record llm request", "purpose", purpose, "err", werr)
	}
	return resp, err
}

func (r *RecordingProvider) ModelID() string { return r.inner.ModelID() }

// transcript renders a request the way it is shown by `signcoach llm view`.
func transcript(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
