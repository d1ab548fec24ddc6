// Package feedback writes short coaching notes after a missed signal, using
// a language model when one is configured and built-in text otherwise.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/signcoach/internal/llm"
	"github.com/abhisek/signcoach/internal/logging"
	"github.com/abhisek/signcoach/internal/telemetry"
)

// ErrNoProvider means no language model is configured.
var ErrNoProvider = errors.New("no LLM provider configured")

// Service generates feedback. A nil provider always falls back.
type Service struct {
	provider llm.Provider
	cfg      Config
	logger   *slog.Logger
}

func NewService(provider llm.Provider, cfg Config, logger *slog.Logger) *Service {
	return &Service{provider: provider, cfg: cfg, logger: logging.OrDiscard(logger)}
}

// Available reports whether a model is configured.
func (s *Service) Available() bool { return s.provider != nil }

type output struct {
	Meaning     string `json:"meaning"`
	ErrorReason string `json:"error_reason"`
	RealExample string `json:"real_example"`
	Mnemonic    string `json:"mnemonic"`
}

// Generate returns model feedback, or the fallback note when generation is
// unavailable or fails. It never returns an empty Feedback.
func (s *Service) Generate(ctx context.Context, req Request) Feedback {
	fb, err := s.generate(ctx, req)
	if err != nil {
		s.logger.Warn("feedback generation failed, using fallback",
			"signal", req.SignalName, "err", err)
		telemetry.FeedbackRequests.WithLabelValues("fallback").Inc()
		return Fallback(req)
	}
	telemetry.FeedbackRequests.WithLabelValues("generated").Inc()
	return fb
}

func (s *Service) generate(ctx context.Context, req Request) (Feedback, error) {
	if s.provider == nil {
		return Feedback{}, ErrNoProvider
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	ctx = llm.WithPurpose(ctx, "feedback")

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    llm.UserPrompt(buildUserMessage(req, s.cfg.Language)),
		Schema:      Schema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return Feedback{}, fmt.Errorf("feedback generation: %w", err)
	}

	var out output
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return Feedback{}, fmt.Errorf("parse feedback response: %w", err)
	}
	if strings.TrimSpace(out.Meaning) == "" {
		return Feedback{}, errors.New("feedback response has no meaning")
	}

	return Feedback{
		Success:     true,
		Meaning:     out.Meaning,
		ErrorReason: out.ErrorReason,
		RealExample: out.RealExample,
		Mnemonic:    out.Mnemonic,
		Message:     strings.TrimSpace(out.Meaning + " " + out.Mnemonic),
	}, nil
}

// Fallback builds the generic note used when no model answer is available.
func Fallback(req Request) Feedback {
	reason := fmt.Sprintf("You mistook %q for %q.", req.SignalName, req.Answer)
	if req.TimedOut() {
		reason = "Time ran out before you answered. Spend a little more time with this sign."
	}
	return Feedback{
		Meaning:      fmt.Sprintf("The %q sign is one you need to know well.", req.SignalName),
		ErrorReason:  reason,
		RealExample:  "Picture yourself driving and meeting this sign on the road.",
		Mnemonic:     "Remember: every sign has a specific purpose.",
		Message:      fmt.Sprintf("The %q sign matters. Keep practicing!", req.SignalName),
		ErrorMessage: "feedback service unavailable",
	}
}
