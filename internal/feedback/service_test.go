package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/llm"
)

func validOutput() llm.MockResponse {
	return llm.MockJSON(map[string]string{
		"meaning":      "Come to a full stop.",
		"error_reason": "Both signs are red.",
		"real_example": "A four-way intersection.",
		"mnemonic":     "Eight sides, zero rolling.",
	})
}

func TestService_Generate(t *testing.T) {
	mock := llm.NewMockProvider(validOutput())
	svc := NewService(mock, DefaultConfig(), nil)

	fb := svc.Generate(context.Background(), Request{
		SignalName: "stop", Answer: "yield", Latency: 3.2, Tier: difficulty.TierMedium, Zone: 2, PriorAttempts: 1,
	})

	if !fb.Success {
		t.Fatalf("expected generated feedback, got fallback: %+v", fb)
	}
	if fb.Meaning != "Come to a full stop." || fb.Mnemonic != "Eight sides, zero rolling." {
		t.Errorf("feedback = %+v", fb)
	}
	if fb.Message != "Come to a full stop. Eight sides, zero rolling." {
		t.Errorf("message = %q", fb.Message)
	}

	if mock.CallCount() != 1 {
		t.Fatalf("calls = %d", mock.CallCount())
	}
	call := mock.Calls[0]
	if call.Schema != Schema {
		t.Error("request did not carry the feedback schema")
	}
	prompt := call.Messages[0].Content
	for _, want := range []string{"Correct sign: stop", "Learner's answer: yield", "Difficulty: Medium", "Previous attempts at this sign: 1", "Answer in Spanish."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestService_TimeoutPrompt(t *testing.T) {
	mock := llm.NewMockProvider(validOutput())
	NewService(mock, DefaultConfig(), nil).Generate(context.Background(), Request{SignalName: "stop", Answer: "Tiempo agotado", Latency: 8})

	prompt := mock.Calls[0].Messages[0].Content
	if !strings.Contains(prompt, "did not answer before time ran out") {
		t.Errorf("timeout not described:\n%s", prompt)
	}
	if strings.Contains(prompt, "Learner's answer") {
		t.Errorf("timeout prompt should not quote an answer:\n%s", prompt)
	}
}

func TestService_FallbackOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
	}{
		{"no provider", nil},
		{"provider error", llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}})},
		{"unparseable", llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`"just text"`)})},
		{"empty meaning", llm.NewMockProvider(llm.MockJSON(map[string]string{"meaning": " "}))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := NewService(tt.provider, DefaultConfig(), nil).Generate(context.Background(), Request{SignalName: "stop", Answer: "yield"})
			if fb.Success {
				t.Fatal("expected fallback")
			}
			if fb != Fallback(Request{SignalName: "stop", Answer: "yield"}) {
				t.Errorf("fallback mismatch: %+v", fb)
			}
		})
	}
}

func TestFallback(t *testing.T) {
	wrong := Fallback(Request{SignalName: "stop", Answer: "yield"})
	if !strings.Contains(wrong.ErrorReason, `"stop"`) || !strings.Contains(wrong.ErrorReason, `"yield"`) {
		t.Errorf("confusion reason = %q", wrong.ErrorReason)
	}
	for _, answer := range []string{"", "Tiempo agotado", "tiempo agotado"} {
		fb := Fallback(Request{SignalName: "stop", Answer: answer})
		if !strings.HasPrefix(fb.ErrorReason, "Time ran out") {
			t.Errorf("answer %q: reason = %q", answer, fb.ErrorReason)
		}
	}
	if wrong.Meaning == "" || wrong.RealExample == "" || wrong.Mnemonic == "" || wrong.Message == "" {
		t.Errorf("fallback has empty parts: %+v", wrong)
	}
}

func TestService_Available(t *testing.T) {
	if NewService(nil, DefaultConfig(), nil).Available() {
		t.Error("nil provider reported available")
	}
	if !NewService(llm.NewMockProvider(), DefaultConfig(), nil).Available() {
		t.Error("mock provider reported unavailable")
	}
}
