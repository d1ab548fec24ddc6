package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func clearVendorKeys(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "SIGNCOACH_LLM_PROVIDER"} {
		t.Setenv(k, "")
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	clearVendorKeys(t)

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != ProviderNone {
		t.Errorf("provider = %q, want none", cfg.Provider)
	}
	if cfg.Anthropic.Model != "claude-haiku" || cfg.OpenAI.Model != "gpt-4o-mini" || cfg.Gemini.Model != "gemini-flash" {
		t.Errorf("model defaults = %+v", cfg)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.InitialWait != time.Second || cfg.Retry.Multiplier != 2 {
		t.Errorf("retry defaults = %+v", cfg.Retry)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("timeout = %s", cfg.Timeout)
	}
}

func TestConfigFromEnv_Explicit(t *testing.T) {
	clearVendorKeys(t)
	t.Setenv("SIGNCOACH_LLM_PROVIDER", "openai")
	t.Setenv("SIGNCOACH_OPENAI_API_KEY", "sk-test")
	t.Setenv("SIGNCOACH_OPENAI_BASE_URL", "http://localhost:1234/v1")
	t.Setenv("SIGNCOACH_LLM_RETRY_MAX_ATTEMPTS", "5")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != ProviderOpenAI || cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.BaseURL != "http://localhost:1234/v1" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("retry attempts = %d", cfg.Retry.MaxAttempts)
	}
}

func TestConfigFromEnv_Discovers(t *testing.T) {
	clearVendorKeys(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != ProviderOpenAI || cfg.OpenAI.APIKey != "sk-openai" {
		t.Errorf("discovered %+v", cfg)
	}

	clearVendorKeys(t)
	if _, ok := DiscoverConfig(); ok {
		t.Error("expected nothing to discover")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "k"}}, false},
		{"openai without key", Config{Provider: ProviderOpenAI}, true},
		{"gemini without key", Config{Provider: ProviderGemini}, true},
		{"mock", Config{Provider: ProviderMock}, false},
		{"none", Config{Provider: ProviderNone}, false},
		{"empty", Config{}, false},
		{"unknown", Config{Provider: "openrouter"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: ProviderNone}, nil, nil)
	if err != nil || p != nil {
		t.Fatalf("none: got %v, %v", p, err)
	}

	p, err = NewProvider(context.Background(), Config{Provider: ProviderMock}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.ModelID() != "mock" {
		t.Errorf("model = %q", p.ModelID())
	}

	if _, err := NewProvider(context.Background(), Config{Provider: ProviderOpenAI}, nil, nil); err == nil {
		t.Error("expected missing key error")
	}

	p, err = NewProvider(context.Background(), Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "k", Model: "claude-haiku"}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*RetryProvider); !ok {
		t.Errorf("expected retry wrapper outermost, got %T", p)
	}
}

func TestValidateResponse(t *testing.T) {
	schema := &Schema{
		Name: "validate-test",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":  map[string]any{"type": "string"},
				"count": map[string]any{"type": "integer", "minimum": 0},
				"tier":  map[string]any{"type": "string", "enum": []any{"low", "medium", "high"}},
			},
			"required": []any{"name", "count"},
		},
	}
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{`{"name":"stop","count":2,"tier":"low"}`, false},
		{`{"name":"stop","count":0}`, false},
		{`{"name":"stop"}`, true},
		{`{"name":"stop","count":"two"}`, true},
		{`{"name":"stop","count":1,"tier":"extreme"}`, true},
		{`{"name":`, true},
		{``, true},
	}
	for _, tt := range tests {
		err := validateResponse(schema, json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		var inv *ErrInvalidResponse
		if err != nil && !errors.As(err, &inv) {
			t.Errorf("%s: got %T, want *ErrInvalidResponse", tt.raw, err)
		}
	}
	if err := validateResponse(nil, json.RawMessage(`not json`)); err != nil {
		t.Errorf("nil schema should accept anything: %v", err)
	}
}
