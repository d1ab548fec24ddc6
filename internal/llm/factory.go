package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhisek/signcoach/internal/store"
)

// NewProvider builds the configured backend wrapped as
// caller → retry → recording → backend. It returns (nil, nil) when the
// provider is "none".
func NewProvider(ctx context.Context, cfg Config, repo store.EventRepo, logger *slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderNone, "":
		return nil, nil
	case ProviderMock:
		return NewMockProvider(), nil
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return WithRetry(WithRecording(base, repo, logger), cfg.Retry, logger), nil
}
