package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Provider names accepted by Config.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
	// ProviderNone disables generation; feedback uses its built-in text.
	ProviderNone = "none"
)

// Config selects and configures the provider. Empty Provider means none.
type Config struct {
	Provider  string          `env:"SIGNCOACH_LLM_PROVIDER"`
	Anthropic AnthropicConfig `envPrefix:"SIGNCOACH_ANTHROPIC_"`
	OpenAI    OpenAIConfig    `envPrefix:"SIGNCOACH_OPENAI_"`
	Gemini    GeminiConfig    `envPrefix:"SIGNCOACH_GEMINI_"`
	Retry     RetryConfig     `envPrefix:"SIGNCOACH_LLM_RETRY_"`

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration `env:"SIGNCOACH_LLM_TIMEOUT" envDefault:"30s"`
}

type AnthropicConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL" envDefault:"claude-haiku"`
}

type OpenAIConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL" envDefault:"gpt-4o-mini"`
	// BaseURL points the client at an OpenAI-compatible endpoint.
	BaseURL string `env:"BASE_URL"`
}

type GeminiConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL" envDefault:"gemini-flash"`
}

// RetryConfig is exponential backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	InitialWait time.Duration `env:"INITIAL_WAIT" envDefault:"1s"`
	MaxWait     time.Duration `env:"MAX_WAIT" envDefault:"10s"`
	Multiplier  float64       `env:"MULTIPLIER" envDefault:"2"`
}

// ConfigFromEnv reads SIGNCOACH_* variables. When no provider is named it
// falls back to the first vendor key found by DiscoverConfig.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse llm env: %w", err)
	}
	if cfg.Provider == "" {
		if found, ok := discover(cfg); ok {
			return found, nil
		}
		cfg.Provider = ProviderNone
	}
	return cfg, nil
}

// DiscoverConfig probes the vendors' own key variables, Gemini first.
func DiscoverConfig() (Config, bool) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, false
	}
	return discover(cfg)
}

func discover(cfg Config) (Config, bool) {
	switch {
	case os.Getenv("GEMINI_API_KEY") != "":
		cfg.Provider = ProviderGemini
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	case os.Getenv("OPENAI_API_KEY") != "":
		cfg.Provider = ProviderOpenAI
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		cfg.Provider = ProviderAnthropic
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	default:
		return Config{}, false
	}
	return cfg, true
}

// Validate checks the selected provider has what it needs.
func (c Config) Validate() error {
	missing := func(name string) error {
		return fmt.Errorf("SIGNCOACH_%s_API_KEY is required for the %s provider", name, c.Provider)
	}
	switch c.Provider {
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return missing("ANTHROPIC")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return missing("OPENAI")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return missing("GEMINI")
		}
	case ProviderMock, ProviderNone, "":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
