// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process-wide settings. Command-line flags override it.
type Config struct {
	// DBPath is the SQLite file. Empty means the XDG default.
	DBPath string `env:"SIGNCOACH_DB"`

	Listen          string        `env:"SIGNCOACH_LISTEN"           envDefault:":8000"`
	ShutdownTimeout time.Duration `env:"SIGNCOACH_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// ModelPath points at the exported difficulty classifier. Empty disables
	// the model and every decision uses the threshold rule.
	ModelPath string `env:"SIGNCOACH_MODEL_PATH"`

	// Profile is a YAML or TOML difficulty profile imported on first start.
	Profile string `env:"SIGNCOACH_PROFILE"`

	LogLevel  string `env:"SIGNCOACH_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"SIGNCOACH_LOG_FORMAT" envDefault:"text"`

	// Distractors lists sign names that count as distractors when an error
	// arrives without a category.
	Distractors []string `env:"SIGNCOACH_DISTRACTORS" envSeparator:","`

	// FeedbackTimeout bounds a single feedback generation.
	FeedbackTimeout time.Duration `env:"SIGNCOACH_FEEDBACK_TIMEOUT" envDefault:"20s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load returns the process configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
