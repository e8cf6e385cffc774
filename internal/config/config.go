// Package config loads runtime configuration from a YAML file with
// MYTHFORGE_* environment overrides layered on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Language   LanguageConfig   `yaml:"language"`
	Perception PerceptionConfig `yaml:"perception"`
	Session    SessionConfig    `yaml:"session"`
	Prompt     PromptConfig     `yaml:"prompt"`
	LLM        LLMConfig        `yaml:"llm"`
	Store      StoreConfig      `yaml:"store"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LanguageConfig declares the supported interaction languages.
type LanguageConfig struct {
	Default   string   `yaml:"default"`
	Supported []string `yaml:"supported"`
}

// PerceptionConfig tunes intent classification.
type PerceptionConfig struct {
	ConfidenceThreshold  float64 `yaml:"confidenceThreshold"`
	FieldConfidenceFloor float64 `yaml:"fieldConfidenceFloor"`
}

// SessionConfig tunes the orchestrator's session lifecycle.
type SessionConfig struct {
	AutoAdvance            bool          `yaml:"autoAdvance"`
	MaxClarificationRounds int           `yaml:"maxClarificationRounds"`
	MaxHistory             int           `yaml:"maxHistory"`
	Timeout                time.Duration `yaml:"timeout"`
	SweepInterval          time.Duration `yaml:"sweepInterval"`
}

// PromptConfig tunes the prompt builder's token budget.
type PromptConfig struct {
	TokenBudget int `yaml:"tokenBudget"`
}

// LLMConfig configures the inference collaborator. An empty APIKey means
// the core runs in rule-based mode only.
type LLMConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// StoreConfig configures the persistence collaborator. An empty Path
// selects the in-memory store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the root logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Language: LanguageConfig{
			Default:   "en",
			Supported: []string{"en", "es"},
		},
		Perception: PerceptionConfig{
			ConfidenceThreshold:  0.5,
			FieldConfidenceFloor: 0.5,
		},
		Session: SessionConfig{
			AutoAdvance:            true,
			MaxClarificationRounds: 3,
			MaxHistory:             50,
			Timeout:                30 * time.Minute,
			SweepInterval:          5 * time.Minute,
		},
		Prompt: PromptConfig{
			TokenBudget: 4000,
		},
		LLM: LLMConfig{
			Model: "gemini-2.0-flash",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config file over the defaults and applies env
// overrides. An empty path loads defaults plus env only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MYTHFORGE_LANGUAGE"); v != "" {
		cfg.Language.Default = v
	}
	if v := os.Getenv("MYTHFORGE_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("MYTHFORGE_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("MYTHFORGE_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("MYTHFORGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MYTHFORGE_TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Prompt.TokenBudget = n
		}
	}
	if v := os.Getenv("MYTHFORGE_SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Session.Timeout = d
		}
	}
}
