package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "anthropic", "openai", "gemini", "openrouter", "mock"
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds a single request including retries. Default: 60s.
	Timeout time.Duration
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-haiku"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4-turbo"
	BaseURL string // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "openai/gpt-4o-mini"
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4-turbo",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "openai/gpt-4o-mini",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 60 * time.Second,
	}
}

// envLookup matches os.LookupEnv so tests can substitute a map.
type envLookup func(string) (string, bool)

// ConfigFromEnv builds a Config from HISTREAD_* environment variables,
// falling back to defaults for unset values.
func ConfigFromEnv() Config {
	return configFrom(os.LookupEnv)
}

func configFrom(lookup envLookup) Config {
	cfg := DefaultConfig()

	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set("HISTREAD_LLM_PROVIDER", &cfg.Provider)

	set("HISTREAD_ANTHROPIC_API_KEY", &cfg.Anthropic.APIKey)
	set("HISTREAD_ANTHROPIC_MODEL", &cfg.Anthropic.Model)

	set("HISTREAD_OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	set("HISTREAD_OPENAI_MODEL", &cfg.OpenAI.Model)
	set("HISTREAD_OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)

	set("HISTREAD_GEMINI_API_KEY", &cfg.Gemini.APIKey)
	set("HISTREAD_GEMINI_MODEL", &cfg.Gemini.Model)

	set("HISTREAD_OPENROUTER_API_KEY", &cfg.OpenRouter.APIKey)
	set("HISTREAD_OPENROUTER_MODEL", &cfg.OpenRouter.Model)

	if v, ok := lookup("HISTREAD_LLM_TIMEOUT"); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}

	return cfg
}

// DiscoverConfig probes vendor API key env vars in priority order
// (OpenAI → Anthropic → Gemini → OpenRouter) and returns a Config for the
// first provider whose key is found. Returns (Config{}, false) if none found.
func DiscoverConfig() (Config, bool) {
	return discoverFrom(os.LookupEnv)
}

func discoverFrom(lookup envLookup) (Config, bool) {
	cfg := DefaultConfig()

	if k, ok := lookup("OPENAI_API_KEY"); ok && k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k, ok := lookup("ANTHROPIC_API_KEY"); ok && k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k, ok := lookup("GEMINI_API_KEY"); ok && k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k, ok := lookup("OPENROUTER_API_KEY"); ok && k != "" {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	var key, env string
	switch c.Provider {
	case "anthropic":
		key, env = c.Anthropic.APIKey, "HISTREAD_ANTHROPIC_API_KEY"
	case "openai":
		key, env = c.OpenAI.APIKey, "HISTREAD_OPENAI_API_KEY"
	case "gemini":
		key, env = c.Gemini.APIKey, "HISTREAD_GEMINI_API_KEY"
	case "openrouter":
		key, env = c.OpenRouter.APIKey, "HISTREAD_OPENROUTER_API_KEY"
	case "mock":
		return nil
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("%s is required for the %s provider", env, c.Provider)
	}
	return nil
}
