package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) envLookup {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestConfigFrom_Defaults(t *testing.T) {
	cfg := configFrom(mapLookup(nil))
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4-turbo", cfg.OpenAI.Model)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestConfigFrom_Overrides(t *testing.T) {
	cfg := configFrom(mapLookup(map[string]string{
		"HISTREAD_LLM_PROVIDER":      "anthropic",
		"HISTREAD_ANTHROPIC_API_KEY": "sk-ant",
		"HISTREAD_ANTHROPIC_MODEL":   "claude-sonnet",
		"HISTREAD_OPENAI_BASE_URL":   "http://localhost:8080/v1",
		"HISTREAD_LLM_TIMEOUT":       "15s",
	}))
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "sk-ant", cfg.Anthropic.APIKey)
	assert.Equal(t, "claude-sonnet", cfg.Anthropic.Model)
	assert.Equal(t, "http://localhost:8080/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestConfigFrom_BadTimeoutKeepsDefault(t *testing.T) {
	cfg := configFrom(mapLookup(map[string]string{"HISTREAD_LLM_TIMEOUT": "soon"}))
	assert.Equal(t, 60*time.Second, cfg.Timeout)
}

func TestDiscoverFrom_PriorityOrder(t *testing.T) {
	cfg, ok := discoverFrom(mapLookup(map[string]string{
		"GEMINI_API_KEY":    "g",
		"ANTHROPIC_API_KEY": "a",
	}))
	require.True(t, ok)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "a", cfg.Anthropic.APIKey)

	_, ok = discoverFrom(mapLookup(nil))
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.EqualError(t, cfg.Validate(), "HISTREAD_OPENAI_API_KEY is required for the openai provider")

	cfg.Provider = "mock"
	assert.NoError(t, cfg.Validate())

	cfg.Provider = "llama"
	assert.EqualError(t, cfg.Validate(), `unknown LLM provider: "llama"`)
}
