package viper_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cashflow/steward"
	stewardviper "github.com/cashflow/steward/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "steward.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := stewardviper.Load(path)
	require.NoError(t, err)

	assert.Equal(t, stewardviper.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:1800", "http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "suppress", cfg.Classifier.ThinkingPolicy)
	assert.Equal(t, "marker-start", cfg.Classifier.TailMode)
	assert.Equal(t, 20, cfg.Limits.MaxHistory)
	assert.Equal(t, 2, cfg.Limits.MaxRetries)
	assert.Equal(t, "English", cfg.Prompt.Language)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: Anthropic
  model: claude-sonnet-4-20250514
anthropic:
  api_key: sk-file
  thinking_budget: 2048
database:
  path: /var/lib/steward/finance.db
classifier:
  thinking_policy: emit
limits:
  requests_per_minute: 30
`)

	cfg, err := stewardviper.Load(path)
	require.NoError(t, err)

	assert.Equal(t, stewardviper.ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.LLM.Model)
	assert.Equal(t, "sk-file", cfg.Anthropic.APIKey)
	assert.Equal(t, 2048, cfg.Anthropic.ThinkingBudget)
	assert.Equal(t, "/var/lib/steward/finance.db", cfg.Database.Path)
	assert.Equal(t, "emit", cfg.Classifier.ThinkingPolicy)
	assert.Equal(t, 30.0, cfg.Limits.RequestsPerMinute)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "openai:\n  api_key: from-file\n")
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("OPENAI_MODEL", "qwen-plus")
	t.Setenv("AI_SERVICE_PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("GEMINI_INCLUDE_THOUGHTS", "true")

	cfg, err := stewardviper.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "qwen-plus", cfg.LLM.Model)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Gemini.IncludeThoughts)
}

func TestLoad_LLMModelBeatsOpenAIModel(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("LLM_MODEL", "llama3")
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg, err := stewardviper.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.LLM.Model)
}

func TestLoad_ProviderModelDefaults(t *testing.T) {
	tests := []struct {
		provider string
		model    string
	}{
		{"ollama", "qwen3:8b"},
		{"gemini", ""},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			t.Setenv("LLM_PROVIDER", tt.provider)
			cfg, err := stewardviper.Load(writeConfig(t, ""))
			require.NoError(t, err)
			assert.Equal(t, tt.model, cfg.LLM.Model)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := stewardviper.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func validConfig() stewardviper.Config {
	return stewardviper.Config{
		LLM:        stewardviper.LLMConfig{Provider: stewardviper.ProviderOpenAI, Temperature: 0.7},
		OpenAI:     stewardviper.OpenAIConfig{APIKey: "sk"},
		Database:   stewardviper.DatabaseConfig{Path: "cashflow.db"},
		Log:        stewardviper.LogConfig{Level: "info"},
		Classifier: stewardviper.ClassifierConfig{ThinkingPolicy: "suppress", TailMode: "marker-start"},
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*stewardviper.Config)
		ok     bool
	}{
		{"valid", func(*stewardviper.Config) {}, true},
		{"unknown provider", func(c *stewardviper.Config) { c.LLM.Provider = "bard" }, false},
		{"openai without key", func(c *stewardviper.Config) { c.OpenAI.APIKey = "" }, false},
		{"ollama needs no key", func(c *stewardviper.Config) {
			c.LLM.Provider = stewardviper.ProviderOllama
			c.OpenAI.APIKey = ""
			c.Ollama.Host = "http://127.0.0.1:11434"
		}, true},
		{"anthropic without key", func(c *stewardviper.Config) { c.LLM.Provider = stewardviper.ProviderAnthropic }, false},
		{"gemini without key", func(c *stewardviper.Config) { c.LLM.Provider = stewardviper.ProviderGemini }, false},
		{"unknown policy", func(c *stewardviper.Config) { c.Classifier.ThinkingPolicy = "show" }, false},
		{"unknown tail mode", func(c *stewardviper.Config) { c.Classifier.TailMode = "greedy" }, false},
		{"bad log level", func(c *stewardviper.Config) { c.Log.Level = "loud" }, false},
		{"empty db path", func(c *stewardviper.Config) { c.Database.Path = "" }, false},
		{"negative history", func(c *stewardviper.Config) { c.Limits.MaxHistory = -1 }, false},
		{"temperature too high", func(c *stewardviper.Config) { c.LLM.Temperature = 2.5 }, false},
		{"origin without scheme", func(c *stewardviper.Config) { c.Server.AllowedOrigins = []string{"localhost:5173"} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, steward.ErrValidation)
			}
		})
	}
}

func TestConfig_ClassifierOptions(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Classifier.ThinkingPolicy = "emit"

	c := steward.NewClassifier(cfg.ClassifierOptions()...)
	segs := c.Feed(steward.Increment{Text: "<think>hm</think>ok"})
	assert.Equal(t, []steward.Segment{
		{Kind: steward.SegmentThinking, Text: "hm"},
		{Kind: steward.SegmentAnswer, Text: "ok"},
	}, segs)
}
