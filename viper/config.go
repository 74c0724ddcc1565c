// Package viper loads service configuration from defaults, an optional YAML
// file, and environment variables using spf13/viper.
package viper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cashflow/steward"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Provider names accepted by llm.provider.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Limits     LimitsConfig     `mapstructure:"limits"`
	Prompt     PromptConfig     `mapstructure:"prompt"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Host string `mapstructure:"host"`
}

type AnthropicConfig struct {
	APIKey         string `mapstructure:"api_key"`
	ThinkingBudget int    `mapstructure:"thinking_budget"`
}

type GeminiConfig struct {
	APIKey          string `mapstructure:"api_key"`
	IncludeThoughts bool   `mapstructure:"include_thoughts"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ClassifierConfig struct {
	ThinkingPolicy string `mapstructure:"thinking_policy"`
	TailMode       string `mapstructure:"tail_mode"`
}

type LimitsConfig struct {
	MaxHistory        int     `mapstructure:"max_history"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxRetries        int     `mapstructure:"max_retries"`
}

type PromptConfig struct {
	Template string `mapstructure:"template"`
	Language string `mapstructure:"language"`
}

// defaultModels names the model used when llm.model is unset. Providers
// missing here fall back to their client's own default.
var defaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o-mini",
	ProviderOllama: "qwen3:8b",
}

// envBindings maps config keys to the environment variables that override
// them, in precedence order.
var envBindings = map[string][]string{
	"llm.provider":               {"LLM_PROVIDER"},
	"llm.model":                  {"LLM_MODEL", "OPENAI_MODEL"},
	"llm.temperature":            {"LLM_TEMPERATURE"},
	"llm.max_tokens":             {"LLM_MAX_TOKENS"},
	"openai.api_key":             {"OPENAI_API_KEY"},
	"openai.base_url":            {"OPENAI_BASE_URL"},
	"ollama.host":                {"OLLAMA_HOST"},
	"anthropic.api_key":          {"ANTHROPIC_API_KEY"},
	"anthropic.thinking_budget":  {"ANTHROPIC_THINKING_BUDGET"},
	"gemini.api_key":             {"GEMINI_API_KEY"},
	"gemini.include_thoughts":    {"GEMINI_INCLUDE_THOUGHTS"},
	"database.path":              {"DB_PATH"},
	"server.port":                {"AI_SERVICE_PORT"},
	"server.allowed_origins":     {"ALLOWED_ORIGINS"},
	"log.level":                  {"LOG_LEVEL"},
	"classifier.thinking_policy": {"THINKING_POLICY"},
	"classifier.tail_mode":       {"TAIL_MODE"},
	"limits.max_history":         {"MAX_HISTORY"},
	"limits.requests_per_minute": {"REQUESTS_PER_MINUTE"},
	"limits.max_retries":         {"MAX_RETRIES"},
	"prompt.template":            {"PROMPT_TEMPLATE"},
	"prompt.language":            {"ANSWER_LANGUAGE"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.temperature", steward.DefaultTemperature)
	v.SetDefault("llm.max_tokens", steward.DefaultMaxTokens)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ollama.host", "http://127.0.0.1:11434")
	v.SetDefault("anthropic.thinking_budget", 0)
	v.SetDefault("gemini.include_thoughts", false)
	v.SetDefault("database.path", "cashflow.db")
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:1800", "http://localhost:5173"})
	v.SetDefault("log.level", "info")
	v.SetDefault("classifier.thinking_policy", "suppress")
	v.SetDefault("classifier.tail_mode", "marker-start")
	v.SetDefault("limits.max_history", steward.DefaultMaxHistory)
	v.SetDefault("limits.requests_per_minute", 0)
	v.SetDefault("limits.max_retries", 2)
	v.SetDefault("prompt.template", "")
	v.SetDefault("prompt.language", "English")
}

// Load reads configuration. When path is empty, steward.yaml is looked up
// in the working directory and in ~/.config/steward; a missing file is not
// an error. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("steward")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "steward"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitOrigins(cfg.Server.AllowedOrigins)
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModels[cfg.LLM.Provider]
	}

	return &cfg, nil
}

// splitOrigins flattens comma-separated entries, as ALLOWED_ORIGINS arrives
// as a single string.
func splitOrigins(in []string) []string {
	var out []string
	for _, s := range in {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

// Validate reports the first setting that would prevent startup. Failures
// wrap steward.ErrValidation.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required: %w", steward.ErrValidation)
		}
	case ProviderOllama:
		if c.Ollama.Host == "" {
			return fmt.Errorf("ollama.host is required: %w", steward.ErrValidation)
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("anthropic.api_key is required: %w", steward.ErrValidation)
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("gemini.api_key is required: %w", steward.ErrValidation)
		}
	default:
		return fmt.Errorf("unknown llm.provider %q: %w", c.LLM.Provider, steward.ErrValidation)
	}
	if _, err := steward.ParseThinkingPolicy(c.Classifier.ThinkingPolicy); err != nil {
		return err
	}
	if _, err := steward.ParseTailMode(c.Classifier.TailMode); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %v: %w", err, steward.ErrValidation)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required: %w", steward.ErrValidation)
	}
	if c.Limits.MaxHistory < 0 {
		return fmt.Errorf("limits.max_history must be non-negative: %w", steward.ErrValidation)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be in [0, 2]: %w", steward.ErrValidation)
	}
	for _, o := range c.Server.AllowedOrigins {
		if !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("server.allowed_origins: %q needs an http:// or https:// scheme: %w", o, steward.ErrValidation)
		}
	}
	return nil
}

// ClassifierOptions converts the classifier settings. Call after Validate.
func (c *Config) ClassifierOptions() []steward.ClassifierOption {
	policy, _ := steward.ParseThinkingPolicy(c.Classifier.ThinkingPolicy)
	tail, _ := steward.ParseTailMode(c.Classifier.TailMode)
	return []steward.ClassifierOption{
		steward.WithThinkingPolicy(policy),
		steward.WithTailMode(tail),
	}
}
