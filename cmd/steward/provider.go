package main

import (
	"context"
	"fmt"

	"github.com/cashflow/steward"
	"github.com/cashflow/steward/anthropic"
	"github.com/cashflow/steward/gemini"
	"github.com/cashflow/steward/langchaingo"
	"github.com/cashflow/steward/ratelimit"
	stewardviper "github.com/cashflow/steward/viper"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// resolveProvider constructs the configured backend, wrapped with rate
// limiting and open retries.
func resolveProvider(ctx context.Context, cfg *stewardviper.Config, log logrus.FieldLogger) (steward.Provider, error) {
	var (
		inner steward.Provider
		err   error
	)
	switch cfg.LLM.Provider {
	case stewardviper.ProviderOpenAI:
		inner, err = langchaingo.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.LLM.Model)
	case stewardviper.ProviderOllama:
		inner, err = langchaingo.NewOllama(cfg.Ollama.Host, cfg.LLM.Model)
	case stewardviper.ProviderAnthropic:
		inner = anthropic.New(cfg.Anthropic.APIKey,
			anthropic.WithThinkingBudget(cfg.Anthropic.ThinkingBudget),
			anthropic.WithLogger(leveledLogger{log}))
	case stewardviper.ProviderGemini:
		inner, err = gemini.New(ctx, cfg.Gemini.APIKey,
			gemini.WithIncludeThoughts(cfg.Gemini.IncludeThoughts))
	default:
		return nil, fmt.Errorf("unknown provider %q: %w", cfg.LLM.Provider, steward.ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	return ratelimit.New(inner, ratelimit.Config{
		RequestsPerMinute: cfg.Limits.RequestsPerMinute,
		MaxRetries:        cfg.Limits.MaxRetries,
	}), nil
}

// leveledLogger adapts logrus to retryablehttp's key/value logger.
type leveledLogger struct {
	log logrus.FieldLogger
}

// Interface compliance check.
var _ retryablehttp.LeveledLogger = leveledLogger{}

func (l leveledLogger) fields(kv []interface{}) logrus.FieldLogger {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return l.log.WithFields(f)
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.fields(kv).Error(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.fields(kv).Info(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.fields(kv).Debug(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.fields(kv).Warn(msg) }
