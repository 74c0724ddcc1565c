package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/cashflow/steward"
	stewardgorm "github.com/cashflow/steward/gorm"
	"github.com/cashflow/steward/sprig"
	stewardviper "github.com/cashflow/steward/viper"
	"github.com/sirupsen/logrus"
)

// app holds the per-process components shared by the serve, ask and chat commands.
type app struct {
	assembler *steward.Assembler
	relay     *steward.Relay
	closers   []func() error
}

func newApp(ctx context.Context, cfg *stewardviper.Config, log logrus.FieldLogger) (*app, error) {
	store, err := stewardgorm.Open(cfg.Database.Path, stewardgorm.WithReadOnly())
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	a := &app{closers: []func() error{store.Close}}

	renderer, err := sprig.Load(cfg.Prompt.Template, sprig.WithLanguage(cfg.Prompt.Language))
	if err != nil {
		a.Close()
		return nil, err
	}
	provider, err := resolveProvider(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.assembler = steward.NewAssembler(store, renderer,
		steward.WithMaxHistory(cfg.Limits.MaxHistory),
		steward.WithModel(cfg.LLM.Model),
		steward.WithTemperature(cfg.LLM.Temperature),
		steward.WithMaxTokens(cfg.LLM.MaxTokens),
		steward.WithAssemblerLogger(log),
	)
	a.relay = steward.NewRelay(provider,
		steward.WithClassifierOptions(cfg.ClassifierOptions()...),
		steward.WithLogger(log),
	)
	return a, nil
}

// Close releases everything newApp opened.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
