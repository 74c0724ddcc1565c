package main

import (
	"fmt"

	"github.com/cashflow/steward"
	stewardviper "github.com/cashflow/steward/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "steward",
		Short:         "Streaming personal finance assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./steward.yaml)")

	load := func() (*stewardviper.Config, error) {
		cfg, err := stewardviper.Load(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}

	cmd.AddCommand(newServeCmd(load))
	cmd.AddCommand(newAskCmd(load))
	cmd.AddCommand(newChatCmd(load))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

type configLoader func() (*stewardviper.Config, error)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "steward "+version)
		},
	}
}

// initLogger builds the process logger. An unknown level is an error.
func initLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, steward.ErrValidation)
	}
	log := logrus.New()
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return log, nil
}
