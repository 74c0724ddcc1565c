package main

import (
	"context"
	"io"

	"github.com/cashflow/steward"
	"github.com/cashflow/steward/bubbletea"
	stewardjson "github.com/cashflow/steward/json"
	"github.com/spf13/cobra"
)

func newChatCmd(load configLoader) *cobra.Command {
	var (
		userID      int64
		sessionPath string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive chat in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log, err := initLogger(cfg.Log.Level)
			if err != nil {
				return err
			}
			// The TUI owns the terminal.
			log.SetOutput(io.Discard)

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			tr, err := loadTranscript(sessionPath, userID)
			if err != nil {
				return err
			}
			m := bubbletea.New(chatFunc(a.assembler, a.relay, userID), &tr, steward.DefaultTheme())
			if err := bubbletea.Run(cmd.Context(), m); err != nil {
				return err
			}
			if sessionPath == "" || len(tr.Turns) == 0 {
				return nil
			}
			return stewardjson.Save(sessionPath, tr)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "User ID whose records inform the answers")
	cmd.Flags().StringVar(&sessionPath, "session", "", "Transcript file to resume and update")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// chatFunc answers one TUI question through the assembler and relay.
func chatFunc(assembler *steward.Assembler, relay *steward.Relay, userID int64) bubbletea.ChatFunc {
	return func(ctx context.Context, history []steward.Turn, message string, onEvent func(steward.Event)) error {
		prompt, err := assembler.Assemble(ctx, steward.ChatRequest{
			UserID:  userID,
			Message: message,
			History: history,
		})
		if err != nil {
			return err
		}
		return relay.Run(ctx, prompt, steward.SinkFunc(func(e steward.Event) error {
			onEvent(e)
			return nil
		}))
	}
}
