package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/cashflow/steward"
	"github.com/cashflow/steward/goldmark"
	stewardjson "github.com/cashflow/steward/json"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type askOptions struct {
	userID      int64
	sessionPath string
	raw         bool
	width       int
}

func newAskCmd(load configLoader) *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log, err := initLogger(cfg.Log.Level)
			if err != nil {
				return err
			}
			// Keep the terminal for the answer.
			log.SetOutput(io.Discard)
			if log.IsLevelEnabled(logrus.DebugLevel) {
				log.SetOutput(cmd.ErrOrStderr())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			return ask(ctx, a.assembler, a.relay, strings.Join(args, " "), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().Int64Var(&opts.userID, "user", 0, "User ID whose records inform the answer")
	cmd.Flags().StringVar(&opts.sessionPath, "session", "", "Transcript file for conversation history")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Stream plain answer text without markdown rendering")
	cmd.Flags().IntVar(&opts.width, "width", 80, "Wrap width for rendered answers")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// ask answers one question. Thinking and error events go to errOut as they
// arrive; the answer goes to out, streamed when raw and rendered once
// complete otherwise. The exchange is appended to the transcript only when
// the answer finished.
func ask(ctx context.Context, assembler *steward.Assembler, relay *steward.Relay, question string, opts askOptions, out, errOut io.Writer) error {
	tr, err := loadTranscript(opts.sessionPath, opts.userID)
	if err != nil {
		return err
	}

	prompt, err := assembler.Assemble(ctx, steward.ChatRequest{
		UserID:  opts.userID,
		Message: question,
		History: tr.Turns,
	})
	if err != nil {
		return err
	}

	theme := steward.DefaultTheme()
	thinking := lipgloss.NewStyle().Foreground(lipgloss.Color(strconv.Itoa(theme.Thinking))).Italic(true)
	failure := lipgloss.NewStyle().Foreground(lipgloss.Color(strconv.Itoa(theme.Error)))

	var answer strings.Builder
	sink := steward.SinkFunc(func(e steward.Event) error {
		switch v := e.(type) {
		case steward.EventAnswer:
			answer.WriteString(v.Text)
			if opts.raw {
				_, err := io.WriteString(out, v.Text)
				return err
			}
		case steward.EventThinking:
			_, err := io.WriteString(errOut, thinking.Render(v.Text))
			return err
		case steward.EventError:
			_, err := fmt.Fprintln(errOut, failure.Render(v.Message))
			return err
		}
		return nil
	})

	if err := relay.Run(ctx, prompt, sink); err != nil {
		return err
	}
	if opts.raw {
		fmt.Fprintln(out)
	} else {
		fmt.Fprintln(out, goldmark.Render(answer.String(), opts.width, theme))
	}

	if opts.sessionPath == "" {
		return nil
	}
	tr.Append(steward.RoleUser, question)
	tr.Append(steward.RoleAssistant, answer.String())
	if err := stewardjson.Save(opts.sessionPath, tr); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// loadTranscript reads the transcript at path, or starts a new one when
// path is empty or the file does not exist yet.
func loadTranscript(path string, userID int64) (steward.Transcript, error) {
	if path != "" {
		tr, err := stewardjson.Load(path)
		switch {
		case err == nil:
			if tr.UserID != userID {
				return steward.Transcript{}, fmt.Errorf("session %s belongs to user %d: %w", path, tr.UserID, steward.ErrValidation)
			}
			return tr, nil
		case !errors.Is(err, fs.ErrNotExist):
			return steward.Transcript{}, fmt.Errorf("load session: %w", err)
		}
	}
	now := time.Now()
	return steward.Transcript{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
