package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	stewardgin "github.com/cashflow/steward/gin"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(load configLoader) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			log, err := initLogger(cfg.Log.Level)
			if err != nil {
				return err
			}
			if log.GetLevel() < logrus.DebugLevel {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := stewardgin.New(a.assembler, a.relay,
				stewardgin.WithLogger(log),
				stewardgin.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
			)
			return serve(ctx, &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}, log)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides AI_SERVICE_PORT)")
	return cmd
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, log logrus.FieldLogger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("starting chat service")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down chat service")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
