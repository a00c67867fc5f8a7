package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emankhadim/healthcare-etl-pipeline/internal/dashboard"
	"github.com/emankhadim/healthcare-etl-pipeline/internal/load"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the quality dashboard API over the outcome logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			// The warehouse is optional here: without DATABASE_URL the
			// dashboard still serves summaries and outcomes.
			var loader *load.Loader
			if cfg.Database.URL != "" {
				pool, err := connectPool(ctx, cfg)
				if err != nil {
					return err
				}
				defer pool.Close()
				loader = load.New(pool)
			} else {
				slog.Info("no DATABASE_URL set, warehouse endpoints disabled")
			}

			server := dashboard.NewServer(cfg.Paths.LogsDir, loader)

			// Graceful shutdown
			go func() {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				<-sigCh

				slog.Info("shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("shutdown error", "error", err)
				}
			}()

			if err := server.Start(cfg.Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}
}
