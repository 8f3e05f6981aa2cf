package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourbook/pkg/config"
	"tourbook/pkg/database"
	"tourbook/pkg/sweeper"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tourbook",
		Short:         "Tour guide booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(serveCmd(), migrateCmd(), sweepCmd())
	return cmd
}

func newLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the booking sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := newLogger(cfg)
			if !cfg.BackendConfigured() {
				logger.Warn("Auth service settings missing, API routes will answer with a configuration error")
			}

			db, err := database.Open(cfg, logger)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			limiter, err := newLimiter(cfg, logger)
			if err != nil {
				return err
			}
			router := newRouter(cfg, db, newIdentities(cfg), limiter, logger)

			sched, err := sweeper.New(db, logger).Start(cfg.SweepSchedule)
			if err != nil {
				return fmt.Errorf("schedule sweeper: %w", err)
			}
			defer sched.Stop()

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Tourbook API starting", slog.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := newLogger(cfg)
			db, err := database.Open(cfg, logger)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("Migration complete")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Move elapsed accepted bookings to past once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := newLogger(cfg)
			db, err := database.Open(cfg, logger)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			n, err := sweeper.New(db, logger).SweepPast(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			logger.Info("Sweep complete", slog.Int("moved", n))
			return nil
		},
	}
}
