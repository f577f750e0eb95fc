package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-reminders/internal/auth"
	"github.com/ukydev/fleet-reminders/internal/middleware"
	"github.com/ukydev/fleet-reminders/internal/reminders"
	"github.com/ukydev/fleet-reminders/internal/scheduler"
	"github.com/ukydev/fleet-reminders/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	var noSchedule bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run generation on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("failed to ensure indexes: %w", err)
			}

			if !noSchedule && c.cfg.GenerationSchedule != "" {
				sched, err := scheduler.New(c.cfg.GenerationSchedule, a.job, c.logger)
				if err != nil {
					return err
				}
				sched.Start()
				defer func() {
					stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					if err := sched.Stop(stopCtx); err != nil {
						c.logger.WithError(err).Warn("Scheduler did not stop cleanly")
					}
				}()
			}

			limiter := middleware.NewRateLimiter(c.cfg.RateLimitRPS, c.cfg.RateLimitBurst)
			go pruneLimiter(ctx, limiter)

			srv := server.New(c.cfg.Addr(), server.Deps{
				Auth:        auth.NewService(c.cfg.JWTSecret, c.cfg.JWTExpiry, c.cfg.CronSecretHash),
				Executor:    a.job,
				Reminders:   a.store.Reminders,
				DB:          a.store,
				Gatherer:    a.registry,
				RateLimiter: limiter,
				Logger:      c.logger,
				RunTimeout:  c.cfg.RunTimeout,
			})
			c.logger.WithField("addr", c.cfg.Addr()).Info("HTTP server listening")
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			c.logger.Info("Server exited properly")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "serve the API without the in-process scheduler")
	return cmd
}

func pruneLimiter(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune()
		}
	}
}

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one generation pass and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			return runOnce(ctx, a.store, a.job, cmd.OutOrStdout())
		},
	}
}

type indexEnsurer interface {
	EnsureIndexes(ctx context.Context) error
}

type passExecutor interface {
	Execute(ctx context.Context, source string) (*reminders.RunResult, error)
}

// runOnce runs a single pass and writes its summary as JSON. Separate run
// processes only share the database, so the outstanding index must exist
// before the pass starts.
func runOnce(ctx context.Context, store indexEnsurer, job passExecutor, out io.Writer) error {
	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}

	result, err := job.Execute(ctx, scheduler.SourceCLI)
	if err != nil {
		return err
	}
	// Reminders are announced over MQTT; the summary stays small.
	result.Reminders = nil

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the MongoDB indexes the engine relies on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := a.store.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("failed to ensure indexes: %w", err)
			}
			c.logger.WithField("database", c.cfg.MongoDB).Info("Indexes are up to date")
			return nil
		},
	}
}
