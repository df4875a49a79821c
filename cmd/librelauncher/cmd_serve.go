package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/ryanm101/librelauncher/internal/app"
	"github.com/ryanm101/librelauncher/internal/logging"
	"github.com/ryanm101/librelauncher/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var sweep time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.cfg
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("sweep") {
				sweep = cfg.Server.SweepInterval
			}

			if err := os.MkdirAll(cfg.GetDataDir(), 0o755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			lock := flock.New(filepath.Join(cfg.GetDataDir(), "librelauncher.lock"))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errors.New("another librelauncher instance is already serving this library")
			}
			defer func() { _ = lock.Unlock() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withApp(cmd, func(a *app.App) error {
				a.Start(runCtx)

				events := server.NewEventLog(0)
				go events.Consume(a.Events())

				if sweep > 0 {
					sched, err := startSweep(a, sweep)
					if err != nil {
						return err
					}
					defer func() {
						if err := sched.Shutdown(); err != nil {
							logging.Warn("failed to stop scheduler", "error", err)
						}
					}()
				}

				srv := server.New(a, events).HTTPServer(addr)
				errCh := make(chan error, 1)
				go func() {
					errCh <- srv.ListenAndServe()
				}()
				logging.Info("api listening", "addr", addr, "sweep", sweep)
				ctx.printInfo(cmd, "Serving %s on http://%s\n", cfg.GetDataDir(), addr)

				select {
				case err := <-errCh:
					if !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("serve: %w", err)
					}
					return nil
				case <-runCtx.Done():
				}

				logging.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logging.Warn("http shutdown", "error", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().DurationVar(&sweep, "sweep", 0, "Interval between background enrichment sweeps, 0 disables")
	return cmd
}

// startSweep schedules periodic enrichment of every game still missing
// metadata.
func startSweep(a *app.App, every time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			if n := a.EnrichAll(); n > 0 {
				logging.Info("enrichment sweep", "dispatched", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}
	sched.Start()
	return sched, nil
}
