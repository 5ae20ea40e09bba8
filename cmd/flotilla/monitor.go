package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flotilla-sh/flotilla/pkg/api"
	"github.com/flotilla-sh/flotilla/pkg/log"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single reconciliation sweep and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		if err := app.manager.UpdateNodeResources(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("✓ Sweep complete")
		return nil
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the fleet monitor daemon",
	Long: `Run the fleet monitor: a reconciliation sweep on every interval plus
an HTTP endpoint serving /healthz, /readyz and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		logger := log.WithComponent("monitor")

		health := api.NewHealthServer(app.store, app.docker)
		errCh := make(chan error, 1)
		go func() {
			if err := health.Start(cfg.HealthAddr); err != nil {
				errCh <- fmt.Errorf("health server error: %w", err)
			}
		}()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		ticker := time.NewTicker(cfg.Sweep.Interval)
		defer ticker.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		logger.Info().
			Dur("interval", cfg.Sweep.Interval).
			Str("health_addr", cfg.HealthAddr).
			Msg("fleet monitor started")

		// Sweep once at startup, then on every tick
		if err := app.manager.UpdateNodeResources(ctx); err != nil {
			logger.Error().Err(err).Msg("sweep failed")
		}

		for {
			select {
			case <-ticker.C:
				if err := app.manager.UpdateNodeResources(ctx); err != nil {
					logger.Error().Err(err).Msg("sweep failed")
				}
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("shutting down")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				return health.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			}
		}
	},
}
