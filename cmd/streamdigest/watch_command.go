package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"streamdigest/internal/logging"
	"streamdigest/internal/pipeline"
	"streamdigest/internal/preflight"
	"streamdigest/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		settle        time.Duration
		skipPreflight bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process job manifests dropped into the inbox directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			store, err := ctx.ensureLedger()
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if !skipPreflight {
				if failed := preflight.Failed(preflight.RunAll(signalCtx, cfg)); len(failed) > 0 {
					for _, line := range preflightLines(failed, shouldColorize(cmd.ErrOrStderr())) {
						fmt.Fprintln(cmd.ErrOrStderr(), line)
					}
					return fmt.Errorf("%d preflight check(s) failed; fix them or pass --skip-preflight", len(failed))
				}
			}

			runner := pipeline.NewFromConfig(cfg, store, logger)
			w, err := watcher.New(cfg.Paths.InboxDir, runner.ProcessManifest, logger, watcher.WithSettleDelay(settle))
			if err != nil {
				return err
			}
			defer w.Close()

			logger.Info("watching inbox", logging.String("dir", cfg.Paths.InboxDir))
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl-C to stop)\n", cfg.Paths.InboxDir)
			if err := w.Run(signalCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("watcher stopped")
			return nil
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", 2*time.Second, "Quiet period before a new manifest is processed")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start watching even when preflight checks fail")
	return cmd
}
