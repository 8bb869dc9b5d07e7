package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run due scoring tasks until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "worker")
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("task worker started",
			zap.Int("workers", cfg.Tasks.Workers),
			zap.Duration("poll_interval", cfg.Tasks.PollInterval()),
		)
		if err := env.Runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		zap.L().Info("task worker stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
