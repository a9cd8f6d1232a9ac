package main

import (
	"math/rand/v2"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll the configured source on a jittered interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		minSecs, maxSecs := cfg.Poll.MinSecs, cfg.Poll.MaxSecs
		if maxSecs < minSecs {
			maxSecs = minSecs
		}

		zap.L().Info("polling started",
			zap.String("source", cfg.Source.Kind),
			zap.Int("min_secs", minSecs),
			zap.Int("max_secs", maxSecs),
		)

		for {
			listings, err := env.Source.Fetch(ctx)
			if err != nil {
				// Feed hiccups are expected; keep polling.
				zap.L().Warn("fetch failed", zap.Error(err))
			} else if _, err := env.Pipeline.Run(ctx, listings); err != nil {
				zap.L().Error("pipeline run failed", zap.Error(err))
			}

			delay := time.Duration(minSecs) * time.Second
			if maxSecs > minSecs {
				delay += time.Duration(rand.IntN((maxSecs-minSecs)*1000)) * time.Millisecond
			}

			select {
			case <-ctx.Done():
				zap.L().Info("polling stopped")
				return nil
			case <-time.After(delay):
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(pollCmd)
}
