package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nathantilsley/review-sentry/internal/platform/config"
	"github.com/nathantilsley/review-sentry/internal/platform/logging"
)

type rootOptions struct {
	envFile  string
	logLevel string
	cfg      *config.Config
	logger   *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "review-sentry",
		Short:         "Review pull requests against the issue they implement",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if cmd.Flags().Changed("log-level") {
				level = opts.logLevel
			}
			opts.cfg = cfg
			opts.logger = logging.NewLogger(os.Stderr, cfg.LogFormat, logging.ParseLevel(level))
			slog.SetDefault(opts.logger)
			if cmd.Context() == nil {
				cmd.SetContext(context.Background())
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file, ignored when missing")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCommand(opts),
		newReviewCommand(opts),
	)
	return cmd
}
