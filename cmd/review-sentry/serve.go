package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nathantilsley/review-sentry/internal/platform/config"
	ghclient "github.com/nathantilsley/review-sentry/internal/review/adapters/gh_client"
	"github.com/nathantilsley/review-sentry/internal/review/adapters/webhook"
	"github.com/nathantilsley/review-sentry/internal/review/app"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Long: `Run the GitHub App webhook server.

Endpoints:
  POST /webhook  pull_request deliveries
  GET  /healthz  health check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if err := cfg.ValidateApp(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on (overrides REVIEW_SENTRY_ADDR)")
	return cmd
}

func serve(ctx context.Context, opts *rootOptions, cfg *config.Config) error {
	logger := opts.logger

	key, err := cfg.PrivateKeyPEM()
	if err != nil {
		return err
	}
	completer, err := newCompleter(cfg, logger)
	if err != nil {
		return err
	}
	clients := ghclient.NewAppFactory(cfg.App.AppID, key, clientOptions(cfg)...)
	svc := app.NewService(portsFactory(clients, completer), logger)

	hook := webhook.NewHandler(svc, webhook.Options{
		Secret:  cfg.App.WebhookSecret,
		Config:  cfg.Review(),
		Env:     config.Environ(),
		Timeout: cfg.ReviewTimeout,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(hook),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "model", cfg.Model)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	hook.Wait()
	return nil
}

func newMux(hook http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/webhook", hook)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}
