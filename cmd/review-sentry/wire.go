package main

import (
	"fmt"
	"log/slog"

	"github.com/nathantilsley/review-sentry/internal/platform/config"
	"github.com/nathantilsley/review-sentry/internal/review/adapters/completion"
	ghclient "github.com/nathantilsley/review-sentry/internal/review/adapters/gh_client"
	linediff "github.com/nathantilsley/review-sentry/internal/review/adapters/line_diff"
	prdiff "github.com/nathantilsley/review-sentry/internal/review/adapters/pr_diff"
	sourcectrl "github.com/nathantilsley/review-sentry/internal/review/adapters/source_ctrl"
	specformat "github.com/nathantilsley/review-sentry/internal/review/adapters/spec_format"
	"github.com/nathantilsley/review-sentry/internal/review/app"
	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

func newCompleter(cfg *config.Config, logger *slog.Logger) (*completion.Client, error) {
	limits := completion.DefaultLimits()
	if cfg.ModelsFile != "" {
		overrides, err := completion.LoadLimits(cfg.ModelsFile)
		if err != nil {
			return nil, err
		}
		limits = limits.Merge(overrides)
	}
	factory := completion.ProviderFactory(cfg.AnthropicAPIKey, cfg.GeminiAPIKey)
	return completion.New(factory, limits, logger), nil
}

func portsFactory(clients *ghclient.Factory, completer domain.Completer) app.PortsFactory {
	formatter := specformat.New()
	lines := linediff.New()
	return func(installationID int64) (app.Ports, error) {
		client, err := clients.ForInstallation(installationID)
		if err != nil {
			return app.Ports{}, fmt.Errorf("github client: %w", err)
		}
		return app.Ports{
			Source:    sourcectrl.New(client),
			Diffs:     prdiff.New(client, lines),
			Formatter: formatter,
			Completer: completer,
		}, nil
	}
}

func clientOptions(cfg *config.Config) []ghclient.Option {
	if cfg.APIURL == "" {
		return nil
	}
	return []ghclient.Option{ghclient.WithEnterpriseURL(cfg.APIURL)}
}
