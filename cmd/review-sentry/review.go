package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nathantilsley/review-sentry/internal/platform/config"
	ghclient "github.com/nathantilsley/review-sentry/internal/review/adapters/gh_client"
	sourcectrl "github.com/nathantilsley/review-sentry/internal/review/adapters/source_ctrl"
	"github.com/nathantilsley/review-sentry/internal/review/app"
	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

func newReviewCommand(opts *rootOptions) *cobra.Command {
	var (
		token string
		model string
	)

	cmd := &cobra.Command{
		Use:   "review <pr-url>",
		Short: "Review one pull request now",
		Long: `Review one pull request without a webhook delivery.

Authenticates with a token (--token or GITHUB_TOKEN) and submits the review
exactly as the webhook server would, throttle included.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if token != "" {
				cfg.Token = token
			}
			if model != "" {
				cfg.Model = model
			}
			if cfg.Token == "" {
				return errors.New("github token required\nProvide via --token flag or GITHUB_TOKEN env var")
			}

			res, err := reviewOnce(cmd.Context(), opts, cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", res.Status, res.Reason)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "GitHub token (or use GITHUB_TOKEN env var)")
	cmd.Flags().StringVar(&model, "model", "", "Model override (or use REVIEW_SENTRY_MODEL env var)")
	return cmd
}

func reviewOnce(ctx context.Context, opts *rootOptions, cfg *config.Config, prURL string) (domain.PrecheckResult, error) {
	owner, repo, number, err := domain.ParsePullRequestURL(prURL)
	if err != nil {
		return domain.PrecheckResult{}, err
	}

	completer, err := newCompleter(cfg, opts.logger)
	if err != nil {
		return domain.PrecheckResult{}, err
	}
	clients := ghclient.NewTokenFactory(cfg.Token, clientOptions(cfg)...)

	client, err := clients.ForInstallation(0)
	if err != nil {
		return domain.PrecheckResult{}, err
	}
	pr, err := sourcectrl.New(client).FetchPullRequest(ctx, owner, repo, number)
	if err != nil {
		return domain.PrecheckResult{}, err
	}

	rc := domain.ReviewContext{
		DeliveryID:  fmt.Sprintf("manual-%s-%s-%d", owner, repo, number),
		Action:      "manual",
		Owner:       owner,
		Repo:        repo,
		PullRequest: pr,
		Env:         config.Environ(),
		Config:      cfg.Review(),
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ReviewTimeout)
	defer cancel()
	return app.NewService(portsFactory(clients, completer), opts.logger).Review(ctx, rc)
}
