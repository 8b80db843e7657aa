// Package main provides a CLI tool that sends a signed pull_request webhook to
// a running review-sentry server, for testing.
package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/google/go-github/v68/github"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

type cliConfig struct {
	token      string
	webhookURL string
	secret     string
	action     string
	installID  int64
}

func newCommand() *cobra.Command {
	cfg := cliConfig{}

	cmd := &cobra.Command{
		Use:           "review-trigger-cli <pr-url>",
		Short:         "Send a signed pull_request webhook for a pull request",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.resolve(); err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
		},
	}

	cmd.Flags().StringVar(&cfg.token, "token", "", "GitHub personal access token (or use GITHUB_TOKEN env var)")
	cmd.Flags().StringVar(&cfg.webhookURL, "url", "http://localhost:8080/webhook", "Webhook URL")
	cmd.Flags().StringVar(&cfg.secret, "secret", "", "Webhook secret for signing (or use GITHUB_WEBHOOK_SECRET env var)")
	cmd.Flags().StringVar(&cfg.action, "action", "opened", "pull_request action to send")
	cmd.Flags().Int64Var(&cfg.installID, "installation-id", 0, "GitHub App installation ID (or use GITHUB_INSTALLATION_ID env var)")
	return cmd
}

func (c *cliConfig) resolve() error {
	c.token = getEnvOrFlag(c.token, "GITHUB_TOKEN")
	c.secret = getEnvOrFlag(c.secret, "GITHUB_WEBHOOK_SECRET")

	if c.token == "" {
		return errors.New("github token required\nProvide via --token flag or GITHUB_TOKEN env var")
	}
	if c.secret == "" {
		return errors.New("webhook secret required\nProvide via --secret flag or GITHUB_WEBHOOK_SECRET env var")
	}

	if c.installID == 0 {
		if idStr := os.Getenv("GITHUB_INSTALLATION_ID"); idStr != "" {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid GITHUB_INSTALLATION_ID: %w", err)
			}
			c.installID = id
		}
	}
	if c.installID == 0 {
		return errors.New("github App installation ID required\nProvide via --installation-id flag or GITHUB_INSTALLATION_ID env var")
	}
	return nil
}

func getEnvOrFlag(flagValue, envKey string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envKey)
}

func run(ctx context.Context, out io.Writer, cfg cliConfig, prURL string) error {
	owner, repo, number, err := domain.ParsePullRequestURL(prURL)
	if err != nil {
		return fmt.Errorf("parsing PR URL: %w", err)
	}

	client := github.NewClient(nil).WithAuthToken(cfg.token)
	fmt.Fprintln(out, "Fetching PR details from GitHub...")
	pr, _, err := client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("fetching PR: %w", err)
	}

	payload, err := buildWebhookPayload(pr, cfg.action, owner, repo, number, cfg.installID)
	if err != nil {
		return err
	}
	return sendWebhook(ctx, out, cfg.webhookURL, cfg.secret, payload, pr)
}

func buildWebhookPayload(pr *github.PullRequest, action, owner, repo string, number int, installID int64) ([]byte, error) {
	payload := map[string]any{
		"action": action,
		"number": number,
		"pull_request": map[string]any{
			"number":   number,
			"node_id":  pr.GetNodeID(),
			"draft":    pr.GetDraft(),
			"state":    pr.GetState(),
			"body":     pr.GetBody(),
			"html_url": pr.GetHTMLURL(),
			"base":     map[string]any{"ref": pr.GetBase().GetRef()},
			"head": map[string]any{
				"ref": pr.GetHead().GetRef(),
				"sha": pr.GetHead().GetSHA(),
			},
		},
		"repository":   map[string]any{"name": repo, "owner": map[string]any{"login": owner}},
		"installation": map[string]any{"id": installID},
		"sender": map[string]any{
			"login": pr.GetUser().GetLogin(),
			"type":  pr.GetUser().GetType(),
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	return data, nil
}

func sendWebhook(ctx context.Context, out io.Writer, webhookURL, secret string, payload []byte, pr *github.PullRequest) error {
	fmt.Fprintf(out, "\nSending webhook to %s...\n", webhookURL)
	fmt.Fprintf(out, "  PR: %s\n", pr.GetHTMLURL())
	fmt.Fprintf(out, "  Draft: %t, State: %s\n", pr.GetDraft(), pr.GetState())
	fmt.Fprintf(out, "  Head: %s (%s) -> %s\n\n", pr.GetHead().GetRef(), pr.GetHead().GetSHA(), pr.GetBase().GetRef())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature-256", "sha256="+signPayload(payload, secret))
	req.Header.Set("X-GitHub-Delivery", uuid.NewString())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	//nolint:errcheck // Best effort read for logging only
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted {
		fmt.Fprintf(out, "✓ Webhook accepted (status %d)\n", resp.StatusCode)
		if len(body) > 0 {
			fmt.Fprintf(out, "Response: %s\n", string(body))
		}
		return nil
	}

	fmt.Fprintf(out, "✗ Webhook failed (status %d)\n", resp.StatusCode)
	if len(body) > 0 {
		fmt.Fprintf(out, "Response: %s\n", string(body))
	}
	return fmt.Errorf("webhook returned status %d", resp.StatusCode)
}

// signPayload creates the HMAC SHA256 signature GitHub sends in X-Hub-Signature-256.
func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
