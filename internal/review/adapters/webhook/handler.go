// Package webhook receives GitHub pull_request deliveries and dispatches
// reviews for them.
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/google/uuid"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

// Reviewer runs one review for a delivery.
type Reviewer interface {
	Review(ctx context.Context, rc domain.ReviewContext) (domain.PrecheckResult, error)
}

// Options configures a Handler.
type Options struct {
	Secret  string
	Config  domain.ReviewConfig
	Env     map[string]string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Handler is the http.Handler mounted at /webhook.
type Handler struct {
	reviewer Reviewer
	secret   []byte
	cfg      domain.ReviewConfig
	env      map[string]string
	timeout  time.Duration
	logger   *slog.Logger

	wg sync.WaitGroup
}

// reviewActions are the pull_request actions that trigger a review.
var reviewActions = map[string]bool{
	"opened":           true,
	"reopened":         true,
	"ready_for_review": true,
	"synchronize":      true,
}

// NewHandler creates a webhook handler.
func NewHandler(reviewer Reviewer, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	return &Handler{
		reviewer: reviewer,
		secret:   []byte(opts.Secret),
		cfg:      opts.Config,
		env:      opts.Env,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := github.ValidatePayload(r, h.secret)
	if err != nil {
		h.logger.Warn("rejected webhook", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := github.WebHookType(r)
	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Warn("unparseable webhook", "event", eventType, "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	deliveryID := github.DeliveryID(r)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	switch e := event.(type) {
	case *github.PingEvent:
		writeText(w, http.StatusOK, "pong")
	case *github.PullRequestEvent:
		if !reviewActions[e.GetAction()] {
			writeText(w, http.StatusOK, fmt.Sprintf("ignored action %q", e.GetAction()))
			return
		}
		rc, err := h.reviewContext(deliveryID, e)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.dispatch(rc)
		writeText(w, http.StatusAccepted, "review queued")
	default:
		writeText(w, http.StatusOK, fmt.Sprintf("ignored event %q", eventType))
	}
}

// Wait blocks until every dispatched review has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) dispatch(rc domain.ReviewContext) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		logger := h.logger.With("delivery", rc.DeliveryID, "repo", rc.Owner+"/"+rc.Repo, "pr", rc.PullRequest.Number)
		start := time.Now()
		res, err := h.reviewer.Review(ctx, rc)
		if err != nil {
			logger.Error("review failed", "kind", domain.KindOf(err).String(), "error", err, "duration", time.Since(start))
			return
		}
		logger.Info("review finished", "status", res.Status, "reason", res.Reason, "duration", time.Since(start))
	}()
}

func (h *Handler) reviewContext(deliveryID string, e *github.PullRequestEvent) (domain.ReviewContext, error) {
	pr := e.GetPullRequest()
	repo := e.GetRepo()
	rc := domain.ReviewContext{
		DeliveryID:     deliveryID,
		Action:         e.GetAction(),
		Owner:          repo.GetOwner().GetLogin(),
		Repo:           repo.GetName(),
		Organization:   e.GetOrganization().GetLogin(),
		InstallationID: e.GetInstallation().GetID(),
		PullRequest: domain.PullRequest{
			Number:  pr.GetNumber(),
			NodeID:  pr.GetNodeID(),
			Draft:   pr.GetDraft(),
			State:   pr.GetState(),
			Body:    pr.GetBody(),
			HTMLURL: pr.GetHTMLURL(),
			BaseRef: pr.GetBase().GetRef(),
			HeadRef: pr.GetHead().GetRef(),
			HeadSHA: pr.GetHead().GetSHA(),
		},
		Sender: domain.Actor{
			Login: e.GetSender().GetLogin(),
			Type:  e.GetSender().GetType(),
		},
		Env:    h.env,
		Config: h.cfg,
	}
	if rc.PullRequest.Number == 0 {
		rc.PullRequest.Number = e.GetNumber()
	}

	if rc.Owner == "" || rc.Repo == "" || rc.PullRequest.Number == 0 {
		return domain.ReviewContext{}, fmt.Errorf("delivery %s is missing repository or pull request number", deliveryID)
	}
	return rc, nil
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintln(w, msg)
}
