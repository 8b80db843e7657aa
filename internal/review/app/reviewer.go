// Package app wires the review pipeline: precheck, task linking, grounding,
// completion and the side effects on the pull request.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

// Ports bundles the collaborators a PullReviewer calls out to.
type Ports struct {
	Source    domain.SourceControl
	Diffs     domain.DiffSource
	Formatter domain.Formatter
	Completer domain.Completer
}

// PullReviewer runs one review attempt for one pull request.
type PullReviewer struct {
	rc     domain.ReviewContext
	ports  Ports
	linker *TaskLinker
	logger *slog.Logger
	now    func() time.Time
}

// Option customises a PullReviewer.
type Option func(*PullReviewer)

// WithClock overrides the time source used by the throttle.
func WithClock(now func() time.Time) Option {
	return func(r *PullReviewer) { r.now = now }
}

// NewPullReviewer creates a reviewer bound to rc.
func NewPullReviewer(rc domain.ReviewContext, ports Ports, logger *slog.Logger, opts ...Option) *PullReviewer {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		"delivery", rc.DeliveryID,
		"owner", rc.Owner,
		"repo", rc.Repo,
		"pr", rc.PullRequest.Number,
	)
	r := &PullReviewer{
		rc:     rc,
		ports:  ports,
		linker: NewTaskLinker(ports.Source, logger),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Precheck runs the cheap checks and, when they pass, the full review.
// Draft, closed and throttled pull requests are successful no-ops.
func (r *PullReviewer) Precheck(ctx context.Context) (domain.PrecheckResult, error) {
	pr := r.rc.PullRequest

	if pr.Draft {
		r.logger.Info("skipping review", "reason", "draft")
		return domain.Skip("Pull request is in draft mode, no action needed"), nil
	}
	if pr.Closed() {
		r.logger.Info("skipping review", "reason", "closed")
		return domain.Skip("Pull request is closed, no action needed"), nil
	}
	if _, err := r.CanPerformReview(ctx); err != nil {
		if domain.IsKind(err, domain.KindThrottled) {
			return domain.Skip(err.Error()), nil
		}
		return domain.PrecheckResult{}, err
	}

	result, err := r.ReviewPull(ctx)
	if err != nil {
		return domain.PrecheckResult{}, err
	}
	r.logger.Info("completion finished",
		"input_tokens", result.TokenUsage.Input,
		"output_tokens", result.TokenUsage.Output,
		"total_tokens", result.TokenUsage.Total,
	)

	verdict, err := r.ParsePullReviewData(result.Answer)
	if err != nil {
		return domain.PrecheckResult{}, err
	}

	decision := domain.Decide(verdict, r.rc.Config.LowConfidence)
	if decision.ConvertToDraft {
		if err := r.ports.Source.ConvertToDraft(ctx, pr.NodeID); err != nil {
			return domain.PrecheckResult{}, r.fail(domain.WrapError(domain.KindUpstream, "converting pull request to draft", err))
		}
		r.logger.Info("converted pull request to draft", "confidence", verdict.ConfidenceThreshold)
	}

	if err := r.SubmitCodeReview(ctx, verdict.ReviewComment, decision.Event); err != nil {
		return domain.PrecheckResult{}, err
	}
	return domain.Done(), nil
}

// ReviewPull gathers the task, diff and ground truths and asks the model for
// a verdict. The raw completion is returned unparsed.
func (r *PullReviewer) ReviewPull(ctx context.Context) (domain.CompletionResult, error) {
	taskNumber, err := r.linker.TaskNumber(ctx, r.rc)
	if err != nil {
		return domain.CompletionResult{}, err
	}

	issue, err := r.ports.Source.FetchIssue(ctx, r.rc.Owner, r.rc.Repo, taskNumber)
	if err != nil {
		return domain.CompletionResult{}, r.fail(domain.WrapError(domain.KindUpstream, "fetching issue #"+strconv.Itoa(taskNumber), err))
	}
	if issue == nil {
		return domain.CompletionResult{}, r.fail(domain.NewError(domain.KindIssueNotFound,
			fmt.Sprintf("issue #%d not found, the review cannot proceed without a specification", taskNumber), taskNumber))
	}

	diff, err := r.ports.Diffs.FetchPullDiff(ctx, r.rc.Owner, r.rc.Repo, r.rc.PullRequest.Number)
	if err != nil {
		return domain.CompletionResult{}, r.fail(domain.WrapError(domain.KindUpstream, "fetching pull request diff", err))
	}
	formatted := r.ports.Formatter.FormatSpecAndPull(r.rc, *issue, diff)

	signals, err := r.fetchSignals(ctx)
	if err != nil {
		return domain.CompletionResult{}, r.fail(domain.WrapError(domain.KindUpstream, "fetching repository signals", err))
	}

	truths, err := r.selectGroundTruths(ctx, *issue, signals)
	if err != nil {
		return domain.CompletionResult{}, err
	}

	model := r.rc.Config.Model
	result, err := r.ports.Completer.CreateCompletion(ctx, model, formatted, truths, r.rc.Config.AppName,
		r.ports.Completer.GetModelMaxTokenLimit(model))
	if err != nil {
		return domain.CompletionResult{}, r.fail(domain.WrapError(domain.KindCompletion, "creating completion", err))
	}
	return result, nil
}

// fetchSignals loads languages and dependency manifests concurrently.
func (r *PullReviewer) fetchSignals(ctx context.Context) (domain.RepoSignals, error) {
	var signals domain.RepoSignals
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		langs, err := r.ports.Source.FetchRepoLanguageStats(gctx, r.rc.Owner, r.rc.Repo)
		if err != nil {
			return fmt.Errorf("languages: %w", err)
		}
		signals.Languages = langs
		return nil
	})
	g.Go(func() error {
		deps, devDeps, err := r.ports.Source.FetchRepoDependencies(gctx, r.rc.Owner, r.rc.Repo)
		if domain.IsNotFound(err) {
			r.logger.Debug("no dependency manifest", "error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("dependencies: %w", err)
		}
		signals.Dependencies = deps
		signals.DevDependencies = devDeps
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.RepoSignals{}, err
	}
	return signals, nil
}

// SubmitCodeReview posts the review. Failures are fatal.
func (r *PullReviewer) SubmitCodeReview(ctx context.Context, comment string, event domain.ReviewEvent) error {
	url, err := r.ports.Source.CreateReview(ctx, r.rc.Owner, r.rc.Repo, r.rc.PullRequest.Number, comment, event)
	if err != nil {
		e := domain.WrapError(domain.KindSubmitFailed, "submitting code review", err)
		e.Data = event
		return r.fail(e)
	}
	r.logger.Info("review submitted", "event", string(event), "url", url)
	return nil
}

// fail logs a fatal error with its data and hands it back for returning.
func (r *PullReviewer) fail(err *domain.Error) error {
	r.logger.Error(err.Msg, "kind", err.Kind.String(), "error", err.Err, "data", err.Data)
	return err
}
