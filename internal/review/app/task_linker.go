package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

// TaskLinker resolves the single issue a pull request implements.
type TaskLinker struct {
	src    domain.SourceControl
	logger *slog.Logger
}

// NewTaskLinker creates a new task linker.
func NewTaskLinker(src domain.SourceControl, logger *slog.Logger) *TaskLinker {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskLinker{src: src, logger: logger}
}

// TaskNumber returns the issue number rc's pull request closes. Closing
// references reported by the host win; the first "#N" in the body is the
// fallback. A pull request with no task is demoted to draft before failing,
// one with several tasks fails without side effects.
func (l *TaskLinker) TaskNumber(ctx context.Context, rc domain.ReviewContext) (int, error) {
	pr := rc.PullRequest
	res, err := l.CheckIfPrClosesIssues(ctx, rc.Owner, rc.Repo, pr.Number)
	if err != nil {
		return 0, err
	}

	refs := distinctRefs(res.Issues)
	var number int
	switch len(refs) {
	case 0:
		number = domain.FirstIssueReference(pr.Body)
		if number == 0 {
			e := domain.NewError(domain.KindTaskNotLinked,
				"pull request must link an issue it closes, converted to draft", pr.Number)
			if err := l.src.ConvertToDraft(ctx, pr.NodeID); err != nil {
				e.Err = fmt.Errorf("converting to draft: %w", err)
			}
			return 0, l.fail(e)
		}
		l.logger.Info("task resolved from pull request body", "task", number)
	case 1:
		number = refs[0].Number
	default:
		return 0, l.fail(domain.NewError(domain.KindTaskAmbiguous,
			fmt.Sprintf("multiple tasks linked to pull request #%d, only one is allowed", pr.Number), refs))
	}

	if number == 0 {
		return 0, l.fail(domain.NewError(domain.KindTaskNotFound, "task number not found", refs))
	}
	return number, nil
}

// CheckIfPrClosesIssues looks up the closing references of a pull request.
// A zero prNumber is a programming error and fails before any request. A
// failed lookup does not fail the call: it is logged and reported as "closes
// nothing" with the cause kept in QueryErr.
func (l *TaskLinker) CheckIfPrClosesIssues(ctx context.Context, owner, repo string, prNumber int) (domain.ClosesIssuesResult, error) {
	if prNumber == 0 {
		return domain.ClosesIssuesResult{}, errors.New("pull request number is required")
	}

	issues, err := l.src.ClosingIssues(ctx, owner, repo, prNumber)
	if err != nil {
		l.logger.Error("querying closing issue references", "error", err)
		return domain.ClosesIssuesResult{QueryErr: err}, nil
	}
	return domain.ClosesIssuesResult{ClosesIssues: len(issues) > 0, Issues: issues}, nil
}

func distinctRefs(refs []domain.ClosingIssueRef) []domain.ClosingIssueRef {
	type key struct {
		owner, name string
		number      int
	}
	seen := make(map[key]struct{}, len(refs))
	var out []domain.ClosingIssueRef
	for _, ref := range refs {
		k := key{ref.Repository.Owner, ref.Repository.Name, ref.Number}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func (l *TaskLinker) fail(err *domain.Error) error {
	l.logger.Error(err.Msg, "kind", err.Kind.String(), "error", err.Err, "data", err.Data)
	return err
}
