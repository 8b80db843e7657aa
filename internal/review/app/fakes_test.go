package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

type createdReview struct {
	Number int
	Body   string
	Event  domain.ReviewEvent
}

// fakeSource records every side-effecting call in the order it happened.
type fakeSource struct {
	mu sync.Mutex

	events       []domain.TimelineEvent
	eventsErr    error
	closing      []domain.ClosingIssueRef
	closingErr   error
	issue        *domain.Issue
	issueErr     error
	languages    []domain.LanguageStat
	languagesErr error
	deps         map[string]string
	devDeps      map[string]string
	depsErr      error
	reviewErr    error
	draftErr     error

	calls   []string
	reviews []createdReview
	drafts  []string
	issueNo int
}

func (f *fakeSource) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSource) ListTimelineEvents(_ context.Context, _, _ string, _ int) ([]domain.TimelineEvent, error) {
	f.record("timeline")
	return f.events, f.eventsErr
}

func (f *fakeSource) CreateReview(_ context.Context, _, _ string, number int, body string, event domain.ReviewEvent) (string, error) {
	f.record("review")
	if f.reviewErr != nil {
		return "", f.reviewErr
	}
	f.reviews = append(f.reviews, createdReview{Number: number, Body: body, Event: event})
	return "https://github.com/acme/widgets/pull/7#pullrequestreview-1", nil
}

func (f *fakeSource) ClosingIssues(_ context.Context, _, _ string, _ int) ([]domain.ClosingIssueRef, error) {
	f.record("closing")
	return f.closing, f.closingErr
}

func (f *fakeSource) ConvertToDraft(_ context.Context, nodeID string) error {
	f.record("draft")
	if f.draftErr != nil {
		return f.draftErr
	}
	f.drafts = append(f.drafts, nodeID)
	return nil
}

func (f *fakeSource) FetchIssue(_ context.Context, _, _ string, number int) (*domain.Issue, error) {
	f.record("issue")
	f.issueNo = number
	return f.issue, f.issueErr
}

func (f *fakeSource) FetchRepoLanguageStats(_ context.Context, _, _ string) ([]domain.LanguageStat, error) {
	f.record("languages")
	return f.languages, f.languagesErr
}

func (f *fakeSource) FetchRepoDependencies(_ context.Context, _, _ string) (map[string]string, map[string]string, error) {
	f.record("dependencies")
	return f.deps, f.devDeps, f.depsErr
}

type fakeDiffs struct {
	diff string
	err  error
}

func (f *fakeDiffs) FetchPullDiff(_ context.Context, _, _ string, _ int) (domain.PullDiff, error) {
	return domain.PullDiff{Diff: f.diff}, f.err
}

type fakeFormatter struct{}

func (fakeFormatter) FormatSpecAndPull(_ domain.ReviewContext, issue domain.Issue, diff domain.PullDiff) string {
	return issue.Body + "\n---\n" + diff.Diff
}

type fakeCompleter struct {
	answer        string
	err           error
	truthsAnswer  string
	truthsErr     error
	completions   int
	truthRequests int
	gotTruths     []string
	gotMaxTokens  int
}

func (f *fakeCompleter) CreateCompletion(_ context.Context, _, _ string, truths []string, _ string, maxTokens int) (domain.CompletionResult, error) {
	f.completions++
	f.gotTruths = truths
	f.gotMaxTokens = maxTokens
	if f.err != nil {
		return domain.CompletionResult{}, f.err
	}
	return domain.CompletionResult{
		Answer:       f.answer,
		GroundTruths: truths,
		TokenUsage:   domain.TokenUsage{Input: 10, Output: 5, Total: 15},
	}, nil
}

func (f *fakeCompleter) CreateGroundTruthCompletion(_ context.Context, _, _, _ string) (string, error) {
	f.truthRequests++
	return f.truthsAnswer, f.truthsErr
}

func (f *fakeCompleter) GetModelMaxTokenLimit(string) int  { return 200000 }
func (f *fakeCompleter) GetModelMaxOutputLimit(string) int { return 8192 }

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testContext() domain.ReviewContext {
	return domain.ReviewContext{
		DeliveryID: "delivery-1",
		Action:     "opened",
		Owner:      "acme",
		Repo:       "widgets",
		PullRequest: domain.PullRequest{
			Number: 7,
			NodeID: "PR_kwDOA",
			State:  "open",
			Body:   "Implements the widget spec",
		},
		Sender: domain.Actor{Login: "dev", Type: "User"},
		Config: domain.DefaultReviewConfig(),
	}
}

type harness struct {
	src       *fakeSource
	completer *fakeCompleter
	reviewer  *PullReviewer
}

func newHarness(rc domain.ReviewContext, src *fakeSource, completer *fakeCompleter) harness {
	r := NewPullReviewer(rc, Ports{
		Source:    src,
		Diffs:     &fakeDiffs{diff: "diff --git a/x b/x"},
		Formatter: fakeFormatter{},
		Completer: completer,
	}, discardLogger(), WithClock(func() time.Time { return fixedNow }))
	return harness{src: src, completer: completer, reviewer: r}
}

// linkedSource is a source whose pull request closes exactly one issue.
func linkedSource() *fakeSource {
	return &fakeSource{
		closing: []domain.ClosingIssueRef{{
			Number:     3,
			Title:      "Widget spec",
			Repository: domain.IssueRepository{Owner: "acme", Name: "widgets"},
		}},
		issue:     &domain.Issue{Number: 3, Title: "Widget spec", Body: "Widgets must spin."},
		languages: []domain.LanguageStat{{Name: "Go", Bytes: 1200}},
		deps:      map[string]string{"left-pad": "1.0.0"},
		devDeps:   map[string]string{"jest": "29.0.0"},
	}
}
