package domain

import "context"

// SourceControl is the host platform API the review pipeline talks to.
type SourceControl interface {
	ListTimelineEvents(ctx context.Context, owner, repo string, number int) ([]TimelineEvent, error)
	// CreateReview submits a review and returns its URL.
	CreateReview(ctx context.Context, owner, repo string, number int, body string, event ReviewEvent) (string, error)
	ClosingIssues(ctx context.Context, owner, repo string, number int) ([]ClosingIssueRef, error)
	ConvertToDraft(ctx context.Context, nodeID string) error
	// FetchIssue returns nil, nil when the issue does not exist.
	FetchIssue(ctx context.Context, owner, repo string, number int) (*Issue, error)
	FetchRepoLanguageStats(ctx context.Context, owner, repo string) ([]LanguageStat, error)
	FetchRepoDependencies(ctx context.Context, owner, repo string) (deps, devDeps map[string]string, err error)
}

// DiffSource fetches the diff of a pull request.
type DiffSource interface {
	FetchPullDiff(ctx context.Context, owner, repo string, number int) (PullDiff, error)
}

// Formatter renders the task specification and pull request diff for the model.
type Formatter interface {
	FormatSpecAndPull(rc ReviewContext, issue Issue, diff PullDiff) string
}

// Completer is the language-model client.
type Completer interface {
	CreateCompletion(ctx context.Context, model, formatted string, groundTruths []string, appName string, maxTokens int) (CompletionResult, error)
	CreateGroundTruthCompletion(ctx context.Context, model, specification, appName string) (string, error)
	GetModelMaxTokenLimit(model string) int
	GetModelMaxOutputLimit(model string) int
}
