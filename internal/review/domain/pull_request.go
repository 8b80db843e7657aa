package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// PullRequest is the snapshot of a pull request taken from the webhook payload.
type PullRequest struct {
	Number  int
	NodeID  string
	Draft   bool
	State   string
	Body    string
	HTMLURL string
	BaseRef string
	HeadRef string
	HeadSHA string
}

// Closed reports whether the pull request is no longer open.
func (p PullRequest) Closed() bool {
	return p.State == "closed"
}

var pullURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)(?:/.*)?$`)

// ParsePullRequestURL extracts owner, repo and number from a pull request URL.
// Trailing paths such as /files or /changes are accepted.
func ParsePullRequestURL(url string) (owner, repo string, number int, err error) {
	m := pullURLPattern.FindStringSubmatch(url)
	if len(m) != 4 {
		return "", "", 0, fmt.Errorf("invalid pull request URL, expected https://github.com/owner/repo/pull/123, got: %s", url)
	}
	number, err = strconv.Atoi(m[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid pull request number: %w", err)
	}
	return m[1], m[2], number, nil
}

// Actor identifies who triggered an event.
type Actor struct {
	Login string
	Type  string // "User", "Bot" or "Organization"
}

// ReviewConfig holds the knobs for a single review run.
type ReviewConfig struct {
	Model           string
	AppName         string
	LowConfidence   float64       // verdicts below this request changes
	ThrottleWindow  time.Duration // minimum gap between two bot reviews
	MinGroundTruths int           // repository facts needed to skip task-derived truths
}

// DefaultReviewConfig returns the settings used when nothing is configured.
func DefaultReviewConfig() ReviewConfig {
	return ReviewConfig{
		Model:           "claude-sonnet-4-5-20250929",
		AppName:         "review-sentry",
		LowConfidence:   0.5,
		ThrottleWindow:  24 * time.Hour,
		MinGroundTruths: 3,
	}
}

// ReviewContext is the immutable per-delivery bundle a review runs against.
// It is built once by the dispatch layer and never mutated afterwards.
type ReviewContext struct {
	DeliveryID     string
	Action         string
	Owner          string
	Repo           string
	Organization   string
	InstallationID int64
	PullRequest    PullRequest
	Sender         Actor
	Env            map[string]string
	Config         ReviewConfig
}

// TimelineEvent is one entry of an issue or pull request timeline.
type TimelineEvent struct {
	Event      string
	ActorLogin string
	ActorType  string
	CreatedAt  time.Time
}

// Issue is the task a pull request implements.
type Issue struct {
	Number int
	Title  string
	Body   string
	URL    string
	State  string
}

// IssueRepository names the repository a closing issue lives in.
type IssueRepository struct {
	Name  string
	Owner string
}

// ClosingIssueRef is an issue the host platform links to a pull request through
// a closing keyword.
type ClosingIssueRef struct {
	Number     int
	Title      string
	URL        string
	Body       string
	Repository IssueRepository
}

// ClosesIssuesResult is the outcome of looking up closing references.
// QueryErr is set when the lookup failed and was collapsed into an empty result.
type ClosesIssuesResult struct {
	ClosesIssues bool
	Issues       []ClosingIssueRef
	QueryErr     error
}

// PullDiff is the unified diff of a pull request.
type PullDiff struct {
	Diff string
}
