// Package sourcectrl implements the review pipeline's view of GitHub on top of
// go-github: REST for timelines, reviews, issues and repository contents, and
// the GraphQL endpoint for closing references and draft conversion.
package sourcectrl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

const manifestPath = "package.json"

// Adapter implements domain.SourceControl.
type Adapter struct {
	client *gogithub.Client
}

// New creates a new source control adapter.
func New(client *gogithub.Client) *Adapter {
	return &Adapter{client: client}
}

// ListTimelineEvents returns the full timeline of an issue or pull request.
// Review events carry their author in "user" and their time in
// "submitted_at"; both are folded into the actor and creation time.
func (a *Adapter) ListTimelineEvents(ctx context.Context, owner, repo string, number int) ([]domain.TimelineEvent, error) {
	var events []domain.TimelineEvent
	opts := &gogithub.ListOptions{PerPage: 100}

	for {
		page, resp, err := a.client.Issues.ListIssueTimeline(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing timeline: %w", err)
		}

		for _, t := range page {
			actor := t.GetActor()
			if actor == nil {
				actor = t.GetUser()
			}
			created := t.GetCreatedAt().Time
			if created.IsZero() {
				created = t.GetSubmittedAt().Time
			}
			events = append(events, domain.TimelineEvent{
				Event:      t.GetEvent(),
				ActorLogin: actor.GetLogin(),
				ActorType:  actor.GetType(),
				CreatedAt:  created,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return events, nil
}

// CreateReview submits a pull request review and returns its URL.
func (a *Adapter) CreateReview(ctx context.Context, owner, repo string, number int, body string, event domain.ReviewEvent) (string, error) {
	review, _, err := a.client.PullRequests.CreateReview(ctx, owner, repo, number, &gogithub.PullRequestReviewRequest{
		Body:  gogithub.Ptr(body),
		Event: gogithub.Ptr(string(event)),
	})
	if err != nil {
		return "", fmt.Errorf("creating review: %w", err)
	}
	return review.GetHTMLURL(), nil
}

// FetchIssue returns the issue, or nil when it does not exist.
func (a *Adapter) FetchIssue(ctx context.Context, owner, repo string, number int) (*domain.Issue, error) {
	issue, resp, err := a.client.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		if isNotFound(resp) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting issue #%d: %w", number, err)
	}
	return &domain.Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
		URL:    issue.GetHTMLURL(),
		State:  issue.GetState(),
	}, nil
}

// FetchPullRequest loads a pull request snapshot, for runs that do not start
// from a webhook payload.
func (a *Adapter) FetchPullRequest(ctx context.Context, owner, repo string, number int) (domain.PullRequest, error) {
	pr, _, err := a.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return domain.PullRequest{}, fmt.Errorf("getting pull request #%d: %w", number, err)
	}
	return domain.PullRequest{
		Number:  pr.GetNumber(),
		NodeID:  pr.GetNodeID(),
		Draft:   pr.GetDraft(),
		State:   pr.GetState(),
		Body:    pr.GetBody(),
		HTMLURL: pr.GetHTMLURL(),
		BaseRef: pr.GetBase().GetRef(),
		HeadRef: pr.GetHead().GetRef(),
		HeadSHA: pr.GetHead().GetSHA(),
	}, nil
}

// FetchRepoLanguageStats returns languages ordered by size, largest first.
func (a *Adapter) FetchRepoLanguageStats(ctx context.Context, owner, repo string) ([]domain.LanguageStat, error) {
	langs, _, err := a.client.Repositories.ListLanguages(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("listing languages: %w", err)
	}

	stats := make([]domain.LanguageStat, 0, len(langs))
	for name, bytes := range langs {
		stats = append(stats, domain.LanguageStat{Name: name, Bytes: bytes})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Bytes != stats[j].Bytes {
			return stats[i].Bytes > stats[j].Bytes
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}

type packageManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// FetchRepoDependencies reads package.json from the default branch. Both maps
// are nil when the repository has no manifest; a manifest without a section
// yields an empty map for it.
func (a *Adapter) FetchRepoDependencies(ctx context.Context, owner, repo string) (map[string]string, map[string]string, error) {
	file, _, resp, err := a.client.Repositories.GetContents(ctx, owner, repo, manifestPath, nil)
	if err != nil {
		if isNotFound(resp) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("getting %s: %w", manifestPath, err)
	}
	if file == nil {
		return nil, nil, domain.NewNotFoundError(manifestPath, "default branch")
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", manifestPath, err)
	}

	var manifest packageManifest
	if err := json.Unmarshal([]byte(content), &manifest); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", manifestPath, err)
	}
	if manifest.Dependencies == nil {
		manifest.Dependencies = map[string]string{}
	}
	if manifest.DevDependencies == nil {
		manifest.DevDependencies = map[string]string{}
	}
	return manifest.Dependencies, manifest.DevDependencies, nil
}

func isNotFound(resp *gogithub.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}
