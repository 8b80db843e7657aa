// Package prdiff fetches the unified diff of a pull request.
package prdiff

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v68/github"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

// LineDiffer renders a unified diff between two file versions.
type LineDiffer interface {
	ComputeDiff(baseName, headName string, base, head []byte) string
}

// Adapter implements domain.DiffSource. It asks GitHub for the raw diff and,
// when GitHub refuses because the diff is too large, rebuilds it file by file.
type Adapter struct {
	client *github.Client
	lines  LineDiffer
}

// New creates a new PR diff adapter.
func New(client *github.Client, lines LineDiffer) *Adapter {
	return &Adapter{client: client, lines: lines}
}

// FetchPullDiff returns the unified diff of the pull request.
func (a *Adapter) FetchPullDiff(ctx context.Context, owner, repo string, number int) (domain.PullDiff, error) {
	raw, resp, err := a.client.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
	if err == nil {
		return domain.PullDiff{Diff: raw}, nil
	}
	if !tooLarge(resp, err) {
		return domain.PullDiff{}, fmt.Errorf("getting raw diff: %w", err)
	}

	diff, err := a.assembleDiff(ctx, owner, repo, number)
	if err != nil {
		return domain.PullDiff{}, err
	}
	return domain.PullDiff{Diff: diff}, nil
}

// tooLarge reports whether GitHub declined to render the diff.
func tooLarge(resp *github.Response, err error) bool {
	if resp != nil && (resp.StatusCode == http.StatusNotAcceptable || resp.StatusCode == http.StatusUnprocessableEntity) {
		return true
	}
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && strings.Contains(strings.ToLower(ghErr.Message), "too large")
}

func (a *Adapter) assembleDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	pr, _, err := a.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return "", fmt.Errorf("getting pull request: %w", err)
	}
	baseSHA, headSHA := pr.GetBase().GetSHA(), pr.GetHead().GetSHA()

	var sb strings.Builder
	opts := &github.ListOptions{PerPage: 100}
	for {
		files, resp, err := a.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return "", fmt.Errorf("listing PR files: %w", err)
		}

		for _, f := range files {
			name := f.GetFilename()
			prev := f.GetPreviousFilename()
			if prev == "" {
				prev = name
			}
			fmt.Fprintf(&sb, "diff --git a/%s b/%s\n", prev, name)

			if patch := f.GetPatch(); patch != "" {
				fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n%s\n", prev, name, patch)
				continue
			}

			body, err := a.fileDiff(ctx, owner, repo, f.GetStatus(), prev, name, baseSHA, headSHA)
			if err != nil {
				return "", err
			}
			if body != "" {
				sb.WriteString(body)
				sb.WriteString("\n")
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return sb.String(), nil
}

// fileDiff diffs a file GitHub listed without a patch. Binary files and files
// that cannot be fetched produce no body.
func (a *Adapter) fileDiff(ctx context.Context, owner, repo, status, prev, name, baseSHA, headSHA string) (string, error) {
	var base, head []byte
	var err error
	if status != "added" {
		if base, err = a.content(ctx, owner, repo, prev, baseSHA); err != nil {
			return "", err
		}
	}
	if status != "removed" {
		if head, err = a.content(ctx, owner, repo, name, headSHA); err != nil {
			return "", err
		}
	}
	if isBinary(base) || isBinary(head) {
		return "", nil
	}
	return a.lines.ComputeDiff("a/"+prev, "b/"+name, base, head), nil
}

func (a *Adapter) content(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	file, _, resp, err := a.client.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting %s at %s: %w", path, ref, err)
	}
	if file == nil {
		return nil, nil
	}
	text, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return []byte(text), nil
}

func isBinary(b []byte) bool {
	for _, c := range b {
		if c == 0 {
			return true
		}
	}
	return false
}
