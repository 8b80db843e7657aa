// Package specformat renders the task specification and pull request diff into
// the single document the model reviews.
package specformat

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

// Formatter implements domain.Formatter.
type Formatter struct{}

// New creates a new formatter.
func New() *Formatter {
	return &Formatter{}
}

// FileChange summarises one file of a diff.
type FileChange struct {
	Name    string
	Status  string
	Added   int
	Deleted int
}

// FormatSpecAndPull renders the issue followed by the pull request: its
// description, a per-file summary and the full diff.
func (f *Formatter) FormatSpecAndPull(rc domain.ReviewContext, issue domain.Issue, diff domain.PullDiff) string {
	pr := rc.PullRequest
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Specification: #%d %s\n\n", issue.Number, issue.Title)
	if issue.URL != "" {
		fmt.Fprintf(&sb, "Source: %s\n\n", issue.URL)
	}
	if body := strings.TrimSpace(issue.Body); body != "" {
		fmt.Fprintf(&sb, "%s\n\n", body)
	}

	fmt.Fprintf(&sb, "## Pull request: %s/%s#%d\n\n", rc.Owner, rc.Repo, pr.Number)
	if pr.HeadRef != "" && pr.BaseRef != "" {
		fmt.Fprintf(&sb, "Merging `%s` into `%s`\n\n", pr.HeadRef, pr.BaseRef)
	}
	if body := strings.TrimSpace(pr.Body); body != "" {
		fmt.Fprintf(&sb, "### Description\n\n%s\n\n", body)
	}

	if changes := SummarizeDiff(diff.Diff); len(changes) > 0 {
		sb.WriteString("### Changed files\n\n")
		for _, c := range changes {
			fmt.Fprintf(&sb, "- `%s` (%s, +%d/-%d)\n", c.Name, c.Status, c.Added, c.Deleted)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("### Diff\n\n")
	if text := strings.TrimRight(diff.Diff, "\n"); text != "" {
		fmt.Fprintf(&sb, "```diff\n%s\n```\n", text)
	} else {
		sb.WriteString("No changes.\n")
	}
	return sb.String()
}

// SummarizeDiff lists the files touched by a unified diff. A diff that cannot
// be parsed yields no summary; the raw text is still shown to the model.
func SummarizeDiff(raw string) []FileChange {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	files, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil
	}

	changes := make([]FileChange, 0, len(files))
	for _, file := range files {
		c := FileChange{Name: file.NewName, Status: fileStatus(file)}
		if file.IsDelete || c.Name == "" {
			c.Name = file.OldName
		}
		for _, frag := range file.TextFragments {
			for _, line := range frag.Lines {
				switch line.Op {
				case gitdiff.OpAdd:
					c.Added++
				case gitdiff.OpDelete:
					c.Deleted++
				}
			}
		}
		changes = append(changes, c)
	}
	return changes
}

func fileStatus(f *gitdiff.File) string {
	switch {
	case f.IsBinary:
		return "binary"
	case f.IsNew:
		return "added"
	case f.IsDelete:
		return "deleted"
	case f.IsRename:
		return "renamed from " + f.OldName
	default:
		return "modified"
	}
}
