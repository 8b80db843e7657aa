package sourcectrl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

const closingIssuesQuery = `query($owner: String!, $repo: String!, $number: Int!) {
  repository(owner: $owner, name: $repo) {
    pullRequest(number: $number) {
      closingIssuesReferences(first: 10) {
        edges {
          node {
            number
            title
            url
            body
            repository { name owner { login } }
          }
        }
      }
    }
  }
}`

const convertToDraftMutation = `mutation($id: ID!) {
  convertPullRequestToDraft(input: {pullRequestId: $id}) {
    pullRequest { id isDraft }
  }
}`

var errNoPullRequest = errors.New("pull request not found")

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type closingIssuesData struct {
	Repository *struct {
		PullRequest *struct {
			ClosingIssuesReferences struct {
				Edges []struct {
					Node struct {
						Number     int    `json:"number"`
						Title      string `json:"title"`
						URL        string `json:"url"`
						Body       string `json:"body"`
						Repository struct {
							Name  string `json:"name"`
							Owner struct {
								Login string `json:"login"`
							} `json:"owner"`
						} `json:"repository"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"closingIssuesReferences"`
		} `json:"pullRequest"`
	} `json:"repository"`
}

// ClosingIssues returns the issues the pull request closes via closing keywords.
func (a *Adapter) ClosingIssues(ctx context.Context, owner, repo string, number int) ([]domain.ClosingIssueRef, error) {
	var data closingIssuesData
	vars := map[string]any{"owner": owner, "repo": repo, "number": number}
	if err := a.graphql(ctx, closingIssuesQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.Repository == nil || data.Repository.PullRequest == nil {
		return nil, fmt.Errorf("%s/%s#%d: %w", owner, repo, number, errNoPullRequest)
	}

	edges := data.Repository.PullRequest.ClosingIssuesReferences.Edges
	refs := make([]domain.ClosingIssueRef, 0, len(edges))
	for _, e := range edges {
		refs = append(refs, domain.ClosingIssueRef{
			Number: e.Node.Number,
			Title:  e.Node.Title,
			URL:    e.Node.URL,
			Body:   e.Node.Body,
			Repository: domain.IssueRepository{
				Name:  e.Node.Repository.Name,
				Owner: e.Node.Repository.Owner.Login,
			},
		})
	}
	return refs, nil
}

// ConvertToDraft demotes the pull request with the given node ID to a draft.
func (a *Adapter) ConvertToDraft(ctx context.Context, nodeID string) error {
	if nodeID == "" {
		return fmt.Errorf("converting to draft: empty node id")
	}
	if err := a.graphql(ctx, convertToDraftMutation, map[string]any{"id": nodeID}, nil); err != nil {
		return fmt.Errorf("converting to draft: %w", err)
	}
	return nil
}

// graphql posts a parameterized query through the REST client so it shares
// its authentication, and decodes "data" into out when out is non-nil.
func (a *Adapter) graphql(ctx context.Context, query string, vars map[string]any, out any) error {
	req, err := a.client.NewRequest(http.MethodPost, a.graphqlPath(), graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("creating graphql request: %w", err)
	}

	var resp graphqlResponse
	if _, err := a.client.Do(ctx, req, &resp); err != nil {
		return fmt.Errorf("graphql request: %w", err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("graphql: %s", strings.Join(msgs, "; "))
	}

	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decoding graphql data: %w", err)
	}
	return nil
}

// graphqlPath is relative to the client's base URL. GitHub Enterprise serves
// REST under /api/v3/ and GraphQL under /api/graphql.
func (a *Adapter) graphqlPath() string {
	if strings.HasSuffix(a.client.BaseURL.Path, "/api/v3/") {
		return "../graphql"
	}
	return "graphql"
}
