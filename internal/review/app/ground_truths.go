package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	loosejson "github.com/nathantilsley/review-sentry/internal/review/adapters/loose_json"
	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

// selectGroundTruths uses the repository facts when every signal category is
// empty and derives truths from the task specification otherwise.
func (r *PullReviewer) selectGroundTruths(ctx context.Context, issue domain.Issue, signals domain.RepoSignals) ([]string, error) {
	facts := domain.CollectGroundTruths(signals.Languages, signals.Dependencies, signals.DevDependencies)
	if len(facts) == r.rc.Config.MinGroundTruths {
		r.logger.Debug("using repository ground truths", "count", len(facts))
		return facts, nil
	}

	raw, err := r.ports.Completer.CreateGroundTruthCompletion(ctx, r.rc.Config.Model, issue.Body, r.rc.Config.AppName)
	if err != nil {
		return nil, r.fail(domain.WrapError(domain.KindCompletion, "deriving ground truths from the task specification", err))
	}

	truths := splitGroundTruths(raw)
	if len(truths) == 0 {
		truths = facts
	}
	if len(truths) == 0 {
		return nil, r.fail(domain.NewError(domain.KindNoGroundTruths,
			fmt.Sprintf("no ground truths could be derived for issue #%d", issue.Number), raw))
	}
	r.logger.Debug("using task ground truths", "count", len(truths))
	return truths, nil
}

// splitGroundTruths reads a ground-truth completion. A JSON-ish array, or an
// object whose single key holds one, is taken item by item; anything else is
// read one truth per line.
func splitGroundTruths(raw string) []string {
	if v, err := loosejson.Parse(raw); err == nil {
		if m, ok := v.(map[string]any); ok && len(m) == 1 {
			for _, inner := range m {
				v = inner
			}
		}
		if items, ok := v.([]any); ok {
			var out []string
			for _, it := range items {
				if s := truthText(it); s != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}

	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// truthText renders one array item. Non-string items are re-encoded as JSON.
func truthText(item any) string {
	switch v := item.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
