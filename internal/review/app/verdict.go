package app

import (
	"fmt"
	"strconv"
	"strings"

	loosejson "github.com/nathantilsley/review-sentry/internal/review/adapters/loose_json"
	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

// ParsePullReviewData turns the model answer into a verdict. Undecodable text
// is a KindParse error; decodable text of the wrong shape is KindValidation.
func (r *PullReviewer) ParsePullReviewData(raw string) (domain.PullReviewVerdict, error) {
	parsed, err := loosejson.ParseObject(raw)
	if err != nil {
		e := domain.WrapError(domain.KindParse, "parsing pull review data", err)
		e.Data = raw
		return domain.PullReviewVerdict{}, r.fail(e)
	}

	verdict, err := verdictFromMap(parsed)
	if err != nil {
		return domain.PullReviewVerdict{}, r.fail(domain.NewError(domain.KindValidation,
			"invalid pull review data: "+err.Error(), parsed))
	}
	return verdict, nil
}

func verdictFromMap(m map[string]any) (domain.PullReviewVerdict, error) {
	confidence, err := toFloat(m["confidenceThreshold"])
	if err != nil {
		return domain.PullReviewVerdict{}, fmt.Errorf("confidenceThreshold: %w", err)
	}
	comment, ok := m["reviewComment"].(string)
	if !ok {
		return domain.PullReviewVerdict{}, fmt.Errorf("reviewComment: want string, got %T", m["reviewComment"])
	}
	return domain.PullReviewVerdict{ConfidenceThreshold: confidence, ReviewComment: comment}, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("want number, got %T", v)
	}
}
