package domain

import "net/http"

// ReviewEvent is the kind of review submitted to the host platform.
type ReviewEvent string

const (
	EventComment        ReviewEvent = "COMMENT"
	EventRequestChanges ReviewEvent = "REQUEST_CHANGES"
)

// PullReviewVerdict is the parsed model output for a pull request.
type PullReviewVerdict struct {
	ConfidenceThreshold float64
	ReviewComment       string
}

// Decision is what to do with a verdict.
type Decision struct {
	Event          ReviewEvent
	ConvertToDraft bool
}

// Decide applies the low-confidence policy. A verdict under the threshold both
// demotes the pull request to draft and requests changes; the two effects are
// one decision and always travel together.
func Decide(v PullReviewVerdict, lowConfidence float64) Decision {
	if v.ConfidenceThreshold < lowConfidence {
		return Decision{Event: EventRequestChanges, ConvertToDraft: true}
	}
	return Decision{Event: EventComment}
}

// TokenUsage reports how many tokens a completion consumed.
type TokenUsage struct {
	Input  int
	Output int
	Total  int
}

// CompletionResult is the raw answer of a review completion.
type CompletionResult struct {
	Answer       string
	GroundTruths []string
	TokenUsage   TokenUsage
}

// PrecheckResult is returned to the dispatch layer. Skips and completed
// reviews both report StatusOK; only Reason tells them apart.
type PrecheckResult struct {
	Status int
	Reason string
}

const ReasonSuccess = "Success"

// Skip builds a successful result that performed no action.
func Skip(reason string) PrecheckResult {
	return PrecheckResult{Status: http.StatusOK, Reason: reason}
}

// Done builds the result of a completed review.
func Done() PrecheckResult {
	return PrecheckResult{Status: http.StatusOK, Reason: ReasonSuccess}
}
