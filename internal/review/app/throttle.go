package app

import (
	"context"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

const (
	eventReviewed = "reviewed"
	actorTypeBot  = "Bot"
)

// CanPerformReview allows at most one bot review per throttle window, measured
// from the latest bot "reviewed" event on the timeline. A denial is returned
// as a KindThrottled error.
func (r *PullReviewer) CanPerformReview(ctx context.Context) (bool, error) {
	events, err := r.ports.Source.ListTimelineEvents(ctx, r.rc.Owner, r.rc.Repo, r.rc.PullRequest.Number)
	if err != nil {
		return false, r.fail(domain.WrapError(domain.KindUpstream, "listing timeline events", err))
	}

	last, ok := lastBotReview(events)
	if !ok {
		return true, nil
	}

	elapsed := r.now().Sub(last.CreatedAt)
	if elapsed < r.rc.Config.ThrottleWindow {
		return false, r.fail(domain.NewError(domain.KindThrottled, "Only one review per day is allowed", last))
	}
	return true, nil
}

func lastBotReview(events []domain.TimelineEvent) (domain.TimelineEvent, bool) {
	var last domain.TimelineEvent
	found := false
	for _, e := range events {
		if e.Event != eventReviewed || e.ActorType != actorTypeBot {
			continue
		}
		if !found || e.CreatedAt.After(last.CreatedAt) {
			last = e
			found = true
		}
	}
	return last, found
}
