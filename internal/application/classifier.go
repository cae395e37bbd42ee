package application

import (
	"fmt"
	"strings"

	"github.com/ericfisherdev/prbeacon/internal/domain/model"
)

// excerptLimit caps event body excerpts for logging.
const excerptLimit = 100

// ClassifyIssueComment maps a PR-level comment to an Event of kind comment.
func ClassifyIssueComment(req model.ReviewRequest, c model.IssueComment) (model.Event, error) {
	if c.Author == "" {
		return model.Event{}, fmt.Errorf("issue comment %d on %s has no author: %w", c.ID, req.Ref(), model.ErrParse)
	}

	return model.Event{
		ID:           eventID("comment", req, c.ID),
		RepoFullName: req.RepoFullName,
		PRNumber:     req.Number,
		Kind:         model.KindComment,
		Author:       c.Author,
		CreatedAt:    c.CreatedAt,
		Excerpt:      excerpt(c.Body),
	}, nil
}

// ClassifyReview maps a submitted review to an Event. A review carries exactly
// one state: approved, changes_requested, and commented (bots included)
// produce an event; pending and dismissed states produce none (ok=false).
func ClassifyReview(req model.ReviewRequest, r model.Review) (event model.Event, ok bool, err error) {
	var kind model.EventKind
	switch r.State {
	case model.ReviewStateApproved:
		kind = model.KindApproved
	case model.ReviewStateChangesRequested:
		kind = model.KindChangesRequested
	case model.ReviewStateCommented:
		kind = model.KindReviewCommented
	default:
		return model.Event{}, false, nil
	}

	if r.ReviewerLogin == "" {
		return model.Event{}, false, fmt.Errorf("review %d on %s has no author: %w", r.ID, req.Ref(), model.ErrParse)
	}

	return model.Event{
		ID:           eventID("review", req, r.ID),
		RepoFullName: req.RepoFullName,
		PRNumber:     req.Number,
		Kind:         kind,
		Author:       r.ReviewerLogin,
		CreatedAt:    r.SubmittedAt,
		Excerpt:      excerpt(r.Body),
	}, true, nil
}

// ClassifyReviewComment maps a review-thread comment (attached to a diff
// line) to an Event. It carries its own identity, independent of the parent
// review's state or identity.
func ClassifyReviewComment(req model.ReviewRequest, c model.ReviewComment) (model.Event, error) {
	if c.Author == "" {
		return model.Event{}, fmt.Errorf("review comment %d on %s has no author: %w", c.ID, req.Ref(), model.ErrParse)
	}

	return model.Event{
		ID:           eventID("review_comment", req, c.ID),
		RepoFullName: req.RepoFullName,
		PRNumber:     req.Number,
		Kind:         model.KindReviewComment,
		Author:       c.Author,
		CreatedAt:    c.CreatedAt,
		Excerpt:      excerpt(c.Body),
	}, nil
}

// IsSelfAuthored reports whether the event was authored by the monitored
// user. GitHub logins are case-insensitive.
func IsSelfAuthored(event model.Event, username string) bool {
	return strings.EqualFold(event.Author, username)
}

// eventID builds the stable dedup identity for one piece of remote activity.
func eventID(source string, req model.ReviewRequest, remoteID int64) string {
	return fmt.Sprintf("%s:%s:%d", source, req.Ref(), remoteID)
}

// excerpt truncates a body to excerptLimit runes for logging.
func excerpt(body string) string {
	runes := []rune(body)
	if len(runes) <= excerptLimit {
		return body
	}
	return string(runes[:excerptLimit]) + "..."
}
