package model

// EventKind classifies a piece of pull request activity.
type EventKind string

const (
	KindComment          EventKind = "comment"
	KindApproved         EventKind = "approved"
	KindChangesRequested EventKind = "changes_requested"
	KindReviewCommented  EventKind = "review_commented"
	KindReviewComment    EventKind = "review_comment"
)

// Kinds lists every event kind. Pattern tests range over it so a new kind
// without a pattern entry fails at test time rather than silently.
var Kinds = []EventKind{
	KindComment,
	KindApproved,
	KindChangesRequested,
	KindReviewCommented,
	KindReviewComment,
}

// ReviewState represents the state of a submitted review.
type ReviewState string

const (
	ReviewStateApproved         ReviewState = "approved"
	ReviewStateChangesRequested ReviewState = "changes_requested"
	ReviewStateCommented        ReviewState = "commented"
	ReviewStatePending          ReviewState = "pending"
	ReviewStateDismissed        ReviewState = "dismissed"
)
