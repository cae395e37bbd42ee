package model

import "time"

// Event is a single piece of remote pull request activity, normalized from
// the GitHub wire types. Immutable once built.
type Event struct {
	// ID is the globally unique identity used for deduplication: source kind,
	// request ref, and the remote record ID.
	ID           string
	RepoFullName string
	PRNumber     int
	Kind         EventKind
	Author       string
	CreatedAt    time.Time
	// Excerpt holds up to 100 runes of the body, for logging only.
	Excerpt string
}
