package driven

import "time"

// SeenStore tracks which event identities have already triggered a
// notification. It is the only state that outlives a polling cycle.
type SeenStore interface {
	// Admit records the identity if unseen and reports whether it was new.
	// For any identity it returns true at most once for the process lifetime,
	// even under concurrent callers: the check and the insert are one
	// atomic operation.
	Admit(id string, at time.Time) bool

	// Prune drops identities first observed before the given time and returns
	// how many were removed. Only safe for horizons no query can reach back
	// past, since a pruned identity would be admitted again.
	Prune(olderThan time.Time) int

	// Len returns the number of tracked identities.
	Len() int
}
