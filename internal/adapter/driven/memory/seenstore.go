// Package memory provides process-lifetime in-memory stores.
package memory

import (
	"sync"
	"time"

	"github.com/ericfisherdev/prbeacon/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SeenStore = (*SeenStore)(nil)

// SeenStore is a mutex-guarded set of event identities with the time each
// was first observed. Admission is a single check-and-insert under the lock,
// so no identity can ever be admitted twice.
type SeenStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewSeenStore creates an empty SeenStore.
func NewSeenStore() *SeenStore {
	return &SeenStore{seen: make(map[string]time.Time)}
}

// Admit records the identity if unseen and reports whether it was new.
func (s *SeenStore) Admit(id string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = at
	return true
}

// Prune removes identities first observed before olderThan. The collector
// never returns activity older than the lookback horizon, so a pruned
// identity cannot recur.
func (s *SeenStore) Prune(olderThan time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for id, at := range s.seen {
		if at.Before(olderThan) {
			delete(s.seen, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identities.
func (s *SeenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
