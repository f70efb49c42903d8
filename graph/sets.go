package graph

import (
	"sync"

	"github.com/tweag/nixtract/types"
)

// outputPathSet is a thread-safe set of output paths with an atomic
// add-if-absent primitive. The queued and visited output path sets are
// both instances of this type: the membership check and the insert
// must happen as one critical section to avoid a check-then-add race
// between concurrent describer workers.
type outputPathSet struct {
	mu   sync.Mutex
	seen map[types.OutputPath]struct{}
}

func newOutputPathSet() *outputPathSet {
	return &outputPathSet{seen: make(map[types.OutputPath]struct{})}
}

// TryAdd adds p to the set and reports whether it was newly inserted. A
// return of false means another caller already added p first; the loser
// must not enqueue anything for p.
func (s *outputPathSet) TryAdd(p types.OutputPath) (inserted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.seen[p]; exists {
		return false
	}
	s.seen[p] = struct{}{}
	return true
}

// Contains reports current membership without mutating the set.
func (s *outputPathSet) Contains(p types.OutputPath) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[p]
	return ok
}

// Len reports the current set size, for metrics and tests.
func (s *outputPathSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
