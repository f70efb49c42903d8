package graph

import (
	"sync"
	"time"

	"github.com/tweag/nixtract/types"
)

// workQueue is the multi-producer, single-consumer work queue: the
// finder reader and every describer worker may push; only the
// coordinator's drive loop pops. It has no natural capacity bound (an
// adversarial flake's attribute set is effectively unbounded), so it is
// backed by a plain mutex-guarded slice with a notify channel standing
// in for a condition variable.
type workQueue struct {
	mu     sync.Mutex
	items  []types.AttributePath
	notify chan struct{}
}

func newWorkQueue() *workQueue {
	return &workQueue{notify: make(chan struct{}, 1)}
}

// Push appends ap to the back of the queue and wakes one waiting PopWait
// call, if any.
func (q *workQueue) Push(ap types.AttributePath) {
	q.mu.Lock()
	q.items = append(q.items, ap)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *workQueue) tryPop() (types.AttributePath, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// PopWait pops the front item if one is available within timeout. It
// implements the drive loop's bounded-wait dequeue attempt without
// busy-polling: it blocks on the notify channel between checks.
func (q *workQueue) PopWait(timeout time.Duration) (types.AttributePath, bool) {
	if item, ok := q.tryPop(); ok {
		return item, true
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-q.notify:
			if item, ok := q.tryPop(); ok {
				return item, true
			}
		case <-deadline.C:
			return nil, false
		}
	}
}

// Len reports the current queue length.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
