package app

import (
	"sync"

	"github.com/kk-code-lab/rtree/internal/tree"
)

// loadQueue carries load results from loader goroutines to the event loop.
// push never blocks, so a burst of results cannot stall the loop while it
// is itself producing work.
type loadQueue struct {
	mu     sync.Mutex
	items  []tree.LoadResult
	closed bool
	signal chan struct{}
}

func newLoadQueue() *loadQueue {
	return &loadQueue{signal: make(chan struct{}, 1)}
}

// push appends res and wakes the loop. Results pushed after close are
// dropped.
func (q *loadQueue) push(res tree.LoadResult) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, res)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Ready fires when results may be waiting.
func (q *loadQueue) Ready() <-chan struct{} {
	return q.signal
}

// drain takes every queued result in arrival order.
func (q *loadQueue) drain() []tree.LoadResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *loadQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *loadQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()
}
