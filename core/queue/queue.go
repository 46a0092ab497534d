// Package queue implements the bounded work queue bootstrap downloaders
// drain from, plus its completion barrier.
package queue

import (
	"sync"

	"github.com/parityfleet/paritynode/core/protocol"
)

// SharedRequestQueue holds the multiset of pending block requests plus a
// completion barrier over a fixed worker count W. A request is always
// exactly one of: pending in the queue, in flight with exactly one worker,
// or completed. The queue and barrier share a single lock.
type SharedRequestQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	pending []protocol.BlockRequest

	workersRemaining int
	drained          bool // whether the queue was empty when the last worker exited
	released         bool
}

// New builds a queue seeded with requests, expecting exactly workerCount
// workers to eventually call MarkWorkerDone.
func New(requests []protocol.BlockRequest, workerCount int) *SharedRequestQueue {
	q := &SharedRequestQueue{
		pending:          append([]protocol.BlockRequest(nil), requests...),
		workersRemaining: workerCount,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Take atomically removes and returns one request, or ok=false if the
// queue is permanently drained (empty and no more requests will arrive).
func (q *SharedRequestQueue) Take() (protocol.BlockRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return protocol.BlockRequest{}, false
	}

	req := q.pending[0]
	q.pending = q.pending[1:]
	return req, true
}

// Requeue pushes a request back to the tail. A worker that loses its peer
// connection while holding an in-flight request MUST call this before
// MarkWorkerDone.
func (q *SharedRequestQueue) Requeue(r protocol.BlockRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, r)
}

// MarkWorkerDone records that a worker has exited. When every worker has
// reported done, the barrier releases and Await returns.
func (q *SharedRequestQueue) MarkWorkerDone() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.workersRemaining--
	if q.workersRemaining <= 0 {
		q.drained = len(q.pending) == 0
		q.released = true
		q.cond.Broadcast()
	}
}

// Await blocks the bootstrap driver until every worker has called
// MarkWorkerDone.
func (q *SharedRequestQueue) Await() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.released {
		q.cond.Wait()
	}
}

// IsComplete reports whether the barrier released with the queue empty —
// i.e. bootstrap actually finished rather than every worker dying with
// requests still outstanding.
func (q *SharedRequestQueue) IsComplete() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.released && q.drained
}
