package engine

import (
	"sync"

	"github.com/roach88/keycore/internal/ir"
)

// snapshotQueue is a thread-safe FIFO queue of matrix snapshots.
//
// The queue is unbounded so a scanner goroutine never blocks behind a slow
// sink; the Run loop drains it one tick at a time.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type snapshotQueue struct {
	mu        sync.Mutex
	snapshots []ir.Matrix
	closed    bool
	signal    chan struct{} // Signals snapshot availability (buffered, size 1)
}

// newSnapshotQueue creates an empty queue.
func newSnapshotQueue() *snapshotQueue {
	return &snapshotQueue{
		snapshots: make([]ir.Matrix, 0, 64),
		signal:    make(chan struct{}, 1),
	}
}

// Enqueue adds a snapshot to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *snapshotQueue) Enqueue(m ir.Matrix) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.snapshots = append(q.snapshots, m)

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (ir.Matrix{}, false) if queue is empty.
func (q *snapshotQueue) TryDequeue() (ir.Matrix, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.snapshots) == 0 {
		return ir.Matrix{}, false
	}

	m := q.snapshots[0]

	// Clear the slot so the backing array does not pin the cell slice.
	q.snapshots[0] = ir.Matrix{}

	if len(q.snapshots) == 1 {
		q.snapshots = q.snapshots[:0]
	} else {
		q.snapshots = q.snapshots[1:]
	}

	return m, true
}

// Wait returns a channel that signals when snapshots may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *snapshotQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *snapshotQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.snapshots)
}

// Closed reports whether Close has been called.
func (q *snapshotQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more snapshots will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *snapshotQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
