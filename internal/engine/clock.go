package engine

import "sync/atomic"

// SeqClock numbers ticks. Implemented by Clock and, in the harness,
// testutil.DeterministicClock.
type SeqClock interface {
	Next() int64
	Current() int64
}

// Clock hands out tick sequence numbers starting at 1.
//
// Seqs are logical, not wall time: the tick log orders and replays by seq
// alone. Current is read from Run's error path while Next runs on the tick
// goroutine, hence the atomic.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock that has issued no ticks.
func NewClock() *Clock {
	return &Clock{}
}

// Next issues the seq for a new tick.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued seq, 0 before the first tick.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
