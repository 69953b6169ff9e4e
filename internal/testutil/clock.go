package testutil

// DeterministicClock numbers ticks 1, 2, 3 ... for scenario runs.
//
// It satisfies engine.SeqClock. Rewind returns it to zero so the same clock
// can stamp a replay of the session it just numbered; replayed ticks then
// carry the seq values that were recorded.
//
// Not safe for concurrent use. The engine calls it from its tick loop only.
type DeterministicClock struct {
	seq int64
}

// NewDeterministicClock returns a clock whose first tick is 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock and returns the new seq.
func (c *DeterministicClock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the seq of the last tick, or 0 before the first.
func (c *DeterministicClock) Current() int64 {
	return c.seq
}

// Rewind resets the clock to 0 and returns the number of ticks it had
// issued.
func (c *DeterministicClock) Rewind() int64 {
	issued := c.seq
	c.seq = 0
	return issued
}
