package trace

import "sync/atomic"

// Clock is a monotonic logical clock. Every trace entry is stamped with a
// strictly increasing seq from it, so ordering never depends on wall time.
//
// Clock is safe for concurrent use, although a run is recorded from the
// frame loop goroutine only.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at start. Used to continue numbering
// after entries loaded from a store.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
