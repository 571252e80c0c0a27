package lifecycle

import "sync/atomic"

// Clock is the monotonic logical clock that stamps every committed
// operation. Plan timestamps and audit seqs come from it, never from wall
// time, so replaying the same operations reproduces the same records.
//
// The engine reads Current()+1 while an operation runs and calls Next only
// after the transaction commits. A rejected operation therefore consumes no
// tick.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start. The engine uses it to
// resume from the last seq recorded in the audit log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current value without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
