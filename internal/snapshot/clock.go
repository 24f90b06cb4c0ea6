package snapshot

import "sync/atomic"

// TickSource hands out snapshot sequence numbers.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type TickSource interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical tick counter for recorded snapshots.
//
// Snapshots are stamped with strictly increasing ticks, never wall time, so a
// replay applies them in the order they were captured.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific tick.
// Used to resume recording after the last archived snapshot.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next tick and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current tick without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
