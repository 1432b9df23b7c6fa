package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the monotonic logical clock that orders execution log entries.
//
// Every log entry is stamped with a strictly increasing seq from Next().
// Wall-clock time is recorded alongside for display, but ordering of facts
// (including "first accepted response wins") always uses seq.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start.
// Used by Restore so entries appended after a restart keep increasing.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// TimeSource supplies wall-clock time to the engine.
//
// Deadlines are computed from and compared against TimeSource.Now, so tests
// drive time explicitly instead of sleeping.
type TimeSource interface {
	Now() time.Time
}

// SystemTime reads the real clock in UTC.
type SystemTime struct{}

// Now returns the current UTC time.
func (SystemTime) Now() time.Time {
	return time.Now().UTC()
}
