package testutil

import (
	"sync"
	"time"
)

// Epoch is the start time used by scenarios and tests.
var Epoch = time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

// ManualClock is a wall clock that only moves when told to.
//
// It implements engine.TimeSource so tests can cross offer deadlines without
// sleeping.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock reading start. A zero start uses Epoch.
func NewManualClock(start time.Time) *ManualClock {
	if start.IsZero() {
		start = Epoch
	}
	return &ManualClock{now: start.UTC()}
}

// Now returns the current reading.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new reading.
// Negative durations are ignored; time never runs backwards.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return c.now
}

// Set moves the clock to t if t is not before the current reading.
func (c *ManualClock) Set(t time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.now) {
		c.now = t.UTC()
	}
	return c.now
}

// Elapsed returns the time since start.
func (c *ManualClock) Elapsed(start time.Time) time.Duration {
	return c.Now().Sub(start)
}
