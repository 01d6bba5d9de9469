// Package timeutil provides a testable clock and the duration formats used
// by timing feeds.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the time source for run timestamps and stored records.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock is a clock for tests. It only moves when advanced, or by a
// fixed step after every reading when built with NewSteppingClock.
type MockClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewMockClock returns a clock frozen at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// NewSteppingClock returns a clock starting at t that moves forward by
// step after every reading, so a run measured with it takes exactly step.
func NewSteppingClock(t time.Time, step time.Duration) *MockClock {
	return &MockClock{now: t, step: step}
}

// Now returns the current reading and then applies the step.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = now.Add(c.step)
	return now
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Since is Now().Sub(t); on a stepping clock it consumes one reading.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
