package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic wall clock for tests. Each call to Now
// advances it by a fixed step, starting at the base time.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	base  time.Time
	step  time.Duration
	ticks int64
}

// NewStepClock creates a clock whose first Now returns base.
func NewStepClock(base time.Time, step time.Duration) *StepClock {
	return &StepClock{base: base.UTC(), step: step}
}

// Now returns the current time and advances the clock by one step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return t
}

// Ticks returns how many times Now has been called.
func (c *StepClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to its base time.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
