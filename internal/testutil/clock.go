// Package testutil holds deterministic sources for scenario runs and tests.
package testutil

import "sync/atomic"

// DeterministicClock is a resettable logical clock. The harness numbers
// trace events with it so repeated runs produce identical traces.
type DeterministicClock struct {
	seq atomic.Int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock and returns the new value.
func (c *DeterministicClock) Next() int64 { return c.seq.Add(1) }

// Current returns the value last returned by Next, or 0.
func (c *DeterministicClock) Current() int64 { return c.seq.Load() }

// Reset sets the clock back to 0.
func (c *DeterministicClock) Reset() { c.seq.Store(0) }
