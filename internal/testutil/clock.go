package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant a DeterministicClock counts from.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a logical clock for tests: each call to Now
// returns Epoch plus one more millisecond.
//
// Unlike result.MonotonicClock it ignores wall time and can be reset, so
// the same scenario always produces the same timestamps.
//
// Thread-safety: all methods are safe for concurrent use.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock starting at 0.
// The first call to Now returns Epoch + 1ms.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Now advances the clock and returns the new instant.
func (c *DeterministicClock) Now() time.Time {
	return Epoch.Add(time.Duration(c.Next()) * time.Millisecond)
}

// Next increments and returns the sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the sequence number without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset sets the clock back to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
