package result

import (
	"sync/atomic"
	"time"
)

// Clock provides the timestamps used to order descriptors.
//
// Implementations must be strictly monotonic: every call returns an
// instant after the previous one. Generation boundaries rely on this.
type Clock interface {
	Now() time.Time
}

// MonotonicClock is a wall clock that never repeats or goes backwards.
//
// When two calls land on the same nanosecond (or the wall clock steps
// back), the later call is pushed one nanosecond past the previous value.
// Safe for concurrent use.
type MonotonicClock struct {
	last atomic.Int64
}

// NewMonotonicClock creates a clock seeded at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{}
}

// Now returns the next instant.
func (c *MonotonicClock) Now() time.Time {
	for {
		prev := c.last.Load()
		next := time.Now().UnixNano()
		if next <= prev {
			next = prev + 1
		}
		if c.last.CompareAndSwap(prev, next) {
			return time.Unix(0, next)
		}
	}
}

// DefaultClock is shared by every container and result created without an
// explicit clock, so timestamps from different runs in one process are
// totally ordered.
var DefaultClock Clock = NewMonotonicClock()
