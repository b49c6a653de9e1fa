package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a thread-safe stepping clock for tests.
//
// Each call to Now returns the next instant: Start, Start+Step,
// Start+2*Step, and so on. Reset rewinds it so the same scenario produces
// identical creation timestamps.
//
// Implements store.Clock.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	ticks int64
}

// DefaultEpoch is the first instant returned by NewDeterministicClock.
var DefaultEpoch = time.Unix(1700000000, 0).UTC()

// NewDeterministicClock creates a clock starting at DefaultEpoch that
// advances one second per call.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(DefaultEpoch, time.Second)
}

// NewDeterministicClockAt creates a clock starting at start, advancing by step.
func NewDeterministicClockAt(start time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{start: start, step: step}
}

// Now returns the next instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return t
}

// Ticks returns how many times Now has been called since the last Reset.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to its start.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}

// ScriptedClock returns the given unix-second instants in order, then
// repeats the last one.
type ScriptedClock struct {
	mu    sync.Mutex
	times []int64
	idx   int
}

// NewScriptedClock creates a clock returning each of unixSeconds in turn.
func NewScriptedClock(unixSeconds ...int64) *ScriptedClock {
	return &ScriptedClock{times: unixSeconds}
}

// Now returns the next scripted instant.
func (c *ScriptedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.times) == 0 {
		return time.Unix(0, 0)
	}
	i := c.idx
	if i >= len(c.times) {
		i = len(c.times) - 1
	} else {
		c.idx++
	}
	return time.Unix(c.times[i], 0)
}
