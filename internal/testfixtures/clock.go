package testfixtures

import (
	"sync"
	"time"
)

var referenceTime = time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)

// ReferenceTime is Monday 2024-01-15 08:00 UTC, 17:00 in Asia/Tokyo.
func ReferenceTime() time.Time {
	return referenceTime
}

// Clock is a settable time source shared between a test and the code under test.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc returns Now for injection; a nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// At returns the reference day at hour:minute UTC.
func At(hour, minute int) time.Time {
	y, m, d := referenceTime.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, time.UTC)
}
