package testfixtures

import (
	"sync"
	"time"
)

// referenceMonday is the Monday every fixture week is anchored to.
var referenceMonday = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

// ReferenceTime returns midnight of the reference Monday in UTC.
func ReferenceTime() time.Time {
	return referenceMonday
}

// WeekTime returns the instant at hour:minute on weekday of the reference
// week, Monday first, in loc. A nil loc means UTC.
func WeekTime(weekday time.Weekday, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	offset := (int(weekday) + 6) % 7
	y, m, d := referenceMonday.Date()
	return time.Date(y, m, d+offset, hour, minute, 0, 0, loc)
}

// Clock is a controllable time source for tick and cooldown tests.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for injection as a now func() time.Time.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set jumps the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// SetClock keeps the current date and moves to hour:minute in the clock's
// location.
func (c *Clock) SetClock(hour, minute int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	y, m, d := c.current.Date()
	c.current = time.Date(y, m, d, hour, minute, 0, 0, c.current.Location())
	return c.current
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.current = c.current.Add(d)
	updated := c.current
	c.mu.Unlock()
	return updated
}
