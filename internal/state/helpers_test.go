package state

import (
	"time"
)

// stepClock returns start, then advances by step on every call.
type stepClock struct {
	next time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{next: start, step: step}
}

func (c *stepClock) Now() time.Time {
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

var testEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
