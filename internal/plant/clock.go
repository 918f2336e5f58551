package plant

import "time"

// Clock is a manual clock: Sleep advances Now instantly.
type Clock struct {
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time { return c.now }

func (c *Clock) Sleep(d time.Duration) {
	if d > 0 {
		c.now = c.now.Add(d)
	}
}

// Advance moves the clock forward without sleeping semantics; used to
// account for time spent inside a tick.
func (c *Clock) Advance(d time.Duration) { c.Sleep(d) }
