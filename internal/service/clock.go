package service

import "time"

// Clock abstracts "now" so future-meeting filtering and the Sunday rule
// can be exercised deterministically in tests.  The production clock is
// pinned to the single configured deployment timezone.
type Clock interface {
	Now() time.Time
}

// NewClock returns a Clock reporting wall-clock time in loc.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &locClock{loc: loc}
}

type locClock struct {
	loc *time.Location
}

func (c *locClock) Now() time.Time { return time.Now().In(c.loc) }
