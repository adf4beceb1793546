package clock

import "time"

// Clock provides the current time. Business logic takes it as a dependency
// so that date-driven behavior (due dates, overdue detection) is testable.
type Clock interface {
	Now() time.Time
}

// System is the real clock
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Fixed is a clock pinned to a single instant, for tests
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}
