// Package clock abstracts wall-clock access so schedulers can be driven by
// a fake clock in tests.
package clock

import "time"

// Clock provides the current time and interruptible sleeps.
type Clock interface {
	Now() time.Time
	// After returns a channel that fires once the duration elapses.
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

// NewSystemClock returns a Clock backed by the real wall clock.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
