package sessionqueue

import "time"

// Clock supplies "now" for deadline math and timed waits, so tests can run
// the queue against controllable time.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// SystemClock is the real wall clock.
var SystemClock Clock = systemClock{}
