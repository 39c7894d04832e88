package session

import "time"

// Clock abstracts wall-clock reads so elapsed-time math is testable. All
// timing in this package goes through a Clock; nothing calls time.Now
// directly.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }
