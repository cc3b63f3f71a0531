package domain

import "time"

// Clock supplies the current time to settlement logic. Engines never
// read the wall clock directly so time-gated transitions stay
// deterministic under test.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func RealClock() Clock {
	return realClock{}
}
