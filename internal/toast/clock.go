package toast

import "time"

// Timer is a cancelable pending callback.
type Timer interface {
	// Stop reports false if the callback already ran or was stopped.
	Stop() bool
}

// Clock schedules callbacks. The manager takes all its timers from one Clock
// so tests can drive every lifecycle transition deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns the wall Clock.
func SystemClock() Clock { return systemClock{} }
