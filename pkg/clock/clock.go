// Package clock provides the timer abstraction used for acknowledgement
// timeouts. Production code uses Real(); tests use Fake() and advance time
// explicitly so timeout paths run deterministically.
package clock

import "time"

// Clock schedules one-shot callbacks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f in its own goroutine (real) or synchronously during
	// Advance (fake) once d has elapsed.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a scheduled callback.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the callback from running. It returns false if the callback
// already ran or the timer was already stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stopFunc: t.Stop}
}
