// Package clock hides wall-clock access behind an interface so the
// reminder scheduler can be driven deterministically in tests.
package clock

import "time"

// Clock is the subset of the time package the scheduler depends on.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f once d has elapsed. A non-positive d fires as
	// soon as possible.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stop func() bool
}

// Stop cancels the call. It reports false when the call already ran or
// was already stopped.
func (t *Timer) Stop() bool { return t.stop() }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stop: t.Stop}
}
