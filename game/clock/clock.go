// Package clock abstracts scheduled callbacks and cancellable waits so that
// cosmetic timers (move flash) and playback pacing can be driven by real time
// in production and stepped manually in tests. Time and timers come from
// clockwork; this package adds a context-aware Sleep on top.
package clock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer is a pending callback that can be stopped before it fires.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer; false means it already fired or was stopped.
	Stop() bool
}

// Clock schedules callbacks and suspends callers for a duration.
type Clock interface {
	// AfterFunc runs f on its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer

	// Sleep blocks for d or until ctx is done, whichever comes first.
	// It returns ctx.Err() when the wait was cut short.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real returns a Clock backed by wall time.
func Real() Clock {
	return New(clockwork.NewRealClock())
}

// New adapts a clockwork clock. Passing a *clockwork.FakeClock gives a Clock
// whose Sleep blocks until the fake is advanced.
func New(c clockwork.Clock) Clock {
	return workClock{c: c}
}

type workClock struct {
	c clockwork.Clock
}

func (w workClock) AfterFunc(d time.Duration, f func()) Timer {
	return w.c.AfterFunc(d, f)
}

func (w workClock) Sleep(ctx context.Context, d time.Duration) error {
	t := w.c.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
