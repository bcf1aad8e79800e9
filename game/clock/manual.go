package clock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Manual is a Clock over a clockwork.FakeClock for tests that cannot hand the
// fake's blocking Sleep a driver goroutine. Sleep never blocks: it records
// the requested duration, advances the fake by it and then runs the OnSleep
// hook, which tests use to interleave actions with playback. Advance returns
// only after every callback it made due has finished running.
type Manual struct {
	fake *clockwork.FakeClock

	mu     sync.Mutex
	timers []*manualTimer
	sleeps []time.Duration

	// OnSleep, when set, is called after every Sleep with the 1-based
	// sleep count.
	OnSleep func(n int)
}

type manualTimer struct {
	clock    *Manual
	timer    clockwork.Timer
	deadline time.Time
	// done is closed once the callback has returned or the timer was stopped.
	done    chan struct{}
	stopped bool
}

// NewManual returns a Manual clock over a fresh fake.
func NewManual() *Manual {
	return &Manual{fake: clockwork.NewFakeClock()}
}

// Fake exposes the underlying clockwork fake.
func (m *Manual) Fake() *clockwork.FakeClock {
	return m.fake
}

// AfterFunc schedules f to run when the clock has advanced by d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTimer{clock: m, deadline: m.fake.Now().Add(d), done: make(chan struct{})}
	t.timer = m.fake.AfterFunc(d, func() {
		defer close(t.done)
		f()
	})
	m.timers = append(m.timers, t)
	return t
}

// Sleep records d and advances the clock by it. It returns ctx.Err() without
// advancing when ctx is already done.
func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.sleeps = append(m.sleeps, d)
	n := len(m.sleeps)
	hook := m.OnSleep
	m.mu.Unlock()

	m.Advance(d)

	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}

// Advance moves the fake forward and waits for every callback that became
// due. It must not be called while holding a lock those callbacks take.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.fake.Now().Add(d)
	var due []*manualTimer
	kept := m.timers[:0]
	for _, t := range m.timers {
		switch {
		case t.stopped:
		case !t.deadline.After(target):
			due = append(due, t)
		default:
			kept = append(kept, t)
		}
	}
	m.timers = kept
	m.mu.Unlock()

	m.fake.Advance(d)
	for _, t := range due {
		<-t.done
	}
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.timers {
		if t.stopped {
			continue
		}
		select {
		case <-t.done:
		default:
			n++
		}
	}
	return n
}

// Sleeps returns the durations passed to Sleep so far.
func (m *Manual) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.sleeps...)
}

func (t *manualTimer) Stop() bool {
	// The fake reports true only for a timer whose callback has not been
	// started, so done is closed exactly once.
	if !t.timer.Stop() {
		return false
	}
	t.clock.mu.Lock()
	t.stopped = true
	t.clock.mu.Unlock()
	close(t.done)
	return true
}
