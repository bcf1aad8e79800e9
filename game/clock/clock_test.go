package clock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestManualAdvanceWaitsForDueCallbacks(t *testing.T) {
	m := NewManual()
	var mu sync.Mutex
	fired := map[string]bool{}
	record := func(name string) func() {
		return func() {
			mu.Lock()
			fired[name] = true
			mu.Unlock()
		}
	}

	m.AfterFunc(300*time.Millisecond, record("late"))
	m.AfterFunc(100*time.Millisecond, record("early"))
	m.AfterFunc(100*time.Millisecond, record("early-second"))

	m.Advance(50 * time.Millisecond)
	mu.Lock()
	if len(fired) != 0 {
		t.Fatalf("Expected no callbacks yet, got %v", fired)
	}
	mu.Unlock()
	if m.Pending() != 3 {
		t.Errorf("Expected 3 pending timers, got %d", m.Pending())
	}

	m.Advance(100 * time.Millisecond)
	mu.Lock()
	if !fired["early"] || !fired["early-second"] || fired["late"] {
		t.Errorf("Expected only the early callbacks, got %v", fired)
	}
	mu.Unlock()

	m.Advance(150 * time.Millisecond)
	mu.Lock()
	if !fired["late"] {
		t.Error("Expected late callback after its deadline")
	}
	mu.Unlock()
	if m.Pending() != 0 {
		t.Errorf("Expected no pending timers, got %d", m.Pending())
	}
}

func TestManualStop(t *testing.T) {
	m := NewManual()
	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Error("Expected first Stop to report true")
	}
	if timer.Stop() {
		t.Error("Expected second Stop to report false")
	}

	m.Advance(2 * time.Second)
	if fired {
		t.Error("Stopped timer should not fire")
	}
}

func TestManualSleepRecordsAndAdvances(t *testing.T) {
	m := NewManual()
	fired := false
	m.AfterFunc(250*time.Millisecond, func() { fired = true })

	var hookCalls []int
	m.OnSleep = func(n int) { hookCalls = append(hookCalls, n) }

	if err := m.Sleep(context.Background(), 650*time.Millisecond); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !fired {
		t.Error("Sleep should advance the clock past pending timers")
	}
	if got := m.Sleeps(); len(got) != 1 || got[0] != 650*time.Millisecond {
		t.Errorf("Unexpected sleeps: %v", got)
	}
	if len(hookCalls) != 1 || hookCalls[0] != 1 {
		t.Errorf("Unexpected hook calls: %v", hookCalls)
	}
}

func TestManualSleepCancelled(t *testing.T) {
	m := NewManual()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Sleep(ctx, time.Second); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(m.Sleeps()) != 0 {
		t.Error("Cancelled sleep should not be recorded")
	}
}

func TestRealSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := Real().Sleep(ctx, time.Minute); err == nil {
		t.Error("Expected error from cancelled sleep")
	}
	if time.Since(start) > time.Second {
		t.Error("Cancelled sleep should return promptly")
	}
}

func TestRealAfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real().AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("AfterFunc callback did not run")
	}
}

func TestFakeSleepWaitsForAdvance(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(fake)

	done := make(chan error, 1)
	go func() { done <- c.Sleep(context.Background(), time.Second) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fake.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("Sleep never registered a timer: %v", err)
	}

	fake.Advance(999 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("Sleep returned early: %v", err)
	default:
	}

	fake.Advance(time.Millisecond)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Sleep did not return after the fake advanced")
	}
}

func TestFakeSleepCancelledReleasesTimer(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(fake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Sleep(ctx, time.Minute) }()

	wait, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	if err := fake.BlockUntilContext(wait, 1); err != nil {
		t.Fatalf("Sleep never registered a timer: %v", err)
	}
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Cancelled sleep did not return")
	}
	if err := fake.BlockUntilContext(wait, 0); err != nil {
		t.Errorf("Expected the sleep timer to be stopped: %v", err)
	}
}

func TestFakeAfterFunc(t *testing.T) {
	fake := clockwork.NewFakeClock()
	done := make(chan struct{})
	New(fake).AfterFunc(250*time.Millisecond, func() { close(done) })

	fake.Advance(250 * time.Millisecond)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("AfterFunc callback did not run")
	}
}
