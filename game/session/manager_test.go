package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/klotski/game/clock"
	"github.com/wricardo/klotski/game/engine"
)

// stubSolver answers every request with the same moves
type stubSolver struct {
	moves []engine.Move
	block chan struct{}
}

func (s *stubSolver) Solve(ctx context.Context, state engine.BoardState) ([]engine.Move, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.moves, nil
}

func (s *stubSolver) Hint(ctx context.Context, state engine.BoardState) (engine.Move, error) {
	if len(s.moves) == 0 {
		return engine.Move{}, errors.New("no moves")
	}
	return s.moves[0], nil
}

func newTestManager() *Manager {
	return NewManager(&stubSolver{},
		WithClock(clock.NewManual()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestManager_Create(t *testing.T) {
	manager := newTestManager()
	layout := engine.ClassicLayout()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", layout)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.Engine == nil || session.Playback == nil {
			t.Error("Expected engine and playback controller to be initialized")
		}
		if session.Layout != layout {
			t.Error("Expected session to keep its layout")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", layout)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", layout)
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", layout)
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("invalid session ID", func(t *testing.T) {
		_, err := manager.Create("bad/id", layout)
		if !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("invalid layout", func(t *testing.T) {
		invalid := engine.ClassicLayout()
		invalid.Pieces[0].Row = 4
		_, err := manager.Create("invalid-test", invalid)
		if !errors.Is(err, engine.ErrOutOfBounds) {
			t.Errorf("Expected ErrOutOfBounds, got %v", err)
		}
		if _, err := manager.Get("invalid-test"); err != ErrSessionNotFound {
			t.Error("Failed creation should not register a session")
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := newTestManager()
	created, _ := manager.Create("get-test", engine.ClassicLayout())

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Error("Expected the same session instance")
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil || session != created {
			t.Errorf("Expected case-insensitive lookup, got %v", err)
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		if _, err := manager.Get("missing"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := newTestManager()
	layout := engine.ClassicLayout()

	first, err := manager.GetOrCreate("goc", layout)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := manager.GetOrCreate("goc", layout)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first != second {
		t.Error("Expected the existing session to be returned")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", manager.Count())
	}
}

func TestManager_DeleteCancelsPlayback(t *testing.T) {
	solver := &stubSolver{block: make(chan struct{})}
	manager := NewManager(solver,
		WithClock(clock.NewManual()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	session, err := manager.Create("del", engine.ClassicLayout())
	if err != nil {
		t.Fatal(err)
	}

	closed := false
	session.OnClose(func() { closed = true })

	done := make(chan error, 1)
	if err := session.Playback.StartSolve(context.Background(), func(applied int, err error) {
		done <- err
	}); err != nil {
		t.Fatalf("StartSolve: %v", err)
	}

	if err := manager.Delete("DEL"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !closed {
		t.Error("Expected close hooks to run")
	}
	if session.Playback.Busy() {
		t.Error("Expected playback cancelled on delete")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Playback did not stop after delete")
	}

	if err := manager.Delete("del"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestManager_List(t *testing.T) {
	manager := newTestManager()
	layout := engine.ClassicLayout()

	ids := []string{"a1", "b2", "c3"}
	for _, id := range ids {
		if _, err := manager.Create(id, layout); err != nil {
			t.Fatal(err)
		}
	}

	sessions := manager.List()
	if len(sessions) != len(ids) {
		t.Fatalf("Expected %d sessions, got %d", len(ids), len(sessions))
	}
	found := make(map[string]bool)
	for _, s := range sessions {
		found[s.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			t.Errorf("Session %s not listed", id)
		}
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := newTestManager()
	layout := engine.ClassicLayout()

	active, _ := manager.Create("active", layout)
	expired, _ := manager.Create("expired", layout)

	expired.Touch(time.Now().Add(-2 * time.Hour))
	active.Touch(time.Now())

	closed := false
	expired.OnClose(func() { closed = true })

	deleted := manager.CleanupExpiredSessions(1 * time.Hour)
	if deleted != 1 {
		t.Errorf("Expected 1 session to be deleted, got %d", deleted)
	}
	if !closed {
		t.Error("Expected the expired session to be closed")
	}

	if _, err := manager.Get("expired"); err != ErrSessionNotFound {
		t.Error("Expected expired session to be deleted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to still exist")
	}
}

func TestManager_CleanupKeepsBusySessions(t *testing.T) {
	solver := &stubSolver{block: make(chan struct{})}
	manager := NewManager(solver,
		WithClock(clock.NewManual()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	session, _ := manager.Create("busy", engine.ClassicLayout())
	session.Touch(time.Now().Add(-2 * time.Hour))

	done := make(chan struct{})
	session.Playback.StartSolve(context.Background(), func(int, error) { close(done) })

	if deleted := manager.CleanupExpiredSessions(time.Hour); deleted != 0 {
		t.Errorf("Expected busy session to be kept, deleted %d", deleted)
	}

	session.Playback.Cancel()
	<-done
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := newTestManager()
	session, _ := manager.Create("access-test", engine.ClassicLayout())
	originalTime := session.LastAccessed()

	time.Sleep(10 * time.Millisecond)

	if err := manager.UpdateLastAccessed("access-test"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}
	updated, _ := manager.Get("access-test")
	if !updated.LastAccessed().After(originalTime) {
		t.Error("Expected the access time to be updated")
	}

	if err := manager.UpdateLastAccessed("missing"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := newTestManager()
	layout := engine.ClassicLayout()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s-%d", i%20)
			if _, err := manager.Create(id, layout); err != nil && err != ErrSessionAlreadyExists {
				errs <- err
			}
			if _, err := manager.Get(id); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 20 {
		t.Errorf("Expected 20 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := newTestManager()
	layout := engine.ClassicLayout()

	session1, _ := manager.Create("iso-1", layout)
	session2, _ := manager.Create("iso-2", layout)

	if moved, err := session1.Engine.Move(2, engine.Left); err != nil || !moved {
		t.Fatalf("Move: %v, %v", moved, err)
	}

	if pos := session2.Engine.BoardState()[2]; pos != (engine.Position{Row: 4, Col: 1}) {
		t.Errorf("Session 2 should not be affected by session 1 moves, piece 2 at %+v", pos)
	}
	if session2.Engine.MoveCount() != 0 {
		t.Error("Sessions should have independent move counters")
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := newTestManager()
	layout := engine.ClassicLayout()

	generatedIDs := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := manager.Create("", layout)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if generatedIDs[session.ID] {
			t.Errorf("Duplicate session ID generated: %s", session.ID)
		}
		generatedIDs[session.ID] = true

		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got %d", len(session.ID))
		}
	}
}
