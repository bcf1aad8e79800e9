package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/klotski/game/engine"
	"github.com/wricardo/klotski/game/playback"
)

// GameService defines all puzzle operations exposed to the transports
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, layoutName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Moves
	Move(ctx context.Context, sessionID string, pieceID int, direction string) (*MoveResult, error)
	Tap(ctx context.Context, sessionID string, tap TapRequest) (*MoveResult, error)
	Reset(ctx context.Context, sessionID string) (*SessionState, error)

	// State
	GetGameState(ctx context.Context, sessionID string) (*SessionState, error)
	LegalMoves(ctx context.Context, sessionID string) ([]engine.Move, error)

	// Solver playback
	Solve(ctx context.Context, sessionID string) (*PlaybackResult, error)
	Hint(ctx context.Context, sessionID string) (*PlaybackResult, error)
	Cancel(ctx context.Context, sessionID string) (*PlaybackResult, error)

	// Layouts
	ListLayouts(ctx context.Context) ([]*LayoutInfo, error)
	LoadLayout(ctx context.Context, layoutName string) (*engine.Layout, error)
	SaveLayout(ctx context.Context, layoutName string, layout *engine.Layout) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, layout *engine.Layout) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// LayoutManager handles starting layout loading
type LayoutManager interface {
	LoadLayout(name string) (*engine.Layout, error)
	ListLayouts() ([]*LayoutInfo, error)
	GetDefault() *engine.Layout
	SaveLayout(name string, layout *engine.Layout) error
}

// EventPublisher forwards engine events to the clients watching a session
type EventPublisher interface {
	PublishEvent(sessionID string, ev engine.Event)
}

// Session is one independent puzzle instance
type Session struct {
	ID        string
	Engine    *engine.GameEngine
	Playback  *playback.Controller
	Layout    *engine.Layout
	CreatedAt time.Time

	mu           sync.Mutex
	lastAccessed time.Time
	closers      []func()
}

// Touch records t as the last time the session was used
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = t
}

// LastAccessed returns the time recorded by the latest Touch
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// OnClose registers fn to run when the session is removed
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, fn)
}

// Close cancels playback and runs the registered close hooks once
func (s *Session) Close() {
	if s.Playback != nil {
		s.Playback.Cancel()
	}

	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	for _, fn := range closers {
		fn()
	}
}
