package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wricardo/klotski/game/engine"
	"github.com/wricardo/klotski/game/playback"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	layouts  LayoutManager
	events   EventPublisher
	logger   *slog.Logger
	mu       sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithEventPublisher forwards every engine event of every session to pub
func WithEventPublisher(pub EventPublisher) Option {
	return func(s *gameServiceImpl) {
		s.events = pub
	}
}

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *gameServiceImpl) {
		s.logger = logger
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, layouts LayoutManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		layouts:  layouts,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new puzzle session from a named layout, or the
// default layout when the name is empty
func (s *gameServiceImpl) CreateSession(ctx context.Context, layoutName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var layout *engine.Layout
	if layoutName != "" {
		var err error
		layout, err = s.layouts.LoadLayout(layoutName)
		if err != nil {
			if errors.Is(err, ErrLayoutNotFound) {
				available, listErr := s.layouts.ListLayouts()
				if listErr == nil && len(available) > 0 {
					ids := make([]string, 0, len(available))
					for _, l := range available {
						ids = append(ids, l.LayoutID)
					}
					return nil, fmt.Errorf("layout '%s': %w. Available layouts: %v", layoutName, err, ids)
				}
			}
			return nil, fmt.Errorf("failed to load layout %s: %w", layoutName, err)
		}
	} else {
		layout = s.layouts.GetDefault()
	}

	// Let the session manager generate a short id
	sess, err := s.sessions.Create("", layout)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if s.events != nil {
		id := sess.ID
		unsubscribe := sess.Engine.Subscribe(func(ev engine.Event) {
			s.events.PublishEvent(id, ev)
		})
		sess.OnClose(unsubscribe)
	}

	s.logger.Info("session created", "session", sess.ID, "layout", layout.Name)
	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession cancels any playback and removes the session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.logger.Info("session deleted", "session", sessionID)
	return nil
}

// Move selects a piece and a named direction. While a playback is running
// the selection only cancels it.
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, pieceID int, direction string) (*MoveResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	input, err := sess.Playback.Select(pieceID, dir)
	if err != nil {
		return nil, err
	}
	return moveResult(sess, pieceID, input), nil
}

// Tap resolves a pointer press inside a piece's box into a move
func (s *gameServiceImpl) Tap(ctx context.Context, sessionID string, tap TapRequest) (*MoveResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	input, err := sess.Playback.Tap(tap.PieceID, tap.X, tap.Y, tap.Width, tap.Height)
	if err != nil {
		return nil, err
	}
	return moveResult(sess, tap.PieceID, input), nil
}

// Reset cancels playback and restores the starting layout
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*SessionState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Playback.Reset()
	return &SessionState{GameState: state, Playback: sess.Playback.Status()}, nil
}

// GetGameState returns the board snapshot and playback status
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*SessionState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionState(sess), nil
}

// LegalMoves lists the moves currently allowed on a session's board
func (s *gameServiceImpl) LegalMoves(ctx context.Context, sessionID string) ([]engine.Move, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.LegalMoves(), nil
}

// Solve starts a solver playback in the background. Progress is reported
// through engine events.
func (s *gameServiceImpl) Solve(ctx context.Context, sessionID string) (*PlaybackResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	// The run outlives the request that started it
	err = sess.Playback.StartSolve(context.WithoutCancel(ctx), func(applied int, err error) {
		if err != nil && !errors.Is(err, playback.ErrCancelled) {
			s.logger.Warn("solve failed", "session", sess.ID, "applied", applied, "error", err)
			return
		}
		s.logger.Info("solve finished", "session", sess.ID, "applied", applied, "cancelled", err != nil)
	})
	if err != nil {
		return nil, err
	}

	return &PlaybackResult{Status: sess.Playback.Status(), Message: "Solving"}, nil
}

// Hint requests and applies one solver move in the background
func (s *gameServiceImpl) Hint(ctx context.Context, sessionID string) (*PlaybackResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	err = sess.Playback.StartHint(context.WithoutCancel(ctx), func(m *engine.Move, err error) {
		if err != nil {
			if !errors.Is(err, playback.ErrCancelled) {
				s.logger.Warn("hint failed", "session", sess.ID, "error", err)
			}
			return
		}
		s.logger.Info("hint applied", "session", sess.ID, "piece", m.PieceID, "direction", m.Direction())
	})
	if err != nil {
		return nil, err
	}

	return &PlaybackResult{Status: sess.Playback.Status(), Message: "Fetching hint"}, nil
}

// Cancel stops a running solve or hint
func (s *gameServiceImpl) Cancel(ctx context.Context, sessionID string) (*PlaybackResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	message := "Nothing to cancel"
	if sess.Playback.Cancel() {
		message = "Playback cancelled"
	}
	return &PlaybackResult{Status: sess.Playback.Status(), Message: message}, nil
}

// ListLayouts returns all available layouts
func (s *gameServiceImpl) ListLayouts(ctx context.Context) ([]*LayoutInfo, error) {
	return s.layouts.ListLayouts()
}

// LoadLayout loads a specific layout
func (s *gameServiceImpl) LoadLayout(ctx context.Context, layoutName string) (*engine.Layout, error) {
	return s.layouts.LoadLayout(layoutName)
}

// SaveLayout validates and stores a layout
func (s *gameServiceImpl) SaveLayout(ctx context.Context, layoutName string, layout *engine.Layout) error {
	return s.layouts.SaveLayout(layoutName, layout)
}

// session looks up a session and marks it accessed
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func sessionState(sess *Session) *SessionState {
	return &SessionState{
		GameState: sess.Engine.GetState(),
		Playback:  sess.Playback.Status(),
	}
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		LayoutName:     sess.Layout.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		State:          sessionState(sess),
		Layout:         sess.Layout,
	}
}

func moveResult(sess *Session, pieceID int, input playback.InputResult) *MoveResult {
	result := &MoveResult{
		Success:           input.Moved,
		PieceID:           pieceID,
		Direction:         string(input.Direction),
		CancelledPlayback: input.CancelledPlayback,
		State:             sessionState(sess),
	}

	switch {
	case input.CancelledPlayback:
		result.Message = "Playback cancelled"
	case input.Direction == "":
		result.Message = "No direction"
	case input.Moved && result.State.Solved:
		result.Message = fmt.Sprintf("Solved in %d moves!", result.State.Moves)
	case input.Moved:
		result.Message = fmt.Sprintf("Moved piece %d %s", pieceID, input.Direction)
	default:
		result.Message = fmt.Sprintf("Piece %d cannot move %s", pieceID, input.Direction)
	}
	return result
}
