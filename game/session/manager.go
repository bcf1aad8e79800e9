package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/klotski/game/clock"
	"github.com/wricardo/klotski/game/engine"
	"github.com/wricardo/klotski/game/playback"
	"github.com/wricardo/klotski/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager handles puzzle session lifecycle
type Manager struct {
	sessions map[string]*service.Session
	solver   playback.Solver
	clock    clock.Clock
	logger   *slog.Logger
	mu       sync.RWMutex
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the clock shared by the engines and playback controllers
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithLogger sets the logger handed to every playback controller
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new session manager. Every session plays solver
// output from solver.
func NewManager(solver playback.Solver, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*service.Session),
		solver:   solver,
		clock:    clock.Real(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create creates a new session with the given ID and starting layout
func (m *Manager) Create(id string, layout *engine.Layout) (*service.Session, error) {
	if strings.TrimSpace(id) != id || strings.ContainsAny(id, "/?# ") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		// Generated ids are short, so retry on collision
		for id = m.generateSessionID(); m.sessionExists(id); id = m.generateSessionID() {
		}
	} else if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(layout, engine.WithClock(m.clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	ctrl := playback.NewController(eng, m.solver,
		playback.WithClock(m.clock),
		playback.WithLogger(m.logger.With("session", id)))

	now := time.Now()
	session := &service.Session{
		ID:        id,
		Engine:    eng,
		Playback:  ctrl,
		Layout:    layout,
		CreatedAt: now,
	}
	session.Touch(now)

	m.sessions[strings.ToLower(id)] = session
	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id string, layout *engine.Layout) (*service.Session, error) {
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, layout)
	}

	return nil, err
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete removes a session and cancels its playback
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	lowerID := strings.ToLower(id)
	session, exists := m.sessions[lowerID]
	if !exists {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, lowerID)
	m.mu.Unlock()

	session.Close()
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}

	session.Touch(time.Now())
	return nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the
// given duration. Busy sessions are kept.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	cutoff := time.Now().Add(-maxAge)
	var removed []*service.Session

	for id, session := range m.sessions {
		if session.LastAccessed().Before(cutoff) && !session.Playback.Busy() {
			delete(m.sessions, id)
			removed = append(removed, session)
		}
	}
	m.mu.Unlock()

	for _, session := range removed {
		session.Close()
	}
	return len(removed)
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	// Generate 2 random bytes (4 hex characters)
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}
