package service

import (
	"errors"
	"time"

	"github.com/wricardo/klotski/game/engine"
	"github.com/wricardo/klotski/game/playback"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrLayoutNotFound  = errors.New("layout not found")
)

// SessionInfo provides information about a puzzle session
type SessionInfo struct {
	ID             string         `json:"id"`
	LayoutName     string         `json:"layout_name"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at"`
	State          *SessionState  `json:"state"`
	Layout         *engine.Layout `json:"layout,omitempty"`
}

// SessionState is the board snapshot plus the playback status
type SessionState struct {
	*engine.GameState
	Playback playback.Status `json:"playback"`
}

// TapRequest is a pointer press inside a piece's bounding box
type TapRequest struct {
	PieceID int     `json:"piece_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// MoveResult contains the result of a move or tap
type MoveResult struct {
	Success           bool          `json:"success"`
	PieceID           int           `json:"piece_id"`
	Direction         string        `json:"direction,omitempty"`
	CancelledPlayback bool          `json:"cancelled_playback,omitempty"`
	Message           string        `json:"message"`
	State             *SessionState `json:"state"`
}

// PlaybackResult reports the controller state after a solve, hint or cancel
type PlaybackResult struct {
	Status  playback.Status `json:"status"`
	Message string          `json:"message"`
}

// LayoutInfo provides information about a starting layout
type LayoutInfo struct {
	Filename    string `json:"filename"`
	LayoutID    string `json:"layout_id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Pieces      int    `json:"pieces"`
}
