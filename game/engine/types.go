package engine

import "time"

// PieceType identifies the shape of a block
type PieceType string

const (
	Large      PieceType = "large"
	Vertical   PieceType = "vertical"
	Horizontal PieceType = "horizontal"
	Tiny       PieceType = "tiny"

	// EmptyMarker marks an open cell in a layout file. It is not a piece
	// and never reaches the Board.
	EmptyMarker PieceType = "empty"
)

const (
	// Board dimensions
	Rows = 5
	Cols = 4

	// Empty is the occupancy sentinel for a cell no piece covers
	Empty = -1

	// FlashDuration is how long a piece keeps its "just moved" marker
	FlashDuration = 250 * time.Millisecond
)

// Position is a top-left grid coordinate
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Piece is a rigid block placed on the board
type Piece struct {
	ID     int       `json:"id"`
	Type   PieceType `json:"type"`
	Row    int       `json:"row"`
	Col    int       `json:"col"`
	Height int       `json:"height"`
	Width  int       `json:"width"`
}

// Position returns the piece's current top-left coordinate
func (p *Piece) Position() Position {
	return Position{Row: p.Row, Col: p.Col}
}

// Move is a unit cardinal displacement of one piece
type Move struct {
	PieceID int `json:"id"`
	DRow    int `json:"drow"`
	DCol    int `json:"dcol"`
}

// IsUnit reports whether the move displaces exactly one cell along one axis
func (m Move) IsUnit() bool {
	return isUnitDisplacement(m.DRow, m.DCol)
}

// Direction returns the named direction of the move, or "" when it is not a
// unit cardinal displacement
func (m Move) Direction() Direction {
	return DirectionFromDelta(m.DRow, m.DCol)
}

// BoardState maps piece id to position; it is the payload sent to the solver
type BoardState map[int]Position

// OccupancyMap records the owner of every cell, Empty when uncovered
type OccupancyMap [Rows][Cols]int

// Goal is the target position of one piece that marks the puzzle solved
type Goal struct {
	PieceID int `json:"id"`
	Row     int `json:"row"`
	Col     int `json:"col"`
}

// LayoutEntry places one piece in a starting layout
type LayoutEntry struct {
	ID   int       `json:"id"`
	Type PieceType `json:"type"`
	Row  int       `json:"row"`
	Col  int       `json:"col"`
}

// Layout is a named starting arrangement loaded from JSON
type Layout struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Pieces      []LayoutEntry `json:"pieces"`
	Goal        *Goal         `json:"goal,omitempty"`
}

// GameState is a read-only snapshot of a puzzle for presentation layers
type GameState struct {
	LayoutName string       `json:"layout_name"`
	Pieces     []Piece      `json:"pieces"`
	Moves      int          `json:"moves"`
	Occupancy  OccupancyMap `json:"occupancy"`
	Flashing   []int        `json:"flashing,omitempty"`
	Solved     bool         `json:"solved"`
	Goal       Goal         `json:"goal"`
}

// EventType names a data-change notification emitted by the engine
type EventType string

const (
	EventPieceMoved   EventType = "piece_moved"
	EventMoveCount    EventType = "move_count"
	EventFlashCleared EventType = "flash_cleared"
	EventReset        EventType = "reset"
	EventSolved       EventType = "solved"
	EventPlayback     EventType = "playback"
)

// Event is emitted to subscribers after the engine state changes
type Event struct {
	Type      EventType `json:"type"`
	PieceID   int       `json:"piece_id,omitempty"`
	Position  *Position `json:"position,omitempty"`
	Moves     int       `json:"moves"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink receives engine events
type EventSink func(Event)
