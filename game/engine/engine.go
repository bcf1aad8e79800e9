package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wricardo/klotski/game/clock"
)

// Engine provides the main interface for puzzle operations
type Engine interface {
	// State management
	GetState() *GameState
	Initialize(layout *Layout) error
	Reset() *GameState
	GetLayout() *Layout
	MoveCount() int
	IsSolved() bool
	BoardState() BoardState

	// Movement operations
	CanMove(pieceID int, dir Direction) (bool, error)
	Move(pieceID int, dir Direction) (bool, error)
	Tap(pieceID int, x, y, boxWidth, boxHeight float64) (Direction, bool, error)
	Apply(m Move) error
	LegalMoves() []Move

	// Events
	Subscribe(sink EventSink) (unsubscribe func())
	Publish(events ...Event)
}

type flash struct {
	timer clock.Timer
	token int
}

// GameEngine implements Engine. Every validate+apply pair runs under one lock
// so moves never interleave; events are delivered after the lock is released.
type GameEngine struct {
	mu         sync.Mutex
	board      *Board
	layout     *Layout
	clock      clock.Clock
	flashing   map[int]flash
	flashToken int

	subsMu  sync.RWMutex
	subs    map[int]EventSink
	nextSub int
}

// Option configures a GameEngine
type Option func(*GameEngine)

// WithClock sets the clock used for the flash timers
func WithClock(c clock.Clock) Option {
	return func(e *GameEngine) {
		e.clock = c
	}
}

// NewEngine creates a new puzzle engine from a starting layout
func NewEngine(layout *Layout, opts ...Option) (*GameEngine, error) {
	if err := ValidateLayout(layout); err != nil {
		return nil, err
	}

	board, err := NewBoard(layout)
	if err != nil {
		return nil, err
	}

	e := &GameEngine{
		board:    board,
		layout:   layout,
		clock:    clock.Real(),
		flashing: make(map[int]flash),
		subs:     make(map[int]EventSink),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// NewEngineWithDefaults creates an engine on the classic layout
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(ClassicLayout())
	if err != nil {
		panic(fmt.Sprintf("classic layout rejected: %v", err))
	}
	return e
}

// GetState returns a snapshot of the puzzle
func (e *GameEngine) GetState() *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *GameEngine) stateLocked() *GameState {
	flashing := make([]int, 0, len(e.flashing))
	for id := range e.flashing {
		flashing = append(flashing, id)
	}
	sort.Ints(flashing)

	return &GameState{
		LayoutName: e.layout.Name,
		Pieces:     e.board.Snapshot(),
		Moves:      e.board.MoveCount(),
		Occupancy:  e.board.Occupancy(),
		Flashing:   flashing,
		Solved:     e.board.IsSolved(),
		Goal:       e.board.Goal(),
	}
}

// Initialize replaces the board with a new layout
func (e *GameEngine) Initialize(layout *Layout) error {
	if err := ValidateLayout(layout); err != nil {
		return err
	}

	e.mu.Lock()
	if err := e.board.Initialize(layout); err != nil {
		e.mu.Unlock()
		return err
	}
	e.layout = layout
	e.cancelFlashesLocked()
	ev := Event{Type: EventReset, Moves: 0, Detail: layout.Name, Timestamp: time.Now()}
	e.mu.Unlock()

	e.Publish(ev)
	return nil
}

// Reset discards the pieces and rebuilds them from the current layout
func (e *GameEngine) Reset() *GameState {
	e.mu.Lock()
	// The layout was validated when it was installed
	if err := e.board.Initialize(e.layout); err != nil {
		panic(fmt.Sprintf("installed layout %q no longer valid: %v", e.layout.Name, err))
	}
	e.cancelFlashesLocked()
	state := e.stateLocked()
	ev := Event{Type: EventReset, Moves: 0, Detail: e.layout.Name, Timestamp: time.Now()}
	e.mu.Unlock()

	e.Publish(ev)
	return state
}

// GetLayout returns the layout the board was built from
func (e *GameEngine) GetLayout() *Layout {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layout
}

// MoveCount returns the moves applied since the last reset
func (e *GameEngine) MoveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.board.MoveCount()
}

// IsSolved reports whether the goal is reached
func (e *GameEngine) IsSolved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.board.IsSolved()
}

// BoardState returns piece positions keyed by id
func (e *GameEngine) BoardState() BoardState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.board.State()
}

// CanMove checks whether a piece may move one cell in dir
func (e *GameEngine) CanMove(pieceID int, dir Direction) (bool, error) {
	dRow, dCol := dir.Delta()
	if dRow == 0 && dCol == 0 {
		return false, fmt.Errorf("%w: direction %q", ErrInvalidDisplacement, dir)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.board.FindByID(pieceID)
	if err != nil {
		return false, err
	}
	return CanMove(p, dRow, dCol, e.board.Occupancy()), nil
}

// Move validates and applies a user move. An illegal move returns false
// with no error and changes nothing.
func (e *GameEngine) Move(pieceID int, dir Direction) (bool, error) {
	dRow, dCol := dir.Delta()
	if dRow == 0 && dCol == 0 {
		return false, fmt.Errorf("%w: direction %q", ErrInvalidDisplacement, dir)
	}

	e.mu.Lock()
	p, err := e.board.FindByID(pieceID)
	if err != nil {
		e.mu.Unlock()
		return false, err
	}
	if !CanMove(p, dRow, dCol, e.board.Occupancy()) {
		e.mu.Unlock()
		return false, nil
	}
	events, err := e.applyLocked(p, dRow, dCol)
	e.mu.Unlock()
	if err != nil {
		return false, err
	}

	e.Publish(events...)
	return true, nil
}

// Tap resolves a pointer position inside a piece's box to a direction and
// attempts that move. A tap on the exact centre or on a box with no area
// resolves to no direction and does nothing.
func (e *GameEngine) Tap(pieceID int, x, y, boxWidth, boxHeight float64) (Direction, bool, error) {
	dir := DirectionFromDelta(ResolveDirection(x, y, boxWidth, boxHeight))
	if dir == "" {
		e.mu.Lock()
		_, err := e.board.FindByID(pieceID)
		e.mu.Unlock()
		return "", false, err
	}

	moved, err := e.Move(pieceID, dir)
	return dir, moved, err
}

// Apply applies a move from a trusted source without checking occupancy
func (e *GameEngine) Apply(m Move) error {
	e.mu.Lock()
	p, err := e.board.FindByID(m.PieceID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	events, err := e.applyLocked(p, m.DRow, m.DCol)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.Publish(events...)
	return nil
}

// LegalMoves lists every move currently allowed
func (e *GameEngine) LegalMoves() []Move {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.board.LegalMoves()
}

func (e *GameEngine) applyLocked(p *Piece, dRow, dCol int) ([]Event, error) {
	if err := e.board.ApplyMove(p, dRow, dCol); err != nil {
		return nil, err
	}
	e.flashLocked(p.ID)

	now := time.Now()
	pos := p.Position()
	moves := e.board.MoveCount()
	events := []Event{
		{Type: EventPieceMoved, PieceID: p.ID, Position: &pos, Moves: moves, Timestamp: now},
		{Type: EventMoveCount, Moves: moves, Timestamp: now},
	}
	if e.board.IsSolved() {
		events = append(events, Event{Type: EventSolved, PieceID: p.ID, Moves: moves, Timestamp: now})
	}
	return events, nil
}

// flashLocked marks a piece as just moved and schedules the marker's removal.
// A newer flash on the same piece supersedes the older timer.
func (e *GameEngine) flashLocked(id int) {
	if f, ok := e.flashing[id]; ok {
		f.timer.Stop()
	}
	e.flashToken++
	token := e.flashToken
	timer := e.clock.AfterFunc(FlashDuration, func() {
		e.clearFlash(id, token)
	})
	e.flashing[id] = flash{timer: timer, token: token}
}

func (e *GameEngine) clearFlash(id, token int) {
	e.mu.Lock()
	f, ok := e.flashing[id]
	if !ok || f.token != token {
		// superseded or cancelled by a reset
		e.mu.Unlock()
		return
	}
	delete(e.flashing, id)
	ev := Event{Type: EventFlashCleared, PieceID: id, Moves: e.board.MoveCount(), Timestamp: time.Now()}
	e.mu.Unlock()

	e.Publish(ev)
}

func (e *GameEngine) cancelFlashesLocked() {
	for id, f := range e.flashing {
		f.timer.Stop()
		delete(e.flashing, id)
	}
}

// IsFlashing reports whether a piece still carries its moved marker
func (e *GameEngine) IsFlashing(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.flashing[id]
	return ok
}

// Subscribe registers a sink for engine events
func (e *GameEngine) Subscribe(sink EventSink) func() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	e.nextSub++
	id := e.nextSub
	e.subs[id] = sink

	return func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		delete(e.subs, id)
	}
}

// Publish delivers events to every subscriber in registration order
func (e *GameEngine) Publish(events ...Event) {
	if len(events) == 0 {
		return
	}

	e.subsMu.RLock()
	ids := make([]int, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	sinks := make([]EventSink, 0, len(ids))
	for _, id := range ids {
		sinks = append(sinks, e.subs[id])
	}
	e.subsMu.RUnlock()

	for _, ev := range events {
		for _, sink := range sinks {
			sink(ev)
		}
	}
}
