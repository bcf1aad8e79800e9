package engine

import "fmt"

// Board is the authoritative piece store of one puzzle
type Board struct {
	pieces []*Piece
	moves  int
	goal   Goal
}

// NewBoard builds a board from a starting layout
func NewBoard(layout *Layout) (*Board, error) {
	b := &Board{}
	if err := b.Initialize(layout); err != nil {
		return nil, err
	}
	return b, nil
}

// Initialize replaces the whole piece set from a layout and resets the move
// counter. The board is left untouched when the layout is invalid.
func (b *Board) Initialize(layout *Layout) error {
	pieces, err := PiecesFromLayout(layout)
	if err != nil {
		return err
	}

	b.pieces = pieces
	b.moves = 0
	b.goal = GoalFor(layout)
	return nil
}

// FindByID looks up a live piece
func (b *Board) FindByID(id int) (*Piece, error) {
	for _, p := range b.pieces {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrPieceNotFound, id)
}

// All returns the live piece collection
func (b *Board) All() []*Piece {
	return b.pieces
}

// Occupancy rebuilds the occupancy map from the current positions
func (b *Board) Occupancy() OccupancyMap {
	return BuildOccupancy(b.pieces)
}

// MoveCount returns the number of moves applied since the last initialize
func (b *Board) MoveCount() int {
	return b.moves
}

// Goal returns the solved condition for this board
func (b *Board) Goal() Goal {
	return b.goal
}

// IsSolved reports whether the goal piece sits on its target cell
func (b *Board) IsSolved() bool {
	p, err := b.FindByID(b.goal.PieceID)
	if err != nil {
		return false
	}
	return p.Row == b.goal.Row && p.Col == b.goal.Col
}

// State serializes piece positions keyed by id
func (b *Board) State() BoardState {
	state := make(BoardState, len(b.pieces))
	for _, p := range b.pieces {
		state[p.ID] = p.Position()
	}
	return state
}

// Snapshot copies the pieces so callers cannot mutate the store
func (b *Board) Snapshot() []Piece {
	out := make([]Piece, len(b.pieces))
	for i, p := range b.pieces {
		out[i] = *p
	}
	return out
}
