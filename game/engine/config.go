package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultGoal is the classic exit: the large block at the bottom centre
var DefaultGoal = Goal{PieceID: 0, Row: 3, Col: 1}

// ClassicLayout returns the standard starting arrangement:
//
//	1  0  0  3
//	1  0  0  3
//	4  5  6  9
//	4  7  8  9
//	.  2  2  .
func ClassicLayout() *Layout {
	return &Layout{
		Name:        "classic",
		Description: "Classic Klotski start: free the large block through the bottom exit",
		Pieces: []LayoutEntry{
			{ID: 0, Type: Large, Row: 0, Col: 1},
			{ID: 1, Type: Vertical, Row: 0, Col: 0},
			{ID: 2, Type: Horizontal, Row: 4, Col: 1},
			{ID: 3, Type: Vertical, Row: 0, Col: 3},
			{ID: 4, Type: Vertical, Row: 2, Col: 0},
			{ID: 5, Type: Tiny, Row: 2, Col: 1},
			{ID: 6, Type: Tiny, Row: 2, Col: 2},
			{ID: 7, Type: Tiny, Row: 3, Col: 1},
			{ID: 8, Type: Tiny, Row: 3, Col: 2},
			{ID: 9, Type: Vertical, Row: 2, Col: 3},
			{ID: 10, Type: EmptyMarker, Row: 4, Col: 0},
			{ID: 11, Type: EmptyMarker, Row: 4, Col: 3},
		},
		Goal: &Goal{PieceID: 0, Row: 3, Col: 1},
	}
}

// GoalFor returns the layout's goal or DefaultGoal
func GoalFor(layout *Layout) Goal {
	if layout == nil || layout.Goal == nil {
		return DefaultGoal
	}
	return *layout.Goal
}

// PiecesFromLayout builds pieces from layout entries, skipping empty markers,
// and checks the occupancy invariant on the result
func PiecesFromLayout(layout *Layout) ([]*Piece, error) {
	if layout == nil {
		return nil, fmt.Errorf("%w: layout is nil", ErrInvalidLayout)
	}

	pieces := make([]*Piece, 0, len(layout.Pieces))
	for _, entry := range layout.Pieces {
		if entry.Type == EmptyMarker {
			continue
		}
		p, err := NewPiece(entry.ID, entry.Type, entry.Row, entry.Col)
		if err != nil {
			return nil, fmt.Errorf("layout %q piece %d: %w", layout.Name, entry.ID, err)
		}
		pieces = append(pieces, p)
	}

	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: layout %q has no pieces", ErrInvalidLayout, layout.Name)
	}
	if err := ValidatePlacement(pieces); err != nil {
		return nil, fmt.Errorf("layout %q: %w", layout.Name, err)
	}

	return pieces, nil
}

// ValidateLayout checks a layout for correctness and playability
func ValidateLayout(layout *Layout) error {
	if layout == nil {
		return fmt.Errorf("%w: layout is nil", ErrInvalidLayout)
	}
	if layout.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLayout)
	}

	pieces, err := PiecesFromLayout(layout)
	if err != nil {
		return err
	}

	goal := GoalFor(layout)
	var goalPiece *Piece
	for _, p := range pieces {
		if p.ID == goal.PieceID {
			goalPiece = p
			break
		}
	}
	if goalPiece == nil {
		return fmt.Errorf("%w: goal piece %d is not on the board", ErrInvalidLayout, goal.PieceID)
	}
	if !InBounds(goal.Row, goal.Col, goalPiece.Height, goalPiece.Width) {
		return fmt.Errorf("%w: goal (%d,%d) puts piece %d off the board", ErrInvalidLayout, goal.Row, goal.Col, goal.PieceID)
	}

	// Sliding pieces need at least one open cell
	if len(BuildOccupancy(pieces).EmptyCells()) == 0 {
		return fmt.Errorf("%w: layout %q has no empty cell", ErrInvalidLayout, layout.Name)
	}

	return nil
}

// LoadLayoutFile reads and validates a layout from a JSON file
func LoadLayoutFile(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var layout Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to parse layout file '%s': %w", path, err)
	}

	if err := ValidateLayout(&layout); err != nil {
		return nil, err
	}

	return &layout, nil
}
