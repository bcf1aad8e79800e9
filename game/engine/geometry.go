package engine

import "fmt"

// Dimensions returns the footprint (rows, cols) of a piece type.
// An unknown type is an error; layouts are never patched with a default size.
func Dimensions(t PieceType) (height, width int, err error) {
	switch t {
	case Large:
		return 2, 2, nil
	case Vertical:
		return 2, 1, nil
	case Horizontal:
		return 1, 2, nil
	case Tiny:
		return 1, 1, nil
	default:
		return 0, 0, fmt.Errorf("%w: unknown piece type %q", ErrInvalidGeometry, t)
	}
}

// NewPiece builds a piece with dimensions derived from its type
func NewPiece(id int, t PieceType, row, col int) (*Piece, error) {
	h, w, err := Dimensions(t)
	if err != nil {
		return nil, err
	}
	return &Piece{ID: id, Type: t, Row: row, Col: col, Height: h, Width: w}, nil
}

// InBounds reports whether a footprint of h×w at (row, col) lies on the board
func InBounds(row, col, h, w int) bool {
	return row >= 0 && col >= 0 && row+h <= Rows && col+w <= Cols
}
