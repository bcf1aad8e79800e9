package engine

import "fmt"

// NewOccupancyMap returns a map with every cell Empty
func NewOccupancyMap() OccupancyMap {
	var occ OccupancyMap
	for r := range occ {
		for c := range occ[r] {
			occ[r][c] = Empty
		}
	}
	return occ
}

// BuildOccupancy derives the owner of every cell from the current piece
// positions. It is recomputed on every call and never cached, so it cannot
// drift from the pieces. Footprint cells outside the board are ignored.
func BuildOccupancy(pieces []*Piece) OccupancyMap {
	occ := NewOccupancyMap()
	for _, p := range pieces {
		for dr := 0; dr < p.Height; dr++ {
			for dc := 0; dc < p.Width; dc++ {
				r, c := p.Row+dr, p.Col+dc
				if r >= 0 && r < Rows && c >= 0 && c < Cols {
					occ[r][c] = p.ID
				}
			}
		}
	}
	return occ
}

// ValidatePlacement checks the occupancy invariant for a piece set: unique
// ids, every footprint on the board and no two footprints sharing a cell.
func ValidatePlacement(pieces []*Piece) error {
	occ := NewOccupancyMap()
	seen := make(map[int]bool, len(pieces))

	for _, p := range pieces {
		if seen[p.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicatePiece, p.ID)
		}
		seen[p.ID] = true

		if !InBounds(p.Row, p.Col, p.Height, p.Width) {
			return fmt.Errorf("%w: piece %d (%s) at (%d,%d)", ErrOutOfBounds, p.ID, p.Type, p.Row, p.Col)
		}

		for dr := 0; dr < p.Height; dr++ {
			for dc := 0; dc < p.Width; dc++ {
				r, c := p.Row+dr, p.Col+dc
				if owner := occ[r][c]; owner != Empty {
					return fmt.Errorf("%w: pieces %d and %d at (%d,%d)", ErrOverlap, owner, p.ID, r, c)
				}
				occ[r][c] = p.ID
			}
		}
	}

	return nil
}

// EmptyCells returns the uncovered cells in row-major order
func (o OccupancyMap) EmptyCells() []Position {
	var cells []Position
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if o[r][c] == Empty {
				cells = append(cells, Position{Row: r, Col: c})
			}
		}
	}
	return cells
}
