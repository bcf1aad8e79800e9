package engine

import "fmt"

// Direction is a named unit displacement
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// AllDirections lists the four cardinal directions in a stable order
var AllDirections = []Direction{Up, Down, Left, Right}

// Delta returns the (row, col) displacement of a direction, or (0, 0) for an
// unknown name
func (d Direction) Delta() (dRow, dCol int) {
	switch d {
	case Up:
		return -1, 0
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	default:
		return 0, 0
	}
}

// DirectionFromDelta names a unit displacement, "" when it is not one
func DirectionFromDelta(dRow, dCol int) Direction {
	switch {
	case dRow == -1 && dCol == 0:
		return Up
	case dRow == 1 && dCol == 0:
		return Down
	case dRow == 0 && dCol == -1:
		return Left
	case dRow == 0 && dCol == 1:
		return Right
	default:
		return ""
	}
}

// ParseDirection validates a direction name
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if r, c := d.Delta(); r == 0 && c == 0 {
		return "", fmt.Errorf("%w: direction %q", ErrInvalidDisplacement, s)
	}
	return d, nil
}

func isUnitDisplacement(dRow, dCol int) bool {
	return DirectionFromDelta(dRow, dCol) != ""
}

// CanMove decides whether p may shift by (dRow, dCol). The candidate
// footprint must stay on the board and cover only empty cells or cells p
// already owns. Pure: occ and p are not modified.
func CanMove(p *Piece, dRow, dCol int, occ OccupancyMap) bool {
	newRow := p.Row + dRow
	newCol := p.Col + dCol

	if !InBounds(newRow, newCol, p.Height, p.Width) {
		return false
	}

	for r := 0; r < p.Height; r++ {
		for c := 0; c < p.Width; c++ {
			owner := occ[newRow+r][newCol+c]
			if owner != Empty && owner != p.ID {
				return false
			}
		}
	}
	return true
}

// ApplyMove shifts p by an already validated displacement and bumps the move
// counter. Occupancy is not re-checked; a displacement that is not a unit
// cardinal move is rejected and nothing changes.
func (b *Board) ApplyMove(p *Piece, dRow, dCol int) error {
	if !isUnitDisplacement(dRow, dCol) {
		return fmt.Errorf("%w: piece %d by (%d,%d)", ErrInvalidDisplacement, p.ID, dRow, dCol)
	}

	p.Row += dRow
	p.Col += dCol
	b.moves++
	return nil
}

// LegalMoves enumerates every unit move currently allowed on the board
func (b *Board) LegalMoves() []Move {
	occ := b.Occupancy()
	var moves []Move
	for _, p := range b.pieces {
		for _, d := range AllDirections {
			dRow, dCol := d.Delta()
			if CanMove(p, dRow, dCol, occ) {
				moves = append(moves, Move{PieceID: p.ID, DRow: dRow, DCol: dCol})
			}
		}
	}
	return moves
}
