package engine

import (
	"fmt"
	"strings"
)

// RenderOccupancy draws the occupancy map as rows of right-aligned piece ids,
// "." for empty cells, in the same orientation as the board
func RenderOccupancy(occ OccupancyMap) string {
	var sb strings.Builder
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			if occ[r][c] == Empty {
				sb.WriteString(" .")
			} else {
				fmt.Fprintf(&sb, "%2d", occ[r][c])
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// CountPieces counts the pieces of a given type
func CountPieces(pieces []Piece, t PieceType) int {
	count := 0
	for _, p := range pieces {
		if p.Type == t {
			count++
		}
	}
	return count
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dr := from.Row - to.Row
	if dr < 0 {
		dr = -dr
	}
	dc := from.Col - to.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// GoalDistance is the Manhattan distance from the goal piece to its target,
// -1 when the goal piece is missing
func GoalDistance(state *GameState) int {
	for _, p := range state.Pieces {
		if p.ID == state.Goal.PieceID {
			return ManhattanDistance(Position{Row: p.Row, Col: p.Col}, Position{Row: state.Goal.Row, Col: state.Goal.Col})
		}
	}
	return -1
}
