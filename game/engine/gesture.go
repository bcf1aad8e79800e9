package engine

import "math"

// ResolveDirection maps a pointer position inside a piece's bounding box to a
// cardinal displacement. The box is split along its two diagonals, so on a
// tall piece the up/down regions are wider than on a square one.
//
// Coordinates are relative to the box's top-left corner with y growing
// downwards. Ties on a diagonal go to up (upper half) or down (lower half).
// A box with no area, and the exact centre, resolve to (0, 0).
func ResolveDirection(x, y, boxWidth, boxHeight float64) (dRow, dCol int) {
	if !(boxWidth > 0) || !(boxHeight > 0) || math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0
	}

	k := boxHeight / boxWidth
	dx := x - boxWidth/2
	dy := boxHeight/2 - y

	switch {
	case dy >= k*dx && dy > -k*dx:
		return -1, 0
	case dy < k*dx && dy >= -k*dx:
		return 0, 1
	case dy <= k*dx && dy < -k*dx:
		return 1, 0
	case dy > k*dx && dy <= -k*dx:
		return 0, -1
	default:
		return 0, 0
	}
}
