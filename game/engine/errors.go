package engine

import "errors"

var (
	ErrInvalidGeometry     = errors.New("invalid piece geometry")
	ErrPieceNotFound       = errors.New("piece not found")
	ErrInvalidDisplacement = errors.New("displacement is not a unit cardinal move")
	ErrOverlap             = errors.New("pieces overlap")
	ErrOutOfBounds         = errors.New("piece outside the board")
	ErrDuplicatePiece      = errors.New("duplicate piece id")
	ErrInvalidLayout       = errors.New("invalid layout")
)
