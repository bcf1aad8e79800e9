// Package playback drives solver output onto a puzzle engine.
//
// A Controller is either Idle or Busy. Solve and Hint move it to Busy, ask the
// Solver for moves and apply them through the engine's trusted path with a
// pacing delay between moves. Any user interaction while Busy, or an explicit
// Cancel, returns it to Idle; the remaining moves are dropped and the moves
// already applied are kept.
//
// Each run gets a token. The playback loop checks its token before every
// move, so a run that was cancelled or replaced stops at the next move and
// can never flip the state of a newer run.
//
// Solver failures leave the board untouched and the controller Idle:
//
//	ctrl := playback.NewController(eng, solver.NewClient(url))
//	go func() {
//		applied, err := ctrl.Solve(context.Background())
//		...
//	}()
//	ctrl.Cancel()
package playback
