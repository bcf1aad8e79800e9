// Package engine provides the core puzzle logic for the Klotski game.
//
// The engine package implements:
//   - Piece geometry for the four block shapes
//   - Occupancy maps derived from piece positions
//   - Move validation against bounds and occupancy
//   - Move application with a move counter and a short "just moved" marker
//   - Pointer gesture resolution to one of four directions
//   - Layout loading and validation
//
// Core Types:
//
// Board is the piece store: it owns every Piece and the move counter.
// GameEngine wraps a Board with locking, flash timers and event delivery and
// implements the Engine interface. Layout describes a starting arrangement
// loaded from JSON.
//
// Usage:
//
//	eng, err := engine.NewEngine(engine.ClassicLayout())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	unsubscribe := eng.Subscribe(func(ev engine.Event) {
//		fmt.Println(ev.Type, ev.PieceID, ev.Moves)
//	})
//	defer unsubscribe()
//
//	// Slide piece 5 left if the cell is free
//	moved, err := eng.Move(5, engine.Left)
//
// Board Rules:
//
// The board is 5 rows by 4 columns. A piece moves one cell at a time in a
// cardinal direction and may only enter empty cells or cells it already
// covers. The occupancy map is rebuilt from piece positions on every query,
// so it can never disagree with them.
package engine
