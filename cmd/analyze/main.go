// Command analyze prints quick, human-readable heuristics about the layout
// files in the project's configs directory. It shows the starting board, the
// piece mix, the opening moves and how far the goal piece is from its goal.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/klotski/game/engine"
)

func main() {
	layoutDir := "configs"
	if len(os.Args) > 1 {
		layoutDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(layoutDir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No layouts found in %s\n", layoutDir)
		os.Exit(1)
	}
	sort.Strings(files)

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		if err := analyzeLayout(os.Stdout, file); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func analyzeLayout(w io.Writer, path string) error {
	layout, err := engine.LoadLayoutFile(path)
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(layout)
	if err != nil {
		return err
	}
	state := eng.GetState()

	fmt.Fprintf(w, "Name: %s\n", layout.Name)
	if layout.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", layout.Description)
	}
	fmt.Fprintf(w, "\n%s\n", engine.RenderOccupancy(state.Occupancy))

	fmt.Fprintf(w, "Pieces: %d (large %d, vertical %d, horizontal %d, tiny %d)\n",
		len(state.Pieces),
		engine.CountPieces(state.Pieces, engine.Large),
		engine.CountPieces(state.Pieces, engine.Vertical),
		engine.CountPieces(state.Pieces, engine.Horizontal),
		engine.CountPieces(state.Pieces, engine.Tiny))
	fmt.Fprintf(w, "Empty cells: %d\n", len(state.Occupancy.EmptyCells()))

	moves := eng.LegalMoves()
	fmt.Fprintf(w, "Opening moves: %d\n", len(moves))
	for _, m := range moves {
		fmt.Fprintf(w, "   piece %d %s\n", m.PieceID, m.Direction())
	}

	if state.Solved {
		fmt.Fprintf(w, "✅ Goal piece %d already at (%d, %d)\n", state.Goal.PieceID, state.Goal.Row, state.Goal.Col)
		return nil
	}

	fmt.Fprintf(w, "Goal distance: %d\n", engine.GoalDistance(state))
	if blockers := goalBlockers(state); len(blockers) > 0 {
		fmt.Fprintf(w, "⚠️  Pieces on the goal footprint: %v\n", blockers)
	} else {
		fmt.Fprintf(w, "✅ Goal footprint is clear\n")
	}
	return nil
}

// goalBlockers lists the pieces other than the goal piece that cover a cell
// of the goal footprint
func goalBlockers(state *engine.GameState) []int {
	var goalPiece *engine.Piece
	for i := range state.Pieces {
		if state.Pieces[i].ID == state.Goal.PieceID {
			goalPiece = &state.Pieces[i]
			break
		}
	}
	if goalPiece == nil {
		return nil
	}

	seen := make(map[int]bool)
	var blockers []int
	for r := 0; r < goalPiece.Height; r++ {
		for c := 0; c < goalPiece.Width; c++ {
			owner := state.Occupancy[state.Goal.Row+r][state.Goal.Col+c]
			if owner != engine.Empty && owner != goalPiece.ID && !seen[owner] {
				seen[owner] = true
				blockers = append(blockers, owner)
			}
		}
	}
	sort.Ints(blockers)
	return blockers
}
