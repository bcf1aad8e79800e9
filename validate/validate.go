// Command validate provides a small CLI that validates puzzle layout JSON
// files in a directory (../configs by default). It checks:
//   - JSON structure and required fields
//   - Piece types, footprints, unique ids and overlap
//   - Empty markers sit on cells no piece covers
//   - The goal piece exists and its goal fits on the board
//   - Reachability: the goal can be reached from the start by unit moves
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/klotski/game/engine"
)

// maxSearchStates bounds the reachability search per layout
const maxSearchStates = 500000

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateLayout loads and validates a single layout JSON file
func validateLayout(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var layout engine.Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := engine.ValidateLayout(&layout); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	pieces, _ := engine.PiecesFromLayout(&layout)
	occ := engine.BuildOccupancy(pieces)

	// Empty markers document the open cells; a marker on a covered cell is
	// a typo in the file
	markers := 0
	for _, entry := range layout.Pieces {
		if entry.Type != engine.EmptyMarker {
			continue
		}
		markers++
		if entry.Row < 0 || entry.Row >= engine.Rows || entry.Col < 0 || entry.Col >= engine.Cols {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Empty marker %d at (%d,%d) is off the board", entry.ID, entry.Row, entry.Col))
			continue
		}
		if owner := occ[entry.Row][entry.Col]; owner != engine.Empty {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Empty marker %d at (%d,%d) is covered by piece %d", entry.ID, entry.Row, entry.Col, owner))
		}
	}

	// Reachability - search the move graph from the start position
	if result.Valid {
		reach := searchGoal(pieces, engine.GoalFor(&layout), maxSearchStates)
		switch {
		case reach.Found:
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Reachability: goal reached in %d moves (%d positions explored)", reach.Moves, reach.Explored))
		case reach.Exhausted:
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Reachability failure: goal unreachable (%d positions explored)", reach.Explored))
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Reachability: undecided after %d positions", reach.Explored))
		}
	}

	// Add informational data
	if result.Valid {
		snapshot := make([]engine.Piece, len(pieces))
		for i, p := range pieces {
			snapshot[i] = *p
		}
		goal := engine.GoalFor(&layout)
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", layout.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Pieces: %d (large %d, vertical %d, horizontal %d, tiny %d)",
			len(pieces),
			engine.CountPieces(snapshot, engine.Large),
			engine.CountPieces(snapshot, engine.Vertical),
			engine.CountPieces(snapshot, engine.Horizontal),
			engine.CountPieces(snapshot, engine.Tiny)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Empty cells: %d (%d marked)", len(occ.EmptyCells()), markers))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Goal: piece %d to (%d,%d)", goal.PieceID, goal.Row, goal.Col))
	}

	return result
}

// SearchResult reports a breadth-first search for the goal position
type SearchResult struct {
	Found     bool
	Moves     int
	Explored  int
	Exhausted bool
}

// searchGoal explores the move graph breadth first until the goal piece
// reaches its goal, the graph is exhausted, or limit positions were seen.
// Positions that differ only by swapping same-shaped pieces count once.
func searchGoal(start []*engine.Piece, goal engine.Goal, limit int) SearchResult {
	type node struct {
		pieces []engine.Piece
		depth  int
	}

	initial := make([]engine.Piece, len(start))
	for i, p := range start {
		initial[i] = *p
	}

	visited := map[string]bool{positionKey(initial, goal.PieceID): true}
	queue := []node{{pieces: initial}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if goalReached(current.pieces, goal) {
			return SearchResult{Found: true, Moves: current.depth, Explored: len(visited)}
		}

		ptrs := make([]*engine.Piece, len(current.pieces))
		for i := range current.pieces {
			ptrs[i] = &current.pieces[i]
		}
		occ := engine.BuildOccupancy(ptrs)

		for i, p := range ptrs {
			for _, d := range engine.AllDirections {
				dRow, dCol := d.Delta()
				if !engine.CanMove(p, dRow, dCol, occ) {
					continue
				}

				next := make([]engine.Piece, len(current.pieces))
				copy(next, current.pieces)
				next[i].Row += dRow
				next[i].Col += dCol

				key := positionKey(next, goal.PieceID)
				if visited[key] {
					continue
				}
				if len(visited) >= limit {
					return SearchResult{Explored: len(visited)}
				}
				visited[key] = true
				queue = append(queue, node{pieces: next, depth: current.depth + 1})
			}
		}
	}

	return SearchResult{Explored: len(visited), Exhausted: true}
}

func goalReached(pieces []engine.Piece, goal engine.Goal) bool {
	for _, p := range pieces {
		if p.ID == goal.PieceID {
			return p.Row == goal.Row && p.Col == goal.Col
		}
	}
	return false
}

// positionKey identifies a position by piece shape, keeping the goal piece
// apart from the pieces that share its shape
func positionKey(pieces []engine.Piece, goalID int) string {
	parts := make([]string, len(pieces))
	for i, p := range pieces {
		shape := string(p.Type)
		if p.ID == goalID {
			shape = "goal"
		}
		parts[i] = fmt.Sprintf("%s@%d,%d", shape, p.Row, p.Col)
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

// main scans a layout directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are
// invalid.
func main() {
	layoutDir := "../configs"
	if len(os.Args) > 1 {
		layoutDir = os.Args[1]
	}
	files, err := filepath.Glob(filepath.Join(layoutDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding layout files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateLayout(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All layouts are valid!")
	} else {
		fmt.Println("❌ Some layouts have errors")
		os.Exit(1)
	}
}
