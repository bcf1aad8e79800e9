package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/klotski/game/engine"
)

// gridlock has a single empty cell that no neighbour can slide into
const gridlock = `{
	"name": "gridlock",
	"pieces": [
		{"id": 0, "type": "large", "row": 3, "col": 0},
		{"id": 1, "type": "large", "row": 3, "col": 2},
		{"id": 2, "type": "horizontal", "row": 0, "col": 0},
		{"id": 3, "type": "vertical", "row": 0, "col": 2},
		{"id": 4, "type": "vertical", "row": 0, "col": 3},
		{"id": 5, "type": "vertical", "row": 1, "col": 0},
		{"id": 6, "type": "horizontal", "row": 2, "col": 1},
		{"id": 7, "type": "tiny", "row": 2, "col": 3},
		{"id": 8, "type": "empty", "row": 1, "col": 1}
	],
	"goal": {"id": 0, "row": 3, "col": 2}
}`

func writeLayout(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write layout: %v", err)
	}
	return path
}

func TestValidateLayout_ShippedLayouts(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "configs", "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("Expected shipped layouts in ../configs")
	}

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			result := validateLayout(file)
			if !result.Valid {
				t.Errorf("Expected valid layout, got errors: %v", result.Errors)
			}
		})
	}
}

func TestValidateLayout_OneStep(t *testing.T) {
	result := validateLayout(filepath.Join("..", "configs", "one_step.json"))
	if !result.Valid {
		t.Fatalf("Expected valid layout, got %v", result.Errors)
	}
	if !contains(result.Errors, "goal reached in 1 moves") {
		t.Errorf("Expected one-move reachability, got %v", result.Errors)
	}
	if result.File != "one_step.json" {
		t.Errorf("Expected file name one_step.json, got %s", result.File)
	}
}

func TestValidateLayout_MissingFile(t *testing.T) {
	result := validateLayout(filepath.Join(t.TempDir(), "missing.json"))
	if result.Valid {
		t.Error("Expected missing file to be invalid")
	}
	if !contains(result.Errors, "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}

func TestValidateLayout_InvalidJSON(t *testing.T) {
	result := validateLayout(writeLayout(t, `{"name": "test", invalid json}`))
	if result.Valid {
		t.Error("Expected invalid JSON to fail")
	}
	if !contains(result.Errors, "Invalid JSON") {
		t.Errorf("Expected JSON error, got %v", result.Errors)
	}
}

func TestValidateLayout_Overlap(t *testing.T) {
	result := validateLayout(writeLayout(t, `{
		"name": "overlap",
		"pieces": [
			{"id": 0, "type": "large", "row": 0, "col": 0},
			{"id": 1, "type": "tiny", "row": 1, "col": 1}
		]
	}`))
	if result.Valid {
		t.Fatal("Expected overlapping pieces to fail")
	}
	if !contains(result.Errors, engine.ErrOverlap.Error()) {
		t.Errorf("Expected overlap error, got %v", result.Errors)
	}
}

func TestValidateLayout_CoveredMarker(t *testing.T) {
	result := validateLayout(writeLayout(t, `{
		"name": "covered",
		"pieces": [
			{"id": 0, "type": "large", "row": 0, "col": 0},
			{"id": 1, "type": "empty", "row": 1, "col": 1}
		]
	}`))
	if result.Valid {
		t.Fatal("Expected covered marker to fail")
	}
	if !contains(result.Errors, "covered by piece 0") {
		t.Errorf("Expected marker error, got %v", result.Errors)
	}
}

func TestValidateLayout_Unreachable(t *testing.T) {
	result := validateLayout(writeLayout(t, gridlock))
	if result.Valid {
		t.Fatal("Expected gridlocked layout to fail")
	}
	if !contains(result.Errors, "goal unreachable (1 positions explored)") {
		t.Errorf("Expected reachability failure, got %v", result.Errors)
	}
}

func TestSearchGoal(t *testing.T) {
	t.Run("already solved", func(t *testing.T) {
		pieces, _ := engine.PiecesFromLayout(&engine.Layout{
			Name:   "solved",
			Pieces: []engine.LayoutEntry{{ID: 0, Type: engine.Large, Row: 3, Col: 1}},
		})
		result := searchGoal(pieces, engine.DefaultGoal, 10)
		if !result.Found || result.Moves != 0 {
			t.Errorf("Expected found in 0 moves, got %+v", result)
		}
	})

	t.Run("lone block", func(t *testing.T) {
		pieces, _ := engine.PiecesFromLayout(&engine.Layout{
			Name:   "lone",
			Pieces: []engine.LayoutEntry{{ID: 0, Type: engine.Large, Row: 0, Col: 0}},
		})
		result := searchGoal(pieces, engine.DefaultGoal, 100)
		if !result.Found || result.Moves != 4 {
			t.Errorf("Expected found in 4 moves, got %+v", result)
		}
	})

	t.Run("limit", func(t *testing.T) {
		pieces, _ := engine.PiecesFromLayout(engine.ClassicLayout())
		result := searchGoal(pieces, engine.DefaultGoal, 5)
		if result.Found || result.Exhausted {
			t.Errorf("Expected undecided search, got %+v", result)
		}
		if result.Explored != 5 {
			t.Errorf("Expected 5 positions explored, got %d", result.Explored)
		}
	})
}

func TestPositionKey_SameShapesCollapse(t *testing.T) {
	a := []engine.Piece{
		{ID: 0, Type: engine.Large, Row: 0, Col: 1},
		{ID: 5, Type: engine.Tiny, Row: 2, Col: 1},
		{ID: 6, Type: engine.Tiny, Row: 2, Col: 2},
	}
	b := []engine.Piece{
		{ID: 0, Type: engine.Large, Row: 0, Col: 1},
		{ID: 5, Type: engine.Tiny, Row: 2, Col: 2},
		{ID: 6, Type: engine.Tiny, Row: 2, Col: 1},
	}
	if positionKey(a, 0) != positionKey(b, 0) {
		t.Error("Expected swapped tiny pieces to share a key")
	}

	c := []engine.Piece{
		{ID: 0, Type: engine.Tiny, Row: 2, Col: 1},
		{ID: 5, Type: engine.Tiny, Row: 2, Col: 2},
	}
	d := []engine.Piece{
		{ID: 0, Type: engine.Tiny, Row: 2, Col: 2},
		{ID: 5, Type: engine.Tiny, Row: 2, Col: 1},
	}
	if positionKey(c, 0) == positionKey(d, 0) {
		t.Error("Expected the goal piece to be distinguished")
	}
}

// contains reports whether any message includes substr
func contains(messages []string, substr string) bool {
	for _, m := range messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}
