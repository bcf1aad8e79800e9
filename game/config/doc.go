// Package config loads Klotski starting layouts from a directory of JSON
// files.
//
// Layout Format:
//
// Each file holds one engine.Layout: a name, a description, the piece
// entries and an optional goal. Entries of type "empty" mark open cells and
// are skipped when the board is built.
//
//	{
//	  "name": "classic",
//	  "pieces": [
//	    {"id": 0, "type": "large", "row": 0, "col": 1},
//	    {"id": 10, "type": "empty", "row": 4, "col": 0}
//	  ],
//	  "goal": {"id": 0, "row": 3, "col": 1}
//	}
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	layout, err := manager.LoadLayout("classic")
//	layouts, err := manager.ListLayouts()
//
// Loaded layouts are validated with engine.ValidateLayout and cached. The
// default layout is classic.json when present, then the first valid file,
// then the built-in classic arrangement.
package config
