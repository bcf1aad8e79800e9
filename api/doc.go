// Package api provides HTTP REST API handlers for the Klotski puzzle.
//
// The api package implements:
//   - Session management endpoints
//   - Move, tap and reset endpoints for one puzzle
//   - Solver playback control
//   - Layout listing and upload
//   - WebSocket upgrade handling
//   - Request logging middleware
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"layout_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session, cancelling playback
//
// Puzzle Operations:
//   - GET /api/sessions/{id}/state - Board snapshot and playback status
//   - GET /api/sessions/{id}/moves - Legal moves
//   - POST /api/sessions/{id}/move - {"piece_id": 2, "direction": "left"}
//   - POST /api/sessions/{id}/tap - {"piece_id": 9, "x": 5, "y": 80, "width": 50, "height": 100}
//   - POST /api/sessions/{id}/reset - Restore the starting layout
//
// Solver Playback:
//   - POST /api/sessions/{id}/solve - Start playing back a full solution (202)
//   - POST /api/sessions/{id}/hint - Apply one solver move (202)
//   - POST /api/sessions/{id}/cancel - Stop the running playback
//
// While a playback runs, move and tap only cancel it and report
// "cancelled_playback". Solve and hint answer 409 Conflict.
//
// Layouts:
//   - GET /api/layouts - List available layouts
//   - GET /api/layouts/{name} - Get one layout
//   - POST /api/layouts - Validate and store a layout
//
// Other:
//   - GET /healthz - Liveness probe
//   - GET /ws?session={id} - Engine event stream
//
// Errors are returned as {"error": "message"} with 400 for invalid input,
// 404 for unknown sessions, layouts or pieces, and 409 while busy.
//
// Usage:
//
//	server := api.NewServer(gameService, hub, logger)
//	http.ListenAndServe(":3000", api.RequestLogger(logger, server))
package api
