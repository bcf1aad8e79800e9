// Package service provides the business logic layer of the Klotski server.
//
// The service package implements:
//   - Multi-session puzzle management
//   - Layout loading and listing
//   - Move, tap and reset routing through each session's playback controller
//   - Background solve and hint playback
//
// Core Interfaces:
//
// GameService is the interface the HTTP, WebSocket and MCP transports call.
// SessionManager creates and stores sessions. LayoutManager loads starting
// layouts from disk. EventPublisher receives every engine event of every
// session, tagged with the session id.
//
// Usage:
//
//	sessions := session.NewManager(solverClient)
//	layouts := config.NewManager("configs")
//	svc := service.NewGameService(sessions, layouts,
//		service.WithEventPublisher(hub))
//
//	info, err := svc.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := svc.Move(ctx, info.ID, 2, "left")
//
// Playback:
//
// Solve and Hint return as soon as the controller is Busy. Applied moves
// arrive as engine events; any move or tap on the session while it is Busy
// cancels the run and does not move.
package service
