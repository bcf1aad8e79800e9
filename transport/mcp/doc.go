// Package mcp exposes the puzzle to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool calls the REST API and formats the
// JSON reply as text, so agents see the same sessions as browsers and
// websocket subscribers.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - board_state: occupancy grid with move count and playback status
//   - legal_moves: every move allowed on the current board
//   - move_piece: one piece, one cell, one direction
//   - tap: pointer press inside a piece box, resolved to a direction
//   - reset
//   - solve, hint, cancel: remote solver playback
//   - list_layouts, instructions
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: mount client.HTTPHandler() at /mcp for single JSON-RPC messages
package mcp
