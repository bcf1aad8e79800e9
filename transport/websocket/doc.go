// Package websocket pushes puzzle events to browsers.
//
// A central Hub owns every connection. Clients subscribe to one session with
// the ?session=<id> query parameter and receive only that session's
// messages. The client map is only touched by the Run goroutine; publishers
// hand messages over a buffered channel.
//
// Message Protocol:
//
// Every frame is one JSON Message:
//
//	{"session_id": "ab12", "event": "piece_moved", "data": {...}}
//
// Engine events are forwarded as-is in data (piece_moved, move_count,
// flash_cleared, reset, solved, playback). state_update frames carry a full
// state snapshot. Incoming frames are ignored.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, layouts,
//		service.WithEventPublisher(hub))
//
// PublishEvent never blocks. When the queue is full the event is dropped and
// a warning is logged, so a stalled browser cannot slow down playback.
package websocket
