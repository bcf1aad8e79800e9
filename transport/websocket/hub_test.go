package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/klotski/game/engine"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

// dial connects a client for sessionID and waits until the hub has it
func dial(t *testing.T, hub *Hub, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	before := hub.ClientCount(sessionID)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(sessionID) == before {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to parse message: %v", err)
	}
	return msg
}

func newTestServer(hub *Hub) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.logger == nil {
		t.Error("Expected default logger")
	}
	if cap(hub.broadcast) != broadcastBuffer {
		t.Errorf("Expected buffered broadcast channel, got cap %d", cap(hub.broadcast))
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}
	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if len(hub.sessions["test-session"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.sessions["test-session"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(nil)

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}
	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Empty session was not cleaned up")
	}
	if _, ok := <-client.send; ok {
		t.Error("Client send channel was not closed")
	}

	// A second unregister is a no-op
	hub.unregisterClient(client)
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub(nil)

	mine := &Client{hub: hub, sessionID: "a", send: make(chan []byte, 1)}
	other := &Client{hub: hub, sessionID: "b", send: make(chan []byte, 1)}
	hub.registerClient(mine)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{SessionID: "a", Event: "piece_moved"})

	select {
	case data := <-mine.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Event != "piece_moved" {
			t.Errorf("Expected piece_moved, got %s", msg.Event)
		}
	default:
		t.Error("Expected a message for session a")
	}

	if len(other.send) != 0 {
		t.Error("Client of another session received the message")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)

	slow := &Client{hub: hub, sessionID: "a", send: make(chan []byte, 1)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "a", Event: "one"})
	hub.broadcastMessage(&Message{SessionID: "a", Event: "two"})

	if _, exists := hub.sessions["a"]; exists {
		t.Error("Expected the slow client to be unregistered")
	}
}

func TestHubPublishEventNeverBlocks(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))

	// No Run loop: the queue fills and later events are dropped
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.PublishEvent("a", engine.Event{Type: engine.EventMoveCount, Moves: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishEvent blocked on a full queue")
	}
	if len(hub.broadcast) != broadcastBuffer {
		t.Errorf("Expected a full queue, got %d", len(hub.broadcast))
	}
}

func TestWebSocketEventDelivery(t *testing.T) {
	hub := newTestHub(t)
	server := newTestServer(hub)
	defer server.Close()

	conn := dial(t, hub, server, "abcd")

	hub.PublishEvent("abcd", engine.Event{
		Type:     engine.EventPieceMoved,
		PieceID:  2,
		Position: &engine.Position{Row: 4, Col: 0},
		Moves:    1,
	})

	msg := readMessage(t, conn)
	if msg.SessionID != "abcd" || msg.Event != "piece_moved" {
		t.Errorf("Unexpected message %+v", msg)
	}
	data, ok := msg.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected event payload, got %T", msg.Data)
	}
	if data["piece_id"].(float64) != 2 || data["moves"].(float64) != 1 {
		t.Errorf("Unexpected payload %v", data)
	}
}

func TestWebSocketSessionIsolation(t *testing.T) {
	hub := newTestHub(t)
	server := newTestServer(hub)
	defer server.Close()

	connA := dial(t, hub, server, "aaaa")
	connB := dial(t, hub, server, "bbbb")

	hub.BroadcastEvent("aaaa", "for_a", nil)
	hub.BroadcastToSession("bbbb", map[string]int{"moves": 3})

	if msg := readMessage(t, connA); msg.Event != "for_a" {
		t.Errorf("Client A got %s", msg.Event)
	}
	if msg := readMessage(t, connB); msg.Event != "state_update" {
		t.Errorf("Client B got %s, expected only its own session's messages", msg.Event)
	}
}

func TestWebSocketDisconnectUnregisters(t *testing.T) {
	hub := newTestHub(t)
	server := newTestServer(hub)
	defer server.Close()

	conn := dial(t, hub, server, "gone")
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount("gone") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not unregistered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
