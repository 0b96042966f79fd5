package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
	"github.com/wricardo/mcp-training/laddergame/game/service"
)

func newTestHub() *Hub {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewHub(log)
}

func newTestClient(hub *Hub, gameID int64) *Client {
	return &Client{
		id:     "c",
		hub:    hub,
		gameID: gameID,
		send:   make(chan []byte, sendBuffer),
	}
}

func TestNewHub(t *testing.T) {
	hub := newTestHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.games == nil {
		t.Error("Hub games map is nil")
	}
	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub register channels are nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := newTestHub()
	client := newTestClient(hub, 7)

	hub.registerClient(client)

	if !hub.games[7][client] {
		t.Error("Client was not registered in game")
	}
	if hub.Count(7) != 1 {
		t.Errorf("Expected 1 client in game, got %d", hub.Count(7))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := newTestHub()
	client := newTestClient(hub, 7)

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.games[7]; exists {
		t.Error("Game should have been cleaned up after last client unregistered")
	}

	// send channel is closed
	if _, ok := <-client.send; ok {
		t.Error("Expected client send channel to be closed")
	}

	// second unregister is a no-op
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInGame(t *testing.T) {
	hub := newTestHub()
	client1 := newTestClient(hub, 3)
	client2 := newTestClient(hub, 3)

	hub.registerClient(client1)
	hub.registerClient(client2)

	if hub.Count(3) != 2 {
		t.Errorf("Expected 2 clients in game, got %d", hub.Count(3))
	}

	hub.unregisterClient(client1)

	if hub.Count(3) != 1 {
		t.Errorf("Expected 1 client remaining in game, got %d", hub.Count(3))
	}
	if !hub.games[3][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastOnlyToGame(t *testing.T) {
	hub := newTestHub()
	inGame := newTestClient(hub, 1)
	otherGame := newTestClient(hub, 2)
	hub.registerClient(inGame)
	hub.registerClient(otherGame)

	hub.broadcastMessage(&Message{
		Type:   MessageEvent,
		GameID: 1,
		Event:  &service.Event{Type: service.EventMove, GameID: 1, UserID: 10},
	})

	select {
	case data := <-inGame.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Type != MessageEvent {
			t.Errorf("Expected type %q, got %q", MessageEvent, message.Type)
		}
		if message.Event == nil || message.Event.Type != service.EventMove {
			t.Errorf("Expected move event, got %+v", message.Event)
		}
	default:
		t.Error("No message delivered to client of game 1")
	}

	select {
	case <-otherGame.send:
		t.Error("Client of game 2 should not receive game 1 messages")
	default:
	}
}

func TestBroadcastStateReachesFollowers(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dialGame(t, hub, nil)
	if !waitForCount(hub, 5, 1) {
		t.Fatal("client never registered")
	}

	hub.BroadcastState(engine.StateSnapshot{GameID: 5, CurrentTurnUserID: 2, TurnOrder: []int64{1, 2}, TurnSeq: 3, FinalCell: 100})
	message := readMessage(t, conn)
	if message.Type != MessageState || message.State == nil {
		t.Fatalf("Expected state frame, got %+v", message)
	}
	if message.State.TurnSeq != 3 || message.State.CurrentTurnUserID != 2 {
		t.Errorf("Expected seq 3 with player 2 on turn, got %+v", message.State)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := newTestHub()
	slow := &Client{id: "slow", hub: hub, gameID: 1, send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{Type: MessageEvent, GameID: 1})

	if hub.Count(1) != 0 {
		t.Errorf("Expected slow client to be dropped, got %d clients", hub.Count(1))
	}
}

func TestNotifyDoesNotBlockWithoutRun(t *testing.T) {
	hub := newTestHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.Notify(service.Event{Type: service.EventTimerTick, GameID: 1})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked with a full queue")
	}
}

func dialGame(t *testing.T, hub *Hub, initial *engine.StateSnapshot) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, 5, initial)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return message
}

func waitForCount(hub *Hub, gameID int64, want int) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.Count(gameID) == want {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestWebSocketInitialStateAndEvents(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	initial := &engine.StateSnapshot{GameID: 5, CurrentTurnUserID: 1, TurnOrder: []int64{1, 2}, TurnSeq: 1, FinalCell: 100}
	conn := dialGame(t, hub, initial)

	first := readMessage(t, conn)
	if first.Type != MessageState || first.State == nil {
		t.Fatalf("Expected initial state frame, got %+v", first)
	}
	if first.State.CurrentTurnUserID != 1 {
		t.Errorf("Expected current turn 1, got %d", first.State.CurrentTurnUserID)
	}

	if !waitForCount(hub, 5, 1) {
		t.Fatal("client never registered")
	}

	hub.Notify(service.Event{Type: service.EventTurnChanged, GameID: 5})
	next := readMessage(t, conn)
	if next.Type != MessageEvent || next.Event == nil || next.Event.Type != service.EventTurnChanged {
		t.Errorf("Expected turn_changed event, got %+v", next)
	}
}

func TestWebSocketUnregisterOnClose(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dialGame(t, hub, nil)
	if !waitForCount(hub, 5, 1) {
		t.Fatal("client never registered")
	}

	conn.Close()

	if !waitForCount(hub, 5, 0) {
		t.Error("Game should have been cleaned up after WebSocket close")
	}
}
