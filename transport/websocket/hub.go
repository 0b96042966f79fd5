package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
	"github.com/wricardo/mcp-training/laddergame/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendBuffer      = 256
	broadcastBuffer = 1024
)

// Message types
const (
	MessageEvent = "event"
	MessageState = "state"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the frame pushed to spectators
type Message struct {
	Type   string                `json:"type"`
	GameID int64                 `json:"game_id"`
	Event  *service.Event        `json:"event,omitempty"`
	State  *engine.StateSnapshot `json:"state,omitempty"`
}

// Client is one websocket connection following a game
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID int64
}

// Hub maintains the clients of every game and fans out messages to them.
// The client map is only mutated by the Run loop.
type Hub struct {
	mu    sync.RWMutex
	games map[int64]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	log logrus.FieldLogger
}

// NewHub creates a new WebSocket hub
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		games:      make(map[int64]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.WithField("component", "websocket"),
	}
}

// Run starts the hub's event loop and returns when ctx is done. Every
// connection still open is closed on the way out.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Notify implements service.Notifier. The event is queued for the Run loop
// and dropped when the queue is full.
func (h *Hub) Notify(event service.Event) {
	ev := event
	h.enqueue(&Message{Type: MessageEvent, GameID: event.GameID, Event: &ev})
}

// BroadcastState implements service.StatePublisher. It pushes a full
// snapshot to every client of a game.
func (h *Hub) BroadcastState(snap engine.StateSnapshot) {
	h.enqueue(&Message{Type: MessageState, GameID: snap.GameID, State: &snap})
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		h.log.WithField("game_id", message.GameID).Warn("broadcast queue full, dropping message")
	}
}

// Count returns the number of clients following a game
func (h *Hub) Count(gameID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// ServeWS upgrades the request and subscribes the connection to a game.
// A non-nil initial snapshot is the first frame the client receives.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID int64, initial *engine.StateSnapshot) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		gameID: gameID,
	}

	if initial != nil {
		if data, err := json.Marshal(&Message{Type: MessageState, GameID: gameID, State: initial}); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// registerClient adds a client to a game
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.games[client.gameID] == nil {
		h.games[client.gameID] = make(map[*Client]bool)
	}
	h.games[client.gameID][client] = true
	total := len(h.games[client.gameID])
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"game_id":   client.gameID,
		"client_id": client.id,
		"clients":   total,
	}).Debug("client registered")
}

// unregisterClient removes a client from a game
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.games[client.gameID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.games, client.gameID)
	}

	h.log.WithFields(logrus.Fields{
		"game_id":   client.gameID,
		"client_id": client.id,
		"clients":   len(clients),
	}).Debug("client unregistered")
}

// broadcastMessage sends a message to all clients of a game. A client whose
// buffer is full is dropped.
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).Warn("failed to marshal broadcast message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.games[message.GameID] {
		select {
		case client.send <- data:
		default:
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.games {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// readPump drains the connection so pongs and close frames are processed.
// Clients are spectators; inbound payloads are ignored.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithField("client_id", c.id).Debug("websocket closed unexpectedly")
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection. Each
// message is a separate frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var (
	_ service.Notifier       = (*Hub)(nil)
	_ service.StatePublisher = (*Hub)(nil)
)
