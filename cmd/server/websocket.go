package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1prspctv/memory-match-madness/internal/logging"
	syncpkg "github.com/1prspctv/memory-match-madness/internal/sync"
	"github.com/1prspctv/memory-match-madness/internal/sync/visibility"
	"github.com/1prspctv/memory-match-madness/internal/uuid"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 64
)

// Origin checking is left to the upgrader's same-origin default.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocket event types.
const (
	EventPendingCount  = "queue.pending_count"
	EventSyncCompleted = "sync.completed"
	EventPong          = "pong"

	// Sent by clients.
	MessageVisibility = "visibility"
	MessagePing       = "ping"
)

// WSEnvelope wraps all WebSocket messages.
type WSEnvelope struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp,omitempty"`
}

// WSClient represents a WebSocket client connection.
type WSClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *WSHub
}

// WSHub maintains active client connections and broadcasts messages.
type WSHub struct {
	clients      map[string]*WSClient
	broadcast    chan []byte
	register     chan *WSClient
	unregister   chan *WSClient
	done         chan struct{}
	onVisibility func(visibility.State)

	mu          sync.RWMutex
	lastPending []byte
}

// NewWSHub creates a new WebSocket hub. onVisibility receives the
// visibility changes clients report; it may be nil.
func NewWSHub(onVisibility func(visibility.State)) *WSHub {
	return &WSHub{
		clients:      make(map[string]*WSClient),
		broadcast:    make(chan []byte, 256),
		register:     make(chan *WSClient),
		unregister:   make(chan *WSClient),
		done:         make(chan struct{}),
		onVisibility: onVisibility,
	}
}

// Run manages client connections and broadcasts until ctx is done.
func (h *WSHub) Run(ctx context.Context) error {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for id, client := range h.clients {
			close(client.send)
			delete(h.clients, id)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			greeting := h.lastPending
			h.mu.Unlock()
			if greeting != nil {
				client.send <- greeting
			}
			logging.Debug("WebSocket client connected",
				map[string]interface{}{"client_id": client.id, "total": total})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			logging.Debug("WebSocket client disconnected",
				map[string]interface{}{"client_id": client.id, "total": total})

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client: drop it rather than stall the hub.
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to every connected client.
func (h *WSHub) Broadcast(messageType string, data map[string]interface{}) {
	bytes, err := encodeEnvelope(messageType, data)
	if err != nil {
		logging.Error("Failed to marshal WebSocket message", err,
			map[string]interface{}{"type": messageType})
		return
	}
	h.send(bytes)
}

func (h *WSHub) send(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// BroadcastPendingCount notifies clients of the number of unsynced
// scores. New clients receive the latest count on connect.
func (h *WSHub) BroadcastPendingCount(count int) {
	bytes, err := encodeEnvelope(EventPendingCount, map[string]interface{}{"count": count})
	if err != nil {
		logging.Error("Failed to marshal WebSocket message", err, nil)
		return
	}

	h.mu.Lock()
	h.lastPending = bytes
	h.mu.Unlock()

	h.send(bytes)
}

// BroadcastSyncCompleted notifies clients that a sync pass finished.
func (h *WSHub) BroadcastSyncCompleted(result *syncpkg.SyncResult) {
	h.Broadcast(EventSyncCompleted, map[string]interface{}{
		"synced":   result.Synced,
		"failed":   result.Failed,
		"pending":  result.Pending,
		"duration": result.Duration.Milliseconds(),
		"status":   "completed",
	})
}

// ClientCount returns the number of connected clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encodeEnvelope(messageType string, data map[string]interface{}) ([]byte, error) {
	return json.Marshal(WSEnvelope{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// readPump pumps messages from the WebSocket connection.
func (c *WSClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn("WebSocket read error",
					map[string]interface{}{"client_id": c.id, "error": err.Error()})
			}
			return
		}

		var msg struct {
			Type string `json:"type"`
			Data struct {
				State string `json:"state"`
			} `json:"data"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			logging.Debug("Invalid WebSocket message",
				map[string]interface{}{"client_id": c.id, "error": err.Error()})
			continue
		}

		switch msg.Type {
		case MessageVisibility:
			state, err := visibility.ParseState(msg.Data.State)
			if err != nil {
				logging.Debug("Invalid visibility state",
					map[string]interface{}{"client_id": c.id, "state": msg.Data.State})
				continue
			}
			if c.hub.onVisibility != nil {
				c.hub.onVisibility(state)
			}

		case MessagePing:
			c.sendPong()
		}
	}
}

// writePump pumps messages to the WebSocket connection.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendPong answers a client ping. It goes through the hub so the send
// channel is only closed by one owner.
func (c *WSClient) sendPong() {
	bytes, err := encodeEnvelope(EventPong, nil)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- bytes:
	default:
	}
}

// HandleWebSocket handles WebSocket connections.
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
			return
		}

		client := &WSClient{
			id:   uuid.New(),
			conn: conn,
			send: make(chan []byte, wsSendBuffer),
			hub:  hub,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}
