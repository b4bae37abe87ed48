package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// client is one live websocket connection. Outbound messages go
// through a buffered channel so a slow reader never blocks the hub.
type client struct {
	id       string
	gameCode string
	conn     *websocket.Conn
	send     chan []byte
}

// Hub tracks live connections by id and by game room and implements
// the dispatcher's Sender.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	rooms   map[string]map[string]*client
	log     *slog.Logger
}

// NewHub creates an empty hub
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]*client),
		log:     log,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	if _, ok := h.rooms[c.gameCode]; !ok {
		h.rooms[c.gameCode] = make(map[string]*client)
	}
	h.rooms[c.gameCode][c.id] = c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.clients[c.id]; !ok || existing != c {
		return
	}
	delete(h.clients, c.id)
	if room, ok := h.rooms[c.gameCode]; ok {
		delete(room, c.id)
		if len(room) == 0 {
			delete(h.rooms, c.gameCode)
		}
	}
	close(c.send)
	h.log.Info("channel closed", "code", c.gameCode, "connection", c.id)
}

// Send delivers one payload to one connection, at most once. A full
// buffer or a missing client counts as a dead connection.
func (h *Hub) Send(connectionID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	h.mu.Lock()
	c, ok := h.clients[connectionID]
	h.mu.Unlock()
	if !ok {
		return errors.New("connection not registered")
	}

	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("connection send buffer full")
	}
}

// writePump drains the client's send channel onto the socket
func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
