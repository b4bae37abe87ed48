package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWS upgrades a channel connection. The client identifies its
// game and seat with ?game_code=...&player_id=...; the connection id
// is minted server-side.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	gameCode := strings.ToUpper(r.URL.Query().Get("game_code"))
	playerID := r.URL.Query().Get("player_id")
	if gameCode == "" || playerID == "" {
		http.Error(w, "game_code and player_id required", http.StatusBadRequest)
		return
	}

	connectionID := uuid.NewString()
	if err := s.dispatcher.Connect(r.Context(), connectionID, gameCode, playerID); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "err", err)
		_ = s.dispatcher.Disconnect(r.Context(), connectionID)
		return
	}

	c := &client{
		id:       connectionID,
		gameCode: gameCode,
		conn:     conn,
		send:     make(chan []byte, 256),
	}
	s.hub.register(c)
	s.log.Info("channel connected", "code", gameCode, "player", playerID)

	go c.writePump()
	s.readPump(c)
}

// readPump feeds inbound messages to the dispatcher until the
// connection drops, then clears the seat's connection handle
func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.unregister(c)
		c.conn.Close()
		if err := s.dispatcher.Disconnect(s.baseCtx, c.id); err != nil {
			s.log.Error("disconnect cleanup failed", "connection", c.id, "err", err)
		}
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatcher.HandleMessage(s.baseCtx, c.id, message)
	}
}
