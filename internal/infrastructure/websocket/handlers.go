package websocket

import (
	"net/http"
	"sync"

	"omniauction/internal/domain"
	"omniauction/pkg/logger"
	"omniauction/pkg/utils"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Handler upgrades observer connections and keeps them registered for the
// lifetime of the read loop.
type Handler struct {
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewHandler(connManager domain.ConnectionManager, log logger.Logger) *Handler {
	return &Handler{
		connManager: connManager,
		log:         log,
	}
}

func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewConn(conn, utils.GenerateID("conn"))
	h.connManager.RegisterConnection(wsConn)

	go h.handleMessages(wsConn)
}

// handleMessages echoes inbound text frames back to the sender and answers
// pings. Observers mostly just listen; the read loop exists to detect
// disconnects.
func (h *Handler) handleMessages(conn *Conn) {
	defer func() {
		h.connManager.UnregisterConnection(conn.ID())
		conn.Close()
	}()

	for {
		msgType, data, err := conn.conn.ReadMessage()
		if err != nil {
			h.log.Debug("Connection read ended", "conn_id", conn.ID(), "error", err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if string(data) == "ping" {
			conn.Send([]byte(`{"type":"pong"}`))
			continue
		}
		conn.Send(data)
	}
}

// Conn wraps a gorilla connection with a write lock so broadcasts and echo
// replies never interleave frames.
type Conn struct {
	conn    *websocket.Conn
	id      string
	writeMu sync.Mutex
}

func NewConn(conn *websocket.Conn, id string) *Conn {
	return &Conn{conn: conn, id: id}
}

func (c *Conn) Send(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) ID() string {
	return c.id
}
