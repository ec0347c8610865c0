package desk

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	MessageNotice     = "notice"
	MessageNavigation = "navigation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is one event pushed to the view.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans out the notices and navigations of one view session to its websocket clients.
type Hub struct {
	logger *zerolog.Logger

	mutex   sync.Mutex
	clients map[*client]bool
	closed  bool
}

func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]bool),
	}
}

// Serve upgrades the request and keeps the connection registered until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}

	h.mutex.Lock()
	if h.closed {
		h.mutex.Unlock()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		return conn.Close()
	}
	h.clients[c] = true
	h.mutex.Unlock()

	go c.writePump()
	go c.readPump()

	return nil
}

func (h *Hub) Broadcast(messageType string, data any) {
	message, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		h.logger.Err(err).Str("type", messageType).Msg("Unable to encode view event")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			h.logger.Warn().Msg("View event client too slow, dropping it")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Close disconnects every client; later connections are refused.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump only watches for the peer closing; the stream is one way.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Err(err).Msg("View event stream error")
			}
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.logger.Err(err).Msg("View event write failed")
			return
		}
	}

	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
