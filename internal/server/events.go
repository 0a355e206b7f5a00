package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hfujise/scopectl/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// Event types pushed over the /events websocket
const (
	EventScreenshot = "screenshot"
	EventSave       = "save"
	EventLoad       = "load"
	EventUndoSave   = "undo_save"
	EventUndoLoad   = "undo_load"
)

// Event is one notification pushed to connected panels
type Event struct {
	Type  string `json:"type"`
	Slot  int    `json:"slot,omitempty"`
	Bytes int    `json:"bytes,omitempty"`
}

// Hub fans events out to every connected websocket client
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates an event hub. Run must be called before Broadcast.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 16),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until Close is called
func (h *Hub) Run() {
	clients := make(map[*client]struct{})
	for {
		select {
		case c := <-h.register:
			clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
			}
		case ev := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- ev:
				default:
					// Slow client; drop it rather than stall the hub
					delete(clients, c)
					close(c.send)
				}
			}
		case <-h.done:
			for c := range clients {
				close(c.send)
			}
			return
		}
	}
}

// Broadcast queues an event for every connected client. Safe to call
// from any goroutine; drops the event if the hub is shutting down.
func (h *Hub) Broadcast(ev Event) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}

// Close stops the hub and disconnects all clients. Idempotent.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// client is one websocket subscriber
type client struct {
	conn *websocket.Conn
	send chan Event
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The panel server binds to localhost or a trusted LAN interface;
	// the event feed carries no commands, only notifications
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEvents upgrades the connection and streams events until the
// client disconnects
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &client{conn: conn, send: make(chan Event, 8)}
	select {
	case s.hub.register <- c:
	case <-s.hub.done:
		// Hub already stopped; turn the connection away
		_ = conn.Close()
		return
	}

	logging.Info("Panel client connected", zap.String("remote_addr", r.RemoteAddr))

	go c.writePump()
	c.readPump(s.hub)

	logging.Info("Panel client disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// readPump discards inbound frames and unregisters on error. The feed
// is one-way; reading is only needed to process control frames.
func (c *client) readPump(h *Hub) {
	defer func() {
		// Nothing receives on unregister once the hub stops; the handoff
		// must not pin this goroutine during shutdown
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pushes queued events and periodic pings to the peer
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
