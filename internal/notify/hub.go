// internal/notify/hub.go
package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// writeWait bounds how long one client may block a broadcast.
const writeWait = 5 * time.Second

// Hub broadcasts campaign events to every connected websocket client.
// Its lifecycle is owned by the server process; clients attach through
// ServeWS and are dropped on the first failed write.
type Hub struct {
	Log      *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		Log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeWS upgrades the request and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warnw("websocket upgrade failed", "err", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.Log.Infow("websocket client connected", "clients", n)

	// drain reads so pings/closes are processed; unregister on error
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

// Emit sends {event, payload} to every client. Writes happen under the
// hub lock: gorilla allows only one concurrent writer per connection,
// and Emit is called from many worker goroutines at once. Clients that
// error or miss the write deadline are dropped.
func (h *Hub) Emit(event string, payload any) {
	msg, err := json.Marshal(map[string]any{"event": event, "payload": payload})
	if err != nil {
		h.Log.Warnw("failed to encode event", "event", event, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			delete(h.clients, c)
			c.Close()
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
}

var _ Notifier = (*Hub)(nil)
