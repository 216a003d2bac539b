// Package activity streams roster activity entries to websocket subscribers.
package activity

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cast"

	"naturequest/internal/models"
)

const (
	sendBuffer = 32
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is the frame pushed to subscribers
type Message struct {
	Type  string             `json:"type"`
	Entry models.ActivityLog `json:"entry"`
}

type client struct {
	conn    *websocket.Conn
	send    chan Message
	classID string
}

// wants reports whether the entry belongs to the class the client follows.
// Entries without a classId go to everyone.
func (c *client) wants(e models.ActivityLog) bool {
	if c.classID == "" {
		return true
	}
	classID := cast.ToString(e.Metadata["classId"])
	return classID == "" || classID == c.classID
}

// Hub fans activity entries out to connected clients
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Publish queues e for every interested client. A client whose buffer is full
// is disconnected instead of blocking the caller.
func (h *Hub) Publish(e models.ActivityLog) {
	msg := Message{Type: string(e.Type), Entry: e}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		if !c.wants(e) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Printf("activity: dropping slow subscriber %s", c.conn.RemoteAddr())
		h.remove(c)
	}
}

// Subscribers returns the number of connected clients
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams entries until the client leaves.
// The optional classId query parameter narrows the feed to one class.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("activity: upgrade failed: %v", err)
		return
	}

	c := &client{
		conn:    conn,
		send:    make(chan Message, sendBuffer),
		classID: r.URL.Query().Get("classId"),
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client frames and notices when the connection goes away
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

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

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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

// remove unregisters c once and closes its send channel
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}
