package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"simtrack/pkg/model"
)

// Message types pushed to GUI clients.
const (
	MessageTypePropertyChanged = "property_changed"
	MessageTypeEventAdded      = "event_added"
	MessageTypeBanner          = "banner"
	MessageTypeSimState        = "sim_state"
	MessageTypeSnapshot        = "snapshot"

	// MessageTypeSnapshotRequest is sent by a client that wants the full state.
	MessageTypeSnapshotRequest = "snapshot_request"
)

const (
	clientSendBuffer = 256
	broadcastBuffer  = 256
	writeWait        = 10 * time.Second
)

// Message is a websocket frame exchanged with GUI clients.
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// SnapshotFunc returns the state sent to clients asking for a snapshot.
type SnapshotFunc func() any

// wsClient is one connected GUI.
type wsClient struct {
	conn   *websocket.Conn
	send   chan *Message
	hub    *Hub
	mu     sync.Mutex
	closed bool
}

// Hub fans tracking notifications out to websocket clients. It implements
// tracking.Notifier.
type Hub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan *Message
	upgrader   websocket.Upgrader
	snapshot   SnapshotFunc
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a hub. snapshot may be nil.
func NewHub(snapshot SnapshotFunc) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan *Message, broadcastBuffer),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local GUI and overlays
			},
		},
		snapshot: snapshot,
		done:     make(chan struct{}),
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run serves registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	slog.Info("Hub: started")
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			slog.Info("Hub: stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			slog.Debug("Hub: client registered", "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			n := len(h.clients)
			h.mu.Unlock()
			slog.Debug("Hub: client unregistered", "clients", n)

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) fanOut(msg *Message) {
	var stale []*wsClient
	h.mu.RLock()
	for c := range h.clients {
		if !c.trySend(msg) {
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	if len(stale) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range stale {
		h.remove(c)
	}
	h.mu.Unlock()
	slog.Warn("Hub: dropped slow clients", "count", len(stale))
}

// remove must be called with h.mu held.
func (h *Hub) remove(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.remove(c)
	}
}

// Broadcast queues msg for every client. It never blocks: when the hub is
// saturated the message is dropped.
func (h *Hub) Broadcast(msg *Message) {
	select {
	case h.broadcast <- msg:
	default:
		slog.Warn("Hub: broadcast queue full, message dropped", "type", msg.Type)
	}
}

// PropertyChanged implements tracking.Notifier.
func (h *Hub) PropertyChanged(name string, value any) {
	h.Broadcast(&Message{Type: MessageTypePropertyChanged, Data: map[string]any{
		"name":  name,
		"value": value,
	}})
}

// EventAdded implements tracking.Notifier.
func (h *Hub) EventAdded(e model.TrackingEvent, marker model.MapMarker) {
	h.Broadcast(&Message{Type: MessageTypeEventAdded, Data: map[string]any{
		"event":  e,
		"marker": marker,
	}})
}

// Banner implements tracking.Notifier.
func (h *Hub) Banner(message string, visible time.Duration) {
	h.Broadcast(&Message{Type: MessageTypeBanner, Data: map[string]any{
		"message":    message,
		"visible_ms": visible.Milliseconds(),
	}})
}

// HandleConnection upgrades the request and attaches a client.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Hub: failed to upgrade connection", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan *Message, clientSendBuffer),
		hub:  h,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.readPump()
	go c.writePump()
}

func (c *wsClient) trySend(msg *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Warn("Hub: read error", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			slog.Debug("Hub: ignoring malformed message", "error", err)
			continue
		}
		if msg.Type == MessageTypeSnapshotRequest && c.hub.snapshot != nil {
			c.trySend(&Message{Type: MessageTypeSnapshot, Data: map[string]any{
				"session": c.hub.snapshot(),
			}})
		}
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return
		}
		if err := c.conn.WriteJSON(msg); err != nil {
			slog.Debug("Hub: write failed", "error", err)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
