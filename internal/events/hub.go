package events

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"random-pictures/internal/catalog"
	"random-pictures/internal/logging"
	"random-pictures/internal/metrics"
)

// TypePublished is sent each time a new catalog snapshot becomes current.
const TypePublished = "published"

const (
	clientBuffer = 16
	eventBuffer  = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
)

// Event is one message on the stream.
type Event struct {
	Type       string    `json:"type"`
	Generation uint64    `json:"generation"`
	Categories int       `json:"categories"`
	Images     int       `json:"images"`
	Timestamp  time.Time `json:"timestamp"`
}

// PublishedEvent describes snap as a published event.
func PublishedEvent(snap *catalog.Snapshot) Event {
	return Event{
		Type:       TypePublished,
		Generation: snap.Generation(),
		Categories: snap.CategoryCount(),
		Images:     snap.TotalImages(),
		Timestamp:  time.Now(),
	}
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans events out to connected websocket clients. A client whose
// buffer is full is disconnected instead of slowing down the others.
type Hub struct {
	upgrader websocket.Upgrader
	events   chan Event

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a Hub. Call Run to start delivering events.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		events:  make(chan Event, eventBuffer),
		clients: make(map[*client]struct{}),
	}
}

// Subscribe forwards every snapshot published on index to the hub.
func (h *Hub) Subscribe(index *catalog.Index) {
	index.OnPublish(func(snap *catalog.Snapshot) {
		h.Notify(PublishedEvent(snap))
	})
}

// Notify queues ev for broadcast. It never blocks; when the queue is full
// the event is dropped.
func (h *Hub) Notify(ev Event) {
	select {
	case h.events <- ev:
	default:
		logging.Warn("Event queue full, dropping %s event", ev.Type)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run broadcasts queued events until ctx is done, then disconnects all
// clients.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case ev := <-h.events:
			h.broadcast(ev)
		}
	}
}

func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			logging.Warn("Event client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
	metrics.EventsBroadcastTotal.WithLabelValues(ev.Type).Inc()
}

// ServeHTTP upgrades the request to a websocket and streams events to it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan Event, clientBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.EventClients.Set(float64(count))
	logging.Debug("Event client connected. Total clients: %d", count)

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and detects disconnects.
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
		c.conn.Close()
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
				logging.Debug("Error sending event to client: %v", err)
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

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.EventClients.Set(float64(len(h.clients)))
	logging.Debug("Event client disconnected. Total clients: %d", len(h.clients))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
