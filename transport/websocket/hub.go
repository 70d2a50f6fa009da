package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/morpion-backend/internal/entity"
	"github.com/rocketscienceinc/morpion-backend/internal/metrics"
	"golang.org/x/time/rate"
)

const sendBufferSize = 256

// Hub tracks open connections and the room each one listens to. It delivers events
// without blocking: a client whose buffer is full misses the event.
type Hub struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]struct{} // roomID -> connIDs
}

type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	closeOnce sync.Once
}

func NewHub(logger *slog.Logger, metrics *metrics.Metrics) *Hub {
	return &Hub{
		logger:  logger.With("component", "websocket_hub"),
		metrics: metrics,
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
	}
}

func (that *Hub) register(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.clients[c.id] = c
	that.metrics.ConnectionOpened()
}

// unregister drops the client and closes its send buffer, which stops its write pump.
func (that *Hub) unregister(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.clients[c.id]; !ok || current != c {
		return
	}

	delete(that.clients, c.id)
	for roomID, members := range that.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(that.rooms, roomID)
		}
	}

	c.closeOnce.Do(func() {
		close(c.send)
	})
	that.metrics.ConnectionClosed()
}

func (that *Hub) Subscribe(connID, roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	members, ok := that.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		that.rooms[roomID] = members
	}
	members[connID] = struct{}{}
}

func (that *Hub) Unsubscribe(connID, roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	members, ok := that.rooms[roomID]
	if !ok {
		return
	}

	delete(members, connID)
	if len(members) == 0 {
		delete(that.rooms, roomID)
	}
}

func (that *Hub) Broadcast(roomID string, event entity.Event) {
	message, err := json.Marshal(event)
	if err != nil {
		that.logger.Error("failed to marshal event", "action", event.Action, "error", err)
		return
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	for connID := range that.rooms[roomID] {
		if c, ok := that.clients[connID]; ok {
			that.enqueue(c, message)
		}
	}
}

func (that *Hub) Unicast(connID string, event entity.Event) {
	message, err := json.Marshal(event)
	if err != nil {
		that.logger.Error("failed to marshal event", "action", event.Action, "error", err)
		return
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	if c, ok := that.clients[connID]; ok {
		that.enqueue(c, message)
	}
}

// ConnectionCount returns the number of registered connections.
func (that *Hub) ConnectionCount() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.clients)
}

// Close drops every connection.
func (that *Hub) Close() {
	that.mu.RLock()
	clients := make([]*client, 0, len(that.clients))
	for _, c := range that.clients {
		clients = append(clients, c)
	}
	that.mu.RUnlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
}

// enqueue must be called with the hub lock held so the buffer can't be closed under it.
func (that *Hub) enqueue(c *client, message []byte) {
	select {
	case c.send <- message:
	default:
		that.logger.Warn("send buffer full, event dropped", "playerID", c.id)
	}
}
