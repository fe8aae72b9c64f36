package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/cvyl/cloudflare-websocket-livecount/domain"
	"github.com/cvyl/cloudflare-websocket-livecount/metrics"
)

// Hub is the connection registry and broadcast engine. It tracks the set
// of open connections per room together with each connection's client ID,
// and fans events out to them. Connections that fail a send are pruned
// from their room and handed back to the caller to settle counts.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[domain.Connection]string
}

func New() *Hub {
	return &Hub{rooms: make(map[string]map[domain.Connection]string)}
}

// Add registers conn in its room under clientID, creating the room set on
// first join. Returns false without mutation if the connection is already
// registered there, so a duplicate join never counts twice.
func (h *Hub) Add(conn domain.Connection, clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[conn.Room()]
	if r == nil {
		r = make(map[domain.Connection]string)
		h.rooms[conn.Room()] = r
	}
	if _, ok := r[conn]; ok {
		return false
	}
	r[conn] = clientID
	metrics.ActiveConnections.Inc()
	return true
}

// Remove takes conn out of its room's set, dropping the room once empty.
// The boolean reports whether a removal actually happened; callers use it
// to decrement at most once per connection.
func (h *Hub) Remove(conn domain.Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(conn)
}

func (h *Hub) removeLocked(conn domain.Connection) bool {
	r, ok := h.rooms[conn.Room()]
	if !ok {
		return false
	}
	if _, ok := r[conn]; !ok {
		return false
	}
	delete(r, conn)
	if len(r) == 0 {
		delete(h.rooms, conn.Room())
	}
	metrics.ActiveConnections.Dec()
	return true
}

// BroadcastToRoom sends ev to every connection in room, with each
// recipient's own clientId merged in. A missing or empty room is a no-op.
func (h *Hub) BroadcastToRoom(room string, ev domain.RoomEvent) []domain.Connection {
	h.mu.Lock()
	defer h.mu.Unlock()

	var evicted []domain.Connection
	for conn, clientID := range h.rooms[room] {
		data, err := json.Marshal(ev.WithClientID(clientID))
		if err != nil {
			slog.Warn("marshal error", "room", room, "error", err)
			break
		}
		if err := conn.Send(data); err != nil {
			evicted = append(evicted, conn)
		}
	}
	for _, conn := range evicted {
		h.removeLocked(conn)
	}
	return evicted
}

// BroadcastToAll sends ev to every connection in every room, as-is.
func (h *Hub) BroadcastToAll(ev any) []domain.Connection {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("marshal error", "error", err)
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var evicted []domain.Connection
	for _, r := range h.rooms {
		for conn := range r {
			if err := conn.Send(data); err != nil {
				evicted = append(evicted, conn)
			}
		}
	}
	for _, conn := range evicted {
		h.removeLocked(conn)
	}
	return evicted
}

func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms = len(h.rooms)
	for _, r := range h.rooms {
		clients += len(r)
	}
	return rooms, clients
}
