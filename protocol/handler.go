package protocol

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cvyl/cloudflare-websocket-livecount/counter"
	"github.com/cvyl/cloudflare-websocket-livecount/domain"
)

// Hub is the registry and broadcast surface the handler drives.
type Hub interface {
	domain.Registry
	domain.Broadcaster
}

// Handler drives the connection lifecycle: join registers and counts a
// connection, message relays an opaque payload to its room, close (or a
// failed send) unregisters and uncounts it. Every count change is
// followed by an update/count broadcast to the room and an update/rooms
// broadcast to everyone.
type Handler struct {
	hub    Hub
	counts *counter.Store
	log    *slog.Logger
}

func NewHandler(hub Hub, counts *counter.Store, log *slog.Logger) *Handler {
	return &Handler{hub: hub, counts: counts, log: log}
}

// Handle processes one inbound control message. Malformed or
// unrecognized messages are dropped without closing the connection.
func (h *Handler) Handle(conn domain.Connection, data []byte) {
	var msg domain.Control
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.Debug("invalid control message", "room", conn.Room(), "error", err)
		return
	}

	switch msg.Type {
	case domain.ActionJoin:
		h.join(conn)
	case domain.ActionMessage:
		h.relay(conn, msg.Payload)
	default:
		h.log.Debug("unknown control type", "type", msg.Type, "room", conn.Room())
	}
}

// HandleClose runs when a connection's transport closes. The registry
// removal is the commit point: only the path that actually removed the
// connection decrements, so a prune followed by a close never counts a
// departure twice.
func (h *Handler) HandleClose(conn domain.Connection) {
	if !h.hub.Remove(conn) {
		return
	}
	h.drop(conn)
}

func (h *Handler) join(conn domain.Connection) {
	clientID := uuid.NewString()
	if !h.hub.Add(conn, clientID) {
		h.log.Debug("duplicate join ignored", "room", conn.Room())
		return
	}
	count := h.counts.Increment(conn.Room())
	h.log.Info("client joined", "room", conn.Room(), "clientId", clientID, "count", count)
	h.announce(conn.Room(), count)
}

func (h *Handler) relay(conn domain.Connection, payload json.RawMessage) {
	if len(payload) == 0 {
		h.log.Debug("message without payload ignored", "room", conn.Room())
		return
	}
	h.settle(h.hub.BroadcastToRoom(conn.Room(), domain.NewChatMessage(payload)))
}

// drop uncounts a connection that has already left the registry.
func (h *Handler) drop(conn domain.Connection) {
	count := h.counts.Decrement(conn.Room())
	h.log.Info("client left", "room", conn.Room(), "count", count)
	h.announce(conn.Room(), count)
}

// announce broadcasts a room's new count and the aggregate state, then
// settles any connections evicted by failed sends.
func (h *Handler) announce(room string, count int) {
	evicted := h.hub.BroadcastToRoom(room, domain.NewCountUpdate(room, count))
	rooms, total := h.counts.Snapshot()
	evicted = append(evicted, h.hub.BroadcastToAll(domain.NewRoomsUpdate(rooms, total))...)
	h.settle(evicted)
}

// settle closes and uncounts evicted connections. Announcing those
// departures can evict more connections, which feed back through here;
// each connection is evicted at most once, so this terminates.
func (h *Handler) settle(evicted []domain.Connection) {
	for _, conn := range evicted {
		_ = conn.Close()
		h.drop(conn)
	}
}
