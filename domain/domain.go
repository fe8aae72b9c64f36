package domain

import "encoding/json"

// Event types sent to clients.
const (
	TypeCountUpdate = "update/count"
	TypeRoomsUpdate = "update/rooms"
	TypeMessage     = "message"
)

// Control message types accepted from clients.
const (
	ActionJoin    = "join"
	ActionMessage = "message"
)

// Control is a client-sent control message. Payload is opaque to the
// server and only meaningful for ActionMessage.
type Control struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CountUpdate announces a room's new occupant count.
type CountUpdate struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	Count    int    `json:"count"`
	ClientID string `json:"clientId,omitempty"`
}

func NewCountUpdate(room string, count int) CountUpdate {
	return CountUpdate{Type: TypeCountUpdate, Room: room, Count: count}
}

func (e CountUpdate) WithClientID(id string) any {
	e.ClientID = id
	return e
}

// RoomsUpdate announces the aggregate state: every occupied room with its
// count, plus the process-wide visitor total.
type RoomsUpdate struct {
	Type          string         `json:"type"`
	Rooms         map[string]int `json:"rooms"`
	TotalVisitors int            `json:"totalVisitors"`
}

func NewRoomsUpdate(rooms map[string]int, totalVisitors int) RoomsUpdate {
	return RoomsUpdate{Type: TypeRoomsUpdate, Rooms: rooms, TotalVisitors: totalVisitors}
}

// ChatMessage relays an opaque client payload to a room.
type ChatMessage struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	ClientID string          `json:"clientId,omitempty"`
}

func NewChatMessage(payload json.RawMessage) ChatMessage {
	return ChatMessage{Type: TypeMessage, Payload: payload}
}

func (e ChatMessage) WithClientID(id string) any {
	e.ClientID = id
	return e
}

// RoomEvent is an event personalized with the receiving connection's
// client ID before delivery.
type RoomEvent interface {
	WithClientID(id string) any
}

// Connection is one persistent client session. Send must not block; a
// full outbound buffer is reported as a send failure.
type Connection interface {
	Room() string
	Send(data []byte) error
	Close() error
}

// Registry tracks which connections are present in which room.
type Registry interface {
	Add(conn Connection, clientID string) bool
	Remove(conn Connection) bool
}

// Broadcaster delivers events to connections. Connections whose send
// fails are removed from their room and returned to the caller.
type Broadcaster interface {
	BroadcastToRoom(room string, ev RoomEvent) []Connection
	BroadcastToAll(ev any) []Connection
}

// Handler reacts to a connection's inbound messages and its close.
type Handler interface {
	Handle(conn Connection, data []byte)
	HandleClose(conn Connection)
}
