package websocket

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cvyl/cloudflare-websocket-livecount/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ErrBufferFull is returned by Send when the outbound queue is full. The
// hub treats it as a delivery failure and prunes the connection.
var ErrBufferFull = errors.New("send buffer full")

// Conn adapts a gorilla websocket connection to domain.Connection. It is
// not registered anywhere until the client sends a join message; the
// handler owns registration and counting.
type Conn struct {
	room    string
	ws      *websocket.Conn
	send    chan []byte
	handler domain.Handler
}

func NewConn(room string, ws *websocket.Conn, h domain.Handler) *Conn {
	return &Conn{
		room:    room,
		ws:      ws,
		send:    make(chan []byte, 256),
		handler: h,
	}
}

func (c *Conn) Room() string { return c.room }

func (c *Conn) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.handler.HandleClose(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Text and binary frames are both accepted; binary payloads are
		// decoded as UTF-8 JSON like everything else.
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "room", c.room, "error", err)
			}
			return
		}

		c.handler.Handle(c, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
