package realtime

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Client is a live websocket connection bound to a verified identity. It
// implements Conn; inbound events are read and dispatched on readPump's
// goroutine, outbound events are queued on a buffered channel drained by
// writePump.
type Client struct {
	id    string
	hub   *Hub
	conn  *websocket.Conn
	ident Identity

	send chan []byte
	done chan struct{}

	closed int32 // atomic, connection retired
}

func NewClient(hub *Hub, conn *websocket.Conn, ident Identity) *Client {
	return &Client{
		id:    uuid.New().String(),
		hub:   hub,
		conn:  conn,
		ident: ident,
		send:  make(chan []byte, 256),
		done:  make(chan struct{}),
	}
}

func (c *Client) UserID() uint {
	return c.ident.UserID
}

func (c *Client) Identity() Identity {
	return c.ident
}

// Send queues an event for delivery. A full buffer retires this client
// only; a slow consumer never stalls a broadcast for everyone else.
func (c *Client) Send(event *Event) error {
	if c.isRetired() {
		return ErrClientDisconnected
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClientDisconnected
	default:
		slog.Warn("Send buffer full, retiring client", "clientID", c.id, "userID", c.ident.UserID)
		c.Retire()
		return ErrClientDisconnected
	}
}

// Retire marks the client closed and closes the underlying connection,
// which unblocks both pumps. Safe to call more than once.
func (c *Client) Retire() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		close(c.done)
		c.conn.Close()
		slog.Debug("Client retired", "clientID", c.id, "userID", c.ident.UserID)
	}
}

func (c *Client) isRetired() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// readPump reads inbound messages until the connection dies and dispatches
// each one in arrival order. Cleanup runs exactly once on exit, whatever
// killed the connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.Retire()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "userID", c.ident.UserID, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.ident.UserID, "error", err)
			}
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			slog.Debug("Malformed inbound message", "clientID", c.id, "userID", c.ident.UserID, "error", err)
			c.Send(NewEvent(EventError, ErrorData{Code: CodeValidation, Message: "invalid message format"}))
			continue
		}

		c.hub.HandleInbound(c.hub.ctx, c, &msg)
	}
}

// writePump drains the send channel to the peer and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Retire()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "userID", c.ident.UserID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "clientID", c.id, "userID", c.ident.UserID, "error", err)
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Serve registers the client with the hub and starts its pumps. The caller
// must have already verified the identity.
func (c *Client) Serve() {
	c.hub.Connect(c)
	go c.writePump()
	go c.readPump()
}
