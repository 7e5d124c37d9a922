package websocket

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	heartbeatInterval = 25 * time.Second
	// Drop connections that miss two heartbeats.
	idleTimeout  = 2*heartbeatInterval + 10*time.Second
	writeTimeout = 10 * time.Second

	// Delivery is one-way; inbound frames are control traffic only.
	inboundLimit   = 512
	outboundBuffer = 256
)

// Client binds one websocket connection to a user. A user can hold several
// clients at once (multiple tabs or devices).
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID uuid.UUID

	// Send carries serialized frames; the hub closes it on unregister.
	Send chan []byte
}

// ServeWs registers the connection with the hub and runs both loops. It
// blocks until the connection drops, which keeps the fiber websocket
// handler alive for the lifetime of the session.
func ServeWs(hub *Hub, conn *websocket.Conn, userID uuid.UUID) {
	client := &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, outboundBuffer),
	}
	hub.register <- client

	go client.writeLoop()
	client.readLoop()
}

// readLoop drains inbound frames so pong handlers run and close frames are
// observed. Payloads from the client are discarded.
func (c *Client) readLoop() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(inboundLimit)
	c.Conn.SetReadDeadline(time.Now().Add(idleTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.Hub.logger.Warn("WebSocket", "Connection dropped", map[string]interface{}{
					"user_id": c.UserID,
					"error":   err.Error(),
				})
			}
			return
		}
	}
}

// writeLoop flushes the Send queue and keeps the connection alive with
// periodic pings. A closed Send channel means the hub unregistered us.
func (c *Client) writeLoop() {
	heartbeat := time.NewTicker(heartbeatInterval)
	defer func() {
		heartbeat.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-heartbeat.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
