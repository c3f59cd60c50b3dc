// internal/websocket/client.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Client is one physical WebSocket connection
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewClient creates a new client around an upgraded connection
func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// ID returns the connection's identifier
func (c *Client) ID() string {
	return c.id
}

// SendMessage queues a typed message for delivery to this client
func (c *Client) SendMessage(msgType string, payload interface{}) error {
	data, err := json.Marshal(&Message{Type: msgType, Payload: payload})
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientBufferFull
	}
}

// Close shuts the connection down
func (c *Client) Close() {
	c.conn.Close()
}

// writePump drains the send buffer and keeps the connection alive with
// pings. One writer goroutine per connection; gorilla allows at most one
// concurrent writer.
func (c *Client) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
