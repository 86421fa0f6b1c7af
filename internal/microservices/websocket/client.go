package websocket

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const ( // ping pong(2-way heartbeat) to keep connection alive
	WriteWait      = 10 * time.Second    // max time write a message to the peer
	PongWait       = 60 * time.Second    // max time to wait for pong from peer => no pong = no connection
	PingPeriod     = (PongWait * 9) / 10 // send ping before pong wait expires, 10% slack for network jitter
	MaxMessageSize = 512                 // maximum message size allowed from peer
	SendBufferSize = 64                  // outbound queue per connection
)

// Client is one authenticated realtime connection. The connection id is
// unique per socket; the user id comes from the verified token.
type Client struct {
	ID       string          // unique connection ID
	UserID   string          // user ID from the token subject claim
	conn     *websocket.Conn // WebSocket connection
	send     chan []byte     // channel for outbound messages
	registry *Registry       // reference to the central registry
	logger   *slog.Logger
}

// constructor new client
func NewClient(id, userID string, conn *websocket.Conn, registry *Registry, logger *slog.Logger) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		conn:     conn,
		send:     make(chan []byte, SendBufferSize),
		registry: registry,
		logger:   logger,
	}
}

// Send queues one frame for delivery. A client whose queue is full is too
// far behind to catch up; the frame is dropped and the caller told so.
func (c *Client) Send(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		c.logger.Warn("send buffer full, dropping frame", "user_id", c.UserID, "client_id", c.ID)
		return false
	}
}

// ReadPump drains inbound frames until the peer goes away. Clients send
// nothing the server acts on; the pump exists to observe the close and to
// answer pings. Removal is identity guarded inside the registry so a
// reconnect that already replaced this client is left alone.
func (c *Client) ReadPump() {
	defer func() {
		c.registry.Remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("unexpected close", "user_id", c.UserID, "error", err)
			}
			return
		}
	}
}

// WritePump writes queued frames and heartbeats to the peer
func (c *Client) WritePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				// registry closed the queue, tell the peer goodbye
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close tears the connection down; the read pump notices and unregisters.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
