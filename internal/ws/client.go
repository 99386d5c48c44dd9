package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/prohmpiriya/auth-service/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4 * 1024
	sendBufferSize = 16
)

// Message types pushed over the notification channel
const (
	MsgTypeConnected           = "connected"
	MsgTypePong                = "pong"
	MsgTypeSessionsInvalidated = "sessions.invalidated"
	MsgTypeTokenRevoked        = "token.revoked"
)

// Envelope is the wire shape of every server-to-client message
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	Ts   int64           `json:"ts"`
}

// NewEnvelope marshals an envelope of the given type, stamping it with the
// current time
func NewEnvelope(msgType string, data interface{}) ([]byte, error) {
	env := Envelope{Type: msgType, Ts: time.Now().UnixMilli()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// Client is one WebSocket connection. The identity is resolved once at
// handshake time and never re-verified while the connection lives; revoking
// a token does not kick an already-open connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	identity domain.Identity
	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// NewClient wraps an upgraded connection with its handshake identity
func NewClient(hub *Hub, conn *websocket.Conn, identity domain.Identity, logger *zap.Logger) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		identity: identity,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Identity returns the identity cached at handshake time
func (c *Client) Identity() domain.Identity {
	return c.identity
}

// Start registers the client and runs both pumps
func (c *Client) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// readPump consumes inbound frames. The channel is notification-only:
// application pings get a pong envelope back, everything else is dropped.
// Reading also drives pong deadline handling and close detection.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error",
					zap.String("subject_id", c.identity.SubjectID),
					zap.Error(err),
				)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue
		}
		if env.Type == "ping" {
			if pong, err := NewEnvelope(MsgTypePong, nil); err == nil {
				c.Send(pong)
			}
		}
	}
}

// writePump drains the send channel and keeps the protocol-level ping
// ticker running until the client is stopped.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send queues a message for delivery without blocking. Messages to a
// full buffer or a stopped connection are dropped.
func (c *Client) Send(message []byte) {
	select {
	case <-c.done:
	case c.send <- message:
	default:
	}
}

// stop ends the write pump, which closes the connection and unblocks the
// read pump. The send channel is never closed; Send after stop is a
// silent drop.
func (c *Client) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}
