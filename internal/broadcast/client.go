package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/albapepper/scoracle-live/internal/match"
	"github.com/albapepper/scoracle-live/internal/wire"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Commands are small; a whole snapshot is never accepted from a client.
	maxMessageSize = 4096

	sendBufferSize = 256
)

// Client message types.
const (
	ClientMessageCommand   = "command"
	ClientMessageHeartbeat = "heartbeat"
)

// ClientMessage is what a scorer's client may send over the socket.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CommandFunc dispatches a command received from a client to its match.
type CommandFunc func(ctx context.Context, matchID string, c match.Command) (bool, error)

// Registry is the part of Hub a client needs.
type Registry interface {
	Unregister(c *Client)
}

// Client is one WebSocket connection watching one match.
type Client struct {
	ID      string
	MatchID string
	Send    chan []byte

	conn     *websocket.Conn
	hub      Registry
	dispatch CommandFunc
	logger   *slog.Logger

	// sendMu guards closed; Send is only written or closed while holding it.
	sendMu sync.Mutex
	closed bool

	mu               sync.Mutex
	connectedAt      time.Time
	messagesSent     int64
	messagesReceived int64
}

// NewClient creates a client. dispatch may be nil, in which case the
// connection is read-only and command messages get an error reply.
func NewClient(id, matchID string, conn *websocket.Conn, hub Registry, dispatch CommandFunc, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		ID:          id,
		MatchID:     matchID,
		Send:        make(chan []byte, sendBufferSize),
		conn:        conn,
		hub:         hub,
		dispatch:    dispatch,
		logger:      logger.With("client_id", id, "match_id", matchID),
		connectedAt: time.Now(),
	}
}

// ReadPump reads client messages until the connection fails or ctx ends.
func (c *Client) ReadPump(ctx context.Context) {
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
		if ctx.Err() != nil {
			return
		}
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket closed unexpectedly", "error", err)
			}
			return
		}
		c.mu.Lock()
		c.messagesReceived++
		c.mu.Unlock()
		c.handle(ctx, msg)
	}
}

// WritePump writes queued messages and keepalive pings.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("WebSocket write failed", "error", err)
				return
			}
			c.mu.Lock()
			c.messagesSent++
			c.mu.Unlock()

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues a message without blocking. Returns false when the
// client's buffer is full or the hub has let go of the client.
func (c *Client) TrySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes Send once. Later TrySend calls report false.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// Stats returns per-connection counters.
func (c *Client) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]interface{}{
		"client_id":         c.ID,
		"match_id":          c.MatchID,
		"connected_at":      c.connectedAt,
		"messages_sent":     c.messagesSent,
		"messages_received": c.messagesReceived,
		"buffered":          len(c.Send),
	}
}

func (c *Client) handle(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case ClientMessageHeartbeat:
		c.reply(MessageTypeAck, c.Stats())
	case ClientMessageCommand:
		c.handleCommand(ctx, msg.Payload)
	default:
		c.sendError("unknown_message_type", "unknown message type: "+msg.Type)
	}
}

func (c *Client) handleCommand(ctx context.Context, payload json.RawMessage) {
	if c.dispatch == nil {
		c.sendError("read_only", "this connection cannot send commands")
		return
	}
	cmd, err := wire.Decode(payload)
	if err != nil {
		c.sendError("invalid_command", err.Error())
		return
	}
	changed, err := c.dispatch(ctx, c.MatchID, cmd)
	if err != nil {
		c.sendError("dispatch_failed", err.Error())
		return
	}
	c.reply(MessageTypeAck, AckPayload{Kind: cmd.Kind(), Changed: changed})
}

func (c *Client) reply(kind string, payload any) {
	data, err := newMessage(kind, c.MatchID, payload)
	if err != nil {
		c.logger.Error("Failed to encode reply", "type", kind, "error", err)
		return
	}
	c.TrySend(data)
}

func (c *Client) sendError(code, message string) {
	c.reply(MessageTypeError, ErrorPayload{Code: code, Message: message})
}
