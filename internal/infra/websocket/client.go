package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/northstarhq/api/pkg/logger"
)

const (
	writeWait = 10 * time.Second

	// pongWait bounds how long a silent peer stays connected;
	// pingPeriod must fire well inside it.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	// maxSubscriptionsPerClient caps per-connection room fan-out.
	maxSubscriptionsPerClient = 50
)

// Client is one websocket connection. The hub owns registration; the
// client owns its read and write pumps and its subscription set.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *logger.Logger

	ID       string
	UserID   string
	TenantID string

	subMu         sync.RWMutex
	subscriptions map[string]bool

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, tenantID string, log *logger.Logger) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, 256),
		logger:        log,
		ID:            generateClientID(),
		UserID:        userID,
		TenantID:      tenantID,
		subscriptions: make(map[string]bool),
	}
}

func generateClientID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}

// Subscribe records a channel subscription, refusing duplicates and
// anything past the per-client cap.
func (c *Client) Subscribe(channel string) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.subscriptions[channel] {
		return false
	}
	if len(c.subscriptions) >= maxSubscriptionsPerClient {
		c.logger.Warn("subscription limit exceeded",
			"client_id", c.ID,
			"user_id", c.UserID,
			"current", len(c.subscriptions),
			"max", maxSubscriptionsPerClient,
		)
		return false
	}

	c.subscriptions[channel] = true
	return true
}

// Unsubscribe drops a channel subscription if present.
func (c *Client) Unsubscribe(channel string) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if !c.subscriptions[channel] {
		return false
	}
	delete(c.subscriptions, channel)
	return true
}

func (c *Client) IsSubscribed(channel string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return c.subscriptions[channel]
}

// SendMessage queues msg for the write pump. A full buffer means the
// peer is not draining; the message is dropped rather than letting
// one slow client stall the hub.
func (c *Client) SendMessage(msg *Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("client send buffer full, dropping message",
			"client_id", c.ID,
			"user_id", c.UserID,
		)
	}
	return nil
}

// Close shuts the connection down once; later calls are no-ops.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.send)
	c.conn.Close()
}

// ReadPump reads frames off the connection until it dies, feeding
// parsed messages to the dispatcher. It unregisters from the hub on
// the way out.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "client_id", c.ID, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("invalid websocket message", "client_id", c.ID, "error", err)
			c.sendError("INVALID_MESSAGE", "Invalid message format")
			continue
		}

		c.dispatch(&msg)
	}
}

// WritePump drains the send channel onto the wire and keeps the
// connection alive with pings. One frame per message; clients parse
// frames as single JSON documents.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (c *Client) dispatch(msg *Message) {
	switch msg.Type {
	case MessageTypeSubscribe:
		c.handleSubscribe(msg)
	case MessageTypeUnsubscribe:
		c.handleUnsubscribe(msg)
	case MessageTypePing:
		c.SendMessage(NewMessage(MessageTypePong))
	default:
		c.sendError("UNKNOWN_MESSAGE_TYPE", "Unknown message type: "+string(msg.Type))
	}
}

// handleSubscribe checks room access at subscribe time, so a member
// removed from a team stops receiving that team room on their next
// connection.
func (c *Client) handleSubscribe(msg *Message) {
	req := subscriptionRequest(msg)
	if req.Channel == "" {
		c.sendErrorWithRequestID("INVALID_CHANNEL", "Channel is required", req.RequestID)
		return
	}

	if !c.hub.authorizeSubscription(c, req.Channel) {
		c.sendErrorWithRequestID("FORBIDDEN", "Access denied to channel", req.RequestID)
		return
	}

	if c.Subscribe(req.Channel) {
		c.hub.subscribeToChannel(c, req.Channel)
		c.logger.Debug("client subscribed", "client_id", c.ID, "channel", req.Channel)
	}

	c.SendMessage(NewMessage(MessageTypeSubscribed).
		WithChannel(req.Channel).
		WithRequestID(req.RequestID))
}

func (c *Client) handleUnsubscribe(msg *Message) {
	req := subscriptionRequest(msg)
	if req.Channel == "" {
		c.sendErrorWithRequestID("INVALID_CHANNEL", "Channel is required", req.RequestID)
		return
	}

	if c.Unsubscribe(req.Channel) {
		c.hub.unsubscribeFromChannel(c, req.Channel)
		c.logger.Debug("client unsubscribed", "client_id", c.ID, "channel", req.Channel)
	}

	c.SendMessage(NewMessage(MessageTypeUnsubscribed).
		WithChannel(req.Channel).
		WithRequestID(req.RequestID))
}

// subscriptionRequest accepts the channel either inside msg.Data or on
// the message envelope itself.
func subscriptionRequest(msg *Message) SubscribeRequest {
	var req SubscribeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Channel == "" {
		req.Channel = msg.Channel
		req.RequestID = msg.RequestID
	}
	return req
}

func (c *Client) sendError(code, message string) {
	c.sendErrorWithRequestID(code, message, "")
}

func (c *Client) sendErrorWithRequestID(code, message, requestID string) {
	c.SendMessage(NewMessage(MessageTypeError).
		WithData(ErrorData{Code: code, Message: message}).
		WithRequestID(requestID))
}
