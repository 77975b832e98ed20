package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/northstarhq/api/pkg/domain/chat"
	"github.com/northstarhq/api/pkg/logger"
)

// Hub configuration constants
const (
	// Max connections per user for rate limiting
	maxConnectionsPerUser = 10

	// Broadcast buffer size
	broadcastBufferSize = 256

	// Deadline for subscribe-time room access checks
	authorizeTimeout = 3 * time.Second
)

// RoomAccessChecker answers whether a user may read a room. Implemented
// by app.ChatService.
type RoomAccessChecker interface {
	CanSubscribe(ctx context.Context, tenantID, roomID, userID string) (bool, error)
}

// Hub maintains the set of active clients and fans room messages out to
// them. It implements app.MessageBroadcaster.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// User connection counts for rate limiting
	userConnCounts map[string]int

	// Channel subscriptions: channel -> set of clients
	channels map[string]map[*Client]bool

	// Inbound messages for broadcast
	broadcast chan *BroadcastMessage

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Room access checks at subscribe time
	access RoomAccessChecker

	logger *logger.Logger

	mu sync.RWMutex
}

// BroadcastMessage represents a message to broadcast to a channel.
type BroadcastMessage struct {
	Channel  string
	Message  *Message
	TenantID string // If set, only clients in this tenant receive the message
}

// NewHub creates a new Hub. The access checker guards room
// subscriptions; a nil checker denies all chat channels.
func NewHub(access RoomAccessChecker, log *logger.Logger) *Hub {
	return &Hub{
		clients:        make(map[*Client]bool),
		userConnCounts: make(map[string]int),
		channels:       make(map[string]map[*Client]bool),
		broadcast:      make(chan *BroadcastMessage, broadcastBufferSize),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		access:         access,
		logger:         log,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("websocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("websocket hub stopping")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			// Rate limit: check connections per user
			if client.UserID != "" {
				count := h.userConnCounts[client.UserID]
				if count >= maxConnectionsPerUser {
					h.mu.Unlock()
					h.logger.Warn("connection limit exceeded",
						"user_id", client.UserID,
						"current", count,
						"max", maxConnectionsPerUser,
					)
					client.Close()
					continue
				}
				h.userConnCounts[client.UserID] = count + 1
			}
			h.clients[client] = true
			h.mu.Unlock()

			h.logger.Debug("client registered",
				"client_id", client.ID,
				"user_id", client.UserID,
				"tenant_id", client.TenantID,
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.removeClientFromAllChannels(client)
				// Decrement user connection count
				if client.UserID != "" {
					if count := h.userConnCounts[client.UserID]; count > 0 {
						h.userConnCounts[client.UserID] = count - 1
						if h.userConnCounts[client.UserID] == 0 {
							delete(h.userConnCounts, client.UserID)
						}
					}
				}
			}
			h.mu.Unlock()

			h.logger.Debug("client unregistered",
				"client_id", client.ID,
				"user_id", client.UserID,
			)

		case msg := <-h.broadcast:
			h.broadcastToChannel(msg)
		}
	}
}

// RegisterClient registers a new client.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client.
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// chatMessagePayload is the wire shape of a broadcast chat message.
type chatMessagePayload struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	AuthorID string    `json:"author_id"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

// BroadcastMessage fans a stored chat message out to clients subscribed
// to the room's channel. Implements app.MessageBroadcaster.
func (h *Hub) BroadcastMessage(_ context.Context, m *chat.Message) error {
	channel := ChatChannel(m.RoomID().String())
	msg := NewMessage(MessageTypeEvent).
		WithChannel(channel).
		WithData(chatMessagePayload{
			ID:       m.ID().String(),
			RoomID:   m.RoomID().String(),
			AuthorID: m.AuthorID().String(),
			Body:     m.Body(),
			SentAt:   m.SentAt(),
		})

	h.broadcast <- &BroadcastMessage{
		Channel:  channel,
		Message:  msg,
		TenantID: m.TenantID().String(),
	}
	return nil
}

// authorizeSubscription checks if a client can subscribe to a channel.
// Only chat channels exist; the room must belong to the client's
// workspace, and team rooms additionally require team membership.
func (h *Hub) authorizeSubscription(client *Client, channel string) bool {
	roomID, ok := ParseChatChannel(channel)
	if !ok {
		return false
	}
	if h.access == nil || client.TenantID == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
	defer cancel()

	allowed, err := h.access.CanSubscribe(ctx, client.TenantID, roomID, client.UserID)
	if err != nil {
		h.logger.Warn("room access check failed",
			"client_id", client.ID,
			"channel", channel,
			"error", err,
		)
		return false
	}
	return allowed
}

// subscribeToChannel adds a client to a channel (internal use).
func (h *Hub) subscribeToChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][client] = true
}

// unsubscribeFromChannel removes a client from a channel (internal use).
func (h *Hub) unsubscribeFromChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.channels[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}
}

// broadcastToChannel sends a message to all clients subscribed to a channel.
func (h *Hub) broadcastToChannel(msg *BroadcastMessage) {
	h.mu.RLock()
	clients, ok := h.channels[msg.Channel]
	if !ok || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy client list to avoid holding lock during send
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		// Filter by tenant if specified
		if msg.TenantID != "" && client.TenantID != msg.TenantID {
			continue
		}
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	// Send to all clients
	for _, client := range clientList {
		if err := client.SendMessage(msg.Message); err != nil {
			h.logger.Debug("failed to send message to client",
				"client_id", client.ID,
				"channel", msg.Channel,
				"error", err,
			)
		}
	}

	h.logger.Debug("broadcast message",
		"channel", msg.Channel,
		"recipients", len(clientList),
	)
}

// removeClientFromAllChannels removes a client from all channel subscriptions.
func (h *Hub) removeClientFromAllChannels(client *Client) {
	for channel, clients := range h.channels {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}
}

// closeAllClients closes all client connections.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
	h.channels = make(map[string]map[*Client]bool)
}

// GetStats returns hub statistics.
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	channelStats := make(map[string]int)
	for channel, clients := range h.channels {
		channelStats[channel] = len(clients)
	}

	return HubStats{
		TotalClients:   len(h.clients),
		TotalChannels:  len(h.channels),
		ChannelClients: channelStats,
	}
}

// HubStats contains hub statistics.
type HubStats struct {
	TotalClients   int            `json:"total_clients"`
	TotalChannels  int            `json:"total_channels"`
	ChannelClients map[string]int `json:"channel_clients"`
}
