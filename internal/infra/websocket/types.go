// Package websocket provides WebSocket infrastructure for real-time chat.
package websocket

import (
	"encoding/json"
	"strings"
	"time"
)

// MessageType defines the type of WebSocket message.
type MessageType string

const (
	// Client -> Server messages
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"

	// Server -> Client messages
	MessageTypePong         MessageType = "pong"
	MessageTypeSubscribed   MessageType = "subscribed"
	MessageTypeUnsubscribed MessageType = "unsubscribed"
	MessageTypeEvent        MessageType = "event"
	MessageTypeError        MessageType = "error"
)

// Message is the base WebSocket message structure.
type Message struct {
	Type      MessageType     `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage creates a new message with current timestamp.
func NewMessage(msgType MessageType) *Message {
	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
	}
}

// WithChannel sets the channel for the message.
func (m *Message) WithChannel(channel string) *Message {
	m.Channel = channel
	return m
}

// WithData sets the data for the message.
func (m *Message) WithData(data any) *Message {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err == nil {
			m.Data = jsonData
		}
	}
	return m
}

// WithRequestID sets the request ID for the message.
func (m *Message) WithRequestID(id string) *Message {
	m.RequestID = id
	return m
}

// SubscribeRequest is the payload of subscribe and unsubscribe
// messages; both carry a channel and an optional request ID.
type SubscribeRequest struct {
	Channel   string `json:"channel"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorData represents error information sent to client.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChatChannelPrefix is the prefix for room channels. A client
// subscribes to "chat:{roomID}" to receive messages for that room.
const ChatChannelPrefix = "chat"

// ChatChannel builds the channel name for a room.
func ChatChannel(roomID string) string {
	return ChatChannelPrefix + ":" + roomID
}

// ParseChatChannel extracts the room ID from a channel string. Returns
// false when the channel is not a chat channel.
func ParseChatChannel(channel string) (string, bool) {
	prefix, id, found := strings.Cut(channel, ":")
	if !found || prefix != ChatChannelPrefix || id == "" {
		return "", false
	}
	return id, true
}
