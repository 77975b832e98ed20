package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/chat"
	"github.com/northstarhq/api/pkg/domain/shared"
)

// chatMessageRecord is the cached wire form of a chat message. IDs are
// stored as strings so the record round-trips through JSON.
type chatMessageRecord struct {
	ID       string    `json:"id"`
	TenantID string    `json:"tenant_id"`
	RoomID   string    `json:"room_id"`
	AuthorID string    `json:"author_id"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

// ChatHistoryCache caches the latest page of a room's message history.
// Posts invalidate the page, so the TTL only bounds staleness against
// writers that bypass the service, such as retention pruning.
type ChatHistoryCache struct {
	cache *Cache[[]chatMessageRecord]
}

// NewChatHistoryCache creates the history cache on the shared client.
func NewChatHistoryCache(client *Client) (*ChatHistoryCache, error) {
	c, err := NewCache[[]chatMessageRecord](client, "chat:history", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat history cache: %w", err)
	}
	return &ChatHistoryCache{cache: c}, nil
}

// GetPage returns the cached latest page for a room. Returns
// ErrCacheMiss when the page is absent or expired.
func (c *ChatHistoryCache) GetPage(ctx context.Context, roomID shared.ID) ([]*chat.Message, error) {
	records, err := c.cache.Get(ctx, roomID.String())
	if err != nil {
		return nil, err
	}

	messages := make([]*chat.Message, 0, len(*records))
	for _, rec := range *records {
		m, err := recordToMessage(rec)
		if err != nil {
			// A corrupt entry poisons the whole page; drop it and
			// let the caller fall back to the repository.
			_ = c.cache.Delete(ctx, roomID.String())
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// SetPage stores the latest page for a room.
func (c *ChatHistoryCache) SetPage(ctx context.Context, roomID shared.ID, messages []*chat.Message) error {
	records := make([]chatMessageRecord, len(messages))
	for i, m := range messages {
		records[i] = chatMessageRecord{
			ID:       m.ID().String(),
			TenantID: m.TenantID().String(),
			RoomID:   m.RoomID().String(),
			AuthorID: m.AuthorID().String(),
			Body:     m.Body(),
			SentAt:   m.SentAt(),
		}
	}
	return c.cache.Set(ctx, roomID.String(), records)
}

// InvalidatePage drops the cached page for a room.
func (c *ChatHistoryCache) InvalidatePage(ctx context.Context, roomID shared.ID) error {
	return c.cache.Delete(ctx, roomID.String())
}

func recordToMessage(rec chatMessageRecord) (*chat.Message, error) {
	id, err := shared.IDFromString(rec.ID)
	if err != nil {
		return nil, err
	}
	tenantID, err := shared.IDFromString(rec.TenantID)
	if err != nil {
		return nil, err
	}
	roomID, err := shared.IDFromString(rec.RoomID)
	if err != nil {
		return nil, err
	}
	authorID, err := shared.IDFromString(rec.AuthorID)
	if err != nil {
		return nil, err
	}
	return chat.ReconstituteMessage(id, tenantID, roomID, authorID, rec.Body, rec.SentAt), nil
}
