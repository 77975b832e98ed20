package chat

import (
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

const maxMessageBody = 2000

// Message is a chat message posted to a room. Messages are immutable
// once created.
type Message struct {
	id       shared.ID
	tenantID shared.ID
	roomID   shared.ID
	authorID shared.ID
	body     string
	sentAt   time.Time
}

// NewMessage creates a Message. The author must already be verified as
// a member of the room's tenant by the caller.
func NewMessage(tenantID, roomID, authorID shared.ID, body string) (*Message, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if roomID.IsZero() {
		return nil, fmt.Errorf("%w: roomID is required", shared.ErrValidation)
	}
	if authorID.IsZero() {
		return nil, fmt.Errorf("%w: authorID is required", shared.ErrValidation)
	}
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", shared.ErrValidation)
	}
	if len(body) > maxMessageBody {
		return nil, fmt.Errorf("%w: body exceeds %d characters", shared.ErrValidation, maxMessageBody)
	}

	return &Message{
		id:       shared.NewID(),
		tenantID: tenantID,
		roomID:   roomID,
		authorID: authorID,
		body:     body,
		sentAt:   time.Now().UTC(),
	}, nil
}

// ReconstituteMessage recreates a Message from persistence.
func ReconstituteMessage(
	id, tenantID, roomID, authorID shared.ID,
	body string,
	sentAt time.Time,
) *Message {
	return &Message{
		id:       id,
		tenantID: tenantID,
		roomID:   roomID,
		authorID: authorID,
		body:     body,
		sentAt:   sentAt,
	}
}

// ID returns the message ID.
func (m *Message) ID() shared.ID { return m.id }

// TenantID returns the owning tenant's ID.
func (m *Message) TenantID() shared.ID { return m.tenantID }

// RoomID returns the room's ID.
func (m *Message) RoomID() shared.ID { return m.roomID }

// AuthorID returns the author's user ID.
func (m *Message) AuthorID() shared.ID { return m.authorID }

// Body returns the message text.
func (m *Message) Body() string { return m.body }

// SentAt returns the send timestamp.
func (m *Message) SentAt() time.Time { return m.sentAt }
