package chat

import (
	"context"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Repository defines persistence for chat rooms and messages.
type Repository interface {
	CreateRoom(ctx context.Context, r *Room) error
	GetRoomByID(ctx context.Context, tenantID, id shared.ID) (*Room, error)
	GetGeneralRoom(ctx context.Context, tenantID shared.ID) (*Room, error)
	ListRooms(ctx context.Context, tenantID shared.ID) ([]*Room, error)
	DeleteRoom(ctx context.Context, tenantID, id shared.ID) error

	CreateMessage(ctx context.Context, m *Message) error
	// ListMessages returns messages for a room, newest first, created
	// strictly before the given cursor (zero time = from the latest).
	ListMessages(ctx context.Context, tenantID, roomID shared.ID, before time.Time, limit int) ([]*Message, error)
	// DeleteMessagesBefore prunes room history older than the cutoff.
	// Used to enforce plan history retention.
	DeleteMessagesBefore(ctx context.Context, tenantID shared.ID, cutoff time.Time) (int64, error)
}
