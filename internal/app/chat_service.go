package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/api/internal/metrics"
	"github.com/northstarhq/api/pkg/domain/chat"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/team"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
)

// chatRetentionWithoutHistory caps message history for plans without
// the chat-history feature.
const chatRetentionWithoutHistory = 7 * 24 * time.Hour

// historyPageSize is the page length served from the history cache.
// Only requests for the latest page at exactly this size are cached.
const historyPageSize = 50

// MessageBroadcaster fans a stored message out to websocket clients
// subscribed to the room. Implemented by the websocket hub.
type MessageBroadcaster interface {
	BroadcastMessage(ctx context.Context, m *chat.Message) error
}

// ChatHistoryCache caches the latest page of a room's history so the
// common open-a-room read skips Postgres. Reads go through the access
// check before the cache is consulted.
type ChatHistoryCache interface {
	GetPage(ctx context.Context, roomID shared.ID) ([]*chat.Message, error)
	SetPage(ctx context.Context, roomID shared.ID, messages []*chat.Message) error
	InvalidatePage(ctx context.Context, roomID shared.ID) error
}

// ChatService handles chat rooms and message history. Live delivery
// goes through the websocket hub; this service owns persistence and
// room membership rules.
type ChatService struct {
	repo        chat.Repository
	teamRepo    team.Repository
	tenantRepo  tenant.Repository
	broadcaster MessageBroadcaster
	history     ChatHistoryCache
	logger      *logger.Logger
}

// ChatServiceOption configures optional ChatService collaborators.
type ChatServiceOption func(*ChatService)

// WithBroadcaster wires live fan-out of stored messages.
func WithBroadcaster(b MessageBroadcaster) ChatServiceOption {
	return func(s *ChatService) { s.broadcaster = b }
}

// WithHistoryCache wires the latest-page history cache.
func WithHistoryCache(c ChatHistoryCache) ChatServiceOption {
	return func(s *ChatService) { s.history = c }
}

// SetBroadcaster wires live fan-out after construction. The hub needs
// the service for subscribe checks, so one of the two is wired late.
func (s *ChatService) SetBroadcaster(b MessageBroadcaster) {
	s.broadcaster = b
}

// NewChatService creates a new ChatService.
func NewChatService(repo chat.Repository, teamRepo team.Repository, tenantRepo tenant.Repository, log *logger.Logger, opts ...ChatServiceOption) *ChatService {
	s := &ChatService{
		repo:       repo,
		teamRepo:   teamRepo,
		tenantRepo: tenantRepo,
		logger:     log.With("service", "chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetGeneralRoom returns the tenant's general room, creating it on
// first use.
func (s *ChatService) GetGeneralRoom(ctx context.Context, tenantID shared.ID) (*chat.Room, error) {
	room, err := s.repo.GetGeneralRoom(ctx, tenantID)
	if err == nil {
		return room, nil
	}
	if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("failed to get general room: %w", err)
	}

	room, err = chat.NewGeneralRoom(tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		// Lost a race with a concurrent first use; re-read.
		if shared.IsAlreadyExists(err) {
			return s.repo.GetGeneralRoom(ctx, tenantID)
		}
		return nil, fmt.Errorf("failed to create general room: %w", err)
	}

	s.logger.Info("general room created", "tenant_id", tenantID.String())
	return room, nil
}

// CreateTeamRoom creates a chat room bound to a team.
func (s *ChatService) CreateTeamRoom(ctx context.Context, tenantID, teamID shared.ID, name string) (*chat.Room, error) {
	t, err := s.teamRepo.GetByID(ctx, tenantID, teamID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = t.Name()
	}

	room, err := chat.NewTeamRoom(tenantID, teamID, name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create team room: %w", err)
	}

	s.logger.Info("team room created",
		"tenant_id", tenantID.String(),
		"team_id", teamID.String(),
		"room_id", room.ID().String(),
	)
	return room, nil
}

// GetRoom retrieves a room within the tenant.
func (s *ChatService) GetRoom(ctx context.Context, tenantID, id shared.ID) (*chat.Room, error) {
	return s.repo.GetRoomByID(ctx, tenantID, id)
}

// ListRooms lists the tenant's chat rooms.
func (s *ChatService) ListRooms(ctx context.Context, tenantID shared.ID) ([]*chat.Room, error) {
	return s.repo.ListRooms(ctx, tenantID)
}

// DeleteRoom deletes a team room and its messages. The general room
// cannot be deleted.
func (s *ChatService) DeleteRoom(ctx context.Context, tenantID, id shared.ID) error {
	room, err := s.repo.GetRoomByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if room.Kind() == chat.RoomKindGeneral {
		return fmt.Errorf("%w: the general room cannot be deleted", shared.ErrConflict)
	}

	if err := s.repo.DeleteRoom(ctx, tenantID, id); err != nil {
		return err
	}

	s.logger.Info("room deleted", "tenant_id", tenantID.String(), "room_id", id.String())
	return nil
}

// CanAccessRoom reports whether the user may read and post in the room.
// General rooms are open to all tenant members; team rooms require team
// membership.
func (s *ChatService) CanAccessRoom(ctx context.Context, room *chat.Room, userID shared.ID) (bool, error) {
	if room.Kind() == chat.RoomKindGeneral {
		return true, nil
	}
	if room.TeamID() == nil {
		return false, nil
	}
	return s.teamRepo.IsMember(ctx, *room.TeamID(), userID)
}

// CanSubscribe reports whether a user may subscribe to a room's live
// channel. Used by the websocket hub at subscribe time; IDs arrive as
// strings from the wire. Unknown or cross-tenant rooms are denied
// without error.
func (s *ChatService) CanSubscribe(ctx context.Context, tenantID, roomID, userID string) (bool, error) {
	tid, err := shared.IDFromString(tenantID)
	if err != nil {
		return false, nil
	}
	rid, err := shared.IDFromString(roomID)
	if err != nil {
		return false, nil
	}
	uid, err := shared.IDFromString(userID)
	if err != nil {
		return false, nil
	}

	room, err := s.repo.GetRoomByID(ctx, tid, rid)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.CanAccessRoom(ctx, room, uid)
}

// PostMessageInput represents the input for posting a chat message.
type PostMessageInput struct {
	Body string `json:"body" validate:"required,min=1,max=2000"`
}

// PostMessage stores a message and fans it out to connected clients.
func (s *ChatService) PostMessage(ctx context.Context, tenantID, roomID, authorID shared.ID, input PostMessageInput) (*chat.Message, error) {
	room, err := s.repo.GetRoomByID(ctx, tenantID, roomID)
	if err != nil {
		return nil, err
	}

	ok, err := s.CanAccessRoom(ctx, room, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check room access: %w", err)
	}
	if !ok {
		return nil, shared.ErrForbidden
	}

	m, err := chat.NewMessage(tenantID, room.ID(), authorID, input.Body)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	if s.history != nil {
		if err := s.history.InvalidatePage(ctx, room.ID()); err != nil {
			s.logger.Warn("failed to invalidate history cache", "room_id", room.ID().String(), "error", err)
		}
	}

	if s.broadcaster != nil {
		if err := s.broadcaster.BroadcastMessage(ctx, m); err != nil {
			s.logger.Error("failed to broadcast message", "error", err)
		}
	}

	metrics.ChatMessagesTotal.WithLabelValues(tenantID.String()).Inc()
	return m, nil
}

// ListMessages pages a room's history backwards from the cursor.
func (s *ChatService) ListMessages(ctx context.Context, tenantID, roomID, viewerID shared.ID, before time.Time, limit int) ([]*chat.Message, error) {
	room, err := s.repo.GetRoomByID(ctx, tenantID, roomID)
	if err != nil {
		return nil, err
	}

	ok, err := s.CanAccessRoom(ctx, room, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check room access: %w", err)
	}
	if !ok {
		return nil, shared.ErrForbidden
	}

	if limit <= 0 || limit > 100 {
		limit = historyPageSize
	}

	// Only the "latest page at default size" read is cached; cursored
	// pages go straight to the repository.
	cacheable := s.history != nil && before.IsZero() && limit == historyPageSize
	if cacheable {
		if cached, err := s.history.GetPage(ctx, roomID); err == nil {
			return cached, nil
		}
	}

	messages, err := s.repo.ListMessages(ctx, tenantID, roomID, before, limit)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := s.history.SetPage(ctx, roomID, messages); err != nil {
			s.logger.Warn("failed to cache history page", "room_id", roomID.String(), "error", err)
		}
	}
	return messages, nil
}

// PruneHistory deletes messages older than the tenant plan's retention
// window. Called by the retention job; tenants whose plan includes full
// chat history are left alone.
func (s *ChatService) PruneHistory(ctx context.Context, tenantID shared.ID) (int64, error) {
	t, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if t.Plan().Limits().ChatHistory {
		return 0, nil
	}

	cutoff := time.Now().UTC().Add(-chatRetentionWithoutHistory)
	deleted, err := s.repo.DeleteMessagesBefore(ctx, tenantID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune chat history: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("chat history pruned",
			"tenant_id", tenantID.String(),
			"deleted", deleted,
		)
	}
	return deleted, nil
}
