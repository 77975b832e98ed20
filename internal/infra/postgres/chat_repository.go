package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/chat"
	"github.com/northstarhq/api/pkg/domain/shared"
)

// ChatRepository implements chat.Repository using PostgreSQL.
type ChatRepository struct {
	db *DB
}

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db}
}

const selectRoom = `
	SELECT id, tenant_id, kind, name, team_id, created_at
	FROM chat_rooms`

const selectMessage = `
	SELECT id, tenant_id, room_id, author_id, body, sent_at
	FROM chat_messages`

// CreateRoom persists a new chat room.
func (r *ChatRepository) CreateRoom(ctx context.Context, room *chat.Room) error {
	query := `
		INSERT INTO chat_rooms (id, tenant_id, kind, name, team_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		room.ID().String(),
		room.TenantID().String(),
		string(room.Kind()),
		room.Name(),
		nullID(room.TeamID()),
		room.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create chat room: %w", err)
	}

	return nil
}

// GetRoomByID retrieves a room within a tenant.
func (r *ChatRepository) GetRoomByID(ctx context.Context, tenantID, id shared.ID) (*chat.Room, error) {
	query := selectRoom + ` WHERE tenant_id = $1 AND id = $2`
	return r.scanRoom(r.db.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// GetGeneralRoom retrieves the tenant-wide room.
func (r *ChatRepository) GetGeneralRoom(ctx context.Context, tenantID shared.ID) (*chat.Room, error) {
	query := selectRoom + ` WHERE tenant_id = $1 AND kind = $2`
	return r.scanRoom(r.db.QueryRowContext(ctx, query, tenantID.String(), string(chat.RoomKindGeneral)))
}

// ListRooms lists the rooms of a tenant, general room first.
func (r *ChatRepository) ListRooms(ctx context.Context, tenantID shared.ID) ([]*chat.Room, error) {
	query := selectRoom + ` WHERE tenant_id = $1 ORDER BY kind ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list chat rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*chat.Room
	for rows.Next() {
		room, err := r.scanRoomRow(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat rooms: %w", err)
	}

	return rooms, nil
}

// DeleteRoom removes a room. Its messages cascade at the schema level.
func (r *ChatRepository) DeleteRoom(ctx context.Context, tenantID, id shared.ID) error {
	query := `DELETE FROM chat_rooms WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, tenantID.String(), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete chat room: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// CreateMessage persists a new chat message.
func (r *ChatRepository) CreateMessage(ctx context.Context, m *chat.Message) error {
	query := `
		INSERT INTO chat_messages (id, tenant_id, room_id, author_id, body, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID().String(),
		m.TenantID().String(),
		m.RoomID().String(),
		m.AuthorID().String(),
		m.Body(),
		m.SentAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}

	return nil
}

// ListMessages returns messages for a room, newest first, sent strictly
// before the cursor. A zero cursor reads from the latest message.
func (r *ChatRepository) ListMessages(ctx context.Context, tenantID, roomID shared.ID, before time.Time, limit int) ([]*chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := selectMessage + ` WHERE tenant_id = $1 AND room_id = $2`
	args := []any{tenantID.String(), roomID.String()}

	if !before.IsZero() {
		args = append(args, before)
		query += fmt.Sprintf(" AND sent_at < $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY sent_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*chat.Message
	for rows.Next() {
		m, err := r.scanMessageRow(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}

	return messages, nil
}

// DeleteMessagesBefore prunes a tenant's chat history older than the
// cutoff. Used to enforce plan history retention.
func (r *ChatRepository) DeleteMessagesBefore(ctx context.Context, tenantID shared.ID, cutoff time.Time) (int64, error) {
	query := `DELETE FROM chat_messages WHERE tenant_id = $1 AND sent_at < $2`

	result, err := r.db.ExecContext(ctx, query, tenantID.String(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune chat messages: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

func (r *ChatRepository) scanRoom(row *sql.Row) (*chat.Room, error) {
	var (
		rawID, rawTenantID, kind, name string
		teamID                         sql.NullString
		createdAt                      time.Time
	)

	err := row.Scan(&rawID, &rawTenantID, &kind, &name, &teamID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chat room: %w", err)
	}

	return buildRoom(rawID, rawTenantID, kind, name, teamID, createdAt)
}

func (r *ChatRepository) scanRoomRow(rows *sql.Rows) (*chat.Room, error) {
	var (
		rawID, rawTenantID, kind, name string
		teamID                         sql.NullString
		createdAt                      time.Time
	)

	if err := rows.Scan(&rawID, &rawTenantID, &kind, &name, &teamID, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan chat room: %w", err)
	}

	return buildRoom(rawID, rawTenantID, kind, name, teamID, createdAt)
}

func buildRoom(rawID, rawTenantID, kind, name string, teamID sql.NullString, createdAt time.Time) (*chat.Room, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid room ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}

	return chat.ReconstituteRoom(id, tenantID, chat.RoomKind(kind), name, parseNullID(teamID), createdAt), nil
}

func (r *ChatRepository) scanMessageRow(rows *sql.Rows) (*chat.Message, error) {
	var (
		rawID, rawTenantID, rawRoomID, rawAuthorID string
		body                                       string
		sentAt                                     time.Time
	)

	if err := rows.Scan(&rawID, &rawTenantID, &rawRoomID, &rawAuthorID, &body, &sentAt); err != nil {
		return nil, fmt.Errorf("failed to scan chat message: %w", err)
	}

	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid message ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}
	roomID, err := shared.IDFromString(rawRoomID)
	if err != nil {
		return nil, fmt.Errorf("invalid room ID: %w", err)
	}
	authorID, err := shared.IDFromString(rawAuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID: %w", err)
	}

	return chat.ReconstituteMessage(id, tenantID, roomID, authorID, body, sentAt), nil
}
