package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/session"
	"github.com/northstarhq/api/pkg/domain/shared"
)

// SessionRepository implements session.Repository using PostgreSQL.
// Only hashed refresh tokens are stored.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create persists a new refresh token.
func (r *SessionRepository) Create(ctx context.Context, t *session.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, user_agent, ip_address, expires_at, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID().String(),
		t.UserID().String(),
		t.TokenHash(),
		nullString(t.UserAgent()),
		nullString(t.IPAddress()),
		t.ExpiresAt(),
		nullTime(t.RevokedAt()),
		t.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh token by its SHA-256 hash.
func (r *SessionRepository) GetByHash(ctx context.Context, tokenHash string) (*session.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, user_agent, ip_address, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	var (
		rawID, rawUserID, hash string
		userAgent, ipAddress   sql.NullString
		expiresAt              time.Time
		revokedAt              sql.NullTime
		createdAt              time.Time
	)

	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&rawID, &rawUserID, &hash, &userAgent, &ipAddress, &expiresAt, &revokedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan refresh token: %w", err)
	}

	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token ID: %w", err)
	}
	userID, err := shared.IDFromString(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	return session.Reconstitute(
		id,
		userID,
		hash,
		nullStringValue(userAgent),
		nullStringValue(ipAddress),
		expiresAt,
		nullTimeValue(revokedAt),
		createdAt,
	), nil
}

// Update persists revocation state.
func (r *SessionRepository) Update(ctx context.Context, t *session.RefreshToken) error {
	query := `UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, t.ID().String(), nullTime(t.RevokedAt()))
	if err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// RevokeAllForUser revokes every live refresh token of a user. Used on
// password change and explicit logout-everywhere.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID shared.ID) (int64, error) {
	query := `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, userID.String())
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// DeleteExpired removes tokens past their expiry. Revoked tokens are kept
// until they expire so replay attempts stay observable.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at <= NOW()`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
