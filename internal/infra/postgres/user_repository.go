package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/user"
)

// UserRepository implements user.Repository using PostgreSQL.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const selectUser = `
	SELECT id, email, name, avatar_url, system_role, status, password_hash,
	       last_login_at, failed_login_attempts, locked_until, created_at, updated_at
	FROM users`

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, email, name, avatar_url, system_role, status, password_hash,
		                   last_login_at, failed_login_attempts, locked_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		u.ID().String(),
		u.Email(),
		u.Name(),
		nullString(u.AvatarURL()),
		u.SystemRole().String(),
		u.Status().String(),
		u.PasswordHash(),
		nullTime(u.LastLoginAt()),
		u.FailedLoginAttempts(),
		nullTime(u.LockedUntil()),
		u.CreatedAt(),
		u.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id shared.ID) (*user.User, error) {
	query := selectUser + ` WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := selectUser + ` WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

// Update updates an existing user.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET name = $2, avatar_url = $3, system_role = $4, status = $5, password_hash = $6,
		    last_login_at = $7, failed_login_attempts = $8, locked_until = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		u.ID().String(),
		u.Name(),
		nullString(u.AvatarURL()),
		u.SystemRole().String(),
		u.Status().String(),
		u.PasswordHash(),
		nullTime(u.LastLoginAt()),
		u.FailedLoginAttempts(),
		nullTime(u.LockedUntil()),
		u.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// ExistsByEmail checks if a user with the given email exists.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// GetByIDs fetches users in bulk.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []shared.ID) ([]*user.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	query := selectUser + ` WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := r.scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) scanUser(row *sql.Row) (*user.User, error) {
	var (
		rawID, email, name   string
		avatarURL            sql.NullString
		systemRole, status   string
		passwordHash         string
		lastLoginAt          sql.NullTime
		failedLoginAttempts  int
		lockedUntil          sql.NullTime
		createdAt, updatedAt time.Time
	)

	err := row.Scan(&rawID, &email, &name, &avatarURL, &systemRole, &status, &passwordHash,
		&lastLoginAt, &failedLoginAttempts, &lockedUntil, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return buildUser(rawID, email, name, avatarURL, systemRole, status, passwordHash,
		lastLoginAt, failedLoginAttempts, lockedUntil, createdAt, updatedAt)
}

func (r *UserRepository) scanUserRow(rows *sql.Rows) (*user.User, error) {
	var (
		rawID, email, name   string
		avatarURL            sql.NullString
		systemRole, status   string
		passwordHash         string
		lastLoginAt          sql.NullTime
		failedLoginAttempts  int
		lockedUntil          sql.NullTime
		createdAt, updatedAt time.Time
	)

	if err := rows.Scan(&rawID, &email, &name, &avatarURL, &systemRole, &status, &passwordHash,
		&lastLoginAt, &failedLoginAttempts, &lockedUntil, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return buildUser(rawID, email, name, avatarURL, systemRole, status, passwordHash,
		lastLoginAt, failedLoginAttempts, lockedUntil, createdAt, updatedAt)
}

func buildUser(
	rawID, email, name string,
	avatarURL sql.NullString,
	systemRole, status, passwordHash string,
	lastLoginAt sql.NullTime,
	failedLoginAttempts int,
	lockedUntil sql.NullTime,
	createdAt, updatedAt time.Time,
) (*user.User, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	return user.Reconstitute(
		id,
		email,
		name,
		nullStringValue(avatarURL),
		user.SystemRole(systemRole),
		user.Status(status),
		passwordHash,
		nullTimeValue(lastLoginAt),
		failedLoginAttempts,
		nullTimeValue(lockedUntil),
		createdAt,
		updatedAt,
	), nil
}
