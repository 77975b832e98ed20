// Package user provides the user domain model.
package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Status represents the user account status.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// SystemRole is the platform-wide role carried on the auth token.
// SystemRoleAdmin bypasses per-tenant membership checks; it is checked
// in exactly one policy function, never inline in handlers.
type SystemRole string

const (
	SystemRoleUser  SystemRole = "user"
	SystemRoleAdmin SystemRole = "admin"
)

// IsValid checks if the system role is valid.
func (r SystemRole) IsValid() bool {
	return r == SystemRoleUser || r == SystemRoleAdmin
}

// String returns the string representation of the system role.
func (r SystemRole) String() string {
	return string(r)
}

// User represents a user entity in the domain.
type User struct {
	id           shared.ID
	email        string
	name         string
	avatarURL    string
	systemRole   SystemRole
	status       Status
	passwordHash string
	lastLoginAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time

	failedLoginAttempts int
	lockedUntil         *time.Time
}

// New creates a new local user with a pre-hashed password.
func New(email, name, passwordHash string) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", shared.ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if passwordHash == "" {
		return nil, fmt.Errorf("%w: passwordHash is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &User{
		id:           shared.NewID(),
		email:        strings.ToLower(email),
		name:         name,
		systemRole:   SystemRoleUser,
		status:       StatusActive,
		passwordHash: passwordHash,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstitute recreates a User from persistence.
func Reconstitute(
	id shared.ID,
	email, name, avatarURL string,
	systemRole SystemRole,
	status Status,
	passwordHash string,
	lastLoginAt *time.Time,
	failedLoginAttempts int,
	lockedUntil *time.Time,
	createdAt, updatedAt time.Time,
) *User {
	return &User{
		id:                  id,
		email:               email,
		name:                name,
		avatarURL:           avatarURL,
		systemRole:          systemRole,
		status:              status,
		passwordHash:        passwordHash,
		lastLoginAt:         lastLoginAt,
		failedLoginAttempts: failedLoginAttempts,
		lockedUntil:         lockedUntil,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}
}

// ID returns the user ID.
func (u *User) ID() shared.ID { return u.id }

// Email returns the user email.
func (u *User) Email() string { return u.email }

// Name returns the user display name.
func (u *User) Name() string { return u.name }

// AvatarURL returns the avatar URL.
func (u *User) AvatarURL() string { return u.avatarURL }

// SystemRole returns the platform-wide role.
func (u *User) SystemRole() SystemRole { return u.systemRole }

// Status returns the account status.
func (u *User) Status() Status { return u.status }

// PasswordHash returns the bcrypt password hash.
func (u *User) PasswordHash() string { return u.passwordHash }

// LastLoginAt returns the last login timestamp.
func (u *User) LastLoginAt() *time.Time { return u.lastLoginAt }

// FailedLoginAttempts returns the consecutive failed login count.
func (u *User) FailedLoginAttempts() int { return u.failedLoginAttempts }

// LockedUntil returns the lockout deadline, or nil.
func (u *User) LockedUntil() *time.Time { return u.lockedUntil }

// CreatedAt returns the creation timestamp.
func (u *User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns the last update timestamp.
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// IsActive checks if the account can authenticate.
func (u *User) IsActive() bool {
	return u.status == StatusActive
}

// IsSystemAdmin checks if the user holds the platform admin role.
func (u *User) IsSystemAdmin() bool {
	return u.systemRole == SystemRoleAdmin
}

// IsLocked checks if the account is currently locked out.
func (u *User) IsLocked() bool {
	return u.lockedUntil != nil && u.lockedUntil.After(time.Now().UTC())
}

// UpdateName updates the display name.
func (u *User) UpdateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	u.name = name
	u.updatedAt = time.Now().UTC()
	return nil
}

// UpdateAvatarURL updates the avatar URL.
func (u *User) UpdateAvatarURL(avatarURL string) {
	u.avatarURL = avatarURL
	u.updatedAt = time.Now().UTC()
}

// SetPasswordHash replaces the password hash.
func (u *User) SetPasswordHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("%w: passwordHash is required", shared.ErrValidation)
	}
	u.passwordHash = hash
	u.updatedAt = time.Now().UTC()
	return nil
}

// GrantSystemAdmin promotes the user to platform admin.
func (u *User) GrantSystemAdmin() {
	u.systemRole = SystemRoleAdmin
	u.updatedAt = time.Now().UTC()
}

// RevokeSystemAdmin demotes the user to a regular account.
func (u *User) RevokeSystemAdmin() {
	u.systemRole = SystemRoleUser
	u.updatedAt = time.Now().UTC()
}

// RecordLogin resets lockout state and stamps the login time.
func (u *User) RecordLogin() {
	now := time.Now().UTC()
	u.lastLoginAt = &now
	u.failedLoginAttempts = 0
	u.lockedUntil = nil
	u.updatedAt = now
}

// RecordFailedLogin increments the failure counter and locks the account
// once maxAttempts is reached.
func (u *User) RecordFailedLogin(maxAttempts int, lockout time.Duration) {
	u.failedLoginAttempts++
	if maxAttempts > 0 && u.failedLoginAttempts >= maxAttempts {
		until := time.Now().UTC().Add(lockout)
		u.lockedUntil = &until
	}
	u.updatedAt = time.Now().UTC()
}

// Suspend suspends the account.
func (u *User) Suspend() {
	u.status = StatusSuspended
	u.updatedAt = time.Now().UTC()
}

// Activate reactivates the account.
func (u *User) Activate() {
	u.status = StatusActive
	u.updatedAt = time.Now().UTC()
}
