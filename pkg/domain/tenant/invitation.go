package tenant

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// DefaultInvitationExpiry is the default expiry duration for invitations.
const DefaultInvitationExpiry = 7 * 24 * time.Hour

// Invitation represents an invitation to join a tenant.
type Invitation struct {
	id         shared.ID
	tenantID   shared.ID
	email      string
	role       Role
	token      string
	invitedBy  shared.ID
	expiresAt  time.Time
	acceptedAt *time.Time
	createdAt  time.Time
}

// NewInvitation creates a new Invitation.
func NewInvitation(tenantID shared.ID, email string, role Role, invitedBy shared.ID) (*Invitation, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", shared.ErrValidation)
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role", shared.ErrValidation)
	}
	if role == RoleOwner {
		return nil, fmt.Errorf("%w: cannot invite as owner", shared.ErrValidation)
	}
	if invitedBy.IsZero() {
		return nil, fmt.Errorf("%w: invitedBy is required", shared.ErrValidation)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now().UTC()
	return &Invitation{
		id:        shared.NewID(),
		tenantID:  tenantID,
		email:     strings.ToLower(email),
		role:      role,
		token:     token,
		invitedBy: invitedBy,
		expiresAt: now.Add(DefaultInvitationExpiry),
		createdAt: now,
	}, nil
}

// ReconstituteInvitation recreates an Invitation from persistence.
func ReconstituteInvitation(
	id shared.ID,
	tenantID shared.ID,
	email string,
	role Role,
	token string,
	invitedBy shared.ID,
	expiresAt time.Time,
	acceptedAt *time.Time,
	createdAt time.Time,
) *Invitation {
	return &Invitation{
		id:         id,
		tenantID:   tenantID,
		email:      email,
		role:       role,
		token:      token,
		invitedBy:  invitedBy,
		expiresAt:  expiresAt,
		acceptedAt: acceptedAt,
		createdAt:  createdAt,
	}
}

// ID returns the invitation ID.
func (i *Invitation) ID() shared.ID { return i.id }

// TenantID returns the tenant ID.
func (i *Invitation) TenantID() shared.ID { return i.tenantID }

// Email returns the invitee email.
func (i *Invitation) Email() string { return i.email }

// Role returns the role to grant on acceptance.
func (i *Invitation) Role() Role { return i.role }

// Token returns the one-time acceptance token.
func (i *Invitation) Token() string { return i.token }

// InvitedBy returns the inviting user's ID.
func (i *Invitation) InvitedBy() shared.ID { return i.invitedBy }

// ExpiresAt returns the invitation expiry time.
func (i *Invitation) ExpiresAt() time.Time { return i.expiresAt }

// AcceptedAt returns when the invitation was accepted, or nil.
func (i *Invitation) AcceptedAt() *time.Time { return i.acceptedAt }

// CreatedAt returns the creation timestamp.
func (i *Invitation) CreatedAt() time.Time { return i.createdAt }

// IsExpired checks if the invitation has expired.
func (i *Invitation) IsExpired() bool {
	return time.Now().UTC().After(i.expiresAt)
}

// IsAccepted checks if the invitation was already accepted.
func (i *Invitation) IsAccepted() bool {
	return i.acceptedAt != nil
}

// Accept marks the invitation as accepted.
func (i *Invitation) Accept() error {
	if i.IsAccepted() {
		return fmt.Errorf("%w: invitation already accepted", shared.ErrConflict)
	}
	if i.IsExpired() {
		return fmt.Errorf("%w: invitation has expired", shared.ErrConflict)
	}
	now := time.Now().UTC()
	i.acceptedAt = &now
	return nil
}

// generateToken generates a URL-safe random token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
