package tenant

import (
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Membership represents a user's membership in a tenant: the (user,
// tenant, role) edge that grants access. At most one membership per user
// carries the default flag; the default tenant is the one a request acts
// in when neither a query nor a path parameter names one.
type Membership struct {
	id        shared.ID
	userID    shared.ID
	tenantID  shared.ID
	role      Role
	isDefault bool
	invitedBy *shared.ID // nil for the founding owner
	joinedAt  time.Time
}

// NewMembership creates a new Membership.
func NewMembership(userID, tenantID shared.ID, role Role, invitedBy *shared.ID) (*Membership, error) {
	if userID.IsZero() {
		return nil, fmt.Errorf("%w: userID is required", shared.ErrValidation)
	}
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role", shared.ErrValidation)
	}

	return &Membership{
		id:        shared.NewID(),
		userID:    userID,
		tenantID:  tenantID,
		role:      role,
		invitedBy: invitedBy,
		joinedAt:  time.Now().UTC(),
	}, nil
}

// NewOwnerMembership creates the founding membership for a tenant. It is
// marked default so the creator's next requests resolve to the new tenant.
func NewOwnerMembership(userID, tenantID shared.ID) (*Membership, error) {
	m, err := NewMembership(userID, tenantID, RoleOwner, nil)
	if err != nil {
		return nil, err
	}
	m.isDefault = true
	return m, nil
}

// ReconstituteMembership recreates a Membership from persistence.
func ReconstituteMembership(
	id shared.ID,
	userID shared.ID,
	tenantID shared.ID,
	role Role,
	isDefault bool,
	invitedBy *shared.ID,
	joinedAt time.Time,
) *Membership {
	return &Membership{
		id:        id,
		userID:    userID,
		tenantID:  tenantID,
		role:      role,
		isDefault: isDefault,
		invitedBy: invitedBy,
		joinedAt:  joinedAt,
	}
}

// ID returns the membership ID.
func (m *Membership) ID() shared.ID { return m.id }

// UserID returns the user ID.
func (m *Membership) UserID() shared.ID { return m.userID }

// TenantID returns the tenant ID.
func (m *Membership) TenantID() shared.ID { return m.tenantID }

// Role returns the member's role.
func (m *Membership) Role() Role { return m.role }

// IsDefault reports whether this is the user's default tenant.
func (m *Membership) IsDefault() bool { return m.isDefault }

// InvitedBy returns the user ID who invited this member.
func (m *Membership) InvitedBy() *shared.ID { return m.invitedBy }

// JoinedAt returns when the member joined.
func (m *Membership) JoinedAt() time.Time { return m.joinedAt }

// IsOwner checks if this membership has the owner role.
func (m *Membership) IsOwner() bool { return m.role == RoleOwner }

// IsAdmin checks if this membership has the admin role.
func (m *Membership) IsAdmin() bool { return m.role == RoleAdmin }

// UpdateRole updates the member's role.
func (m *Membership) UpdateRole(role Role) error {
	if !role.IsValid() {
		return fmt.Errorf("%w: invalid role", shared.ErrValidation)
	}
	m.role = role
	return nil
}

// MarkDefault flags this membership as the user's default tenant.
// Persistence must clear the previous default in the same transaction.
func (m *Membership) MarkDefault() {
	m.isDefault = true
}

// ClearDefault removes the default flag.
func (m *Membership) ClearDefault() {
	m.isDefault = false
}
