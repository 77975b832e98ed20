package tenant

import (
	"context"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Repository defines the interface for tenant persistence.
type Repository interface {
	// Tenant CRUD
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id shared.ID) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	ExistsBySlug(ctx context.Context, slug string) (bool, error)

	// ListActiveTenantIDs returns IDs of all tenants that may serve
	// requests. Used by background controllers.
	ListActiveTenantIDs(ctx context.Context) ([]shared.ID, error)

	// Membership operations
	CreateMembership(ctx context.Context, membership *Membership) error
	GetMembership(ctx context.Context, userID, tenantID shared.ID) (*Membership, error)
	GetDefaultMembership(ctx context.Context, userID shared.ID) (*Membership, error)
	UpdateMembershipRole(ctx context.Context, membership *Membership) error
	ListMembersByTenant(ctx context.Context, tenantID shared.ID) ([]*Membership, error)
	ListMembersWithUserInfo(ctx context.Context, tenantID shared.ID) ([]*MemberWithUser, error)
	ListTenantsByUser(ctx context.Context, userID shared.ID) ([]*TenantWithRole, error)
	CountMembersByTenant(ctx context.Context, tenantID shared.ID) (int64, error)
	CountOwnersByTenant(ctx context.Context, tenantID shared.ID) (int64, error)

	// SetDefaultMembershipTx atomically clears the user's previous
	// default flag and sets it on the membership for the given tenant,
	// in a single transaction. Idempotent.
	SetDefaultMembershipTx(ctx context.Context, userID, tenantID shared.ID) error

	// RemoveMembershipTx removes a membership inside a transaction that
	// locks the tenant's owner rows: removal of the last owner fails
	// with ErrLastOwner. When the removed membership was the user's
	// default, the flag moves to the user's oldest remaining membership.
	RemoveMembershipTx(ctx context.Context, userID, tenantID shared.ID) error

	// Invitation operations
	CreateInvitation(ctx context.Context, invitation *Invitation) error
	GetInvitationByToken(ctx context.Context, token string) (*Invitation, error)
	GetInvitationByID(ctx context.Context, id shared.ID) (*Invitation, error)
	DeleteInvitation(ctx context.Context, id shared.ID) error
	ListPendingInvitationsByTenant(ctx context.Context, tenantID shared.ID) ([]*Invitation, error)
	GetPendingInvitationByEmail(ctx context.Context, tenantID shared.ID, email string) (*Invitation, error)
	DeleteExpiredInvitations(ctx context.Context) (int64, error)

	// AcceptInvitationTx atomically marks the invitation accepted and
	// creates the membership in a single transaction.
	AcceptInvitationTx(ctx context.Context, invitation *Invitation, membership *Membership) error
}

// TenantWithRole represents a tenant with the user's role in it.
type TenantWithRole struct {
	Tenant    *Tenant
	Role      Role
	IsDefault bool
	JoinedAt  time.Time
}

// MemberWithUser represents a membership joined with user details.
type MemberWithUser struct {
	ID        shared.ID
	UserID    shared.ID
	Role      Role
	IsDefault bool
	InvitedBy *shared.ID
	JoinedAt  time.Time

	Email       string
	Name        string
	AvatarURL   string
	LastLoginAt *time.Time
}
