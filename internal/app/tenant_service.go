package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/northstarhq/api/internal/metrics"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/domain/user"
	"github.com/northstarhq/api/pkg/logger"
)

// TenantService errors.
var (
	ErrInvitationExpired       = fmt.Errorf("%w: invitation has expired", shared.ErrConflict)
	ErrInvitationAccepted      = fmt.Errorf("%w: invitation was already accepted", shared.ErrConflict)
	ErrInvitationEmailMismatch = errors.New("invitation was issued for a different email address")
	ErrInvitationPending       = fmt.Errorf("%w: a pending invitation already exists for this email", shared.ErrConflict)
)

// TenantService handles workspace lifecycle, membership and invitations.
type TenantService struct {
	repo          tenant.Repository
	userRepo      user.Repository
	emailEnqueuer EmailJobEnqueuer
	store         ObjectStore
	logger        *logger.Logger
}

// TenantServiceOption configures optional TenantService collaborators.
type TenantServiceOption func(*TenantService)

// WithEmailEnqueuer enables invitation emails via the job queue.
func WithEmailEnqueuer(enqueuer EmailJobEnqueuer) TenantServiceOption {
	return func(s *TenantService) { s.emailEnqueuer = enqueuer }
}

// WithLogoStore enables workspace logo uploads via the object store.
func WithLogoStore(store ObjectStore) TenantServiceOption {
	return func(s *TenantService) { s.store = store }
}

// NewTenantService creates a new TenantService.
func NewTenantService(repo tenant.Repository, userRepo user.Repository, log *logger.Logger, opts ...TenantServiceOption) *TenantService {
	s := &TenantService{
		repo:     repo,
		userRepo: userRepo,
		logger:   log.With("service", "tenant"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTenantInput represents the input for creating a tenant.
type CreateTenantInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

// CreateTenant creates a workspace with the creator as its founding
// owner. The new membership becomes the creator's default tenant.
func (s *TenantService) CreateTenant(ctx context.Context, input CreateTenantInput, creatorID shared.ID) (*tenant.Tenant, error) {
	t, err := tenant.New(input.Name, creatorID)
	if err != nil {
		return nil, err
	}
	if input.Description != "" {
		t.UpdateDescription(input.Description)
	}

	exists, err := s.repo.ExistsBySlug(ctx, t.Slug())
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if exists {
		return nil, tenant.ErrSlugTaken
	}

	if err := s.repo.Create(ctx, t); err != nil {
		if shared.IsAlreadyExists(err) {
			return nil, tenant.ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	membership, err := tenant.NewOwnerMembership(creatorID, t.ID())
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateMembership(ctx, membership); err != nil {
		s.logger.Error("failed to create founding membership, tenant is orphaned",
			"tenant_id", t.ID().String(),
			"user_id", creatorID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err := s.repo.SetDefaultMembershipTx(ctx, creatorID, t.ID()); err != nil {
		s.logger.Error("failed to set default membership", "error", err)
	}

	s.logger.Info("tenant created",
		"tenant_id", t.ID().String(),
		"slug", t.Slug(),
		"created_by", creatorID.String(),
	)
	return t, nil
}

// GetTenant retrieves a tenant by ID.
func (s *TenantService) GetTenant(ctx context.Context, tenantID shared.ID) (*tenant.Tenant, error) {
	return s.repo.GetByID(ctx, tenantID)
}

// GetTenantBySlug retrieves a tenant by slug.
func (s *TenantService) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return s.repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

// UpdateTenantInput represents the input for updating tenant settings.
type UpdateTenantInput struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	LogoURL     *string `json:"logo_url" validate:"omitempty,url,max=500"`
}

// UpdateTenant updates workspace settings. The slug never changes after
// creation, even when the name does.
func (s *TenantService) UpdateTenant(ctx context.Context, tenantID shared.ID, input UpdateTenantInput) (*tenant.Tenant, error) {
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := t.UpdateName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		t.UpdateDescription(*input.Description)
	}
	if input.LogoURL != nil {
		t.UpdateLogoURL(*input.LogoURL)
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	s.logger.Info("tenant updated", "tenant_id", tenantID.String())
	return t, nil
}

// UploadLogo stores a workspace logo image and points the workspace at
// it. The object key is derived from the tenant ID, so re-uploading
// replaces the previous logo in place.
func (s *TenantService) UploadLogo(ctx context.Context, tenantID shared.ID, contentType string, data []byte) (*tenant.Tenant, error) {
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}
	ext, ok := imageExtension(contentType)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image type %q", shared.ErrValidation, contentType)
	}

	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("logos/%s.%s", tenantID.String(), ext)
	url, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store logo: %w", err)
	}

	t.UpdateLogoURL(url)
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	s.logger.Info("workspace logo uploaded", "tenant_id", tenantID.String(), "key", key)
	return t, nil
}

// ListUserTenants lists all tenants the user belongs to.
func (s *TenantService) ListUserTenants(ctx context.Context, userID shared.ID) ([]*tenant.TenantWithRole, error) {
	return s.repo.ListTenantsByUser(ctx, userID)
}

// GetDefaultTenant returns the user's default tenant and role, or
// shared.ErrNotFound when the user has no memberships.
func (s *TenantService) GetDefaultTenant(ctx context.Context, userID shared.ID) (*tenant.TenantWithRole, error) {
	membership, err := s.repo.GetDefaultMembership(ctx, userID)
	if err != nil {
		return nil, err
	}

	t, err := s.repo.GetByID(ctx, membership.TenantID())
	if err != nil {
		return nil, err
	}

	return &tenant.TenantWithRole{
		Tenant:    t,
		Role:      membership.Role(),
		IsDefault: true,
		JoinedAt:  membership.JoinedAt(),
	}, nil
}

// SetDefaultTenant marks the given tenant as the user's default. The
// user must be a member.
func (s *TenantService) SetDefaultTenant(ctx context.Context, userID, tenantID shared.ID) error {
	if _, err := s.repo.GetMembership(ctx, userID, tenantID); err != nil {
		if shared.IsNotFound(err) {
			return tenant.ErrNotMember
		}
		return fmt.Errorf("failed to get membership: %w", err)
	}

	if err := s.repo.SetDefaultMembershipTx(ctx, userID, tenantID); err != nil {
		return fmt.Errorf("failed to set default tenant: %w", err)
	}

	s.logger.Info("default tenant changed",
		"user_id", userID.String(),
		"tenant_id", tenantID.String(),
	)
	return nil
}

// GetMembership returns the user's membership in a tenant.
func (s *TenantService) GetMembership(ctx context.Context, userID, tenantID shared.ID) (*tenant.Membership, error) {
	return s.repo.GetMembership(ctx, userID, tenantID)
}

// ListMembers lists tenant members joined with user details.
func (s *TenantService) ListMembers(ctx context.Context, tenantID shared.ID) ([]*tenant.MemberWithUser, error) {
	members, err := s.repo.ListMembersWithUserInfo(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// AddMemberInput represents the input for directly adding a member.
type AddMemberInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=owner admin member"`
}

// AddMember adds an existing user to the tenant without the invitation
// flow. Fails when the user is already a member or the plan's member
// quota is reached.
func (s *TenantService) AddMember(ctx context.Context, tenantID shared.ID, input AddMemberInput, addedBy shared.ID) (*tenant.Membership, error) {
	role := tenant.Role(input.Role)
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role", shared.ErrValidation)
	}

	u, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetMembership(ctx, u.ID(), tenantID); err == nil {
		return nil, tenant.ErrAlreadyMember
	} else if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	if err := s.checkMemberQuota(ctx, tenantID); err != nil {
		return nil, err
	}

	membership, err := tenant.NewMembership(u.ID(), tenantID, role, &addedBy)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateMembership(ctx, membership); err != nil {
		if shared.IsAlreadyExists(err) {
			return nil, tenant.ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	s.logger.Info("member added",
		"tenant_id", tenantID.String(),
		"user_id", u.ID().String(),
		"role", role.String(),
	)
	return membership, nil
}

// UpdateMemberRoleInput represents the input for a role change.
type UpdateMemberRoleInput struct {
	Role string `json:"role" validate:"required,oneof=owner admin member"`
}

// UpdateMemberRole changes a member's role. Demoting the only owner is
// rejected so every tenant keeps at least one owner.
func (s *TenantService) UpdateMemberRole(ctx context.Context, tenantID, userID shared.ID, input UpdateMemberRoleInput) (*tenant.Membership, error) {
	role := tenant.Role(input.Role)
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role", shared.ErrValidation)
	}

	membership, err := s.repo.GetMembership(ctx, userID, tenantID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, tenant.ErrNotMember
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	if membership.IsOwner() && role != tenant.RoleOwner {
		owners, err := s.repo.CountOwnersByTenant(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to count owners: %w", err)
		}
		if owners <= 1 {
			return nil, tenant.ErrLastOwner
		}
	}

	if err := membership.UpdateRole(role); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateMembershipRole(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}

	s.logger.Info("member role updated",
		"tenant_id", tenantID.String(),
		"user_id", userID.String(),
		"role", role.String(),
	)
	return membership, nil
}

// RemoveMember removes a member from the tenant. Members may remove
// themselves regardless of role; removal of the last owner is rejected.
func (s *TenantService) RemoveMember(ctx context.Context, tenantID, userID shared.ID) error {
	if err := s.repo.RemoveMembershipTx(ctx, userID, tenantID); err != nil {
		if shared.IsNotFound(err) {
			return tenant.ErrNotMember
		}
		return err
	}

	s.logger.Info("member removed",
		"tenant_id", tenantID.String(),
		"user_id", userID.String(),
	)
	return nil
}

// CreateInvitationInput represents the input for creating an invitation.
type CreateInvitationInput struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Role  string `json:"role" validate:"required,oneof=owner admin member"`
}

// CreateInvitation invites an email address to join the tenant. The
// invitation email goes out through the job queue.
func (s *TenantService) CreateInvitation(ctx context.Context, tenantID shared.ID, input CreateInvitationInput, inviterID shared.ID) (*tenant.Invitation, error) {
	role := tenant.Role(input.Role)
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role", shared.ErrValidation)
	}
	email := normalizeEmail(input.Email)

	// Reject when the address already belongs to a member.
	if u, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		if _, err := s.repo.GetMembership(ctx, u.ID(), tenantID); err == nil {
			return nil, tenant.ErrAlreadyMember
		} else if !shared.IsNotFound(err) {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
	} else if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}

	if existing, err := s.repo.GetPendingInvitationByEmail(ctx, tenantID, email); err == nil && existing != nil {
		return nil, ErrInvitationPending
	} else if err != nil && !shared.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check pending invitations: %w", err)
	}

	if err := s.checkMemberQuota(ctx, tenantID); err != nil {
		return nil, err
	}

	invitation, err := tenant.NewInvitation(tenantID, email, role, inviterID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateInvitation(ctx, invitation); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	s.logger.Info("invitation created",
		"tenant_id", tenantID.String(),
		"email", email,
		"role", role.String(),
	)

	s.sendInvitationEmail(ctx, invitation, inviterID)
	return invitation, nil
}

// GetInvitationByToken fetches an invitation by its opaque token. Used
// by the public invitation landing page.
func (s *TenantService) GetInvitationByToken(ctx context.Context, token string) (*tenant.Invitation, error) {
	return s.repo.GetInvitationByToken(ctx, token)
}

// AcceptInvitation redeems an invitation token for the authenticated
// user. The user's email must match the invited address.
func (s *TenantService) AcceptInvitation(ctx context.Context, token string, userID shared.ID, userEmail string) (*tenant.Membership, error) {
	invitation, err := s.repo.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if invitation.IsAccepted() {
		return nil, ErrInvitationAccepted
	}
	if invitation.IsExpired() {
		return nil, ErrInvitationExpired
	}
	if !strings.EqualFold(invitation.Email(), userEmail) {
		return nil, ErrInvitationEmailMismatch
	}

	if _, err := s.repo.GetMembership(ctx, userID, invitation.TenantID()); err == nil {
		return nil, tenant.ErrAlreadyMember
	} else if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	if err := s.checkMemberQuota(ctx, invitation.TenantID()); err != nil {
		return nil, err
	}

	invitedBy := invitation.InvitedBy()
	membership, err := tenant.NewMembership(userID, invitation.TenantID(), invitation.Role(), &invitedBy)
	if err != nil {
		return nil, err
	}
	if err := invitation.Accept(); err != nil {
		return nil, err
	}
	if err := s.repo.AcceptInvitationTx(ctx, invitation, membership); err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	s.logger.Info("invitation accepted",
		"tenant_id", invitation.TenantID().String(),
		"user_id", userID.String(),
	)
	return membership, nil
}

// DeclineInvitation deletes a pending invitation addressed to the
// authenticated user's email.
func (s *TenantService) DeclineInvitation(ctx context.Context, token, userEmail string) error {
	invitation, err := s.repo.GetInvitationByToken(ctx, token)
	if err != nil {
		return err
	}
	if !strings.EqualFold(invitation.Email(), userEmail) {
		return ErrInvitationEmailMismatch
	}

	if err := s.repo.DeleteInvitation(ctx, invitation.ID()); err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}

	s.logger.Info("invitation declined",
		"tenant_id", invitation.TenantID().String(),
		"email", invitation.Email(),
	)
	return nil
}

// ListPendingInvitations lists the tenant's outstanding invitations.
func (s *TenantService) ListPendingInvitations(ctx context.Context, tenantID shared.ID) ([]*tenant.Invitation, error) {
	return s.repo.ListPendingInvitationsByTenant(ctx, tenantID)
}

// DeleteInvitation revokes a pending invitation. The invitation must
// belong to the tenant in context; anything else reads as not found.
func (s *TenantService) DeleteInvitation(ctx context.Context, tenantID, invitationID shared.ID) error {
	invitation, err := s.repo.GetInvitationByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if invitation.TenantID() != tenantID {
		return shared.ErrNotFound
	}

	if err := s.repo.DeleteInvitation(ctx, invitationID); err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}

	s.logger.Info("invitation revoked",
		"tenant_id", tenantID.String(),
		"invitation_id", invitationID.String(),
	)
	return nil
}

// CleanupExpiredInvitations deletes expired invitations. Called by the
// background controller.
func (s *TenantService) CleanupExpiredInvitations(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpiredInvitations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invitations: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("expired invitations cleaned up", "count", deleted)
	}
	return deleted, nil
}

// checkMemberQuota enforces the plan's member limit, counting pending
// invitations as reserved seats.
func (s *TenantService) checkMemberQuota(ctx context.Context, tenantID shared.ID) error {
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}

	limit := t.MaxUsers()
	if limit < 0 {
		return nil
	}

	members, err := s.repo.CountMembersByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to count members: %w", err)
	}
	pending, err := s.repo.ListPendingInvitationsByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list pending invitations: %w", err)
	}

	if members+int64(len(pending)) >= int64(limit) {
		metrics.QuotaRejectionsTotal.WithLabelValues(tenantID.String(), "members").Inc()
		return tenant.ErrMemberQuotaExceeded
	}
	return nil
}

func (s *TenantService) sendInvitationEmail(ctx context.Context, invitation *tenant.Invitation, inviterID shared.ID) {
	if s.emailEnqueuer == nil {
		return
	}

	t, err := s.repo.GetByID(ctx, invitation.TenantID())
	if err != nil {
		s.logger.Error("failed to load tenant for invitation email", "error", err)
		return
	}

	inviterName := "A teammate"
	if inviter, err := s.userRepo.GetByID(ctx, inviterID); err == nil {
		inviterName = inviter.Name()
	}

	payload := InvitationEmailJobPayload{
		Email:         invitation.Email(),
		InviterName:   inviterName,
		WorkspaceName: t.Name(),
		Role:          invitation.Role().String(),
		Token:         invitation.Token(),
		ExpiresInSecs: int64(time.Until(invitation.ExpiresAt()).Seconds()),
	}
	if err := s.emailEnqueuer.EnqueueInvitationEmail(ctx, payload); err != nil {
		s.logger.Error("failed to enqueue invitation email",
			"email", invitation.Email(),
			"error", err,
		)
	}
}
