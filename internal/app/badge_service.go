package app

import (
	"context"
	"fmt"

	"github.com/northstarhq/api/internal/metrics"
	"github.com/northstarhq/api/pkg/domain/badge"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
)

// ErrBadgesNotInPlan is returned when the tenant's plan does not
// include the badges feature.
var ErrBadgesNotInPlan = fmt.Errorf("%w: badges are not available on the current plan", shared.ErrConflict)

// BadgeService handles recognition badges and awards.
type BadgeService struct {
	repo       badge.Repository
	tenantRepo tenant.Repository
	logger     *logger.Logger
}

// NewBadgeService creates a new BadgeService.
func NewBadgeService(repo badge.Repository, tenantRepo tenant.Repository, log *logger.Logger) *BadgeService {
	return &BadgeService{
		repo:       repo,
		tenantRepo: tenantRepo,
		logger:     log.With("service", "badge"),
	}
}

// CreateBadgeInput represents the input for creating a badge.
type CreateBadgeInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	Icon        string `json:"icon" validate:"omitempty,max=100"`
}

// CreateBadge creates a badge definition. Requires a plan that includes
// the badges feature.
func (s *BadgeService) CreateBadge(ctx context.Context, tenantID shared.ID, input CreateBadgeInput, createdBy shared.ID) (*badge.Badge, error) {
	if err := s.checkPlan(ctx, tenantID); err != nil {
		return nil, err
	}

	b, err := badge.New(tenantID, input.Name, input.Description, input.Icon, createdBy)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create badge: %w", err)
	}

	s.logger.Info("badge created",
		"tenant_id", tenantID.String(),
		"badge_id", b.ID().String(),
		"name", b.Name(),
	)
	return b, nil
}

// GetBadge retrieves a badge within the tenant.
func (s *BadgeService) GetBadge(ctx context.Context, tenantID, id shared.ID) (*badge.Badge, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// ListBadges lists the tenant's badge definitions.
func (s *BadgeService) ListBadges(ctx context.Context, tenantID shared.ID) ([]*badge.Badge, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

// UpdateBadgeInput represents the input for updating a badge.
type UpdateBadgeInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	Icon        string `json:"icon" validate:"omitempty,max=100"`
}

// UpdateBadge updates a badge definition.
func (s *BadgeService) UpdateBadge(ctx context.Context, tenantID, id shared.ID, input UpdateBadgeInput) (*badge.Badge, error) {
	b, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := b.Update(input.Name, input.Description, input.Icon); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to update badge: %w", err)
	}

	s.logger.Info("badge updated", "tenant_id", tenantID.String(), "badge_id", id.String())
	return b, nil
}

// DeleteBadge deletes a badge and its awards.
func (s *BadgeService) DeleteBadge(ctx context.Context, tenantID, id shared.ID) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	s.logger.Info("badge deleted", "tenant_id", tenantID.String(), "badge_id", id.String())
	return nil
}

// AwardBadgeInput represents the input for awarding a badge.
type AwardBadgeInput struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid"`
	Note        string `json:"note" validate:"omitempty,max=500"`
}

// AwardBadge awards a badge to a tenant member. Awarding to a user who
// is not a member of the tenant is refused outright, never silently
// redirected.
func (s *BadgeService) AwardBadge(ctx context.Context, tenantID, badgeID shared.ID, input AwardBadgeInput, awardedBy shared.ID) (*badge.Award, error) {
	b, err := s.repo.GetByID(ctx, tenantID, badgeID)
	if err != nil {
		return nil, err
	}

	recipientID, err := shared.IDFromString(input.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid recipient id", shared.ErrValidation)
	}
	if _, err := s.tenantRepo.GetMembership(ctx, recipientID, tenantID); err != nil {
		if shared.IsNotFound(err) {
			return nil, tenant.ErrNotMember
		}
		return nil, fmt.Errorf("failed to check recipient membership: %w", err)
	}

	a, err := badge.NewAward(tenantID, b.ID(), recipientID, awardedBy, input.Note)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateAward(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create award: %w", err)
	}

	metrics.BadgeAwardsTotal.WithLabelValues(tenantID.String()).Inc()
	s.logger.Info("badge awarded",
		"tenant_id", tenantID.String(),
		"badge_id", badgeID.String(),
		"recipient_id", recipientID.String(),
	)
	return a, nil
}

// RevokeAward removes a badge award.
func (s *BadgeService) RevokeAward(ctx context.Context, tenantID, awardID shared.ID) error {
	if err := s.repo.DeleteAward(ctx, tenantID, awardID); err != nil {
		return err
	}

	s.logger.Info("badge award revoked",
		"tenant_id", tenantID.String(),
		"award_id", awardID.String(),
	)
	return nil
}

// ListAwardsByRecipient lists the badges awarded to a member.
func (s *BadgeService) ListAwardsByRecipient(ctx context.Context, tenantID, recipientID shared.ID) ([]*badge.Award, error) {
	return s.repo.ListAwardsByRecipient(ctx, tenantID, recipientID)
}

// ListAwardsByBadge lists who has received a given badge.
func (s *BadgeService) ListAwardsByBadge(ctx context.Context, tenantID, badgeID shared.ID) ([]*badge.Award, error) {
	if _, err := s.repo.GetByID(ctx, tenantID, badgeID); err != nil {
		return nil, err
	}
	return s.repo.ListAwardsByBadge(ctx, tenantID, badgeID)
}

func (s *BadgeService) checkPlan(ctx context.Context, tenantID shared.ID) error {
	t, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if !t.Plan().Limits().Badges {
		metrics.QuotaRejectionsTotal.WithLabelValues(tenantID.String(), "badges").Inc()
		return ErrBadgesNotInPlan
	}
	return nil
}
