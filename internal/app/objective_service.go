package app

import (
	"context"
	"fmt"

	"github.com/northstarhq/api/internal/metrics"
	"github.com/northstarhq/api/pkg/domain/objective"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
)

// ErrObjectiveQuotaExceeded is returned when creating an objective would
// exceed the tenant's plan quota.
var ErrObjectiveQuotaExceeded = fmt.Errorf("%w: objective limit for the current plan reached", shared.ErrConflict)

// ObjectiveService handles objective lifecycle operations.
type ObjectiveService struct {
	repo       objective.Repository
	tenantRepo tenant.Repository
	teamSvc    *TeamService
	cadenceSvc *CadenceService
	logger     *logger.Logger
}

// NewObjectiveService creates a new ObjectiveService. The team and
// cadence services validate cross-aggregate references on attach.
func NewObjectiveService(
	repo objective.Repository,
	tenantRepo tenant.Repository,
	teamSvc *TeamService,
	cadenceSvc *CadenceService,
	log *logger.Logger,
) *ObjectiveService {
	return &ObjectiveService{
		repo:       repo,
		tenantRepo: tenantRepo,
		teamSvc:    teamSvc,
		cadenceSvc: cadenceSvc,
		logger:     log.With("service", "objective"),
	}
}

// CreateObjectiveInput represents the input for creating an objective.
type CreateObjectiveInput struct {
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Description string  `json:"description" validate:"omitempty,max=2000"`
	OwnerID     *string `json:"owner_id" validate:"omitempty,uuid"`
	TeamID      *string `json:"team_id" validate:"omitempty,uuid"`
	TimeframeID *string `json:"timeframe_id" validate:"omitempty,uuid"`
}

// CreateObjective creates an objective. The owner defaults to the
// creator; team and timeframe references must belong to the tenant.
func (s *ObjectiveService) CreateObjective(ctx context.Context, tenantID shared.ID, input CreateObjectiveInput, creatorID shared.ID) (*objective.Objective, error) {
	if err := s.checkObjectiveQuota(ctx, tenantID); err != nil {
		return nil, err
	}

	ownerID := creatorID
	if input.OwnerID != nil {
		id, err := shared.IDFromString(*input.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid owner id", shared.ErrValidation)
		}
		if _, err := s.tenantRepo.GetMembership(ctx, id, tenantID); err != nil {
			if shared.IsNotFound(err) {
				return nil, tenant.ErrNotMember
			}
			return nil, fmt.Errorf("failed to check owner membership: %w", err)
		}
		ownerID = id
	}

	o, err := objective.New(tenantID, input.Title, ownerID)
	if err != nil {
		return nil, err
	}
	if input.Description != "" {
		o.UpdateDescription(input.Description)
	}

	if err := s.attachTeam(ctx, tenantID, o, input.TeamID); err != nil {
		return nil, err
	}
	if err := s.attachTimeframe(ctx, tenantID, o, input.TimeframeID); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to create objective: %w", err)
	}

	s.logger.Info("objective created",
		"tenant_id", tenantID.String(),
		"objective_id", o.ID().String(),
		"owner_id", ownerID.String(),
	)
	return o, nil
}

// GetObjective retrieves an objective within the tenant. IDs from other
// tenants read as not found.
func (s *ObjectiveService) GetObjective(ctx context.Context, tenantID, id shared.ID) (*objective.Objective, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// UpdateObjectiveInput represents the input for updating an objective.
type UpdateObjectiveInput struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	OwnerID     *string `json:"owner_id" validate:"omitempty,uuid"`
	TeamID      *string `json:"team_id" validate:"omitempty,uuid"`
	TimeframeID *string `json:"timeframe_id" validate:"omitempty,uuid"`
	Status      *string `json:"status" validate:"omitempty,oneof=draft active completed archived"`
}

// UpdateObjective updates an objective's fields and status.
func (s *ObjectiveService) UpdateObjective(ctx context.Context, tenantID, id shared.ID, input UpdateObjectiveInput) (*objective.Objective, error) {
	o, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if err := o.UpdateTitle(*input.Title); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		o.UpdateDescription(*input.Description)
	}
	if input.OwnerID != nil {
		ownerID, err := shared.IDFromString(*input.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid owner id", shared.ErrValidation)
		}
		if _, err := s.tenantRepo.GetMembership(ctx, ownerID, tenantID); err != nil {
			if shared.IsNotFound(err) {
				return nil, tenant.ErrNotMember
			}
			return nil, fmt.Errorf("failed to check owner membership: %w", err)
		}
		if err := o.AssignOwner(ownerID); err != nil {
			return nil, err
		}
	}
	if input.TeamID != nil {
		if err := s.attachTeam(ctx, tenantID, o, input.TeamID); err != nil {
			return nil, err
		}
	}
	if input.TimeframeID != nil {
		if err := s.attachTimeframe(ctx, tenantID, o, input.TimeframeID); err != nil {
			return nil, err
		}
	}
	if input.Status != nil {
		if err := o.TransitionStatus(objective.Status(*input.Status)); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to update objective: %w", err)
	}

	s.logger.Info("objective updated",
		"tenant_id", tenantID.String(),
		"objective_id", id.String(),
	)
	return o, nil
}

// DeleteObjective deletes an objective and, through the schema's
// cascade, its key results and check-ins.
func (s *ObjectiveService) DeleteObjective(ctx context.Context, tenantID, id shared.ID) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	s.logger.Info("objective deleted",
		"tenant_id", tenantID.String(),
		"objective_id", id.String(),
	)
	return nil
}

// ListObjectives lists objectives matching the filter.
func (s *ObjectiveService) ListObjectives(ctx context.Context, tenantID shared.ID, filter objective.Filter) ([]*objective.Objective, int64, error) {
	return s.repo.List(ctx, tenantID, filter)
}

func (s *ObjectiveService) attachTeam(ctx context.Context, tenantID shared.ID, o *objective.Objective, teamID *string) error {
	if teamID == nil {
		return nil
	}
	if *teamID == "" {
		o.AttachTeam(nil)
		return nil
	}

	id, err := shared.IDFromString(*teamID)
	if err != nil {
		return fmt.Errorf("%w: invalid team id", shared.ErrValidation)
	}
	if _, err := s.teamSvc.GetTeam(ctx, tenantID, id); err != nil {
		return err
	}
	o.AttachTeam(&id)
	return nil
}

func (s *ObjectiveService) attachTimeframe(ctx context.Context, tenantID shared.ID, o *objective.Objective, timeframeID *string) error {
	if timeframeID == nil {
		return nil
	}
	if *timeframeID == "" {
		o.AttachTimeframe(nil)
		return nil
	}

	id, err := shared.IDFromString(*timeframeID)
	if err != nil {
		return fmt.Errorf("%w: invalid timeframe id", shared.ErrValidation)
	}
	if _, err := s.cadenceSvc.GetTimeframe(ctx, tenantID, id); err != nil {
		return err
	}
	o.AttachTimeframe(&id)
	return nil
}

func (s *ObjectiveService) checkObjectiveQuota(ctx context.Context, tenantID shared.ID) error {
	t, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}

	limit := t.Plan().Limits().MaxObjectives
	if limit < 0 {
		return nil
	}

	count, err := s.repo.CountByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to count objectives: %w", err)
	}
	if count >= int64(limit) {
		metrics.QuotaRejectionsTotal.WithLabelValues(tenantID.String(), "objectives").Inc()
		return ErrObjectiveQuotaExceeded
	}
	return nil
}
