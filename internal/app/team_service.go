package app

import (
	"context"
	"fmt"

	"github.com/northstarhq/api/internal/metrics"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/team"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
)

// TeamService errors.
var (
	ErrTeamQuotaExceeded = fmt.Errorf("%w: team limit for the current plan reached", shared.ErrConflict)
	ErrAlreadyTeamMember = fmt.Errorf("%w: user is already a member of this team", shared.ErrConflict)
)

// TeamService handles teams within a workspace.
type TeamService struct {
	repo       team.Repository
	tenantRepo tenant.Repository
	logger     *logger.Logger
}

// NewTeamService creates a new TeamService.
func NewTeamService(repo team.Repository, tenantRepo tenant.Repository, log *logger.Logger) *TeamService {
	return &TeamService{
		repo:       repo,
		tenantRepo: tenantRepo,
		logger:     log.With("service", "team"),
	}
}

// CreateTeamInput represents the input for creating a team.
type CreateTeamInput struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	LeadID      *string `json:"lead_id" validate:"omitempty,uuid"`
}

// CreateTeam creates a team. The lead, when given, must be a tenant
// member.
func (s *TeamService) CreateTeam(ctx context.Context, tenantID shared.ID, input CreateTeamInput) (*team.Team, error) {
	if err := s.checkTeamQuota(ctx, tenantID); err != nil {
		return nil, err
	}

	t, err := team.New(tenantID, input.Name)
	if err != nil {
		return nil, err
	}
	if input.Description != "" {
		t.UpdateDescription(input.Description)
	}
	if input.LeadID != nil && *input.LeadID != "" {
		leadID, err := s.requireTenantMember(ctx, tenantID, *input.LeadID)
		if err != nil {
			return nil, err
		}
		t.SetLead(&leadID)
	}

	if err := s.repo.Create(ctx, t); err != nil {
		if shared.IsAlreadyExists(err) {
			return nil, fmt.Errorf("%w: a team with this name already exists", shared.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	s.logger.Info("team created",
		"tenant_id", tenantID.String(),
		"team_id", t.ID().String(),
		"name", t.Name(),
	)
	return t, nil
}

// GetTeam retrieves a team within the tenant.
func (s *TeamService) GetTeam(ctx context.Context, tenantID, id shared.ID) (*team.Team, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// ListTeams lists the tenant's teams.
func (s *TeamService) ListTeams(ctx context.Context, tenantID shared.ID, limit, offset int) ([]*team.Team, int64, error) {
	return s.repo.ListByTenant(ctx, tenantID, limit, offset)
}

// UpdateTeamInput represents the input for updating a team.
type UpdateTeamInput struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	LeadID      *string `json:"lead_id" validate:"omitempty,uuid"`
}

// UpdateTeam updates a team's fields.
func (s *TeamService) UpdateTeam(ctx context.Context, tenantID, id shared.ID, input UpdateTeamInput) (*team.Team, error) {
	t, err := s.repo.GetByID(ctx, tenantID, id)
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
	if input.LeadID != nil {
		if *input.LeadID == "" {
			t.SetLead(nil)
		} else {
			leadID, err := s.requireTenantMember(ctx, tenantID, *input.LeadID)
			if err != nil {
				return nil, err
			}
			t.SetLead(&leadID)
		}
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}

	s.logger.Info("team updated", "tenant_id", tenantID.String(), "team_id", id.String())
	return t, nil
}

// DeleteTeam deletes a team. Objectives attached to it fall back to
// being unassigned rather than disappearing.
func (s *TeamService) DeleteTeam(ctx context.Context, tenantID, id shared.ID) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	s.logger.Info("team deleted", "tenant_id", tenantID.String(), "team_id", id.String())
	return nil
}

// AddTeamMember adds a tenant member to a team.
func (s *TeamService) AddTeamMember(ctx context.Context, tenantID, teamID shared.ID, userIDStr string, addedBy shared.ID) (*team.Member, error) {
	t, err := s.repo.GetByID(ctx, tenantID, teamID)
	if err != nil {
		return nil, err
	}

	userID, err := s.requireTenantMember(ctx, tenantID, userIDStr)
	if err != nil {
		return nil, err
	}

	isMember, err := s.repo.IsMember(ctx, t.ID(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check team membership: %w", err)
	}
	if isMember {
		return nil, ErrAlreadyTeamMember
	}

	m, err := team.NewMember(t.ID(), userID, addedBy)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddMember(ctx, m); err != nil {
		if shared.IsAlreadyExists(err) {
			return nil, ErrAlreadyTeamMember
		}
		return nil, fmt.Errorf("failed to add team member: %w", err)
	}

	s.logger.Info("team member added",
		"tenant_id", tenantID.String(),
		"team_id", teamID.String(),
		"user_id", userID.String(),
	)
	return m, nil
}

// RemoveTeamMember removes a user from a team.
func (s *TeamService) RemoveTeamMember(ctx context.Context, tenantID, teamID, userID shared.ID) error {
	if _, err := s.repo.GetByID(ctx, tenantID, teamID); err != nil {
		return err
	}

	if err := s.repo.RemoveMember(ctx, teamID, userID); err != nil {
		return err
	}

	s.logger.Info("team member removed",
		"tenant_id", tenantID.String(),
		"team_id", teamID.String(),
		"user_id", userID.String(),
	)
	return nil
}

// ListTeamMembers lists a team's members.
func (s *TeamService) ListTeamMembers(ctx context.Context, tenantID, teamID shared.ID) ([]*team.Member, error) {
	if _, err := s.repo.GetByID(ctx, tenantID, teamID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, teamID)
}

// requireTenantMember parses the ID and verifies tenant membership.
func (s *TeamService) requireTenantMember(ctx context.Context, tenantID shared.ID, userIDStr string) (shared.ID, error) {
	userID, err := shared.IDFromString(userIDStr)
	if err != nil {
		return shared.ID{}, fmt.Errorf("%w: invalid user id", shared.ErrValidation)
	}
	if _, err := s.tenantRepo.GetMembership(ctx, userID, tenantID); err != nil {
		if shared.IsNotFound(err) {
			return shared.ID{}, tenant.ErrNotMember
		}
		return shared.ID{}, fmt.Errorf("failed to check membership: %w", err)
	}
	return userID, nil
}

func (s *TeamService) checkTeamQuota(ctx context.Context, tenantID shared.ID) error {
	t, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}

	limit := t.Plan().Limits().MaxTeams
	if limit < 0 {
		return nil
	}

	count, err := s.repo.CountByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to count teams: %w", err)
	}
	if count >= int64(limit) {
		metrics.QuotaRejectionsTotal.WithLabelValues(tenantID.String(), "teams").Inc()
		return ErrTeamQuotaExceeded
	}
	return nil
}
