package app

import (
	"context"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/cadence"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/logger"
)

// CadenceService handles check-in cadences and their timeframes.
type CadenceService struct {
	repo   cadence.Repository
	logger *logger.Logger
}

// NewCadenceService creates a new CadenceService.
func NewCadenceService(repo cadence.Repository, log *logger.Logger) *CadenceService {
	return &CadenceService{
		repo:   repo,
		logger: log.With("service", "cadence"),
	}
}

// CreateCadenceInput represents the input for creating a cadence.
type CreateCadenceInput struct {
	Name             string `json:"name" validate:"required,min=2,max=100"`
	Description      string `json:"description" validate:"omitempty,max=500"`
	ReminderSchedule string `json:"reminder_schedule" validate:"required,max=100"`
}

// CreateCadence creates a cadence. The reminder schedule is a cron
// expression validated by the domain constructor.
func (s *CadenceService) CreateCadence(ctx context.Context, tenantID shared.ID, input CreateCadenceInput) (*cadence.Cadence, error) {
	c, err := cadence.New(tenantID, input.Name, input.ReminderSchedule)
	if err != nil {
		return nil, err
	}
	if input.Description != "" {
		c.UpdateDescription(input.Description)
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create cadence: %w", err)
	}

	s.logger.Info("cadence created",
		"tenant_id", tenantID.String(),
		"cadence_id", c.ID().String(),
		"schedule", input.ReminderSchedule,
	)
	return c, nil
}

// GetCadence retrieves a cadence within the tenant.
func (s *CadenceService) GetCadence(ctx context.Context, tenantID, id shared.ID) (*cadence.Cadence, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// ListCadences lists the tenant's cadences.
func (s *CadenceService) ListCadences(ctx context.Context, tenantID shared.ID) ([]*cadence.Cadence, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

// UpdateCadenceInput represents the input for updating a cadence.
type UpdateCadenceInput struct {
	Name             *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description      *string `json:"description" validate:"omitempty,max=500"`
	ReminderSchedule *string `json:"reminder_schedule" validate:"omitempty,max=100"`
}

// UpdateCadence updates a cadence's fields.
func (s *CadenceService) UpdateCadence(ctx context.Context, tenantID, id shared.ID, input UpdateCadenceInput) (*cadence.Cadence, error) {
	c, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := c.UpdateName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		c.UpdateDescription(*input.Description)
	}
	if input.ReminderSchedule != nil {
		if err := c.UpdateReminderSchedule(*input.ReminderSchedule); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update cadence: %w", err)
	}

	s.logger.Info("cadence updated", "tenant_id", tenantID.String(), "cadence_id", id.String())
	return c, nil
}

// DeleteCadence deletes a cadence. Fails while timeframes still
// reference it.
func (s *CadenceService) DeleteCadence(ctx context.Context, tenantID, id shared.ID) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	s.logger.Info("cadence deleted", "tenant_id", tenantID.String(), "cadence_id", id.String())
	return nil
}

// CreateTimeframeInput represents the input for creating a timeframe.
type CreateTimeframeInput struct {
	Name     string    `json:"name" validate:"required,min=2,max=100"`
	StartsOn time.Time `json:"starts_on" validate:"required"`
	EndsOn   time.Time `json:"ends_on" validate:"required"`
}

// CreateTimeframe adds a timeframe to a cadence.
func (s *CadenceService) CreateTimeframe(ctx context.Context, tenantID, cadenceID shared.ID, input CreateTimeframeInput) (*cadence.Timeframe, error) {
	if _, err := s.repo.GetByID(ctx, tenantID, cadenceID); err != nil {
		return nil, err
	}

	tf, err := cadence.NewTimeframe(tenantID, cadenceID, input.Name, input.StartsOn, input.EndsOn)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateTimeframe(ctx, tf); err != nil {
		return nil, fmt.Errorf("failed to create timeframe: %w", err)
	}

	s.logger.Info("timeframe created",
		"tenant_id", tenantID.String(),
		"cadence_id", cadenceID.String(),
		"timeframe_id", tf.ID().String(),
	)
	return tf, nil
}

// GetTimeframe retrieves a timeframe within the tenant.
func (s *CadenceService) GetTimeframe(ctx context.Context, tenantID, id shared.ID) (*cadence.Timeframe, error) {
	return s.repo.GetTimeframeByID(ctx, tenantID, id)
}

// ListTimeframes lists a cadence's timeframes.
func (s *CadenceService) ListTimeframes(ctx context.Context, tenantID, cadenceID shared.ID) ([]*cadence.Timeframe, error) {
	if _, err := s.repo.GetByID(ctx, tenantID, cadenceID); err != nil {
		return nil, err
	}
	return s.repo.ListTimeframes(ctx, tenantID, cadenceID)
}

// ListActiveTimeframes lists timeframes whose window covers today.
func (s *CadenceService) ListActiveTimeframes(ctx context.Context, tenantID shared.ID) ([]*cadence.Timeframe, error) {
	return s.repo.ListActiveTimeframes(ctx, tenantID)
}

// UpdateTimeframeInput represents the input for updating a timeframe.
type UpdateTimeframeInput struct {
	Name     string    `json:"name" validate:"required,min=2,max=100"`
	StartsOn time.Time `json:"starts_on" validate:"required"`
	EndsOn   time.Time `json:"ends_on" validate:"required"`
}

// UpdateTimeframe replaces a timeframe's name and window.
func (s *CadenceService) UpdateTimeframe(ctx context.Context, tenantID, id shared.ID, input UpdateTimeframeInput) (*cadence.Timeframe, error) {
	tf, err := s.repo.GetTimeframeByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := tf.Update(input.Name, input.StartsOn, input.EndsOn); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTimeframe(ctx, tf); err != nil {
		return nil, fmt.Errorf("failed to update timeframe: %w", err)
	}

	s.logger.Info("timeframe updated", "tenant_id", tenantID.String(), "timeframe_id", id.String())
	return tf, nil
}

// DeleteTimeframe deletes a timeframe. Fails while objectives still
// reference it.
func (s *CadenceService) DeleteTimeframe(ctx context.Context, tenantID, id shared.ID) error {
	if err := s.repo.DeleteTimeframe(ctx, tenantID, id); err != nil {
		return err
	}

	s.logger.Info("timeframe deleted", "tenant_id", tenantID.String(), "timeframe_id", id.String())
	return nil
}
