package app

import (
	"context"
	"fmt"

	"github.com/northstarhq/api/internal/metrics"
	"github.com/northstarhq/api/pkg/domain/checkin"
	"github.com/northstarhq/api/pkg/domain/keyresult"
	"github.com/northstarhq/api/pkg/domain/objective"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/logger"
)

// KeyResultService handles key results and their check-ins. Objective
// progress is recomputed here whenever a key result's numbers move.
type KeyResultService struct {
	repo          keyresult.Repository
	checkinRepo   checkin.Repository
	objectiveRepo objective.Repository
	logger        *logger.Logger
}

// NewKeyResultService creates a new KeyResultService.
func NewKeyResultService(
	repo keyresult.Repository,
	checkinRepo checkin.Repository,
	objectiveRepo objective.Repository,
	log *logger.Logger,
) *KeyResultService {
	return &KeyResultService{
		repo:          repo,
		checkinRepo:   checkinRepo,
		objectiveRepo: objectiveRepo,
		logger:        log.With("service", "keyresult"),
	}
}

// CreateKeyResultInput represents the input for creating a key result.
type CreateKeyResultInput struct {
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Kind        string  `json:"kind" validate:"required,oneof=metric milestone"`
	StartValue  float64 `json:"start_value"`
	TargetValue float64 `json:"target_value"`
	Unit        string  `json:"unit" validate:"omitempty,max=30"`
}

// CreateKeyResult adds a key result to an objective. The objective must
// exist in the tenant; the new key result drags objective progress down
// until check-ins move it.
func (s *KeyResultService) CreateKeyResult(ctx context.Context, tenantID, objectiveID shared.ID, input CreateKeyResultInput) (*keyresult.KeyResult, error) {
	o, err := s.objectiveRepo.GetByID(ctx, tenantID, objectiveID)
	if err != nil {
		return nil, err
	}

	kr, err := keyresult.New(tenantID, o.ID(), input.Title, keyresult.Kind(input.Kind), input.StartValue, input.TargetValue, input.Unit)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, kr); err != nil {
		return nil, fmt.Errorf("failed to create key result: %w", err)
	}

	if err := s.rollUpProgress(ctx, tenantID, o.ID()); err != nil {
		s.logger.Error("failed to roll up objective progress", "error", err)
	}

	s.logger.Info("key result created",
		"tenant_id", tenantID.String(),
		"objective_id", objectiveID.String(),
		"key_result_id", kr.ID().String(),
	)
	return kr, nil
}

// GetKeyResult retrieves a key result within the tenant.
func (s *KeyResultService) GetKeyResult(ctx context.Context, tenantID, id shared.ID) (*keyresult.KeyResult, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// ListKeyResults lists an objective's key results.
func (s *KeyResultService) ListKeyResults(ctx context.Context, tenantID, objectiveID shared.ID) ([]*keyresult.KeyResult, error) {
	if _, err := s.objectiveRepo.GetByID(ctx, tenantID, objectiveID); err != nil {
		return nil, err
	}
	return s.repo.ListByObjective(ctx, tenantID, objectiveID)
}

// UpdateKeyResultInput represents the input for updating a key result.
type UpdateKeyResultInput struct {
	Title       *string  `json:"title" validate:"omitempty,min=3,max=200"`
	TargetValue *float64 `json:"target_value"`
}

// UpdateKeyResult updates a key result's title or target. Target moves
// re-scale progress, so the objective rollup runs afterwards.
func (s *KeyResultService) UpdateKeyResult(ctx context.Context, tenantID, id shared.ID, input UpdateKeyResultInput) (*keyresult.KeyResult, error) {
	kr, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if err := kr.UpdateTitle(*input.Title); err != nil {
			return nil, err
		}
	}
	if input.TargetValue != nil {
		if err := kr.UpdateTarget(*input.TargetValue); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, kr); err != nil {
		return nil, fmt.Errorf("failed to update key result: %w", err)
	}

	if input.TargetValue != nil {
		if err := s.rollUpProgress(ctx, tenantID, kr.ObjectiveID()); err != nil {
			s.logger.Error("failed to roll up objective progress", "error", err)
		}
	}

	return kr, nil
}

// DeleteKeyResult removes a key result and recomputes the objective's
// progress from the remaining ones.
func (s *KeyResultService) DeleteKeyResult(ctx context.Context, tenantID, id shared.ID) error {
	kr, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	if err := s.rollUpProgress(ctx, tenantID, kr.ObjectiveID()); err != nil {
		s.logger.Error("failed to roll up objective progress", "error", err)
	}

	s.logger.Info("key result deleted",
		"tenant_id", tenantID.String(),
		"key_result_id", id.String(),
	)
	return nil
}

// CompleteKeyResult marks a milestone key result as done.
func (s *KeyResultService) CompleteKeyResult(ctx context.Context, tenantID, id shared.ID) (*keyresult.KeyResult, error) {
	kr, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := kr.Complete(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, kr); err != nil {
		return nil, fmt.Errorf("failed to update key result: %w", err)
	}

	if err := s.rollUpProgress(ctx, tenantID, kr.ObjectiveID()); err != nil {
		s.logger.Error("failed to roll up objective progress", "error", err)
	}
	return kr, nil
}

// CreateCheckInInput represents the input for recording a check-in.
type CreateCheckInInput struct {
	Value      float64 `json:"value"`
	Confidence int     `json:"confidence" validate:"required,min=1,max=10"`
	Note       string  `json:"note" validate:"omitempty,max=1000"`
}

// CreateCheckIn records a progress update against a key result. The key
// result's current value and confidence move with it, and the owning
// objective's progress is recomputed.
func (s *KeyResultService) CreateCheckIn(ctx context.Context, tenantID, keyResultID, authorID shared.ID, input CreateCheckInInput) (*checkin.CheckIn, error) {
	kr, err := s.repo.GetByID(ctx, tenantID, keyResultID)
	if err != nil {
		return nil, err
	}

	c, err := checkin.New(tenantID, kr.ID(), authorID, input.Value, input.Confidence, input.Note)
	if err != nil {
		return nil, err
	}

	if err := kr.Record(input.Value, input.Confidence); err != nil {
		return nil, err
	}

	if err := s.checkinRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create check-in: %w", err)
	}
	if err := s.repo.Update(ctx, kr); err != nil {
		return nil, fmt.Errorf("failed to update key result: %w", err)
	}

	if err := s.rollUpProgress(ctx, tenantID, kr.ObjectiveID()); err != nil {
		s.logger.Error("failed to roll up objective progress", "error", err)
	}

	metrics.CheckInsTotal.WithLabelValues(tenantID.String()).Inc()
	s.logger.Info("check-in recorded",
		"tenant_id", tenantID.String(),
		"key_result_id", keyResultID.String(),
		"value", input.Value,
		"confidence", input.Confidence,
	)
	return c, nil
}

// ListCheckIns lists a key result's check-ins, newest first.
func (s *KeyResultService) ListCheckIns(ctx context.Context, tenantID, keyResultID shared.ID, limit, offset int) ([]*checkin.CheckIn, int64, error) {
	if _, err := s.repo.GetByID(ctx, tenantID, keyResultID); err != nil {
		return nil, 0, err
	}
	return s.checkinRepo.ListByKeyResult(ctx, tenantID, keyResultID, limit, offset)
}

// ListTenantCheckIns lists recent check-ins across the whole tenant.
func (s *KeyResultService) ListTenantCheckIns(ctx context.Context, tenantID shared.ID, limit, offset int) ([]*checkin.CheckIn, int64, error) {
	return s.checkinRepo.ListByTenant(ctx, tenantID, limit, offset)
}

// rollUpProgress recomputes an objective's progress as the mean of its
// key results' progress. An objective without key results reads zero.
func (s *KeyResultService) rollUpProgress(ctx context.Context, tenantID, objectiveID shared.ID) error {
	o, err := s.objectiveRepo.GetByID(ctx, tenantID, objectiveID)
	if err != nil {
		return err
	}
	krs, err := s.repo.ListByObjective(ctx, tenantID, objectiveID)
	if err != nil {
		return err
	}

	progress := 0
	if len(krs) > 0 {
		sum := 0
		for _, kr := range krs {
			sum += kr.Progress()
		}
		progress = sum / len(krs)
	}

	o.SetProgress(progress)
	return s.objectiveRepo.Update(ctx, o)
}
