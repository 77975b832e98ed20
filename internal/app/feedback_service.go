package app

import (
	"context"
	"fmt"

	"github.com/northstarhq/api/pkg/domain/feedback"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
)

// FeedbackService handles peer feedback entries.
type FeedbackService struct {
	repo       feedback.Repository
	tenantRepo tenant.Repository
	logger     *logger.Logger
}

// NewFeedbackService creates a new FeedbackService.
func NewFeedbackService(repo feedback.Repository, tenantRepo tenant.Repository, log *logger.Logger) *FeedbackService {
	return &FeedbackService{
		repo:       repo,
		tenantRepo: tenantRepo,
		logger:     log.With("service", "feedback"),
	}
}

// CreateFeedbackInput represents the input for giving feedback.
type CreateFeedbackInput struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid"`
	Message     string `json:"message" validate:"required,min=1,max=4000"`
	Visibility  string `json:"visibility" validate:"required,oneof=public private"`
}

// CreateFeedback records feedback from the author to a recipient who
// must be a member of the same tenant.
func (s *FeedbackService) CreateFeedback(ctx context.Context, tenantID, authorID shared.ID, input CreateFeedbackInput) (*feedback.Feedback, error) {
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

	f, err := feedback.New(tenantID, authorID, recipientID, input.Message, feedback.Visibility(input.Visibility))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}

	s.logger.Info("feedback created",
		"tenant_id", tenantID.String(),
		"author_id", authorID.String(),
		"recipient_id", recipientID.String(),
		"visibility", input.Visibility,
	)
	return f, nil
}

// GetFeedback retrieves a feedback entry the viewer is allowed to see.
// Private entries read as not found to anyone but author and recipient.
func (s *FeedbackService) GetFeedback(ctx context.Context, tenantID, id, viewerID shared.ID) (*feedback.Feedback, error) {
	f, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !f.VisibleTo(viewerID) {
		return nil, shared.ErrNotFound
	}
	return f, nil
}

// ListFeedback lists entries visible to the viewer: public ones plus
// private ones they authored or received.
func (s *FeedbackService) ListFeedback(ctx context.Context, tenantID, viewerID shared.ID, filter feedback.Filter) ([]*feedback.Feedback, int, error) {
	return s.repo.List(ctx, tenantID, viewerID, filter)
}

// DeleteFeedback deletes a feedback entry. Only the author may delete.
func (s *FeedbackService) DeleteFeedback(ctx context.Context, tenantID, id, actorID shared.ID) error {
	f, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if f.AuthorID() != actorID {
		return shared.ErrForbidden
	}

	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	s.logger.Info("feedback deleted",
		"tenant_id", tenantID.String(),
		"feedback_id", id.String(),
	)
	return nil
}
