// Package jobs provides background job definitions and handlers using Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/pkg/logger"
)

// Task types for email jobs
const (
	TypeEmailWelcome         = "email:welcome"
	TypeEmailInvitation      = "email:invitation"
	TypeEmailPaymentFailed   = "email:payment_failed"
	TypeEmailCheckInReminder = "email:checkin_reminder"
)

// WelcomeEmailPayload contains data for sending welcome emails.
type WelcomeEmailPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// InvitationEmailPayload contains data for sending workspace invitation emails.
type InvitationEmailPayload struct {
	Email         string `json:"email"`
	InviterName   string `json:"inviter_name"`
	WorkspaceName string `json:"workspace_name"`
	Role          string `json:"role"`
	Token         string `json:"token"`
	ExpiresInSecs int64  `json:"expires_in_secs"`
}

// PaymentFailedEmailPayload contains data for the failed-renewal notice
// sent to workspace owners.
type PaymentFailedEmailPayload struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	WorkspaceName string `json:"workspace_name"`
	WorkspaceSlug string `json:"workspace_slug"`
}

// CheckInReminderPayload contains data for cadence check-in reminder emails.
type CheckInReminderPayload struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	WorkspaceName string `json:"workspace_name"`
	WorkspaceSlug string `json:"workspace_slug"`
	CadenceName   string `json:"cadence_name"`
}

// newEmailTask marshals a payload into an email-queue task.
func newEmailTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}
	return asynq.NewTask(
		taskType,
		data,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Queue("email"),
	), nil
}

// NewWelcomeEmailTask creates a new welcome email task.
func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	return newEmailTask(TypeEmailWelcome, payload)
}

// NewInvitationEmailTask creates a new workspace invitation email task.
func NewInvitationEmailTask(payload InvitationEmailPayload) (*asynq.Task, error) {
	return newEmailTask(TypeEmailInvitation, payload)
}

// NewPaymentFailedEmailTask creates a new payment-failed notice task.
func NewPaymentFailedEmailTask(payload PaymentFailedEmailPayload) (*asynq.Task, error) {
	return newEmailTask(TypeEmailPaymentFailed, payload)
}

// NewCheckInReminderTask creates a new check-in reminder email task.
func NewCheckInReminderTask(payload CheckInReminderPayload) (*asynq.Task, error) {
	return newEmailTask(TypeEmailCheckInReminder, payload)
}

// EmailTaskHandler handles email task processing.
type EmailTaskHandler struct {
	emailService *app.EmailService
	logger       *logger.Logger
}

// NewEmailTaskHandler creates a new email task handler.
func NewEmailTaskHandler(emailService *app.EmailService, log *logger.Logger) *EmailTaskHandler {
	return &EmailTaskHandler{
		emailService: emailService,
		logger:       log.With("handler", "email_tasks"),
	}
}

// HandleWelcomeEmail processes welcome email tasks.
func (h *EmailTaskHandler) HandleWelcomeEmail(ctx context.Context, t *asynq.Task) error {
	var payload WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if err := h.emailService.SendWelcomeEmail(ctx, payload.Email, payload.Name); err != nil {
		h.logger.Error("failed to send welcome email",
			"email", payload.Email,
			"error", err,
		)
		return err
	}

	h.logger.Info("welcome email sent", "email", payload.Email)
	return nil
}

// HandleInvitationEmail processes workspace invitation email tasks.
func (h *EmailTaskHandler) HandleInvitationEmail(ctx context.Context, t *asynq.Task) error {
	var payload InvitationEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	err := h.emailService.SendWorkspaceInvitationEmail(
		ctx,
		payload.Email,
		payload.InviterName,
		payload.WorkspaceName,
		payload.Role,
		payload.Token,
		time.Duration(payload.ExpiresInSecs)*time.Second,
	)
	if err != nil {
		h.logger.Error("failed to send invitation email",
			"email", payload.Email,
			"workspace", payload.WorkspaceName,
			"error", err,
		)
		return err
	}

	h.logger.Info("invitation email sent",
		"email", payload.Email,
		"workspace", payload.WorkspaceName,
	)
	return nil
}

// HandlePaymentFailedEmail processes payment-failed notice tasks.
func (h *EmailTaskHandler) HandlePaymentFailedEmail(ctx context.Context, t *asynq.Task) error {
	var payload PaymentFailedEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	err := h.emailService.SendPaymentFailedEmail(
		ctx,
		payload.Email,
		payload.Name,
		payload.WorkspaceName,
		payload.WorkspaceSlug,
	)
	if err != nil {
		h.logger.Error("failed to send payment-failed email",
			"email", payload.Email,
			"workspace", payload.WorkspaceSlug,
			"error", err,
		)
		return err
	}

	h.logger.Info("payment-failed email sent",
		"email", payload.Email,
		"workspace", payload.WorkspaceSlug,
	)
	return nil
}

// HandleCheckInReminder processes check-in reminder email tasks.
func (h *EmailTaskHandler) HandleCheckInReminder(ctx context.Context, t *asynq.Task) error {
	var payload CheckInReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	err := h.emailService.SendCheckInReminderEmail(
		ctx,
		payload.Email,
		payload.Name,
		payload.WorkspaceName,
		payload.WorkspaceSlug,
		payload.CadenceName,
	)
	if err != nil {
		h.logger.Error("failed to send check-in reminder",
			"email", payload.Email,
			"cadence", payload.CadenceName,
			"error", err,
		)
		return err
	}

	h.logger.Info("check-in reminder sent",
		"email", payload.Email,
		"cadence", payload.CadenceName,
	)
	return nil
}
