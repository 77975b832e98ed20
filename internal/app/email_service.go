package app

import (
	"context"
	"fmt"
	"time"

	"github.com/northstarhq/api/internal/config"
	"github.com/northstarhq/api/pkg/email"
	"github.com/northstarhq/api/pkg/logger"
)

// EmailService handles sending emails for various application events.
type EmailService struct {
	sender  email.Sender
	config  config.SMTPConfig
	appName string
	logger  *logger.Logger
}

// NewEmailService creates a new EmailService.
func NewEmailService(sender email.Sender, cfg config.SMTPConfig, appName string, log *logger.Logger) *EmailService {
	return &EmailService{
		sender:  sender,
		config:  cfg,
		appName: appName,
		logger:  log.With("service", "email"),
	}
}

// IsConfigured returns true if email service is properly configured.
func (s *EmailService) IsConfigured() bool {
	return s.sender != nil && s.sender.IsConfigured()
}

// SendPasswordResetEmail sends a password reset link to a user.
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, userEmail, userName, token string, expiresIn time.Duration, ipAddress string) error {
	if !s.IsConfigured() {
		s.logger.Warn("email service not configured, skipping password reset email",
			"email", userEmail,
		)
		return nil
	}

	resetURL := fmt.Sprintf("%s/auth/reset-password?token=%s", s.config.BaseURL, token)

	data := email.PasswordResetData{
		UserName:    userName,
		Email:       userEmail,
		ResetURL:    resetURL,
		ExpiresIn:   formatDuration(expiresIn),
		AppName:     s.appName,
		IPAddress:   ipAddress,
		RequestedAt: time.Now().Format("January 2, 2006 at 3:04 PM MST"),
	}

	if err := s.sender.SendTemplate(ctx, userEmail, email.TemplatePasswordReset, data); err != nil {
		s.logger.Error("failed to send password reset email",
			"email", userEmail,
			"error", err,
		)
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	s.logger.Info("password reset email sent",
		"email", userEmail,
	)
	return nil
}

// SendWelcomeEmail sends a welcome email to a new user.
func (s *EmailService) SendWelcomeEmail(ctx context.Context, userEmail, userName string) error {
	if !s.IsConfigured() {
		s.logger.Warn("email service not configured, skipping welcome email",
			"email", userEmail,
		)
		return nil
	}

	data := email.WelcomeData{
		UserName:   userName,
		Email:      userEmail,
		LoginURL:   fmt.Sprintf("%s/auth/login", s.config.BaseURL),
		AppName:    s.appName,
		SupportURL: fmt.Sprintf("%s/support", s.config.BaseURL),
	}

	if err := s.sender.SendTemplate(ctx, userEmail, email.TemplateWelcome, data); err != nil {
		s.logger.Error("failed to send welcome email",
			"email", userEmail,
			"error", err,
		)
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	s.logger.Info("welcome email sent",
		"email", userEmail,
	)
	return nil
}

// SendWorkspaceInvitationEmail sends a workspace invitation email.
func (s *EmailService) SendWorkspaceInvitationEmail(ctx context.Context, recipientEmail, inviterName, workspaceName, role, token string, expiresIn time.Duration) error {
	if !s.IsConfigured() {
		s.logger.Warn("email service not configured, skipping workspace invitation email",
			"email", recipientEmail,
		)
		return nil
	}

	data := email.WorkspaceInvitationData{
		InviterName:   inviterName,
		WorkspaceName: workspaceName,
		Role:          role,
		InvitationURL: fmt.Sprintf("%s/invitations/%s", s.config.BaseURL, token),
		ExpiresIn:     formatDuration(expiresIn),
		AppName:       s.appName,
	}

	if err := s.sender.SendTemplate(ctx, recipientEmail, email.TemplateWorkspaceInvitation, data); err != nil {
		s.logger.Error("failed to send workspace invitation email",
			"email", recipientEmail,
			"error", err,
		)
		return fmt.Errorf("failed to send workspace invitation email: %w", err)
	}

	s.logger.Info("workspace invitation email sent",
		"email", recipientEmail,
		"workspace", workspaceName,
	)
	return nil
}

// SendPaymentFailedEmail notifies a workspace owner that a renewal
// payment failed and the subscription moved to past due.
func (s *EmailService) SendPaymentFailedEmail(ctx context.Context, userEmail, userName, workspaceName, workspaceSlug string) error {
	if !s.IsConfigured() {
		s.logger.Warn("email service not configured, skipping payment failed email",
			"email", userEmail,
		)
		return nil
	}

	data := email.PaymentFailedData{
		UserName:      userName,
		Email:         userEmail,
		WorkspaceName: workspaceName,
		BillingURL:    fmt.Sprintf("%s/%s/settings/billing", s.config.BaseURL, workspaceSlug),
		AppName:       s.appName,
	}

	if err := s.sender.SendTemplate(ctx, userEmail, email.TemplatePaymentFailed, data); err != nil {
		s.logger.Error("failed to send payment failed email",
			"email", userEmail,
			"error", err,
		)
		return fmt.Errorf("failed to send payment failed email: %w", err)
	}

	s.logger.Info("payment failed email sent",
		"email", userEmail,
		"workspace", workspaceName,
	)
	return nil
}

// SendCheckInReminderEmail sends a cadence check-in reminder.
func (s *EmailService) SendCheckInReminderEmail(ctx context.Context, userEmail, userName, workspaceName, workspaceSlug, cadenceName string) error {
	if !s.IsConfigured() {
		s.logger.Warn("email service not configured, skipping check-in reminder email",
			"email", userEmail,
		)
		return nil
	}

	data := email.CheckInReminderData{
		UserName:      userName,
		Email:         userEmail,
		WorkspaceName: workspaceName,
		CadenceName:   cadenceName,
		ObjectivesURL: fmt.Sprintf("%s/%s/objectives", s.config.BaseURL, workspaceSlug),
		AppName:       s.appName,
	}

	if err := s.sender.SendTemplate(ctx, userEmail, email.TemplateCheckInReminder, data); err != nil {
		s.logger.Error("failed to send check-in reminder email",
			"email", userEmail,
			"error", err,
		)
		return fmt.Errorf("failed to send check-in reminder email: %w", err)
	}

	s.logger.Info("check-in reminder email sent",
		"email", userEmail,
		"cadence", cadenceName,
	)
	return nil
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d >= 24*time.Hour {
		days := int(d.Hours() / 24)
		if days == 1 {
			return "24 hours"
		}
		return fmt.Sprintf("%d days", days)
	}
	if d >= time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	if d >= time.Minute {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return d.String()
}
