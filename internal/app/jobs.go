package app

import "context"

// WelcomeEmailJobPayload is the payload for the welcome email job.
type WelcomeEmailJobPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// InvitationEmailJobPayload is the payload for the workspace
// invitation email job.
type InvitationEmailJobPayload struct {
	Email         string `json:"email"`
	InviterName   string `json:"inviter_name"`
	WorkspaceName string `json:"workspace_name"`
	Role          string `json:"role"`
	Token         string `json:"token"`
	ExpiresInSecs int64  `json:"expires_in_secs"`
}

// PaymentFailedEmailJobPayload is the payload for the failed-renewal
// notice sent to workspace owners.
type PaymentFailedEmailJobPayload struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	WorkspaceName string `json:"workspace_name"`
	WorkspaceSlug string `json:"workspace_slug"`
}

// CheckInReminderJobPayload is the payload for a cadence check-in
// reminder email.
type CheckInReminderJobPayload struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	WorkspaceName string `json:"workspace_name"`
	WorkspaceSlug string `json:"workspace_slug"`
	CadenceName   string `json:"cadence_name"`
}

// EmailJobEnqueuer enqueues email delivery jobs for async processing.
// Implemented by the jobs client adapter; services never talk to the
// queue directly.
type EmailJobEnqueuer interface {
	EnqueueWelcomeEmail(ctx context.Context, payload WelcomeEmailJobPayload) error
	EnqueueInvitationEmail(ctx context.Context, payload InvitationEmailJobPayload) error
	EnqueuePaymentFailedEmail(ctx context.Context, payload PaymentFailedEmailJobPayload) error
	EnqueueCheckInReminder(ctx context.Context, payload CheckInReminderJobPayload) error
}

// BillingResyncJobPayload asks the worker to re-read a subscription
// from the billing provider and reconcile local state.
type BillingResyncJobPayload struct {
	TenantID string `json:"tenant_id"`
}

// BillingJobEnqueuer enqueues billing reconciliation jobs.
type BillingJobEnqueuer interface {
	EnqueueBillingResync(ctx context.Context, payload BillingResyncJobPayload) error
}
