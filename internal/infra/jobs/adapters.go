package jobs

import (
	"context"

	"github.com/northstarhq/api/internal/app"
)

// EmailEnqueuerAdapter wraps the job Client to implement app.EmailJobEnqueuer.
type EmailEnqueuerAdapter struct {
	client *Client
}

// NewEmailEnqueuerAdapter creates a new adapter.
func NewEmailEnqueuerAdapter(client *Client) *EmailEnqueuerAdapter {
	return &EmailEnqueuerAdapter{client: client}
}

// EnqueueWelcomeEmail converts app payload to job payload and enqueues.
func (a *EmailEnqueuerAdapter) EnqueueWelcomeEmail(ctx context.Context, payload app.WelcomeEmailJobPayload) error {
	return a.client.EnqueueWelcomeEmail(ctx, WelcomeEmailPayload{
		Email: payload.Email,
		Name:  payload.Name,
	})
}

// EnqueueInvitationEmail converts app payload to job payload and enqueues.
func (a *EmailEnqueuerAdapter) EnqueueInvitationEmail(ctx context.Context, payload app.InvitationEmailJobPayload) error {
	return a.client.EnqueueInvitationEmail(ctx, InvitationEmailPayload{
		Email:         payload.Email,
		InviterName:   payload.InviterName,
		WorkspaceName: payload.WorkspaceName,
		Role:          payload.Role,
		Token:         payload.Token,
		ExpiresInSecs: payload.ExpiresInSecs,
	})
}

// EnqueuePaymentFailedEmail converts app payload to job payload and enqueues.
func (a *EmailEnqueuerAdapter) EnqueuePaymentFailedEmail(ctx context.Context, payload app.PaymentFailedEmailJobPayload) error {
	return a.client.EnqueuePaymentFailedEmail(ctx, PaymentFailedEmailPayload{
		Email:         payload.Email,
		Name:          payload.Name,
		WorkspaceName: payload.WorkspaceName,
		WorkspaceSlug: payload.WorkspaceSlug,
	})
}

// EnqueueCheckInReminder converts app payload to job payload and enqueues.
func (a *EmailEnqueuerAdapter) EnqueueCheckInReminder(ctx context.Context, payload app.CheckInReminderJobPayload) error {
	return a.client.EnqueueCheckInReminder(ctx, CheckInReminderPayload{
		Email:         payload.Email,
		Name:          payload.Name,
		WorkspaceName: payload.WorkspaceName,
		WorkspaceSlug: payload.WorkspaceSlug,
		CadenceName:   payload.CadenceName,
	})
}

// BillingEnqueuerAdapter wraps the job Client to implement
// app.BillingJobEnqueuer.
type BillingEnqueuerAdapter struct {
	client *Client
}

// NewBillingEnqueuerAdapter creates a new adapter.
func NewBillingEnqueuerAdapter(client *Client) *BillingEnqueuerAdapter {
	return &BillingEnqueuerAdapter{client: client}
}

// EnqueueBillingResync converts app payload to job payload and enqueues.
func (a *BillingEnqueuerAdapter) EnqueueBillingResync(ctx context.Context, payload app.BillingResyncJobPayload) error {
	return a.client.EnqueueBillingResync(ctx, BillingResyncPayload{
		TenantID: payload.TenantID,
	})
}

// Ensure adapters implement the interfaces
var _ app.EmailJobEnqueuer = (*EmailEnqueuerAdapter)(nil)
var _ app.BillingJobEnqueuer = (*BillingEnqueuerAdapter)(nil)
