package billing

import (
	"context"
	"time"
)

// ProviderCustomer is the provider-side record for a workspace.
type ProviderCustomer struct {
	ID    string
	Email string
}

// ProviderSubscription is the provider-side subscription state.
type ProviderSubscription struct {
	ID                string
	CustomerID        string
	Plan              string
	Status            string
	CheckoutURL       string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	CancelAtPeriodEnd bool
}

// Provider is the outbound interface to the hosted billing provider.
// Local subscription state never changes from these calls directly;
// webhook events remain the single writer.
type Provider interface {
	CreateCustomer(ctx context.Context, tenantID, email, name string) (*ProviderCustomer, error)
	CreateSubscription(ctx context.Context, customerID string, plan string) (*ProviderSubscription, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, plan string) (*ProviderSubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) error
	GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
}
