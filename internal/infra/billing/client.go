package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/northstarhq/api/internal/config"
	"github.com/northstarhq/api/pkg/domain/billing"
	"github.com/northstarhq/api/pkg/logger"
)

// ProviderClient talks to the hosted billing provider's REST API. It
// implements billing.Provider.
type ProviderClient struct {
	http   *resty.Client
	config config.BillingConfig
	logger *logger.Logger
}

// NewProviderClient creates a provider client from config.
func NewProviderClient(cfg config.BillingConfig, log *logger.Logger) *ProviderClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	p := &ProviderClient{
		http:   client,
		config: cfg,
		logger: log.With("component", "billing_provider"),
	}
	for _, u := range []string{cfg.CheckoutReturnURL, cfg.PortalReturnURL} {
		if u == "" {
			continue
		}
		if err := ValidateReturnURL(u); err != nil {
			p.logger.Warn("billing return url will be rejected by the provider",
				"url", u,
				"error", err,
			)
		}
	}
	return p
}

type apiError struct {
	Error string `json:"error"`
}

type customerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type subscriptionResponse struct {
	ID                string `json:"id"`
	CustomerID        string `json:"customer_id"`
	Plan              string `json:"plan"`
	Status            string `json:"status"`
	CheckoutURL       string `json:"checkout_url"`
	PeriodStart       int64  `json:"current_period_start"`
	PeriodEnd         int64  `json:"current_period_end"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
}

func (r subscriptionResponse) toDomain() *billing.ProviderSubscription {
	return &billing.ProviderSubscription{
		ID:                r.ID,
		CustomerID:        r.CustomerID,
		Plan:              r.Plan,
		Status:            r.Status,
		CheckoutURL:       r.CheckoutURL,
		PeriodStart:       time.Unix(r.PeriodStart, 0).UTC(),
		PeriodEnd:         time.Unix(r.PeriodEnd, 0).UTC(),
		CancelAtPeriodEnd: r.CancelAtPeriodEnd,
	}
}

// CreateCustomer registers a billing customer for a workspace.
func (c *ProviderClient) CreateCustomer(ctx context.Context, tenantID, email, name string) (*billing.ProviderCustomer, error) {
	var (
		result customerResponse
		apiErr apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"external_id": tenantID,
			"email":       email,
			"name":        name,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/customers")
	if err != nil {
		return nil, fmt.Errorf("billing provider request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("billing provider error (%d): %s", resp.StatusCode(), apiErr.Error)
	}

	c.logger.Info("billing customer created", "tenant_id", tenantID, "customer_id", result.ID)
	return &billing.ProviderCustomer{ID: result.ID, Email: result.Email}, nil
}

// CreateSubscription starts a subscription and returns the checkout
// URL the customer must complete payment at.
func (c *ProviderClient) CreateSubscription(ctx context.Context, customerID, plan string) (*billing.ProviderSubscription, error) {
	var (
		result subscriptionResponse
		apiErr apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"customer_id": customerID,
			"plan":        plan,
			"return_url":  c.config.CheckoutReturnURL,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/subscriptions")
	if err != nil {
		return nil, fmt.Errorf("billing provider request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("billing provider error (%d): %s", resp.StatusCode(), apiErr.Error)
	}
	return result.toDomain(), nil
}

// UpdateSubscription changes the plan on an existing subscription.
func (c *ProviderClient) UpdateSubscription(ctx context.Context, subscriptionID, plan string) (*billing.ProviderSubscription, error) {
	var (
		result subscriptionResponse
		apiErr apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"plan": plan}).
		SetResult(&result).
		SetError(&apiErr).
		Patch("/v1/subscriptions/" + subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("billing provider request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("billing provider error (%d): %s", resp.StatusCode(), apiErr.Error)
	}
	return result.toDomain(), nil
}

// CancelSubscription cancels either at period end or immediately.
func (c *ProviderClient) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) error {
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]bool{"at_period_end": atPeriodEnd}).
		SetError(&apiErr).
		Post("/v1/subscriptions/" + subscriptionID + "/cancel")
	if err != nil {
		return fmt.Errorf("billing provider request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("billing provider error (%d): %s", resp.StatusCode(), apiErr.Error)
	}
	return nil
}

// GetSubscription reads current provider-side subscription state.
func (c *ProviderClient) GetSubscription(ctx context.Context, subscriptionID string) (*billing.ProviderSubscription, error) {
	var (
		result subscriptionResponse
		apiErr apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&apiErr).
		Get("/v1/subscriptions/" + subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("billing provider request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("billing provider error (%d): %s", resp.StatusCode(), apiErr.Error)
	}
	return result.toDomain(), nil
}
