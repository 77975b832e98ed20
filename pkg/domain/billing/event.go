package billing

import "time"

// EventType identifies a provider webhook event.
type EventType string

const (
	// EventCheckoutCompleted signals a completed checkout session.
	EventCheckoutCompleted EventType = "checkout.completed"
	// EventPaymentSucceeded signals a successful renewal payment.
	EventPaymentSucceeded EventType = "payment.succeeded"
	// EventPaymentFailed signals a failed renewal payment.
	EventPaymentFailed EventType = "payment.failed"
	// EventSubscriptionUpdated signals a plan or schedule change.
	EventSubscriptionUpdated EventType = "subscription.updated"
	// EventSubscriptionCanceled signals subscription termination.
	EventSubscriptionCanceled EventType = "subscription.canceled"
)

// IsValid checks if the event type is one we handle.
func (t EventType) IsValid() bool {
	switch t {
	case EventCheckoutCompleted, EventPaymentSucceeded, EventPaymentFailed,
		EventSubscriptionUpdated, EventSubscriptionCanceled:
		return true
	}
	return false
}

// WebhookEvent is a verified provider event after signature checking
// and payload decoding.
type WebhookEvent struct {
	ID                 string    `json:"id"`
	Type               EventType `json:"type"`
	ProviderCustomerID string    `json:"customer_id"`
	ProviderSubID      string    `json:"subscription_id"`
	Plan               string    `json:"plan,omitempty"`
	PeriodStart        time.Time `json:"period_start,omitempty"`
	PeriodEnd          time.Time `json:"period_end,omitempty"`
	CancelAtPeriodEnd  bool      `json:"cancel_at_period_end,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}
