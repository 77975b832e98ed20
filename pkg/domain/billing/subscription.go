// Package billing provides the subscription domain model. Subscription
// state is driven exclusively by verified provider webhook events;
// nothing in the API surface mutates it directly.
package billing

import (
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	// StatusTrialing is the initial state for paid plans.
	StatusTrialing Status = "trialing"
	// StatusActive means payment is current.
	StatusActive Status = "active"
	// StatusPastDue means a renewal payment failed.
	StatusPastDue Status = "past_due"
	// StatusCanceling means cancellation is scheduled for period end.
	StatusCanceling Status = "canceling"
	// StatusCanceled is terminal.
	StatusCanceled Status = "canceled"
)

// IsValid checks if the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCanceling, StatusCanceled:
		return true
	}
	return false
}

// validTransitions encodes the allowed state machine edges.
var validTransitions = map[Status][]Status{
	StatusTrialing:  {StatusActive, StatusCanceled},
	StatusActive:    {StatusPastDue, StatusCanceling, StatusCanceled},
	StatusPastDue:   {StatusActive, StatusCanceled},
	StatusCanceling: {StatusActive, StatusCanceled},
	StatusCanceled:  {},
}

// CanTransitionTo reports whether the edge from s to target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Subscription links a tenant to a billing provider subscription.
type Subscription struct {
	id                 shared.ID
	tenantID           shared.ID
	plan               tenant.Plan
	status             Status
	providerCustomerID string
	providerSubID      string
	currentPeriodStart time.Time
	currentPeriodEnd   time.Time
	cancelAtPeriodEnd  bool
	createdAt          time.Time
	updatedAt          time.Time
}

// New creates a Subscription in trialing state for a paid plan.
func New(tenantID shared.ID, plan tenant.Plan, providerCustomerID, providerSubID string) (*Subscription, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if !plan.IsValid() || plan == tenant.PlanFree {
		return nil, fmt.Errorf("%w: subscriptions require a paid plan", shared.ErrValidation)
	}
	if providerCustomerID == "" || providerSubID == "" {
		return nil, fmt.Errorf("%w: provider identifiers are required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Subscription{
		id:                 shared.NewID(),
		tenantID:           tenantID,
		plan:               plan,
		status:             StatusTrialing,
		providerCustomerID: providerCustomerID,
		providerSubID:      providerSubID,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// Reconstitute recreates a Subscription from persistence.
func Reconstitute(
	id, tenantID shared.ID,
	plan tenant.Plan,
	status Status,
	providerCustomerID, providerSubID string,
	periodStart, periodEnd time.Time,
	cancelAtPeriodEnd bool,
	createdAt, updatedAt time.Time,
) *Subscription {
	return &Subscription{
		id:                 id,
		tenantID:           tenantID,
		plan:               plan,
		status:             status,
		providerCustomerID: providerCustomerID,
		providerSubID:      providerSubID,
		currentPeriodStart: periodStart,
		currentPeriodEnd:   periodEnd,
		cancelAtPeriodEnd:  cancelAtPeriodEnd,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// ID returns the subscription ID.
func (s *Subscription) ID() shared.ID { return s.id }

// TenantID returns the subscribed tenant's ID.
func (s *Subscription) TenantID() shared.ID { return s.tenantID }

// Plan returns the subscribed plan.
func (s *Subscription) Plan() tenant.Plan { return s.plan }

// Status returns the current status.
func (s *Subscription) Status() Status { return s.status }

// ProviderCustomerID returns the provider-side customer identifier.
func (s *Subscription) ProviderCustomerID() string { return s.providerCustomerID }

// ProviderSubscriptionID returns the provider-side subscription identifier.
func (s *Subscription) ProviderSubscriptionID() string { return s.providerSubID }

// CurrentPeriodStart returns the current billing period start.
func (s *Subscription) CurrentPeriodStart() time.Time { return s.currentPeriodStart }

// CurrentPeriodEnd returns the current billing period end.
func (s *Subscription) CurrentPeriodEnd() time.Time { return s.currentPeriodEnd }

// CancelAtPeriodEnd reports whether cancellation is scheduled.
func (s *Subscription) CancelAtPeriodEnd() bool { return s.cancelAtPeriodEnd }

// CreatedAt returns the creation timestamp.
func (s *Subscription) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last update timestamp.
func (s *Subscription) UpdatedAt() time.Time { return s.updatedAt }

// IsActive reports whether the subscription currently entitles the
// tenant to its plan.
func (s *Subscription) IsActive() bool {
	switch s.status {
	case StatusTrialing, StatusActive, StatusCanceling:
		return true
	}
	return false
}

// transition applies a state machine edge.
func (s *Subscription) transition(target Status) error {
	if !s.status.CanTransitionTo(target) {
		return fmt.Errorf("%w: cannot transition subscription from %s to %s",
			ErrInvalidTransition, s.status, target)
	}
	s.status = target
	s.updatedAt = time.Now().UTC()
	return nil
}

// Activate moves the subscription to active and records the new
// billing period. Called on payment-succeeded events.
func (s *Subscription) Activate(periodStart, periodEnd time.Time) error {
	if s.status != StatusActive {
		if err := s.transition(StatusActive); err != nil {
			return err
		}
	}
	s.currentPeriodStart = periodStart
	s.currentPeriodEnd = periodEnd
	s.cancelAtPeriodEnd = false
	s.updatedAt = time.Now().UTC()
	return nil
}

// MarkPastDue records a failed renewal payment.
func (s *Subscription) MarkPastDue() error {
	return s.transition(StatusPastDue)
}

// ScheduleCancellation marks the subscription to end at period end.
func (s *Subscription) ScheduleCancellation() error {
	if err := s.transition(StatusCanceling); err != nil {
		return err
	}
	s.cancelAtPeriodEnd = true
	return nil
}

// ResumeCancellation reverts a scheduled cancellation.
func (s *Subscription) ResumeCancellation() error {
	if s.status != StatusCanceling {
		return fmt.Errorf("%w: subscription is not scheduled for cancellation", ErrInvalidTransition)
	}
	if err := s.transition(StatusActive); err != nil {
		return err
	}
	s.cancelAtPeriodEnd = false
	return nil
}

// Cancel terminates the subscription immediately. Terminal.
func (s *Subscription) Cancel() error {
	return s.transition(StatusCanceled)
}

// ChangePlan switches the subscription to another paid plan.
func (s *Subscription) ChangePlan(plan tenant.Plan) error {
	if !plan.IsValid() || plan == tenant.PlanFree {
		return fmt.Errorf("%w: subscriptions require a paid plan", shared.ErrValidation)
	}
	if s.status == StatusCanceled {
		return fmt.Errorf("%w: subscription is canceled", ErrInvalidTransition)
	}
	s.plan = plan
	s.updatedAt = time.Now().UTC()
	return nil
}
