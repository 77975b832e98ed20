package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/api/internal/config"
	"github.com/northstarhq/api/internal/metrics"
	"github.com/northstarhq/api/pkg/domain/billing"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/domain/user"
	"github.com/northstarhq/api/pkg/logger"
)

// BillingService errors.
var (
	ErrBillingNotConfigured = errors.New("billing provider not configured")
	ErrSubscriptionExists   = fmt.Errorf("%w: tenant already has a subscription", shared.ErrConflict)
)

// BillingService bridges workspaces to the hosted billing provider.
// Subscription status only ever changes through verified webhook events
// and the period-end sweep; REST handlers cannot write status directly.
type BillingService struct {
	repo          billing.Repository
	tenantRepo    tenant.Repository
	userRepo      user.Repository
	provider      billing.Provider
	emailEnqueuer EmailJobEnqueuer
	resyncer      BillingJobEnqueuer
	config        config.BillingConfig
	logger        *logger.Logger
}

// BillingServiceOption configures optional BillingService collaborators.
type BillingServiceOption func(*BillingService)

// WithBillingEmailEnqueuer wires payment-failure notices.
func WithBillingEmailEnqueuer(e EmailJobEnqueuer) BillingServiceOption {
	return func(s *BillingService) { s.emailEnqueuer = e }
}

// WithBillingResyncer wires the retry path for transiently failed
// webhook applies.
func WithBillingResyncer(r BillingJobEnqueuer) BillingServiceOption {
	return func(s *BillingService) { s.resyncer = r }
}

// NewBillingService creates a new BillingService. provider may be nil
// when billing is disabled; mutating operations then fail cleanly.
func NewBillingService(
	repo billing.Repository,
	tenantRepo tenant.Repository,
	userRepo user.Repository,
	provider billing.Provider,
	cfg config.BillingConfig,
	log *logger.Logger,
	opts ...BillingServiceOption,
) *BillingService {
	s := &BillingService{
		repo:       repo,
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		provider:   provider,
		config:     cfg,
		logger:     log.With("service", "billing"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetSubscription returns the tenant's subscription, or
// billing.ErrNoSubscription when the tenant never subscribed.
func (s *BillingService) GetSubscription(ctx context.Context, tenantID shared.ID) (*billing.Subscription, error) {
	sub, err := s.repo.GetByTenant(ctx, tenantID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, billing.ErrNoSubscription
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// CreateSubscriptionInput represents the input for starting a
// subscription.
type CreateSubscriptionInput struct {
	Plan string `json:"plan" validate:"required,oneof=starter professional enterprise"`
}

// CreateSubscriptionResult carries the new subscription and the
// provider checkout URL the client must complete payment at.
type CreateSubscriptionResult struct {
	Subscription *billing.Subscription
	CheckoutURL  string
}

// CreateSubscription starts a paid subscription for the tenant. The
// subscription stays trialing until the provider confirms payment via
// webhook.
func (s *BillingService) CreateSubscription(ctx context.Context, tenantID shared.ID, input CreateSubscriptionInput, actor *user.User) (*CreateSubscriptionResult, error) {
	if s.provider == nil || !s.config.IsConfigured() {
		return nil, ErrBillingNotConfigured
	}

	plan, ok := tenant.ParsePlan(input.Plan)
	if !ok || plan == tenant.PlanFree {
		return nil, fmt.Errorf("%w: invalid plan", shared.ErrValidation)
	}

	if _, err := s.repo.GetByTenant(ctx, tenantID); err == nil {
		return nil, ErrSubscriptionExists
	} else if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check subscription: %w", err)
	}

	customer, err := s.provider.CreateCustomer(ctx, tenantID.String(), actor.Email(), actor.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to create provider customer: %w", err)
	}
	providerSub, err := s.provider.CreateSubscription(ctx, customer.ID, plan.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create provider subscription: %w", err)
	}

	sub, err := billing.New(tenantID, plan, customer.ID, providerSub.ID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}

	s.logger.Info("subscription created",
		"tenant_id", tenantID.String(),
		"plan", plan.String(),
		"provider_subscription_id", providerSub.ID,
	)
	return &CreateSubscriptionResult{
		Subscription: sub,
		CheckoutURL:  providerSub.CheckoutURL,
	}, nil
}

// ScheduleCancellation schedules the subscription to end at period end.
// Access continues until the sweep finalizes the cancellation.
func (s *BillingService) ScheduleCancellation(ctx context.Context, tenantID shared.ID) (*billing.Subscription, error) {
	if s.provider == nil || !s.config.IsConfigured() {
		return nil, ErrBillingNotConfigured
	}

	sub, err := s.GetSubscription(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	from := sub.Status()
	if err := sub.ScheduleCancellation(); err != nil {
		return nil, err
	}
	if err := s.provider.CancelSubscription(ctx, sub.ProviderSubscriptionID(), true); err != nil {
		return nil, fmt.Errorf("failed to cancel provider subscription: %w", err)
	}
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	metrics.SubscriptionTransitionsTotal.WithLabelValues(string(from), string(sub.Status())).Inc()
	s.logger.Info("subscription cancellation scheduled",
		"tenant_id", tenantID.String(),
		"period_end", sub.CurrentPeriodEnd(),
	)
	return sub, nil
}

// HandleWebhookEvent applies a verified provider event to local state.
// Events are deduplicated by ID: replays return nil without reapplying.
// A failed apply releases the dedupe record so the provider's retry is
// processed rather than swallowed.
func (s *BillingService) HandleWebhookEvent(ctx context.Context, event billing.WebhookEvent) error {
	if !event.Type.IsValid() {
		metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "ignored").Inc()
		s.logger.Warn("ignoring unknown webhook event type", "type", string(event.Type))
		return nil
	}

	if err := s.repo.RecordEvent(ctx, event.ID, event.Type, time.Now().UTC()); err != nil {
		if errors.Is(err, billing.ErrDuplicateEvent) {
			metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "duplicate").Inc()
			s.logger.Debug("duplicate webhook event", "event_id", event.ID)
			return nil
		}
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	if err := s.applyEvent(ctx, event); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "error").Inc()
		// Release the dedupe record so the provider's retry gets
		// reprocessed instead of short-circuiting as a duplicate. The
		// resync job covers the case where the release itself fails.
		if delErr := s.repo.DeleteEvent(ctx, event.ID); delErr != nil {
			s.logger.Error("failed to release webhook event record",
				"event_id", event.ID,
				"error", delErr,
			)
		}
		s.enqueueResync(ctx, event)
		return err
	}

	metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "ok").Inc()
	return nil
}

func (s *BillingService) applyEvent(ctx context.Context, event billing.WebhookEvent) error {
	sub, err := s.repo.GetByProviderSubscriptionID(ctx, event.ProviderSubID)
	if err != nil {
		if shared.IsNotFound(err) {
			s.logger.Warn("webhook for unknown subscription",
				"event_id", event.ID,
				"provider_subscription_id", event.ProviderSubID,
			)
			return nil
		}
		return fmt.Errorf("failed to get subscription: %w", err)
	}

	from := sub.Status()

	switch event.Type {
	case billing.EventCheckoutCompleted, billing.EventPaymentSucceeded:
		if err := sub.Activate(event.PeriodStart, event.PeriodEnd); err != nil {
			return err
		}
		if event.Plan != "" {
			if plan, ok := tenant.ParsePlan(event.Plan); ok && plan != sub.Plan() {
				if err := sub.ChangePlan(plan); err != nil {
					return err
				}
			}
		}
		if err := s.syncTenant(ctx, sub, tenant.StatusActive); err != nil {
			return err
		}

	case billing.EventPaymentFailed:
		if err := sub.MarkPastDue(); err != nil {
			return err
		}
		if err := s.syncTenant(ctx, sub, tenant.StatusPastDue); err != nil {
			return err
		}
		s.notifyPaymentFailed(ctx, sub.TenantID())

	case billing.EventSubscriptionUpdated:
		if event.Plan != "" {
			if plan, ok := tenant.ParsePlan(event.Plan); ok && plan != sub.Plan() {
				if err := sub.ChangePlan(plan); err != nil {
					return err
				}
			}
		}
		if event.CancelAtPeriodEnd && sub.Status() != billing.StatusCanceling {
			if err := sub.ScheduleCancellation(); err != nil {
				return err
			}
		}
		if !event.CancelAtPeriodEnd && sub.Status() == billing.StatusCanceling {
			if err := sub.ResumeCancellation(); err != nil {
				return err
			}
		}
		if err := s.syncTenant(ctx, sub, ""); err != nil {
			return err
		}

	case billing.EventSubscriptionCanceled:
		if err := sub.Cancel(); err != nil {
			return err
		}
		if err := s.syncTenant(ctx, sub, tenant.StatusCancelled); err != nil {
			return err
		}
	}

	if err := s.repo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	if from != sub.Status() {
		metrics.SubscriptionTransitionsTotal.WithLabelValues(string(from), string(sub.Status())).Inc()
	}
	s.logger.Info("webhook event applied",
		"event_id", event.ID,
		"type", string(event.Type),
		"tenant_id", sub.TenantID().String(),
		"from", string(from),
		"to", string(sub.Status()),
	)
	return nil
}

// Resync re-reads provider state for a tenant's subscription and
// reconciles local state. Retry path for failed webhook applies.
func (s *BillingService) Resync(ctx context.Context, tenantID shared.ID) error {
	if s.provider == nil {
		return ErrBillingNotConfigured
	}

	sub, err := s.GetSubscription(ctx, tenantID)
	if err != nil {
		return err
	}

	remote, err := s.provider.GetSubscription(ctx, sub.ProviderSubscriptionID())
	if err != nil {
		return fmt.Errorf("failed to read provider subscription: %w", err)
	}

	event := billing.WebhookEvent{
		ID:                fmt.Sprintf("resync-%s-%d", sub.ProviderSubscriptionID(), time.Now().UnixNano()),
		ProviderSubID:     remote.ID,
		Plan:              remote.Plan,
		PeriodStart:       remote.PeriodStart,
		PeriodEnd:         remote.PeriodEnd,
		CancelAtPeriodEnd: remote.CancelAtPeriodEnd,
		OccurredAt:        time.Now().UTC(),
	}
	switch remote.Status {
	case "active":
		event.Type = billing.EventPaymentSucceeded
	case "past_due":
		event.Type = billing.EventPaymentFailed
	case "canceled":
		event.Type = billing.EventSubscriptionCanceled
	default:
		event.Type = billing.EventSubscriptionUpdated
	}

	return s.applyEvent(ctx, event)
}

// SweepExpired finalizes scheduled cancellations whose period lapsed
// and moves expired trials to past due. Called by the controller.
// Returns the number of subscriptions and trials transitioned.
func (s *BillingService) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	subs, err := s.repo.ListExpiring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}
	processed := 0
	for _, sub := range subs {
		from := sub.Status()
		if err := sub.Cancel(); err != nil {
			s.logger.Error("failed to finalize cancellation",
				"tenant_id", sub.TenantID().String(),
				"error", err,
			)
			continue
		}
		if err := s.repo.Update(ctx, sub); err != nil {
			s.logger.Error("failed to persist finalized cancellation", "error", err)
			continue
		}
		if err := s.syncTenant(ctx, sub, tenant.StatusCancelled); err != nil {
			s.logger.Error("failed to sync tenant after cancellation", "error", err)
			continue
		}
		metrics.SubscriptionTransitionsTotal.WithLabelValues(string(from), string(sub.Status())).Inc()
		s.logger.Info("subscription cancellation finalized",
			"tenant_id", sub.TenantID().String(),
		)
		processed++
	}

	expired, err := s.sweepTrials(ctx, now)
	return processed + expired, err
}

// sweepTrials moves workspaces whose trial lapsed without a
// subscription to past due.
func (s *BillingService) sweepTrials(ctx context.Context, now time.Time) (int, error) {
	if s.config.TrialDuration <= 0 {
		return 0, nil
	}

	ids, err := s.tenantRepo.ListActiveTenantIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tenants: %w", err)
	}
	expired := 0

	for _, id := range ids {
		t, err := s.tenantRepo.GetByID(ctx, id)
		if err != nil {
			s.logger.Error("failed to load tenant during trial sweep", "error", err)
			continue
		}
		if t.Status() != tenant.StatusTrial {
			continue
		}
		if now.Sub(t.CreatedAt()) < s.config.TrialDuration {
			continue
		}
		if _, err := s.repo.GetByTenant(ctx, id); err == nil {
			// Has a subscription; webhooks own its lifecycle.
			continue
		} else if !shared.IsNotFound(err) {
			s.logger.Error("failed to check subscription during trial sweep", "error", err)
			continue
		}

		if err := t.TransitionStatus(tenant.StatusPastDue); err != nil {
			s.logger.Error("failed to expire trial", "error", err)
			continue
		}
		if err := s.tenantRepo.Update(ctx, t); err != nil {
			s.logger.Error("failed to persist expired trial", "error", err)
			continue
		}
		s.logger.Info("trial expired", "tenant_id", id.String(), "slug", t.Slug())
		expired++
	}
	return expired, nil
}

// syncTenant mirrors subscription plan and, when status is non-empty,
// lifecycle status onto the tenant.
func (s *BillingService) syncTenant(ctx context.Context, sub *billing.Subscription, status tenant.Status) error {
	t, err := s.tenantRepo.GetByID(ctx, sub.TenantID())
	if err != nil {
		return fmt.Errorf("failed to get tenant: %w", err)
	}

	changed := false
	if t.Plan() != sub.Plan() && sub.Status() != billing.StatusCanceled {
		if err := t.ChangePlan(sub.Plan()); err != nil {
			return err
		}
		changed = true
	}
	if sub.Status() == billing.StatusCanceled && t.Plan() != tenant.PlanFree {
		if err := t.ChangePlan(tenant.PlanFree); err != nil {
			return err
		}
		changed = true
	}
	if status != "" && t.Status() != status {
		if err := t.TransitionStatus(status); err != nil {
			return err
		}
		changed = true
	}

	if !changed {
		return nil
	}
	if err := s.tenantRepo.Update(ctx, t); err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return nil
}

// notifyPaymentFailed emails every owner of the tenant.
func (s *BillingService) notifyPaymentFailed(ctx context.Context, tenantID shared.ID) {
	if s.emailEnqueuer == nil {
		return
	}

	t, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		s.logger.Error("failed to load tenant for payment notice", "error", err)
		return
	}
	members, err := s.tenantRepo.ListMembersWithUserInfo(ctx, tenantID)
	if err != nil {
		s.logger.Error("failed to list members for payment notice", "error", err)
		return
	}

	for _, m := range members {
		if m.Role != tenant.RoleOwner {
			continue
		}
		payload := PaymentFailedEmailJobPayload{
			Email:         m.Email,
			Name:          m.Name,
			WorkspaceName: t.Name(),
			WorkspaceSlug: t.Slug(),
		}
		if err := s.emailEnqueuer.EnqueuePaymentFailedEmail(ctx, payload); err != nil {
			s.logger.Error("failed to enqueue payment failed email",
				"email", m.Email,
				"error", err,
			)
		}
	}
}

func (s *BillingService) enqueueResync(ctx context.Context, event billing.WebhookEvent) {
	if s.resyncer == nil {
		return
	}

	sub, err := s.repo.GetByProviderSubscriptionID(ctx, event.ProviderSubID)
	if err != nil {
		return
	}
	if err := s.resyncer.EnqueueBillingResync(ctx, BillingResyncJobPayload{
		TenantID: sub.TenantID().String(),
	}); err != nil {
		s.logger.Error("failed to enqueue billing resync", "error", err)
	}
}
