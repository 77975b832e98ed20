package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/internal/config"
	"github.com/northstarhq/api/pkg/domain/billing"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
)

// fakeBillingRepo is an in-memory billing.Repository.
type fakeBillingRepo struct {
	subs   map[string]*billing.Subscription // keyed by provider subscription ID
	events map[string]bool

	updateErr error // injected Update failure
}

func newFakeBillingRepo() *fakeBillingRepo {
	return &fakeBillingRepo{
		subs:   make(map[string]*billing.Subscription),
		events: make(map[string]bool),
	}
}

func (f *fakeBillingRepo) Create(_ context.Context, s *billing.Subscription) error {
	f.subs[s.ProviderSubscriptionID()] = s
	return nil
}

func (f *fakeBillingRepo) GetByTenant(_ context.Context, tenantID shared.ID) (*billing.Subscription, error) {
	for _, s := range f.subs {
		if s.TenantID() == tenantID {
			return s, nil
		}
	}
	return nil, billing.ErrNoSubscription
}

func (f *fakeBillingRepo) GetByProviderSubscriptionID(_ context.Context, providerSubID string) (*billing.Subscription, error) {
	if s, ok := f.subs[providerSubID]; ok {
		return s, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeBillingRepo) Update(_ context.Context, s *billing.Subscription) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.subs[s.ProviderSubscriptionID()] = s
	return nil
}

func (f *fakeBillingRepo) RecordEvent(_ context.Context, eventID string, _ billing.EventType, _ time.Time) error {
	if f.events[eventID] {
		return billing.ErrDuplicateEvent
	}
	f.events[eventID] = true
	return nil
}

func (f *fakeBillingRepo) DeleteEvent(_ context.Context, eventID string) error {
	delete(f.events, eventID)
	return nil
}

func (f *fakeBillingRepo) ListExpiring(_ context.Context, cutoff time.Time) ([]*billing.Subscription, error) {
	var out []*billing.Subscription
	for _, s := range f.subs {
		if s.Status() == billing.StatusCanceling && s.CurrentPeriodEnd().Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

// stubTenantRepo implements the subset of tenant.Repository the billing
// service touches; everything else panics via the embedded nil.
type stubTenantRepo struct {
	tenant.Repository

	tenants map[shared.ID]*tenant.Tenant
}

func newStubTenantRepo(tenants ...*tenant.Tenant) *stubTenantRepo {
	s := &stubTenantRepo{tenants: make(map[shared.ID]*tenant.Tenant)}
	for _, t := range tenants {
		s.tenants[t.ID()] = t
	}
	return s
}

func (s *stubTenantRepo) GetByID(_ context.Context, id shared.ID) (*tenant.Tenant, error) {
	if t, ok := s.tenants[id]; ok {
		return t, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubTenantRepo) Update(_ context.Context, t *tenant.Tenant) error {
	s.tenants[t.ID()] = t
	return nil
}

func (s *stubTenantRepo) ListActiveTenantIDs(_ context.Context) ([]shared.ID, error) {
	ids := make([]shared.ID, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *stubTenantRepo) ListMembersWithUserInfo(_ context.Context, _ shared.ID) ([]*tenant.MemberWithUser, error) {
	return nil, nil
}

type billingFixture struct {
	svc        *BillingService
	repo       *fakeBillingRepo
	tenantRepo *stubTenantRepo
	tenant     *tenant.Tenant
	sub        *billing.Subscription
}

func newBillingFixture(t *testing.T, cfg config.BillingConfig) *billingFixture {
	t.Helper()

	ws, err := tenant.New("Acme Corp", shared.NewID())
	require.NoError(t, err)

	sub, err := billing.New(ws.ID(), tenant.PlanStarter, "cus_1", "sub_1")
	require.NoError(t, err)

	repo := newFakeBillingRepo()
	require.NoError(t, repo.Create(context.Background(), sub))
	tenantRepo := newStubTenantRepo(ws)

	svc := NewBillingService(repo, tenantRepo, nil, nil, cfg, logger.NewNop())
	return &billingFixture{svc: svc, repo: repo, tenantRepo: tenantRepo, tenant: ws, sub: sub}
}

func paymentSucceededEvent(id string) billing.WebhookEvent {
	start := time.Now().UTC().Truncate(time.Second)
	return billing.WebhookEvent{
		ID:            id,
		Type:          billing.EventPaymentSucceeded,
		ProviderSubID: "sub_1",
		Plan:          "starter",
		PeriodStart:   start,
		PeriodEnd:     start.AddDate(0, 1, 0),
		OccurredAt:    start,
	}
}

func TestBillingService_HandleWebhookEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("payment succeeded activates subscription and tenant", func(t *testing.T) {
		f := newBillingFixture(t, config.BillingConfig{})

		err := f.svc.HandleWebhookEvent(ctx, paymentSucceededEvent("evt_1"))

		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, f.sub.Status())
		assert.Equal(t, tenant.PlanStarter, f.tenant.Plan())
		assert.Equal(t, tenant.StatusActive, f.tenant.Status())
	})

	t.Run("duplicate event ID is ignored", func(t *testing.T) {
		f := newBillingFixture(t, config.BillingConfig{})
		require.NoError(t, f.svc.HandleWebhookEvent(ctx, paymentSucceededEvent("evt_1")))

		// Replay a payment-failed event under the same ID; the state
		// must not move.
		replay := paymentSucceededEvent("evt_1")
		replay.Type = billing.EventPaymentFailed
		err := f.svc.HandleWebhookEvent(ctx, replay)

		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, f.sub.Status())
	})

	t.Run("unknown event type is ignored without recording", func(t *testing.T) {
		f := newBillingFixture(t, config.BillingConfig{})

		evt := paymentSucceededEvent("evt_x")
		evt.Type = billing.EventType("invoice.finalized")
		err := f.svc.HandleWebhookEvent(ctx, evt)

		require.NoError(t, err)
		assert.False(t, f.repo.events["evt_x"])
		assert.Equal(t, billing.StatusTrialing, f.sub.Status())
	})

	t.Run("payment failed marks past due", func(t *testing.T) {
		f := newBillingFixture(t, config.BillingConfig{})
		require.NoError(t, f.svc.HandleWebhookEvent(ctx, paymentSucceededEvent("evt_1")))

		evt := paymentSucceededEvent("evt_2")
		evt.Type = billing.EventPaymentFailed
		err := f.svc.HandleWebhookEvent(ctx, evt)

		require.NoError(t, err)
		assert.Equal(t, billing.StatusPastDue, f.sub.Status())
		assert.Equal(t, tenant.StatusPastDue, f.tenant.Status())
	})

	t.Run("subscription updated schedules and resumes cancellation", func(t *testing.T) {
		f := newBillingFixture(t, config.BillingConfig{})
		require.NoError(t, f.svc.HandleWebhookEvent(ctx, paymentSucceededEvent("evt_1")))

		evt := paymentSucceededEvent("evt_2")
		evt.Type = billing.EventSubscriptionUpdated
		evt.CancelAtPeriodEnd = true
		require.NoError(t, f.svc.HandleWebhookEvent(ctx, evt))
		assert.Equal(t, billing.StatusCanceling, f.sub.Status())

		evt = paymentSucceededEvent("evt_3")
		evt.Type = billing.EventSubscriptionUpdated
		evt.CancelAtPeriodEnd = false
		require.NoError(t, f.svc.HandleWebhookEvent(ctx, evt))
		assert.Equal(t, billing.StatusActive, f.sub.Status())
	})

	t.Run("subscription canceled drops tenant to free", func(t *testing.T) {
		f := newBillingFixture(t, config.BillingConfig{})
		require.NoError(t, f.svc.HandleWebhookEvent(ctx, paymentSucceededEvent("evt_1")))

		evt := paymentSucceededEvent("evt_2")
		evt.Type = billing.EventSubscriptionCanceled
		err := f.svc.HandleWebhookEvent(ctx, evt)

		require.NoError(t, err)
		assert.Equal(t, billing.StatusCanceled, f.sub.Status())
		assert.Equal(t, tenant.PlanFree, f.tenant.Plan())
		assert.Equal(t, tenant.StatusCancelled, f.tenant.Status())
	})

	t.Run("failed apply admits the provider's retry", func(t *testing.T) {
		f := newBillingFixture(t, config.BillingConfig{})
		f.repo.updateErr = errors.New("connection reset")

		err := f.svc.HandleWebhookEvent(ctx, paymentSucceededEvent("evt_1"))
		require.Error(t, err)
		assert.False(t, f.repo.events["evt_1"], "failed event must not stay recorded")

		// The provider redelivers under the same ID once storage is back.
		f.repo.updateErr = nil
		require.NoError(t, f.svc.HandleWebhookEvent(ctx, paymentSucceededEvent("evt_1")))
		assert.Equal(t, billing.StatusActive, f.sub.Status())
		assert.True(t, f.repo.events["evt_1"])
	})

	t.Run("event for unknown subscription is a no-op", func(t *testing.T) {
		f := newBillingFixture(t, config.BillingConfig{})

		evt := paymentSucceededEvent("evt_1")
		evt.ProviderSubID = "sub_unknown"
		err := f.svc.HandleWebhookEvent(ctx, evt)

		require.NoError(t, err)
		assert.Equal(t, billing.StatusTrialing, f.sub.Status())
	})
}

func TestBillingService_SweepExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("finalizes lapsed cancellations", func(t *testing.T) {
		f := newBillingFixture(t, config.BillingConfig{})

		// Activate into a period that already ended, then schedule
		// cancellation.
		past := time.Now().UTC().Add(-48 * time.Hour)
		require.NoError(t, f.sub.Activate(past.Add(-30*24*time.Hour), past))
		require.NoError(t, f.sub.ScheduleCancellation())

		n, err := f.svc.SweepExpired(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, billing.StatusCanceled, f.sub.Status())
		assert.Equal(t, tenant.PlanFree, f.tenant.Plan())
		assert.Equal(t, tenant.StatusCancelled, f.tenant.Status())
	})

	t.Run("leaves current cancellations alone", func(t *testing.T) {
		f := newBillingFixture(t, config.BillingConfig{})

		now := time.Now().UTC()
		require.NoError(t, f.sub.Activate(now, now.AddDate(0, 1, 0)))
		require.NoError(t, f.sub.ScheduleCancellation())

		n, err := f.svc.SweepExpired(ctx)

		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, billing.StatusCanceling, f.sub.Status())
	})

	t.Run("expires trials without a subscription", func(t *testing.T) {
		ws, err := tenant.New("Globex", shared.NewID())
		require.NoError(t, err)

		repo := newFakeBillingRepo()
		tenantRepo := newStubTenantRepo(ws)
		svc := NewBillingService(repo, tenantRepo, nil, nil,
			config.BillingConfig{TrialDuration: time.Nanosecond}, logger.NewNop())

		n, err := svc.SweepExpired(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, tenant.StatusPastDue, ws.Status())
	})

	t.Run("trial sweep disabled without trial duration", func(t *testing.T) {
		ws, err := tenant.New("Globex", shared.NewID())
		require.NoError(t, err)

		svc := NewBillingService(newFakeBillingRepo(), newStubTenantRepo(ws), nil, nil,
			config.BillingConfig{}, logger.NewNop())

		n, err := svc.SweepExpired(ctx)

		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, tenant.StatusTrial, ws.Status())
	})
}
