package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
)

func newTestSubscription(t *testing.T) *Subscription {
	t.Helper()
	sub, err := New(shared.NewID(), tenant.PlanStarter, "cus_123", "sub_456")
	require.NoError(t, err)
	return sub
}

func TestNew(t *testing.T) {
	t.Run("starts in trialing state", func(t *testing.T) {
		sub := newTestSubscription(t)

		assert.Equal(t, StatusTrialing, sub.Status())
		assert.Equal(t, tenant.PlanStarter, sub.Plan())
		assert.Equal(t, "cus_123", sub.ProviderCustomerID())
		assert.Equal(t, "sub_456", sub.ProviderSubscriptionID())
		assert.False(t, sub.CancelAtPeriodEnd())
		assert.True(t, sub.IsActive())
	})

	t.Run("rejects free plan", func(t *testing.T) {
		_, err := New(shared.NewID(), tenant.PlanFree, "cus_123", "sub_456")

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects zero tenant ID", func(t *testing.T) {
		_, err := New(shared.ID{}, tenant.PlanStarter, "cus_123", "sub_456")

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects missing provider identifiers", func(t *testing.T) {
		_, err := New(shared.NewID(), tenant.PlanStarter, "", "sub_456")
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = New(shared.NewID(), tenant.PlanStarter, "cus_123", "")
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusTrialing, StatusActive, true},
		{StatusTrialing, StatusCanceled, true},
		{StatusTrialing, StatusPastDue, false},
		{StatusActive, StatusPastDue, true},
		{StatusActive, StatusCanceling, true},
		{StatusActive, StatusCanceled, true},
		{StatusActive, StatusTrialing, false},
		{StatusPastDue, StatusActive, true},
		{StatusPastDue, StatusCanceled, true},
		{StatusPastDue, StatusCanceling, false},
		{StatusCanceling, StatusActive, true},
		{StatusCanceling, StatusCanceled, true},
		{StatusCanceled, StatusActive, false},
		{StatusCanceled, StatusTrialing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSubscription_Activate(t *testing.T) {
	periodStart := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	t.Run("from trialing records billing period", func(t *testing.T) {
		sub := newTestSubscription(t)

		err := sub.Activate(periodStart, periodEnd)

		require.NoError(t, err)
		assert.Equal(t, StatusActive, sub.Status())
		assert.Equal(t, periodStart, sub.CurrentPeriodStart())
		assert.Equal(t, periodEnd, sub.CurrentPeriodEnd())
	})

	t.Run("already active updates period without transition error", func(t *testing.T) {
		sub := newTestSubscription(t)
		require.NoError(t, sub.Activate(periodStart, periodEnd))

		nextEnd := periodEnd.AddDate(0, 1, 0)
		err := sub.Activate(periodEnd, nextEnd)

		require.NoError(t, err)
		assert.Equal(t, StatusActive, sub.Status())
		assert.Equal(t, nextEnd, sub.CurrentPeriodEnd())
	})

	t.Run("recovers from past due", func(t *testing.T) {
		sub := newTestSubscription(t)
		require.NoError(t, sub.Activate(periodStart, periodEnd))
		require.NoError(t, sub.MarkPastDue())

		err := sub.Activate(periodEnd, periodEnd.AddDate(0, 1, 0))

		require.NoError(t, err)
		assert.Equal(t, StatusActive, sub.Status())
	})

	t.Run("clears scheduled cancellation", func(t *testing.T) {
		sub := newTestSubscription(t)
		require.NoError(t, sub.Activate(periodStart, periodEnd))
		require.NoError(t, sub.ScheduleCancellation())
		require.True(t, sub.CancelAtPeriodEnd())

		err := sub.Activate(periodEnd, periodEnd.AddDate(0, 1, 0))

		require.NoError(t, err)
		assert.False(t, sub.CancelAtPeriodEnd())
	})

	t.Run("fails after cancellation", func(t *testing.T) {
		sub := newTestSubscription(t)
		require.NoError(t, sub.Cancel())

		err := sub.Activate(periodStart, periodEnd)

		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestSubscription_Cancellation(t *testing.T) {
	periodStart := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	t.Run("schedule requires active status", func(t *testing.T) {
		sub := newTestSubscription(t)

		err := sub.ScheduleCancellation()

		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("schedule sets cancel at period end", func(t *testing.T) {
		sub := newTestSubscription(t)
		require.NoError(t, sub.Activate(periodStart, periodEnd))

		err := sub.ScheduleCancellation()

		require.NoError(t, err)
		assert.Equal(t, StatusCanceling, sub.Status())
		assert.True(t, sub.CancelAtPeriodEnd())
		assert.True(t, sub.IsActive(), "canceling subscription remains entitled until period end")
	})

	t.Run("resume reverts scheduled cancellation", func(t *testing.T) {
		sub := newTestSubscription(t)
		require.NoError(t, sub.Activate(periodStart, periodEnd))
		require.NoError(t, sub.ScheduleCancellation())

		err := sub.ResumeCancellation()

		require.NoError(t, err)
		assert.Equal(t, StatusActive, sub.Status())
		assert.False(t, sub.CancelAtPeriodEnd())
	})

	t.Run("resume fails when nothing scheduled", func(t *testing.T) {
		sub := newTestSubscription(t)
		require.NoError(t, sub.Activate(periodStart, periodEnd))

		err := sub.ResumeCancellation()

		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("cancel is terminal", func(t *testing.T) {
		sub := newTestSubscription(t)
		require.NoError(t, sub.Cancel())

		assert.Equal(t, StatusCanceled, sub.Status())
		assert.False(t, sub.IsActive())
		assert.ErrorIs(t, sub.Cancel(), ErrInvalidTransition)
		assert.ErrorIs(t, sub.MarkPastDue(), ErrInvalidTransition)
	})
}

func TestSubscription_ChangePlan(t *testing.T) {
	t.Run("switches between paid plans", func(t *testing.T) {
		sub := newTestSubscription(t)

		err := sub.ChangePlan(tenant.PlanProfessional)

		require.NoError(t, err)
		assert.Equal(t, tenant.PlanProfessional, sub.Plan())
	})

	t.Run("rejects free plan", func(t *testing.T) {
		sub := newTestSubscription(t)

		err := sub.ChangePlan(tenant.PlanFree)

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects change on canceled subscription", func(t *testing.T) {
		sub := newTestSubscription(t)
		require.NoError(t, sub.Cancel())

		err := sub.ChangePlan(tenant.PlanEnterprise)

		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestEventType_IsValid(t *testing.T) {
	valid := []EventType{
		EventCheckoutCompleted,
		EventPaymentSucceeded,
		EventPaymentFailed,
		EventSubscriptionUpdated,
		EventSubscriptionCanceled,
	}
	for _, et := range valid {
		assert.True(t, et.IsValid(), string(et))
	}

	assert.False(t, EventType("invoice.created").IsValid())
	assert.False(t, EventType("").IsValid())
}
