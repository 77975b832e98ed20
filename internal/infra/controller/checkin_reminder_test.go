package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/pkg/domain/cadence"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
)

// stubTenantRepo implements the reads the reminder controller needs;
// everything else panics via the embedded nil.
type stubTenantRepo struct {
	tenant.Repository

	tenants map[shared.ID]*tenant.Tenant
	members map[shared.ID][]*tenant.MemberWithUser
}

func (s *stubTenantRepo) ListActiveTenantIDs(_ context.Context) ([]shared.ID, error) {
	ids := make([]shared.ID, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *stubTenantRepo) GetByID(_ context.Context, id shared.ID) (*tenant.Tenant, error) {
	if t, ok := s.tenants[id]; ok {
		return t, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubTenantRepo) ListMembersWithUserInfo(_ context.Context, id shared.ID) ([]*tenant.MemberWithUser, error) {
	return s.members[id], nil
}

type stubCadenceRepo struct {
	cadence.Repository

	cadences map[shared.ID][]*cadence.Cadence
}

func (s *stubCadenceRepo) ListByTenant(_ context.Context, tenantID shared.ID) ([]*cadence.Cadence, error) {
	return s.cadences[tenantID], nil
}

type recordingEnqueuer struct {
	reminders []app.CheckInReminderJobPayload
	err       error
}

func (r *recordingEnqueuer) EnqueueWelcomeEmail(context.Context, app.WelcomeEmailJobPayload) error {
	return nil
}

func (r *recordingEnqueuer) EnqueueInvitationEmail(context.Context, app.InvitationEmailJobPayload) error {
	return nil
}

func (r *recordingEnqueuer) EnqueuePaymentFailedEmail(context.Context, app.PaymentFailedEmailJobPayload) error {
	return nil
}

func (r *recordingEnqueuer) EnqueueCheckInReminder(_ context.Context, p app.CheckInReminderJobPayload) error {
	if r.err != nil {
		return r.err
	}
	r.reminders = append(r.reminders, p)
	return nil
}

type reminderFixture struct {
	ctrl     *CheckInReminderController
	enqueuer *recordingEnqueuer
	tenant   *tenant.Tenant
}

// newReminderFixture wires a workspace with the given members and one
// cadence on an hourly schedule.
func newReminderFixture(t *testing.T, memberEmails ...string) *reminderFixture {
	t.Helper()

	ws, err := tenant.New("Acme Corp", shared.NewID())
	require.NoError(t, err)

	cad, err := cadence.New(ws.ID(), "Weekly", "@every 1h")
	require.NoError(t, err)

	members := make([]*tenant.MemberWithUser, 0, len(memberEmails))
	for _, email := range memberEmails {
		members = append(members, &tenant.MemberWithUser{
			UserID: shared.NewID(),
			Role:   tenant.RoleMember,
			Email:  email,
			Name:   email,
		})
	}

	enqueuer := &recordingEnqueuer{}
	ctrl := NewCheckInReminderController(
		&stubTenantRepo{
			tenants: map[shared.ID]*tenant.Tenant{ws.ID(): ws},
			members: map[shared.ID][]*tenant.MemberWithUser{ws.ID(): members},
		},
		&stubCadenceRepo{cadences: map[shared.ID][]*cadence.Cadence{ws.ID(): {cad}}},
		enqueuer,
		nil,
	)
	return &reminderFixture{ctrl: ctrl, enqueuer: enqueuer, tenant: ws}
}

func TestCheckInReminderController_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		f := newReminderFixture(t)

		assert.Equal(t, "checkin-reminder", f.ctrl.Name())
		assert.Equal(t, time.Minute, f.ctrl.Interval())
	})

	t.Run("schedule due in window sends one email per member", func(t *testing.T) {
		f := newReminderFixture(t, "alice@acme.test", "bob@acme.test")
		f.ctrl.lastRun = time.Now().UTC().Add(-2 * time.Hour)

		n, err := f.ctrl.Reconcile(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.Len(t, f.enqueuer.reminders, 2)
		assert.Equal(t, "alice@acme.test", f.enqueuer.reminders[0].Email)
		assert.Equal(t, "Weekly", f.enqueuer.reminders[0].CadenceName)
		assert.Equal(t, f.tenant.Slug(), f.enqueuer.reminders[0].WorkspaceSlug)
	})

	t.Run("schedule not yet due sends nothing", func(t *testing.T) {
		f := newReminderFixture(t, "alice@acme.test")
		f.ctrl.lastRun = time.Now().UTC().Add(-30 * time.Second)

		n, err := f.ctrl.Reconcile(ctx)

		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, f.enqueuer.reminders)
	})

	t.Run("missed occurrences collapse into one reminder", func(t *testing.T) {
		// Controller down for a day on an hourly schedule: one
		// reminder per member, not 24.
		f := newReminderFixture(t, "alice@acme.test")
		f.ctrl.lastRun = time.Now().UTC().Add(-24 * time.Hour)

		n, err := f.ctrl.Reconcile(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("watermark advances so reminders do not repeat", func(t *testing.T) {
		f := newReminderFixture(t, "alice@acme.test")
		f.ctrl.lastRun = time.Now().UTC().Add(-2 * time.Hour)

		_, err := f.ctrl.Reconcile(ctx)
		require.NoError(t, err)

		n, err := f.ctrl.Reconcile(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("enqueue failures are skipped not fatal", func(t *testing.T) {
		f := newReminderFixture(t, "alice@acme.test")
		f.ctrl.lastRun = time.Now().UTC().Add(-2 * time.Hour)
		f.enqueuer.err = errors.New("queue down")

		n, err := f.ctrl.Reconcile(ctx)

		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
