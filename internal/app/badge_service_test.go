package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/pkg/domain/badge"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
)

// fakeBadgeRepo is an in-memory badge.Repository. Lookups are
// tenant-scoped the same way the postgres queries are.
type fakeBadgeRepo struct {
	badge.Repository

	badges map[shared.ID]*badge.Badge
	awards []*badge.Award
}

func newFakeBadgeRepo() *fakeBadgeRepo {
	return &fakeBadgeRepo{badges: make(map[shared.ID]*badge.Badge)}
}

func (f *fakeBadgeRepo) Create(_ context.Context, b *badge.Badge) error {
	f.badges[b.ID()] = b
	return nil
}

func (f *fakeBadgeRepo) GetByID(_ context.Context, tenantID, id shared.ID) (*badge.Badge, error) {
	if b, ok := f.badges[id]; ok && b.TenantID() == tenantID {
		return b, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeBadgeRepo) CreateAward(_ context.Context, a *badge.Award) error {
	f.awards = append(f.awards, a)
	return nil
}

func (f *fakeBadgeRepo) ListAwardsByRecipient(_ context.Context, tenantID, recipientID shared.ID) ([]*badge.Award, error) {
	var out []*badge.Award
	for _, a := range f.awards {
		if a.TenantID() == tenantID && a.RecipientID() == recipientID {
			out = append(out, a)
		}
	}
	return out, nil
}

type badgeFixture struct {
	svc     *BadgeService
	repo    *fakeBadgeRepo
	tenants *fakeTenantRepo
	tenant  *tenant.Tenant
	owner   shared.ID
}

// newBadgeFixture builds a professional-plan tenant so the badges
// feature is enabled unless a subtest downgrades it.
func newBadgeFixture(t *testing.T) *badgeFixture {
	t.Helper()

	ownerID := shared.NewID()
	ws, err := tenant.New("Acme Corp", ownerID)
	require.NoError(t, err)
	require.NoError(t, ws.ChangePlan(tenant.PlanProfessional))

	tenants := newFakeTenantRepo(ws)
	m, err := tenant.NewOwnerMembership(ownerID, ws.ID())
	require.NoError(t, err)
	require.NoError(t, tenants.CreateMembership(context.Background(), m))

	repo := newFakeBadgeRepo()
	svc := NewBadgeService(repo, tenants, logger.NewNop())

	return &badgeFixture{svc: svc, repo: repo, tenants: tenants, tenant: ws, owner: ownerID}
}

func (f *badgeFixture) addMember(t *testing.T) shared.ID {
	t.Helper()
	id := shared.NewID()
	m, err := tenant.NewMembership(id, f.tenant.ID(), tenant.RoleMember, nil)
	require.NoError(t, err)
	require.NoError(t, f.tenants.CreateMembership(context.Background(), m))
	return id
}

func TestBadgeService_CreateBadge(t *testing.T) {
	ctx := context.Background()

	t.Run("creates on a plan with badges", func(t *testing.T) {
		f := newBadgeFixture(t)

		b, err := f.svc.CreateBadge(ctx, f.tenant.ID(), CreateBadgeInput{
			Name: "Team Player",
			Icon: "handshake",
		}, f.owner)

		require.NoError(t, err)
		assert.Equal(t, "Team Player", b.Name())
		assert.Equal(t, f.tenant.ID(), b.TenantID())
	})

	t.Run("free plan has no badges", func(t *testing.T) {
		f := newBadgeFixture(t)
		require.NoError(t, f.tenant.ChangePlan(tenant.PlanFree))

		_, err := f.svc.CreateBadge(ctx, f.tenant.ID(), CreateBadgeInput{Name: "Team Player"}, f.owner)

		assert.ErrorIs(t, err, ErrBadgesNotInPlan)
		assert.ErrorIs(t, err, shared.ErrConflict)
	})
}

func TestBadgeService_AwardBadge(t *testing.T) {
	ctx := context.Background()

	award := func(t *testing.T, f *badgeFixture) *badge.Badge {
		t.Helper()
		b, err := f.svc.CreateBadge(ctx, f.tenant.ID(), CreateBadgeInput{Name: "Ship It"}, f.owner)
		require.NoError(t, err)
		return b
	}

	t.Run("member receives the award", func(t *testing.T) {
		f := newBadgeFixture(t)
		b := award(t, f)
		recipient := f.addMember(t)

		a, err := f.svc.AwardBadge(ctx, f.tenant.ID(), b.ID(), AwardBadgeInput{
			RecipientID: recipient.String(),
			Note:        "launch week",
		}, f.owner)

		require.NoError(t, err)
		assert.Equal(t, recipient, a.RecipientID())
		assert.Equal(t, f.owner, a.AwardedBy())

		got, err := f.svc.ListAwardsByRecipient(ctx, f.tenant.ID(), recipient)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("recipient outside the tenant is refused", func(t *testing.T) {
		f := newBadgeFixture(t)
		b := award(t, f)

		_, err := f.svc.AwardBadge(ctx, f.tenant.ID(), b.ID(), AwardBadgeInput{
			RecipientID: shared.NewID().String(),
		}, f.owner)

		assert.ErrorIs(t, err, tenant.ErrNotMember)
		assert.ErrorIs(t, err, shared.ErrForbidden)
		assert.Empty(t, f.repo.awards)
	})

	t.Run("badge of another tenant is not found", func(t *testing.T) {
		f := newBadgeFixture(t)
		b := award(t, f)
		recipient := f.addMember(t)

		_, err := f.svc.AwardBadge(ctx, shared.NewID(), b.ID(), AwardBadgeInput{
			RecipientID: recipient.String(),
		}, f.owner)

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("malformed recipient id", func(t *testing.T) {
		f := newBadgeFixture(t)
		b := award(t, f)

		_, err := f.svc.AwardBadge(ctx, f.tenant.ID(), b.ID(), AwardBadgeInput{
			RecipientID: "not-a-uuid",
		}, f.owner)

		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}
