package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/domain/user"
	"github.com/northstarhq/api/pkg/logger"
)

// fakeTenantRepo is an in-memory tenant.Repository covering the
// membership and invitation paths.
type fakeTenantRepo struct {
	tenant.Repository

	tenants     map[shared.ID]*tenant.Tenant
	memberships []*tenant.Membership
	invitations map[shared.ID]*tenant.Invitation
}

func newFakeTenantRepo(tenants ...*tenant.Tenant) *fakeTenantRepo {
	f := &fakeTenantRepo{
		tenants:     make(map[shared.ID]*tenant.Tenant),
		invitations: make(map[shared.ID]*tenant.Invitation),
	}
	for _, t := range tenants {
		f.tenants[t.ID()] = t
	}
	return f
}

func (f *fakeTenantRepo) GetByID(_ context.Context, id shared.ID) (*tenant.Tenant, error) {
	if t, ok := f.tenants[id]; ok {
		return t, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeTenantRepo) CreateMembership(_ context.Context, m *tenant.Membership) error {
	f.memberships = append(f.memberships, m)
	return nil
}

func (f *fakeTenantRepo) GetMembership(_ context.Context, userID, tenantID shared.ID) (*tenant.Membership, error) {
	for _, m := range f.memberships {
		if m.UserID() == userID && m.TenantID() == tenantID {
			return m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeTenantRepo) UpdateMembershipRole(_ context.Context, _ *tenant.Membership) error {
	return nil
}

func (f *fakeTenantRepo) CountMembersByTenant(_ context.Context, tenantID shared.ID) (int64, error) {
	var n int64
	for _, m := range f.memberships {
		if m.TenantID() == tenantID {
			n++
		}
	}
	return n, nil
}

func (f *fakeTenantRepo) CountOwnersByTenant(_ context.Context, tenantID shared.ID) (int64, error) {
	var n int64
	for _, m := range f.memberships {
		if m.TenantID() == tenantID && m.IsOwner() {
			n++
		}
	}
	return n, nil
}

func (f *fakeTenantRepo) RemoveMembershipTx(_ context.Context, userID, tenantID shared.ID) error {
	for i, m := range f.memberships {
		if m.UserID() == userID && m.TenantID() == tenantID {
			if m.IsOwner() {
				owners, _ := f.CountOwnersByTenant(context.Background(), tenantID)
				if owners <= 1 {
					return tenant.ErrLastOwner
				}
			}
			f.memberships = append(f.memberships[:i], f.memberships[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (f *fakeTenantRepo) SetDefaultMembershipTx(_ context.Context, userID, tenantID shared.ID) error {
	for _, m := range f.memberships {
		if m.UserID() != userID {
			continue
		}
		if m.TenantID() == tenantID {
			m.MarkDefault()
		} else {
			m.ClearDefault()
		}
	}
	return nil
}

func (f *fakeTenantRepo) CreateInvitation(_ context.Context, inv *tenant.Invitation) error {
	f.invitations[inv.ID()] = inv
	return nil
}

func (f *fakeTenantRepo) GetInvitationByToken(_ context.Context, token string) (*tenant.Invitation, error) {
	for _, inv := range f.invitations {
		if inv.Token() == token {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeTenantRepo) GetPendingInvitationByEmail(_ context.Context, tenantID shared.ID, email string) (*tenant.Invitation, error) {
	for _, inv := range f.invitations {
		if inv.TenantID() == tenantID && strings.EqualFold(inv.Email(), email) && !inv.IsAccepted() {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeTenantRepo) ListPendingInvitationsByTenant(_ context.Context, tenantID shared.ID) ([]*tenant.Invitation, error) {
	var out []*tenant.Invitation
	for _, inv := range f.invitations {
		if inv.TenantID() == tenantID && !inv.IsAccepted() && !inv.IsExpired() {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeTenantRepo) AcceptInvitationTx(_ context.Context, inv *tenant.Invitation, m *tenant.Membership) error {
	f.invitations[inv.ID()] = inv
	f.memberships = append(f.memberships, m)
	return nil
}

// fakeUserRepo resolves users by email.
type fakeUserRepo struct {
	user.Repository

	users map[string]*user.User
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

type tenantFixture struct {
	svc    *TenantService
	repo   *fakeTenantRepo
	tenant *tenant.Tenant
	owner  *user.User
	users  *fakeUserRepo
}

func newTenantFixture(t *testing.T) *tenantFixture {
	t.Helper()

	owner, err := user.New("owner@acme.test", "Owner", "hash")
	require.NoError(t, err)

	ws, err := tenant.New("Acme Corp", owner.ID())
	require.NoError(t, err)

	repo := newFakeTenantRepo(ws)
	m, err := tenant.NewOwnerMembership(owner.ID(), ws.ID())
	require.NoError(t, err)
	require.NoError(t, repo.CreateMembership(context.Background(), m))

	users := &fakeUserRepo{users: map[string]*user.User{owner.Email(): owner}}
	svc := NewTenantService(repo, users, logger.NewNop())

	return &tenantFixture{svc: svc, repo: repo, tenant: ws, owner: owner, users: users}
}

func (f *tenantFixture) addUser(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := user.New(email, email, "hash")
	require.NoError(t, err)
	f.users.users[u.Email()] = u
	return u
}

func TestTenantService_AddMember(t *testing.T) {
	ctx := context.Background()

	t.Run("adds an existing user", func(t *testing.T) {
		f := newTenantFixture(t)
		u := f.addUser(t, "bob@acme.test")

		m, err := f.svc.AddMember(ctx, f.tenant.ID(), AddMemberInput{
			Email: "bob@acme.test",
			Role:  "member",
		}, f.owner.ID())

		require.NoError(t, err)
		assert.Equal(t, u.ID(), m.UserID())
		assert.Equal(t, tenant.RoleMember, m.Role())
	})

	t.Run("rejects existing members", func(t *testing.T) {
		f := newTenantFixture(t)

		_, err := f.svc.AddMember(ctx, f.tenant.ID(), AddMemberInput{
			Email: "owner@acme.test",
			Role:  "member",
		}, f.owner.ID())

		assert.ErrorIs(t, err, tenant.ErrAlreadyMember)
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		f := newTenantFixture(t)

		_, err := f.svc.AddMember(ctx, f.tenant.ID(), AddMemberInput{
			Email: "nobody@acme.test",
			Role:  "member",
		}, f.owner.ID())

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("free plan member quota enforced", func(t *testing.T) {
		f := newTenantFixture(t)
		// Free plan allows 5 members; the owner occupies one seat.
		for i := 0; i < 4; i++ {
			email := string(rune('b'+i)) + "@acme.test"
			f.addUser(t, email)
			_, err := f.svc.AddMember(ctx, f.tenant.ID(), AddMemberInput{Email: email, Role: "member"}, f.owner.ID())
			require.NoError(t, err)
		}

		f.addUser(t, "overflow@acme.test")
		_, err := f.svc.AddMember(ctx, f.tenant.ID(), AddMemberInput{
			Email: "overflow@acme.test",
			Role:  "member",
		}, f.owner.ID())

		assert.ErrorIs(t, err, tenant.ErrMemberQuotaExceeded)
	})
}

func TestTenantService_UpdateMemberRole(t *testing.T) {
	ctx := context.Background()

	t.Run("demoting the only owner is rejected", func(t *testing.T) {
		f := newTenantFixture(t)

		_, err := f.svc.UpdateMemberRole(ctx, f.tenant.ID(), f.owner.ID(), UpdateMemberRoleInput{Role: "admin"})

		assert.ErrorIs(t, err, tenant.ErrLastOwner)
	})

	t.Run("promote then demote the original owner", func(t *testing.T) {
		f := newTenantFixture(t)
		u := f.addUser(t, "bob@acme.test")
		_, err := f.svc.AddMember(ctx, f.tenant.ID(), AddMemberInput{Email: "bob@acme.test", Role: "member"}, f.owner.ID())
		require.NoError(t, err)

		_, err = f.svc.UpdateMemberRole(ctx, f.tenant.ID(), u.ID(), UpdateMemberRoleInput{Role: "owner"})
		require.NoError(t, err)

		m, err := f.svc.UpdateMemberRole(ctx, f.tenant.ID(), f.owner.ID(), UpdateMemberRoleInput{Role: "admin"})
		require.NoError(t, err)
		assert.Equal(t, tenant.RoleAdmin, m.Role())
	})

	t.Run("non-member is rejected", func(t *testing.T) {
		f := newTenantFixture(t)

		_, err := f.svc.UpdateMemberRole(ctx, f.tenant.ID(), shared.NewID(), UpdateMemberRoleInput{Role: "admin"})

		assert.ErrorIs(t, err, tenant.ErrNotMember)
	})
}

func TestTenantService_RemoveMember(t *testing.T) {
	ctx := context.Background()

	t.Run("last owner cannot leave", func(t *testing.T) {
		f := newTenantFixture(t)

		err := f.svc.RemoveMember(ctx, f.tenant.ID(), f.owner.ID())

		assert.ErrorIs(t, err, tenant.ErrLastOwner)
	})

	t.Run("regular member removed", func(t *testing.T) {
		f := newTenantFixture(t)
		u := f.addUser(t, "bob@acme.test")
		_, err := f.svc.AddMember(ctx, f.tenant.ID(), AddMemberInput{Email: "bob@acme.test", Role: "member"}, f.owner.ID())
		require.NoError(t, err)

		require.NoError(t, f.svc.RemoveMember(ctx, f.tenant.ID(), u.ID()))

		_, err = f.repo.GetMembership(ctx, u.ID(), f.tenant.ID())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestTenantService_SetDefaultTenant(t *testing.T) {
	ctx := context.Background()

	defaults := func(f *tenantFixture, userID shared.ID) []shared.ID {
		var out []shared.ID
		for _, m := range f.repo.memberships {
			if m.UserID() == userID && m.IsDefault() {
				out = append(out, m.TenantID())
			}
		}
		return out
	}

	t.Run("non-member is rejected", func(t *testing.T) {
		f := newTenantFixture(t)
		other, err := tenant.New("Beta Inc", shared.NewID())
		require.NoError(t, err)
		f.repo.tenants[other.ID()] = other

		err = f.svc.SetDefaultTenant(ctx, f.owner.ID(), other.ID())

		assert.ErrorIs(t, err, tenant.ErrNotMember)
	})

	t.Run("switching moves the default flag", func(t *testing.T) {
		f := newTenantFixture(t)
		other, err := tenant.New("Beta Inc", f.owner.ID())
		require.NoError(t, err)
		f.repo.tenants[other.ID()] = other
		m, err := tenant.NewMembership(f.owner.ID(), other.ID(), tenant.RoleMember, nil)
		require.NoError(t, err)
		require.NoError(t, f.repo.CreateMembership(ctx, m))

		require.NoError(t, f.svc.SetDefaultTenant(ctx, f.owner.ID(), other.ID()))

		assert.Equal(t, []shared.ID{other.ID()}, defaults(f, f.owner.ID()))
	})

	t.Run("setting the current default again is harmless", func(t *testing.T) {
		f := newTenantFixture(t)

		require.NoError(t, f.svc.SetDefaultTenant(ctx, f.owner.ID(), f.tenant.ID()))
		require.NoError(t, f.svc.SetDefaultTenant(ctx, f.owner.ID(), f.tenant.ID()))

		assert.Equal(t, []shared.ID{f.tenant.ID()}, defaults(f, f.owner.ID()))
	})
}

func TestTenantService_Invitations(t *testing.T) {
	ctx := context.Background()

	t.Run("invite and accept", func(t *testing.T) {
		f := newTenantFixture(t)
		invitee := f.addUser(t, "carol@acme.test")

		inv, err := f.svc.CreateInvitation(ctx, f.tenant.ID(), CreateInvitationInput{
			Email: "Carol@Acme.test",
			Role:  "admin",
		}, f.owner.ID())
		require.NoError(t, err)
		assert.Equal(t, "carol@acme.test", inv.Email())

		m, err := f.svc.AcceptInvitation(ctx, inv.Token(), invitee.ID(), "carol@acme.test")
		require.NoError(t, err)
		assert.Equal(t, tenant.RoleAdmin, m.Role())
		assert.True(t, inv.IsAccepted())
	})

	t.Run("duplicate pending invitation rejected", func(t *testing.T) {
		f := newTenantFixture(t)
		_, err := f.svc.CreateInvitation(ctx, f.tenant.ID(), CreateInvitationInput{
			Email: "carol@acme.test", Role: "member",
		}, f.owner.ID())
		require.NoError(t, err)

		_, err = f.svc.CreateInvitation(ctx, f.tenant.ID(), CreateInvitationInput{
			Email: "carol@acme.test", Role: "member",
		}, f.owner.ID())

		assert.ErrorIs(t, err, ErrInvitationPending)
	})

	t.Run("email mismatch on accept", func(t *testing.T) {
		f := newTenantFixture(t)
		interloper := f.addUser(t, "mallory@acme.test")

		inv, err := f.svc.CreateInvitation(ctx, f.tenant.ID(), CreateInvitationInput{
			Email: "carol@acme.test", Role: "member",
		}, f.owner.ID())
		require.NoError(t, err)

		_, err = f.svc.AcceptInvitation(ctx, inv.Token(), interloper.ID(), "mallory@acme.test")

		assert.ErrorIs(t, err, ErrInvitationEmailMismatch)
	})

	t.Run("accepting twice conflicts", func(t *testing.T) {
		f := newTenantFixture(t)
		invitee := f.addUser(t, "carol@acme.test")

		inv, err := f.svc.CreateInvitation(ctx, f.tenant.ID(), CreateInvitationInput{
			Email: "carol@acme.test", Role: "member",
		}, f.owner.ID())
		require.NoError(t, err)

		_, err = f.svc.AcceptInvitation(ctx, inv.Token(), invitee.ID(), "carol@acme.test")
		require.NoError(t, err)

		_, err = f.svc.AcceptInvitation(ctx, inv.Token(), invitee.ID(), "carol@acme.test")
		assert.ErrorIs(t, err, ErrInvitationAccepted)
	})

	t.Run("pending invitations count against the quota", func(t *testing.T) {
		f := newTenantFixture(t)
		// Owner seat plus four pending invitations fills the free plan.
		for i := 0; i < 4; i++ {
			email := string(rune('b'+i)) + "@acme.test"
			_, err := f.svc.CreateInvitation(ctx, f.tenant.ID(), CreateInvitationInput{
				Email: email, Role: "member",
			}, f.owner.ID())
			require.NoError(t, err)
		}

		_, err := f.svc.CreateInvitation(ctx, f.tenant.ID(), CreateInvitationInput{
			Email: "overflow@acme.test", Role: "member",
		}, f.owner.ID())

		assert.ErrorIs(t, err, tenant.ErrMemberQuotaExceeded)
	})

	t.Run("invitation role binds the membership", func(t *testing.T) {
		f := newTenantFixture(t)
		invitee := f.addUser(t, "dave@acme.test")

		inv, err := f.svc.CreateInvitation(ctx, f.tenant.ID(), CreateInvitationInput{
			Email: "dave@acme.test", Role: "member",
		}, f.owner.ID())
		require.NoError(t, err)

		m, err := f.svc.AcceptInvitation(ctx, inv.Token(), invitee.ID(), "dave@acme.test")
		require.NoError(t, err)

		require.NotNil(t, m.InvitedBy())
		assert.Equal(t, f.owner.ID(), *m.InvitedBy())
		assert.WithinDuration(t, time.Now(), m.JoinedAt(), time.Minute)
	})
}
