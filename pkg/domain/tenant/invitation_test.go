package tenant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/pkg/domain/shared"
)

func TestNewInvitation(t *testing.T) {
	tenantID := shared.NewID()
	inviter := shared.NewID()

	t.Run("valid invitation", func(t *testing.T) {
		inv, err := NewInvitation(tenantID, "New.Hire@Example.com", RoleMember, inviter)

		require.NoError(t, err)
		assert.Equal(t, "new.hire@example.com", inv.Email(), "email is lowercased")
		assert.Equal(t, RoleMember, inv.Role())
		assert.NotEmpty(t, inv.Token())
		assert.False(t, inv.IsExpired())
		assert.False(t, inv.IsAccepted())
		assert.WithinDuration(t, time.Now().Add(DefaultInvitationExpiry), inv.ExpiresAt(), time.Minute)
	})

	t.Run("tokens are unique per invitation", func(t *testing.T) {
		a, err := NewInvitation(tenantID, "a@example.com", RoleMember, inviter)
		require.NoError(t, err)
		b, err := NewInvitation(tenantID, "b@example.com", RoleMember, inviter)
		require.NoError(t, err)

		assert.NotEqual(t, a.Token(), b.Token())
	})

	t.Run("cannot invite as owner", func(t *testing.T) {
		_, err := NewInvitation(tenantID, "boss@example.com", RoleOwner, inviter)

		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("requires email and inviter", func(t *testing.T) {
		_, err := NewInvitation(tenantID, "", RoleMember, inviter)
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = NewInvitation(tenantID, "x@example.com", RoleMember, shared.ID{})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestInvitation_Accept(t *testing.T) {
	tenantID := shared.NewID()
	inviter := shared.NewID()

	t.Run("accept marks timestamp", func(t *testing.T) {
		inv, err := NewInvitation(tenantID, "x@example.com", RoleMember, inviter)
		require.NoError(t, err)

		require.NoError(t, inv.Accept())

		assert.True(t, inv.IsAccepted())
		require.NotNil(t, inv.AcceptedAt())
	})

	t.Run("double accept conflicts", func(t *testing.T) {
		inv, err := NewInvitation(tenantID, "x@example.com", RoleMember, inviter)
		require.NoError(t, err)
		require.NoError(t, inv.Accept())

		assert.ErrorIs(t, inv.Accept(), shared.ErrConflict)
	})

	t.Run("expired invitation cannot be accepted", func(t *testing.T) {
		inv := ReconstituteInvitation(
			shared.NewID(), tenantID, "x@example.com", RoleMember, "tok",
			inviter, time.Now().Add(-time.Hour), nil, time.Now().Add(-48*time.Hour),
		)

		assert.True(t, inv.IsExpired())
		assert.ErrorIs(t, inv.Accept(), shared.ErrConflict)
	})
}

func TestNewMembership(t *testing.T) {
	userID := shared.NewID()
	tenantID := shared.NewID()

	t.Run("invited membership records inviter", func(t *testing.T) {
		inviter := shared.NewID()
		m, err := NewMembership(userID, tenantID, RoleMember, &inviter)

		require.NoError(t, err)
		assert.Equal(t, RoleMember, m.Role())
		assert.False(t, m.IsDefault())
		require.NotNil(t, m.InvitedBy())
		assert.Equal(t, inviter, *m.InvitedBy())
	})

	t.Run("founding owner membership is default", func(t *testing.T) {
		m, err := NewOwnerMembership(userID, tenantID)

		require.NoError(t, err)
		assert.True(t, m.IsOwner())
		assert.True(t, m.IsDefault())
		assert.Nil(t, m.InvitedBy())
	})

	t.Run("rejects invalid role", func(t *testing.T) {
		_, err := NewMembership(userID, tenantID, Role("root"), nil)

		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestMembership_UpdateRole(t *testing.T) {
	m, err := NewMembership(shared.NewID(), shared.NewID(), RoleMember, nil)
	require.NoError(t, err)

	require.NoError(t, m.UpdateRole(RoleAdmin))
	assert.True(t, m.IsAdmin())

	assert.Error(t, m.UpdateRole(Role("root")))
}
