package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_Permissions(t *testing.T) {
	tests := []struct {
		role       Role
		canInvite  bool
		canManage  bool
		canTenant  bool
		canBilling bool
	}{
		{RoleOwner, true, true, true, true},
		{RoleAdmin, true, true, true, false},
		{RoleMember, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.canInvite, tt.role.CanInvite())
			assert.Equal(t, tt.canManage, tt.role.CanManageMembers())
			assert.Equal(t, tt.canTenant, tt.role.CanManageTenant())
			assert.Equal(t, tt.canBilling, tt.role.CanManageBilling())
		})
	}
}

func TestRole_Priority(t *testing.T) {
	assert.Greater(t, RoleOwner.Priority(), RoleAdmin.Priority())
	assert.Greater(t, RoleAdmin.Priority(), RoleMember.Priority())
	assert.Greater(t, RoleMember.Priority(), Role("stranger").Priority())
}

func TestRole_CanAssignRole(t *testing.T) {
	t.Run("owner assigns any role except owner", func(t *testing.T) {
		assert.True(t, RoleOwner.CanAssignRole(RoleAdmin))
		assert.True(t, RoleOwner.CanAssignRole(RoleMember))
		assert.False(t, RoleOwner.CanAssignRole(RoleOwner))
	})

	t.Run("admin assigns only member", func(t *testing.T) {
		assert.True(t, RoleAdmin.CanAssignRole(RoleMember))
		assert.False(t, RoleAdmin.CanAssignRole(RoleAdmin))
		assert.False(t, RoleAdmin.CanAssignRole(RoleOwner))
	})

	t.Run("member assigns nothing", func(t *testing.T) {
		assert.False(t, RoleMember.CanAssignRole(RoleMember))
	})
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	_, ok = ParseRole("superuser")
	assert.False(t, ok)
}

func TestPlan_Limits(t *testing.T) {
	t.Run("free plan", func(t *testing.T) {
		limits := PlanFree.Limits()
		assert.Equal(t, 5, limits.MaxMembers)
		assert.False(t, limits.ChatHistory)
		assert.False(t, limits.Badges)
	})

	t.Run("starter gains chat history but not badges", func(t *testing.T) {
		limits := PlanStarter.Limits()
		assert.Equal(t, 25, limits.MaxMembers)
		assert.True(t, limits.ChatHistory)
		assert.False(t, limits.Badges)
	})

	t.Run("professional unlocks badges", func(t *testing.T) {
		limits := PlanProfessional.Limits()
		assert.Equal(t, 150, limits.MaxMembers)
		assert.True(t, limits.Badges)
	})

	t.Run("enterprise is unlimited", func(t *testing.T) {
		limits := PlanEnterprise.Limits()
		assert.Equal(t, -1, limits.MaxMembers)
		assert.Equal(t, -1, limits.MaxObjectives)
		assert.Equal(t, -1, limits.MaxTeams)
	})

	t.Run("unknown plan falls back to free limits", func(t *testing.T) {
		assert.Equal(t, PlanFree.Limits(), Plan("bogus").Limits())
	})
}
