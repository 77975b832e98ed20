package tenant

// Role represents a user's role within a tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// IsValid checks if the role is valid.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// CanInvite checks if this role can invite new members.
func (r Role) CanInvite() bool {
	return r == RoleOwner || r == RoleAdmin
}

// CanManageMembers checks if this role can manage (update/remove) other members.
func (r Role) CanManageMembers() bool {
	return r == RoleOwner || r == RoleAdmin
}

// CanManageTenant checks if this role can update tenant settings.
func (r Role) CanManageTenant() bool {
	return r == RoleOwner || r == RoleAdmin
}

// CanManageBilling checks if this role can manage the subscription.
// Billing is owner-only: admins manage people, owners manage money.
func (r Role) CanManageBilling() bool {
	return r == RoleOwner
}

// Priority returns the priority of the role (higher = more permissions).
func (r Role) Priority() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// CanAssignRole checks if this role can assign the target role to others.
// Owners can hand out any role except owner; admins only member.
func (r Role) CanAssignRole(target Role) bool {
	if r == RoleOwner {
		return target != RoleOwner
	}
	if r == RoleAdmin {
		return target == RoleMember
	}
	return false
}

// InvitableRoles returns the roles that can be assigned when inviting.
var InvitableRoles = []Role{RoleAdmin, RoleMember}

// ParseRole parses a string to a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}
