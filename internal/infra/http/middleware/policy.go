package middleware

import (
	"context"
	"net/http"

	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/tenant"
)

// Allow reports whether the caller may perform an operation requiring
// at least minRole in the resolved tenant. System admins pass every
// per-tenant check.
func Allow(ctx context.Context, minRole tenant.Role) bool {
	if IsSystemAdmin(ctx) {
		return true
	}
	role := GetTenantRole(ctx)
	if !role.IsValid() {
		return false
	}
	return role.Priority() >= minRole.Priority()
}

// RequireTenantRole rejects callers below the minimum role in the
// resolved tenant. Role order: owner > admin > member. Must run after
// ResolveTenant.
func RequireTenantRole(minRole tenant.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if GetTenantID(ctx) == "" {
				apierror.BadRequest("valid tenant id is required").WriteJSON(w)
				return
			}
			if !Allow(ctx, minRole) {
				apierror.Forbidden("This action requires the " + minRole.String() + " role in this tenant").WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner restricts a route to tenant owners. Used for billing
// mutations and ownership transfer.
func RequireOwner() func(http.Handler) http.Handler {
	return RequireTenantRole(tenant.RoleOwner)
}

// RequireAdmin restricts a route to owners and admins. Used for tenant
// settings and member management.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireTenantRole(tenant.RoleAdmin)
}

// RequireMember restricts a route to tenant members of any role. Used
// for content operations.
func RequireMember() func(http.Handler) http.Handler {
	return RequireTenantRole(tenant.RoleMember)
}
