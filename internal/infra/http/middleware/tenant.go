package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/northstarhq/api/internal/metrics"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
)

// Tenant context keys. TenantIDKey reuses the logger key so the
// request logger picks the tenant up automatically.
const (
	TenantIDKey                     = logger.ContextKeyTenantID
	TenantSlugKey logger.ContextKey = "tenant_slug"
	TenantRoleKey logger.ContextKey = "tenant_role" // tenant.Role from membership
	TenantKey     logger.ContextKey = "tenant"      // *tenant.Tenant
	MembershipKey logger.ContextKey = "membership"  // *tenant.Membership
)

// Resolution sources reported on the tenant_resolutions_total metric.
const (
	sourceQuery   = "query"
	sourcePath    = "path"
	sourceDefault = "default"
)

// ResolveTenant resolves the request's tenant and verifies the caller
// belongs to it. Lookup order: tenantId query parameter, {tenant} path
// parameter (id or slug), then the caller's default membership. The
// membership row is read fresh on every request so role changes and
// removals take effect immediately.
//
// Must run after Auth. System admins may act on tenants they are not
// members of; everyone else gets a 403.
func ResolveTenant(repo tenant.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserIDAsID(r.Context())
			if userID.IsZero() {
				apierror.Unauthorized("Authentication required").WriteJSON(w)
				return
			}

			t, source, apiErr := lookupTenant(r, repo, userID)
			if apiErr != nil {
				metrics.TenantResolutionsTotal.WithLabelValues(source, "not_found").Inc()
				apiErr.WriteJSON(w)
				return
			}

			if !t.IsAccessible() {
				metrics.TenantResolutionsTotal.WithLabelValues(source, "suspended").Inc()
				apierror.TenantSuspended().WriteJSON(w)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, TenantIDKey, t.ID().String())
			ctx = context.WithValue(ctx, TenantSlugKey, t.Slug())
			ctx = context.WithValue(ctx, TenantKey, t)

			membership, err := repo.GetMembership(ctx, userID, t.ID())
			switch {
			case err == nil:
				ctx = context.WithValue(ctx, TenantRoleKey, membership.Role())
				ctx = context.WithValue(ctx, MembershipKey, membership)
			case errors.Is(err, shared.ErrNotFound):
				if !IsSystemAdmin(ctx) {
					metrics.TenantResolutionsTotal.WithLabelValues(source, "not_member").Inc()
					apierror.Forbidden("You are not a member of this tenant").WriteJSON(w)
					return
				}
				// System admin without a membership row: tenant context
				// only, no role attached.
			default:
				apierror.InternalError(fmt.Errorf("failed to check membership")).WriteJSON(w)
				return
			}

			metrics.TenantResolutionsTotal.WithLabelValues(source, "ok").Inc()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// lookupTenant finds the tenant per the resolution precedence and
// returns the source label used for metrics.
func lookupTenant(r *http.Request, repo tenant.Repository, userID shared.ID) (*tenant.Tenant, string, *apierror.Error) {
	ctx := r.Context()

	if raw := r.URL.Query().Get("tenantId"); raw != "" {
		id, err := shared.IDFromString(raw)
		if err != nil {
			return nil, sourceQuery, apierror.BadRequest("valid tenant id is required")
		}
		t, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, sourceQuery, tenantLookupError(err)
		}
		return t, sourceQuery, nil
	}

	if param := pathTenantParam(r); param != "" {
		var (
			t   *tenant.Tenant
			err error
		)
		if id, parseErr := shared.IDFromString(param); parseErr == nil {
			t, err = repo.GetByID(ctx, id)
		} else {
			t, err = repo.GetBySlug(ctx, param)
		}
		if err != nil {
			return nil, sourcePath, tenantLookupError(err)
		}
		return t, sourcePath, nil
	}

	membership, err := repo.GetDefaultMembership(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, sourceDefault, apierror.BadRequest("valid tenant id is required")
		}
		return nil, sourceDefault, apierror.InternalError(fmt.Errorf("failed to resolve default tenant"))
	}

	t, err := repo.GetByID(ctx, membership.TenantID())
	if err != nil {
		return nil, sourceDefault, tenantLookupError(err)
	}
	return t, sourceDefault, nil
}

// pathTenantParam reads the {tenant} path parameter, preferring chi's
// route context and falling back to the stdlib mux.
func pathTenantParam(r *http.Request) string {
	if param := chi.URLParam(r, "tenant"); param != "" {
		return param
	}
	return r.PathValue("tenant")
}

func tenantLookupError(err error) *apierror.Error {
	if errors.Is(err, shared.ErrNotFound) {
		return apierror.NotFound("Tenant")
	}
	return apierror.InternalError(fmt.Errorf("failed to load tenant"))
}

// GetTenantID extracts the resolved tenant ID from context.
func GetTenantID(ctx context.Context) string {
	if id, ok := ctx.Value(TenantIDKey).(string); ok {
		return id
	}
	return ""
}

// GetTenantIDAsID extracts the resolved tenant ID as a shared.ID.
func GetTenantIDAsID(ctx context.Context) shared.ID {
	id, err := shared.IDFromString(GetTenantID(ctx))
	if err != nil {
		return shared.ID{}
	}
	return id
}

// MustGetTenantID extracts the tenant ID from context or panics.
// Use in handlers behind ResolveTenant; a panic here is a routing bug,
// not a user error.
func MustGetTenantID(ctx context.Context) shared.ID {
	id := GetTenantIDAsID(ctx)
	if id.IsZero() {
		panic("MustGetTenantID: tenant not resolved - ensure ResolveTenant middleware is applied")
	}
	return id
}

// GetTenant extracts the resolved tenant entity from context.
func GetTenant(ctx context.Context) *tenant.Tenant {
	if t, ok := ctx.Value(TenantKey).(*tenant.Tenant); ok {
		return t
	}
	return nil
}

// GetTenantSlug extracts the resolved tenant slug from context.
func GetTenantSlug(ctx context.Context) string {
	if slug, ok := ctx.Value(TenantSlugKey).(string); ok {
		return slug
	}
	return ""
}

// GetTenantRole extracts the caller's role in the resolved tenant.
// Empty for system admins acting on tenants they are not members of.
func GetTenantRole(ctx context.Context) tenant.Role {
	if role, ok := ctx.Value(TenantRoleKey).(tenant.Role); ok {
		return role
	}
	return ""
}

// GetMembership extracts the caller's membership from context.
func GetMembership(ctx context.Context) *tenant.Membership {
	if m, ok := ctx.Value(MembershipKey).(*tenant.Membership); ok {
		return m
	}
	return nil
}
