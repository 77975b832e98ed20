package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
)

func tenantContext(role tenant.Role) context.Context {
	ctx := context.WithValue(context.Background(), UserIDKey, shared.NewID().String())
	ctx = context.WithValue(ctx, TenantIDKey, shared.NewID().String())
	if role != "" {
		ctx = context.WithValue(ctx, TenantRoleKey, role)
	}
	return ctx
}

func serveWithRole(mw func(http.Handler) http.Handler, ctx context.Context) *httptest.ResponseRecorder {
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/test", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireTenantRole(t *testing.T) {
	tests := []struct {
		name string
		mw   func(http.Handler) http.Handler
		role tenant.Role
		want int
	}{
		{"owner passes owner gate", RequireOwner(), tenant.RoleOwner, http.StatusOK},
		{"admin blocked from owner gate", RequireOwner(), tenant.RoleAdmin, http.StatusForbidden},
		{"member blocked from owner gate", RequireOwner(), tenant.RoleMember, http.StatusForbidden},
		{"owner passes admin gate", RequireAdmin(), tenant.RoleOwner, http.StatusOK},
		{"admin passes admin gate", RequireAdmin(), tenant.RoleAdmin, http.StatusOK},
		{"member blocked from admin gate", RequireAdmin(), tenant.RoleMember, http.StatusForbidden},
		{"member passes member gate", RequireMember(), tenant.RoleMember, http.StatusOK},
		{"admin passes member gate", RequireMember(), tenant.RoleAdmin, http.StatusOK},
		{"no role blocked everywhere", RequireMember(), "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveWithRole(tt.mw, tenantContext(tt.role))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireTenantRole_NoTenantResolved(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, shared.NewID().String())

	rec := serveWithRole(RequireMember(), ctx)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireTenantRole_SystemAdminBypass(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, shared.NewID().String())
	ctx = context.WithValue(ctx, TenantIDKey, shared.NewID().String())
	ctx = context.WithValue(ctx, SystemRoleKey, "admin")

	rec := serveWithRole(RequireOwner(), ctx)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAllow(t *testing.T) {
	t.Run("role hierarchy", func(t *testing.T) {
		assert.True(t, Allow(tenantContext(tenant.RoleOwner), tenant.RoleMember))
		assert.True(t, Allow(tenantContext(tenant.RoleAdmin), tenant.RoleAdmin))
		assert.False(t, Allow(tenantContext(tenant.RoleMember), tenant.RoleAdmin))
		assert.False(t, Allow(tenantContext(""), tenant.RoleMember))
	})

	t.Run("system admin always allowed", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), SystemRoleKey, "admin")
		assert.True(t, Allow(ctx, tenant.RoleOwner))
	})
}
