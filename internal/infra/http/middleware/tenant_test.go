package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
)

// stubTenantRepo implements the subset of tenant.Repository the
// resolver touches; everything else panics via the embedded nil.
type stubTenantRepo struct {
	tenant.Repository

	getByID              func(ctx context.Context, id shared.ID) (*tenant.Tenant, error)
	getBySlug            func(ctx context.Context, slug string) (*tenant.Tenant, error)
	getMembership        func(ctx context.Context, userID, tenantID shared.ID) (*tenant.Membership, error)
	getDefaultMembership func(ctx context.Context, userID shared.ID) (*tenant.Membership, error)
}

func (s *stubTenantRepo) GetByID(ctx context.Context, id shared.ID) (*tenant.Tenant, error) {
	return s.getByID(ctx, id)
}

func (s *stubTenantRepo) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return s.getBySlug(ctx, slug)
}

func (s *stubTenantRepo) GetMembership(ctx context.Context, userID, tenantID shared.ID) (*tenant.Membership, error) {
	return s.getMembership(ctx, userID, tenantID)
}

func (s *stubTenantRepo) GetDefaultMembership(ctx context.Context, userID shared.ID) (*tenant.Membership, error) {
	return s.getDefaultMembership(ctx, userID)
}

type resolverFixture struct {
	userID   shared.ID
	tenant   *tenant.Tenant
	repo     *stubTenantRepo
	resolved *http.Request // captured by the next handler
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()

	userID := shared.NewID()
	ws, err := tenant.New("Acme Corp", userID)
	require.NoError(t, err)

	f := &resolverFixture{userID: userID, tenant: ws}
	f.repo = &stubTenantRepo{
		getByID: func(_ context.Context, id shared.ID) (*tenant.Tenant, error) {
			if id == ws.ID() {
				return ws, nil
			}
			return nil, shared.ErrNotFound
		},
		getBySlug: func(_ context.Context, slug string) (*tenant.Tenant, error) {
			if slug == ws.Slug() {
				return ws, nil
			}
			return nil, shared.ErrNotFound
		},
		getMembership: func(_ context.Context, uid, tid shared.ID) (*tenant.Membership, error) {
			if uid == userID && tid == ws.ID() {
				return tenant.NewOwnerMembership(uid, tid)
			}
			return nil, shared.ErrNotFound
		},
		getDefaultMembership: func(_ context.Context, uid shared.ID) (*tenant.Membership, error) {
			if uid == userID {
				return tenant.NewOwnerMembership(uid, ws.ID())
			}
			return nil, shared.ErrNotFound
		},
	}
	return f
}

func (f *resolverFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	handler := ResolveTenant(f.repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.resolved = r
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func authedRequest(userID shared.ID, target string) *http.Request {
	ctx := context.WithValue(context.Background(), UserIDKey, userID.String())
	return httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
}

func TestResolveTenant(t *testing.T) {
	t.Run("unauthenticated request rejected", func(t *testing.T) {
		f := newResolverFixture(t)

		rec := f.serve(httptest.NewRequest(http.MethodGet, "/objectives", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("query parameter resolves tenant", func(t *testing.T) {
		f := newResolverFixture(t)

		rec := f.serve(authedRequest(f.userID, "/objectives?tenantId="+f.tenant.ID().String()))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, f.tenant.ID().String(), GetTenantID(f.resolved.Context()))
		assert.Equal(t, tenant.RoleOwner, GetTenantRole(f.resolved.Context()))
	})

	t.Run("malformed query parameter is a bad request", func(t *testing.T) {
		f := newResolverFixture(t)

		rec := f.serve(authedRequest(f.userID, "/objectives?tenantId=not-a-uuid"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("query parameter wins over path parameter", func(t *testing.T) {
		f := newResolverFixture(t)

		req := authedRequest(f.userID, "/tenants/some-other-slug/objectives?tenantId="+f.tenant.ID().String())
		req.SetPathValue("tenant", "some-other-slug")
		rec := f.serve(req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, f.tenant.Slug(), GetTenantSlug(f.resolved.Context()))
	})

	t.Run("path parameter resolves by slug", func(t *testing.T) {
		f := newResolverFixture(t)

		req := authedRequest(f.userID, "/tenants/"+f.tenant.Slug()+"/objectives")
		req.SetPathValue("tenant", f.tenant.Slug())
		rec := f.serve(req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, f.tenant.ID().String(), GetTenantID(f.resolved.Context()))
	})

	t.Run("path parameter resolves by id", func(t *testing.T) {
		f := newResolverFixture(t)

		req := authedRequest(f.userID, "/tenants/"+f.tenant.ID().String()+"/objectives")
		req.SetPathValue("tenant", f.tenant.ID().String())
		rec := f.serve(req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("falls back to default membership", func(t *testing.T) {
		f := newResolverFixture(t)

		rec := f.serve(authedRequest(f.userID, "/objectives"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, f.tenant.ID().String(), GetTenantID(f.resolved.Context()))
	})

	t.Run("no default membership is a bad request", func(t *testing.T) {
		f := newResolverFixture(t)
		stranger := shared.NewID()

		rec := f.serve(authedRequest(stranger, "/objectives"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown tenant is a 404", func(t *testing.T) {
		f := newResolverFixture(t)

		rec := f.serve(authedRequest(f.userID, "/objectives?tenantId="+shared.NewID().String()))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-member gets a 403", func(t *testing.T) {
		f := newResolverFixture(t)
		stranger := shared.NewID()

		rec := f.serve(authedRequest(stranger, "/objectives?tenantId="+f.tenant.ID().String()))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("system admin passes without membership", func(t *testing.T) {
		f := newResolverFixture(t)
		stranger := shared.NewID()

		ctx := context.WithValue(context.Background(), UserIDKey, stranger.String())
		ctx = context.WithValue(ctx, SystemRoleKey, "admin")
		req := httptest.NewRequest(http.MethodGet, "/objectives?tenantId="+f.tenant.ID().String(), nil).WithContext(ctx)
		rec := f.serve(req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, GetTenantRole(f.resolved.Context()), "no role attached without membership")
	})

	t.Run("cancelled tenant is suspended", func(t *testing.T) {
		f := newResolverFixture(t)
		require.NoError(t, f.tenant.TransitionStatus(tenant.StatusCancelled))

		rec := f.serve(authedRequest(f.userID, "/objectives?tenantId="+f.tenant.ID().String()))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestTenantContextAccessors(t *testing.T) {
	t.Run("empty context yields zero values", func(t *testing.T) {
		ctx := context.Background()

		assert.Empty(t, GetTenantID(ctx))
		assert.True(t, GetTenantIDAsID(ctx).IsZero())
		assert.Nil(t, GetTenant(ctx))
		assert.Nil(t, GetMembership(ctx))
		assert.Empty(t, GetTenantRole(ctx))
	})

	t.Run("must get panics when unresolved", func(t *testing.T) {
		assert.Panics(t, func() {
			MustGetTenantID(context.Background())
		})
	})
}
