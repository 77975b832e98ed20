package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/config"
	infrahttp "github.com/northstarhq/api/internal/infra/http"
	"github.com/northstarhq/api/internal/infra/http/handler"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/validator"
)

// fakeDispatchRepo backs the route-dispatch tests with the lookups
// the tenant resolver and the default-workspace flow perform.
type fakeDispatchRepo struct {
	tenant.Repository

	tenants     []*tenant.Tenant
	memberships []*tenant.Membership
}

func (f *fakeDispatchRepo) GetByID(_ context.Context, id shared.ID) (*tenant.Tenant, error) {
	for _, t := range f.tenants {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeDispatchRepo) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	for _, t := range f.tenants {
		if t.Slug() == slug {
			return t, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeDispatchRepo) GetMembership(_ context.Context, userID, tenantID shared.ID) (*tenant.Membership, error) {
	for _, m := range f.memberships {
		if m.UserID() == userID && m.TenantID() == tenantID {
			return m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeDispatchRepo) ListTenantsByUser(ctx context.Context, userID shared.ID) ([]*tenant.TenantWithRole, error) {
	var out []*tenant.TenantWithRole
	for _, m := range f.memberships {
		if m.UserID() != userID {
			continue
		}
		t, err := f.GetByID(ctx, m.TenantID())
		if err != nil {
			return nil, err
		}
		out = append(out, &tenant.TenantWithRole{
			Tenant:    t,
			Role:      m.Role(),
			IsDefault: m.IsDefault(),
			JoinedAt:  m.JoinedAt(),
		})
	}
	return out, nil
}

func (f *fakeDispatchRepo) GetDefaultMembership(_ context.Context, userID shared.ID) (*tenant.Membership, error) {
	for _, m := range f.memberships {
		if m.UserID() == userID && m.IsDefault() {
			return m, nil
		}
	}
	return nil, shared.ErrNotFound
}

// dispatchFixture assembles the real chi router with the tenant route
// tree and the flat aliases, so requests travel the registered table
// instead of a hand-built middleware chain. The decoy workspace is
// named "Default" so its slug collides with the /tenants/default path.
type dispatchFixture struct {
	handler   http.Handler
	workspace *tenant.Tenant
	decoy     *tenant.Tenant
	ownerID   shared.ID
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	ownerID := shared.NewID()
	ws, err := tenant.New("Acme Corp", ownerID)
	require.NoError(t, err)
	decoy, err := tenant.New("Default", shared.NewID())
	require.NoError(t, err)
	require.Equal(t, "default", decoy.Slug())

	repo := &fakeDispatchRepo{tenants: []*tenant.Tenant{ws, decoy}}
	m, err := tenant.NewOwnerMembership(ownerID, ws.ID())
	require.NoError(t, err)
	repo.memberships = append(repo.memberships, m)

	log := logger.NewNop()
	svc := app.NewTenantService(repo, nil, log)
	h := Handlers{
		Tenant: handler.NewTenantHandler(svc, validator.New(), handler.NewCookieConfig(config.AuthConfig{}), log),
	}

	// Authentication is exercised elsewhere; here the user arrives on
	// the request context and the middleware slot passes through.
	passthrough := func(next http.Handler) http.Handler { return next }

	router := infrahttp.NewChiRouter()
	registerTenantRoutes(router, h, passthrough, repo)
	registerOKRRoutes(router, h, []Middleware{passthrough, middleware.ResolveTenant(repo)})

	return &dispatchFixture{
		handler:   router.Handler(),
		workspace: ws,
		decoy:     decoy,
		ownerID:   ownerID,
	}
}

func (f *dispatchFixture) serve(userID shared.ID, target string) *httptest.ResponseRecorder {
	ctx := context.WithValue(context.Background(), middleware.UserIDKey, userID.String())
	req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestTenantRouteDispatch(t *testing.T) {
	t.Run("default endpoint returns the caller's default workspace", func(t *testing.T) {
		f := newDispatchFixture(t)

		rec := f.serve(f.ownerID, "/api/v1/tenants/default")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body struct {
			ID        string `json:"id"`
			Slug      string `json:"slug"`
			IsDefault bool   `json:"is_default"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		// The decoy's slug is "default"; a param match would have
		// served it instead of the caller's own workspace.
		assert.Equal(t, f.workspace.ID().String(), body.ID)
		assert.NotEqual(t, f.decoy.ID().String(), body.ID)
		assert.Equal(t, "acme-corp", body.Slug)
		assert.True(t, body.IsDefault)
	})

	t.Run("no default membership is a 404 from the default handler", func(t *testing.T) {
		f := newDispatchFixture(t)

		rec := f.serve(shared.NewID(), "/api/v1/tenants/default")

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Default workspace")
	})

	t.Run("workspace fetch by slug still resolves", func(t *testing.T) {
		f := newDispatchFixture(t)

		rec := f.serve(f.ownerID, "/api/v1/tenants/"+f.workspace.Slug())

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, f.workspace.ID().String(), body.ID)
	})

	t.Run("listing stays on the collection route", func(t *testing.T) {
		f := newDispatchFixture(t)

		rec := f.serve(f.ownerID, "/api/v1/tenants")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), f.workspace.ID().String())
	})

	t.Run("flat alias runs the workspace resolver", func(t *testing.T) {
		f := newDispatchFixture(t)

		rec := f.serve(f.ownerID, "/api/v1/check-ins?tenantId="+shared.NewID().String())
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Tenant not found")

		rec = f.serve(shared.NewID(), "/api/v1/check-ins?tenantId="+f.workspace.ID().String())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
