package handler

import (
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/domain/user"
	"github.com/northstarhq/api/pkg/logger"
)

// BootstrapHandler serves the single round-trip the frontend makes on
// page load: profile, workspace list, and the default workspace.
type BootstrapHandler struct {
	userService   *app.UserService
	tenantService *app.TenantService
	logger        *logger.Logger
}

// NewBootstrapHandler creates a new bootstrap handler.
func NewBootstrapHandler(userSvc *app.UserService, tenantSvc *app.TenantService, log *logger.Logger) *BootstrapHandler {
	return &BootstrapHandler{
		userService:   userSvc,
		tenantService: tenantSvc,
		logger:        log,
	}
}

// BootstrapResponse aggregates everything the client needs at startup.
type BootstrapResponse struct {
	User          UserResponse             `json:"user"`
	Tenants       []TenantWithRoleResponse `json:"tenants"`
	DefaultTenant *TenantWithRoleResponse  `json:"default_tenant,omitempty"`
}

// Bootstrap handles GET /api/v1/bootstrap
func (h *BootstrapHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDAsID(r.Context())
	if userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	var (
		profile    *user.User
		tenants    []*tenant.TenantWithRole
		defaultTWR *tenant.TenantWithRole
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		profile, err = h.userService.GetProfile(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		tenants, err = h.tenantService.ListUserTenants(ctx, userID)
		return err
	})
	g.Go(func() error {
		twr, err := h.tenantService.GetDefaultTenant(ctx, userID)
		if err != nil {
			// Users without a default workspace are fine.
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}
		defaultTWR = twr
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			apierror.NotFound("User").WriteJSON(w)
			return
		}
		h.logger.Error("bootstrap failed", "user_id", userID.String(), "error", err)
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	resp := BootstrapResponse{
		User:    toUserResponse(profile),
		Tenants: make([]TenantWithRoleResponse, len(tenants)),
	}
	for i, t := range tenants {
		resp.Tenants[i] = toTenantWithRoleResponse(t)
	}
	if defaultTWR != nil {
		twr := toTenantWithRoleResponse(defaultTWR)
		resp.DefaultTenant = &twr
	}

	writeJSON(w, http.StatusOK, resp)
}
