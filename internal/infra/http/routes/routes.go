// Package routes registers all HTTP routes for the API.
// Routes are organized by domain for maintainability.
package routes

import (
	"net/http"

	"github.com/northstarhq/api/internal/config"
	infrahttp "github.com/northstarhq/api/internal/infra/http"
	"github.com/northstarhq/api/internal/infra/http/handler"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/internal/infra/websocket"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
)

// Middleware is an alias to the http package's Middleware type.
type Middleware = infrahttp.Middleware

// Router is an alias to the http package's Router interface.
type Router = infrahttp.Router

// Handlers holds all HTTP handlers for route registration.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	User      *handler.UserHandler
	Tenant    *handler.TenantHandler
	Bootstrap *handler.BootstrapHandler

	Objective *handler.ObjectiveHandler
	KeyResult *handler.KeyResultHandler
	Team      *handler.TeamHandler
	Cadence   *handler.CadenceHandler

	Feedback *handler.FeedbackHandler
	Badge    *handler.BadgeHandler
	Chat     *handler.ChatHandler

	Billing *handler.BillingHandler

	// WebSocket handler for real-time chat (nil when disabled).
	WebSocket *websocket.Handler
}

// AuthConfig holds authentication dependencies for route registration.
type AuthConfig struct {
	Validator middleware.TokenValidator
	Blacklist middleware.TokenBlacklist

	// Throttle, when set, rate limits the credential endpoints
	// (register, login, password reset) beyond the global limiter.
	Throttle Middleware
}

// Register registers all application routes.
// This keeps route definitions in the infrastructure layer, not in main.
//
// Routes are organized across multiple files by domain:
//   - auth.go: Authentication, users, invitations, bootstrap
//   - tenant.go: Workspace management and the workspace-scoped route tree
//   - okr.go: Objectives, key results, check-ins, teams, cadences
//   - collab.go: Feedback, badges, chat rooms
//   - billing.go: Subscriptions and the provider webhook
//   - misc.go: Health, metrics, WebSocket
//
// Workspace-scoped resources are mounted twice: under
// /api/v1/tenants/{tenant}/... and as flat aliases under /api/v1/...
// where the resolver falls back to ?tenantId= or the caller's default
// membership.
func Register(
	router Router,
	h Handlers,
	cfg *config.Config,
	log *logger.Logger,
	authCfg AuthConfig,
	tenantRepo tenant.Repository,
) {
	authMW := middleware.Auth(middleware.AuthConfig{
		Validator:  authCfg.Validator,
		Blacklist:  authCfg.Blacklist,
		CookieName: cfg.Auth.AccessTokenCookieName,
		Logger:     log,
	})

	// WebSocket handshakes cannot set headers from browsers, so the WS
	// route additionally accepts ?token= with a short-lived token.
	wsAuthMW := middleware.Auth(middleware.AuthConfig{
		Validator:       authCfg.Validator,
		Blacklist:       authCfg.Blacklist,
		CookieName:      cfg.Auth.AccessTokenCookieName,
		AllowQueryToken: true,
		Logger:          log,
	})

	// Chain for flat workspace-scoped routes: authenticate, then resolve
	// the workspace and verify membership.
	workspaceMW := []Middleware{authMW, middleware.ResolveTenant(tenantRepo)}

	registerHealthRoutes(router, h.Health)
	registerAuthRoutes(router, h.Auth, authMW, authCfg.Throttle)
	registerUserRoutes(router, h.User, authMW)
	registerInvitationRoutes(router, h.Tenant, authMW)
	registerBootstrapRoutes(router, h.Bootstrap, authMW)
	registerTenantRoutes(router, h, authMW, tenantRepo)
	registerOKRRoutes(router, h, workspaceMW)
	registerCollabRoutes(router, h, workspaceMW)
	registerBillingRoutes(router, h.Billing, workspaceMW)

	if h.WebSocket != nil {
		registerWebSocketRoutes(router, h.WebSocket, wsAuthMW, middleware.ResolveTenant(tenantRepo))
	}
}

// ChainFunc wraps a handler function with middleware(s).
// Returns the final handler after applying all middleware in order.
func ChainFunc(handler http.HandlerFunc, middlewares ...Middleware) http.Handler {
	return infrahttp.ChainFunc(handler, middlewares...)
}
