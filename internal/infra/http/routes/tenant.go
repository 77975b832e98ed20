package routes

import (
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/domain/tenant"
)

// registerTenantRoutes registers workspace management endpoints and the
// consolidated workspace-scoped route tree.
// API uses "tenant", UI displays "Workspace".
func registerTenantRoutes(router Router, h Handlers, authMW Middleware, tenantRepo tenant.Repository) {
	// Workspace collection routes (authenticated user context only).
	// Registered flat rather than as a nested group: a group mounts a
	// catch-all under /api/v1/tenants, and chi matches the sibling
	// {tenant} mount ahead of it, which would resolve /default as a
	// workspace slug. A static route wins over the {tenant} param.
	router.GET("/api/v1/tenants", h.Tenant.List, authMW)
	router.POST("/api/v1/tenants", h.Tenant.Create, authMW)
	router.GET("/api/v1/tenants/default", h.Tenant.GetDefault, authMW)

	// Workspace-scoped routes - consolidated into a single group to
	// avoid chi mount conflicts. ResolveTenant loads the workspace from
	// the path, verifies membership, and rejects suspended workspaces.
	router.Group("/api/v1/tenants/{tenant}", func(r Router) {
		r.GET("/", h.Tenant.Get)
		r.PATCH("/", h.Tenant.Update, middleware.RequireAdmin())
		r.PUT("/logo", h.Tenant.UploadLogo, middleware.RequireAdmin())
		r.POST("/set-default", h.Tenant.SetDefault)
		r.POST("/ws-token", h.Auth.WSToken)

		// Member management (admin+). Member removal has no role gate:
		// the handler allows self-removal for any role and requires
		// admin for removing others.
		r.GET("/members", h.Tenant.ListMembers)
		r.POST("/members", h.Tenant.AddMember, middleware.RequireAdmin())
		r.PATCH("/members/{userId}", h.Tenant.UpdateMemberRole, middleware.RequireAdmin())
		r.DELETE("/members/{userId}", h.Tenant.RemoveMember)
		r.GET("/members/{userId}/awards", h.Badge.ListUserAwards)

		// Invitations (admin+); the raw token is only exposed here.
		r.GET("/invitations", h.Tenant.ListInvitations, middleware.RequireAdmin())
		r.POST("/invitations", h.Tenant.CreateInvitation, middleware.RequireAdmin())
		r.DELETE("/invitations/{invitationId}", h.Tenant.DeleteInvitation, middleware.RequireAdmin())

		// Workspace activity feed.
		r.GET("/check-ins", h.KeyResult.ListTenantCheckIns)

		// OKR resources.
		r.Group("/objectives", objectiveRoutes(h.Objective, h.KeyResult))
		r.Group("/key-results", keyResultRoutes(h.KeyResult))
		r.Group("/teams", teamRoutes(h.Team))
		r.Group("/cadences", cadenceRoutes(h.Cadence))
		r.Group("/timeframes", timeframeRoutes(h.Cadence))

		// Collaboration resources.
		r.Group("/feedback", feedbackRoutes(h.Feedback))
		r.Group("/badges", badgeRoutes(h.Badge))
		r.DELETE("/awards/{awardId}", h.Badge.RevokeAward, middleware.RequireMember())
		r.Group("/chat", chatRoutes(h.Chat))

		// Billing (mutations are owner-only).
		r.GET("/billing/subscription", h.Billing.GetSubscription)
		r.POST("/billing/subscription", h.Billing.CreateSubscription, middleware.RequireOwner())
		r.DELETE("/billing/subscription", h.Billing.CancelSubscription, middleware.RequireOwner())
	}, authMW, middleware.ResolveTenant(tenantRepo))
}
