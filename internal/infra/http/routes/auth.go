package routes

import (
	"github.com/northstarhq/api/internal/infra/http/handler"
	"github.com/northstarhq/api/internal/infra/http/middleware"
)

// registerAuthRoutes registers authentication endpoints. Register,
// login, refresh, and password-reset are public; session management
// requires a valid access token. The credential endpoints carry the
// extra throttle middleware when configured, since they are the
// brute-force targets.
func registerAuthRoutes(router Router, h *handler.AuthHandler, authMW, throttleMW Middleware) {
	var credMW []Middleware
	if throttleMW != nil {
		credMW = append(credMW, throttleMW)
	}

	router.Group("/api/v1/auth", func(r Router) {
		r.POST("/register", h.Register, credMW...)
		r.POST("/login", h.Login, credMW...)
		r.POST("/refresh", h.Refresh)
		r.POST("/forgot-password", h.ForgotPassword, credMW...)
		r.POST("/reset-password", h.ResetPassword, credMW...)

		r.POST("/logout", h.Logout, authMW)
		r.POST("/logout-all", h.LogoutAll, authMW)
		r.POST("/change-password", h.ChangePassword, authMW)
	})
}

// registerUserRoutes registers profile endpoints plus the system-admin
// user management surface.
func registerUserRoutes(router Router, h *handler.UserHandler, authMW Middleware) {
	router.Group("/api/v1/users", func(r Router) {
		r.GET("/me", h.Me)
		r.PATCH("/me", h.UpdateMe)
		r.POST("/me/avatar", h.UploadAvatar)
	}, authMW)

	router.Group("/api/v1/admin/users", func(r Router) {
		r.POST("/{userId}/suspend", h.Suspend)
		r.POST("/{userId}/activate", h.Activate)
	}, authMW, middleware.RequireSystemAdmin())
}

// registerInvitationRoutes registers token-addressed invitation
// endpoints. Preview is public so invitees can see what they were
// invited to before authenticating; accept and decline need the
// caller's email from their token.
func registerInvitationRoutes(router Router, h *handler.TenantHandler, authMW Middleware) {
	router.Group("/api/v1/invitations", func(r Router) {
		r.GET("/{token}", h.GetInvitation)
		r.POST("/{token}/accept", h.AcceptInvitation, authMW)
		r.POST("/{token}/decline", h.DeclineInvitation, authMW)
	})
}

// registerBootstrapRoutes registers the combined session-bootstrap
// endpoint used by the UI on load.
func registerBootstrapRoutes(router Router, h *handler.BootstrapHandler, authMW Middleware) {
	router.GET("/api/v1/bootstrap", h.Bootstrap, authMW)
}
