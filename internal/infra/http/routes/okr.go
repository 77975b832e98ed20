package routes

import (
	"github.com/northstarhq/api/internal/infra/http/handler"
	"github.com/northstarhq/api/internal/infra/http/middleware"
)

// registerOKRRoutes registers flat aliases for workspace-scoped OKR
// resources. The resolver picks the workspace from ?tenantId= or the
// caller's default membership.
func registerOKRRoutes(router Router, h Handlers, workspaceMW []Middleware) {
	router.Group("/api/v1/objectives", objectiveRoutes(h.Objective, h.KeyResult), workspaceMW...)
	router.Group("/api/v1/key-results", keyResultRoutes(h.KeyResult), workspaceMW...)
	router.Group("/api/v1/teams", teamRoutes(h.Team), workspaceMW...)
	router.Group("/api/v1/cadences", cadenceRoutes(h.Cadence), workspaceMW...)
	router.Group("/api/v1/timeframes", timeframeRoutes(h.Cadence), workspaceMW...)
	router.GET("/api/v1/check-ins", h.KeyResult.ListTenantCheckIns, workspaceMW...)
}

// objectiveRoutes returns objective CRUD routes plus the nested
// key-result collection. Reads are open to any member; writes carry an
// explicit member gate.
func objectiveRoutes(h *handler.ObjectiveHandler, kr *handler.KeyResultHandler) func(Router) {
	return func(r Router) {
		r.GET("/", h.List)
		r.POST("/", h.Create, middleware.RequireMember())
		r.GET("/{objectiveId}", h.Get)
		r.PATCH("/{objectiveId}", h.Update, middleware.RequireMember())
		r.DELETE("/{objectiveId}", h.Delete, middleware.RequireMember())

		r.GET("/{objectiveId}/key-results", kr.List)
		r.POST("/{objectiveId}/key-results", kr.Create, middleware.RequireMember())
	}
}

// keyResultRoutes returns key-result routes addressed by id, including
// check-ins.
func keyResultRoutes(h *handler.KeyResultHandler) func(Router) {
	return func(r Router) {
		r.GET("/{keyResultId}", h.Get)
		r.PATCH("/{keyResultId}", h.Update, middleware.RequireMember())
		r.DELETE("/{keyResultId}", h.Delete, middleware.RequireMember())
		r.POST("/{keyResultId}/complete", h.Complete, middleware.RequireMember())

		r.GET("/{keyResultId}/check-ins", h.ListCheckIns)
		r.POST("/{keyResultId}/check-ins", h.CreateCheckIn, middleware.RequireMember())
	}
}

// teamRoutes returns team CRUD and roster routes.
func teamRoutes(h *handler.TeamHandler) func(Router) {
	return func(r Router) {
		r.GET("/", h.List)
		r.POST("/", h.Create, middleware.RequireMember())
		r.GET("/{teamId}", h.Get)
		r.PATCH("/{teamId}", h.Update, middleware.RequireMember())
		r.DELETE("/{teamId}", h.Delete, middleware.RequireMember())

		r.GET("/{teamId}/members", h.ListMembers)
		r.POST("/{teamId}/members", h.AddMember, middleware.RequireMember())
		r.DELETE("/{teamId}/members/{userId}", h.RemoveMember, middleware.RequireMember())
	}
}

// cadenceRoutes returns cadence CRUD routes plus the nested timeframe
// collection.
func cadenceRoutes(h *handler.CadenceHandler) func(Router) {
	return func(r Router) {
		r.GET("/", h.List)
		r.POST("/", h.Create, middleware.RequireMember())
		r.GET("/{cadenceId}", h.Get)
		r.PATCH("/{cadenceId}", h.Update, middleware.RequireMember())
		r.DELETE("/{cadenceId}", h.Delete, middleware.RequireMember())

		r.GET("/{cadenceId}/timeframes", h.ListTimeframes)
		r.POST("/{cadenceId}/timeframes", h.CreateTimeframe, middleware.RequireMember())
	}
}

// timeframeRoutes returns timeframe routes addressed by id.
func timeframeRoutes(h *handler.CadenceHandler) func(Router) {
	return func(r Router) {
		r.GET("/active", h.ListActiveTimeframes)
		r.PUT("/{timeframeId}", h.UpdateTimeframe, middleware.RequireMember())
		r.DELETE("/{timeframeId}", h.DeleteTimeframe, middleware.RequireMember())
	}
}
