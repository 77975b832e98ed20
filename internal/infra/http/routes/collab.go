package routes

import (
	"github.com/northstarhq/api/internal/infra/http/handler"
	"github.com/northstarhq/api/internal/infra/http/middleware"
)

// registerCollabRoutes registers flat aliases for workspace-scoped
// collaboration resources (feedback, badges, chat).
func registerCollabRoutes(router Router, h Handlers, workspaceMW []Middleware) {
	router.Group("/api/v1/feedback", feedbackRoutes(h.Feedback), workspaceMW...)
	router.Group("/api/v1/badges", badgeRoutes(h.Badge), workspaceMW...)
	router.DELETE("/api/v1/awards/{awardId}", h.Badge.RevokeAward,
		append(append([]Middleware{}, workspaceMW...), middleware.RequireMember())...)
	router.Group("/api/v1/chat", chatRoutes(h.Chat), workspaceMW...)
}

// feedbackRoutes returns feedback routes. Visibility filtering happens
// in the service; deletion is restricted to the author there too.
func feedbackRoutes(h *handler.FeedbackHandler) func(Router) {
	return func(r Router) {
		r.GET("/", h.List)
		r.POST("/", h.Create, middleware.RequireMember())
		r.GET("/{feedbackId}", h.Get)
		r.DELETE("/{feedbackId}", h.Delete, middleware.RequireMember())
	}
}

// badgeRoutes returns badge definition and award routes.
func badgeRoutes(h *handler.BadgeHandler) func(Router) {
	return func(r Router) {
		r.GET("/", h.List)
		r.POST("/", h.Create, middleware.RequireMember())
		r.GET("/{badgeId}", h.Get)
		r.PUT("/{badgeId}", h.Update, middleware.RequireMember())
		r.DELETE("/{badgeId}", h.Delete, middleware.RequireMember())

		r.GET("/{badgeId}/awards", h.ListAwards)
		r.POST("/{badgeId}/awards", h.Award, middleware.RequireMember())
	}
}

// chatRoutes returns chat room and message routes. Room access checks
// (team rooms are restricted to their team) live in the service.
func chatRoutes(h *handler.ChatHandler) func(Router) {
	return func(r Router) {
		r.GET("/rooms", h.ListRooms)
		r.POST("/rooms", h.CreateTeamRoom, middleware.RequireMember())
		r.DELETE("/rooms/{roomId}", h.DeleteRoom, middleware.RequireAdmin())

		r.GET("/rooms/{roomId}/messages", h.ListMessages)
		r.POST("/rooms/{roomId}/messages", h.PostMessage, middleware.RequireMember())
	}
}
