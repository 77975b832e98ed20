package routes

import (
	"github.com/northstarhq/api/internal/infra/http/handler"
	"github.com/northstarhq/api/internal/infra/http/middleware"
)

// registerBillingRoutes registers flat subscription aliases and the
// provider webhook. The webhook is unauthenticated; its payload is
// HMAC-verified by the handler instead.
func registerBillingRoutes(router Router, h *handler.BillingHandler, workspaceMW []Middleware) {
	ownerMW := append(append([]Middleware{}, workspaceMW...), middleware.RequireOwner())

	router.GET("/api/v1/billing/subscription", h.GetSubscription, workspaceMW...)
	router.POST("/api/v1/billing/subscription", h.CreateSubscription, ownerMW...)
	router.DELETE("/api/v1/billing/subscription", h.CancelSubscription, ownerMW...)

	router.POST("/api/v1/billing/webhook", h.Webhook)
}
