package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/northstarhq/api/internal/infra/http/handler"
	"github.com/northstarhq/api/internal/infra/websocket"
)

// registerHealthRoutes registers health check and metrics endpoints.
func registerHealthRoutes(router Router, h *handler.HealthHandler) {
	router.GET("/healthz", h.Health)
	router.GET("/readyz", h.Ready)
	router.GET("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
}

// registerWebSocketRoutes registers the WebSocket endpoint for
// real-time chat.
//
// Channels follow the format chat:{roomID}. Subscriptions are
// authorized at subscribe time against the room's workspace and, for
// team rooms, team membership.
//
// GET /api/v1/ws?token={short-lived token}[&tenantId={id}]
func registerWebSocketRoutes(router Router, h *websocket.Handler, middlewares ...Middleware) {
	router.GET("/api/v1/ws", h.ServeWS, middlewares...)
}
