package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin handshakes are allowed; access control relies on
		// the short-lived connect token, not the Origin header.
		return true
	},
}

// Handler upgrades authenticated requests into hub clients.
type Handler struct {
	hub    *Hub
	logger *logger.Logger
}

func NewHandler(hub *Hub, log *logger.Logger) *Handler {
	return &Handler{hub: hub, logger: log}
}

// ServeWS upgrades GET /api/v1/ws. The auth and workspace-resolver
// middleware run first; by the time this executes, an empty user or
// tenant means the chain was misconfigured, so refuse the upgrade.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	tenantID := middleware.GetTenantID(ctx)

	if userID == "" || tenantID == "" {
		h.logger.Warn("websocket connection attempt without auth", "remote_addr", r.RemoteAddr)
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own error response.
		h.logger.Error("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := NewClient(h.hub, conn, userID, tenantID, h.logger)
	h.hub.RegisterClient(client)

	h.logger.Info("websocket client connected",
		"client_id", client.ID,
		"user_id", userID,
		"tenant_id", tenantID,
		"remote_addr", r.RemoteAddr,
	)

	go client.WritePump()
	go client.ReadPump()
}
