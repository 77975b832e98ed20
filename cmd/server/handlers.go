package main

import (
	"github.com/northstarhq/api/internal/config"
	infrabilling "github.com/northstarhq/api/internal/infra/billing"
	"github.com/northstarhq/api/internal/infra/http/handler"
	"github.com/northstarhq/api/internal/infra/http/routes"
	"github.com/northstarhq/api/internal/infra/postgres"
	"github.com/northstarhq/api/internal/infra/redis"
	"github.com/northstarhq/api/internal/infra/websocket"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/validator"
)

// HandlerDeps contains dependencies needed to create handlers.
type HandlerDeps struct {
	Config       *config.Config
	Log          *logger.Logger
	Validator    *validator.Validator
	DB           *postgres.DB
	RedisClient  *redis.Client
	WebSocketHub *websocket.Hub // nil when chat fan-out is disabled
	Services     *Services
}

// NewHandlers creates all HTTP handlers.
func NewHandlers(deps *HandlerDeps) routes.Handlers {
	cfg := deps.Config
	log := deps.Log
	v := deps.Validator
	svc := deps.Services

	cookies := handler.NewCookieConfig(cfg.Auth)

	// Webhook signatures may only be skipped outside production, and
	// only when no secret is configured at all.
	allowUnsigned := !cfg.IsProduction() && cfg.Billing.WebhookSecret == ""
	verifier := infrabilling.NewWebhookVerifier(cfg.Billing.WebhookSecret, allowUnsigned, log)

	handlers := routes.Handlers{
		Health: handler.NewHealthHandler(
			handler.WithDatabase(deps.DB),
			handler.WithRedis(deps.RedisClient),
		),

		Auth:      handler.NewAuthHandler(svc.Auth, v, cookies, log),
		User:      handler.NewUserHandler(svc.User, v, log),
		Tenant:    handler.NewTenantHandler(svc.Tenant, v, cookies, log),
		Bootstrap: handler.NewBootstrapHandler(svc.User, svc.Tenant, log),

		Objective: handler.NewObjectiveHandler(svc.Objective, v, log),
		KeyResult: handler.NewKeyResultHandler(svc.KeyResult, v, log),
		Team:      handler.NewTeamHandler(svc.Team, v, log),
		Cadence:   handler.NewCadenceHandler(svc.Cadence, v, log),

		Feedback: handler.NewFeedbackHandler(svc.Feedback, v, log),
		Badge:    handler.NewBadgeHandler(svc.Badge, v, log),
		Chat:     handler.NewChatHandler(svc.Chat, v, log),

		Billing: handler.NewBillingHandler(svc.Billing, svc.User, verifier, v, log),
	}

	if deps.WebSocketHub != nil {
		handlers.WebSocket = websocket.NewHandler(deps.WebSocketHub, log)
	}

	return handlers
}
