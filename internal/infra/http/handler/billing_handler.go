package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/northstarhq/api/internal/app"
	infrabilling "github.com/northstarhq/api/internal/infra/billing"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/billing"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/validator"
)

// maxWebhookBody caps webhook payload reads.
const maxWebhookBody = 1 << 20

// BillingHandler handles subscription HTTP requests and the provider
// webhook.
type BillingHandler struct {
	service     *app.BillingService
	userService *app.UserService
	verifier    *infrabilling.WebhookVerifier
	validator   *validator.Validator
	logger      *logger.Logger
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(
	svc *app.BillingService,
	userSvc *app.UserService,
	verifier *infrabilling.WebhookVerifier,
	v *validator.Validator,
	log *logger.Logger,
) *BillingHandler {
	return &BillingHandler{
		service:     svc,
		userService: userSvc,
		verifier:    verifier,
		validator:   v,
		logger:      log,
	}
}

// SubscriptionResponse represents a subscription in API responses.
type SubscriptionResponse struct {
	ID                 string    `json:"id"`
	Plan               string    `json:"plan"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool      `json:"cancel_at_period_end"`
	CreatedAt          time.Time `json:"created_at"`
}

// CreateSubscriptionRequest represents the request to start a subscription.
type CreateSubscriptionRequest struct {
	Plan string `json:"plan" validate:"required,oneof=starter professional enterprise"`
}

func toSubscriptionResponse(s *billing.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:                 s.ID().String(),
		Plan:               s.Plan().String(),
		Status:             string(s.Status()),
		CurrentPeriodStart: s.CurrentPeriodStart(),
		CurrentPeriodEnd:   s.CurrentPeriodEnd(),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd(),
		CreatedAt:          s.CreatedAt(),
	}
}

func (h *BillingHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrNoSubscription):
		apierror.NotFound("Subscription").WriteJSON(w)
	case errors.Is(err, app.ErrBillingNotConfigured):
		apierror.ServiceUnavailable("billing provider not configured").WriteJSON(w)
	case errors.Is(err, app.ErrSubscriptionExists):
		apierror.Conflict("Workspace already has a subscription").WriteJSON(w)
	case errors.Is(err, billing.ErrInvalidTransition):
		apierror.Conflict("Subscription state does not allow this operation").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimErrorPrefix(err)).WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Subscription").WriteJSON(w)
	default:
		h.logger.Error("billing service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// GetSubscription handles GET /api/v1/tenants/{tenant}/billing/subscription
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())

	sub, err := h.service.GetSubscription(r.Context(), tenantID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// CreateSubscription handles POST /api/v1/tenants/{tenant}/billing/subscription
func (h *BillingHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	userID := middleware.GetUserIDAsID(r.Context())

	var req CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		apierror.BadRequest("Invalid plan").WriteJSON(w)
		return
	}

	actor, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	result, err := h.service.CreateSubscription(r.Context(), tenantID, app.CreateSubscriptionInput{
		Plan: req.Plan,
	}, actor)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"subscription": toSubscriptionResponse(result.Subscription),
		"checkout_url": result.CheckoutURL,
	})
}

// CancelSubscription handles DELETE /api/v1/tenants/{tenant}/billing/subscription.
// Graceful: access continues until period end.
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())

	sub, err := h.service.ScheduleCancellation(r.Context(), tenantID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// Webhook handles POST /api/v1/billing/webhook (unauthenticated,
// signature-verified).
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		apierror.BadRequest("Failed to read request body").WriteJSON(w)
		return
	}

	if err := h.verifier.Verify(body, r.Header.Get(infrabilling.SignatureHeader)); err != nil {
		h.logger.Warn("webhook signature rejected", "remote_addr", r.RemoteAddr)
		apierror.Unauthorized("Invalid webhook signature").WriteJSON(w)
		return
	}

	event, err := h.verifier.Decode(body)
	if err != nil {
		apierror.BadRequest("Invalid webhook payload").WriteJSON(w)
		return
	}

	if err := h.service.HandleWebhookEvent(r.Context(), event); err != nil {
		// Non-2xx makes the provider redeliver; dedup absorbs replays.
		h.logger.Error("webhook apply failed", "event_id", event.ID, "error", err)
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}
