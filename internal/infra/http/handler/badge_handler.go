package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/badge"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/validator"
)

// BadgeHandler handles recognition badge HTTP requests.
type BadgeHandler struct {
	service   *app.BadgeService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewBadgeHandler creates a new badge handler.
func NewBadgeHandler(svc *app.BadgeService, v *validator.Validator, log *logger.Logger) *BadgeHandler {
	return &BadgeHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// BadgeResponse represents a badge definition in API responses.
type BadgeResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AwardResponse represents a badge award in API responses.
type AwardResponse struct {
	ID          string    `json:"id"`
	BadgeID     string    `json:"badge_id"`
	RecipientID string    `json:"recipient_id"`
	AwardedBy   string    `json:"awarded_by"`
	Note        string    `json:"note,omitempty"`
	AwardedAt   time.Time `json:"awarded_at"`
}

func toBadgeResponse(b *badge.Badge) BadgeResponse {
	return BadgeResponse{
		ID:          b.ID().String(),
		Name:        b.Name(),
		Description: b.Description(),
		Icon:        b.Icon(),
		CreatedBy:   b.CreatedBy().String(),
		CreatedAt:   b.CreatedAt(),
		UpdatedAt:   b.UpdatedAt(),
	}
}

func toAwardResponse(a *badge.Award) AwardResponse {
	return AwardResponse{
		ID:          a.ID().String(),
		BadgeID:     a.BadgeID().String(),
		RecipientID: a.RecipientID().String(),
		AwardedBy:   a.AwardedBy().String(),
		Note:        a.Note(),
		AwardedAt:   a.AwardedAt(),
	}
}

func (h *BadgeHandler) handleValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apiErrors := make([]apierror.ValidationError, len(validationErrors))
		for i, ve := range validationErrors {
			apiErrors[i] = apierror.ValidationError{Field: ve.Field, Message: ve.Message}
		}
		apierror.ValidationFailed("Validation failed", apiErrors).WriteJSON(w)
		return
	}
	apierror.BadRequest("Validation error").WriteJSON(w)
}

func (h *BadgeHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrBadgesNotInPlan):
		apierror.QuotaExceeded("Badges are not included in the current plan").WriteJSON(w)
	case errors.Is(err, tenant.ErrNotMember):
		apierror.Forbidden("Recipient must be a member of this workspace").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Badge").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimErrorPrefix(err)).WriteJSON(w)
	case errors.Is(err, shared.ErrConflict):
		apierror.Conflict(trimErrorPrefix(err)).WriteJSON(w)
	default:
		h.logger.Error("badge service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// Create handles POST /api/v1/tenants/{tenant}/badges
func (h *BadgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	userID := middleware.GetUserIDAsID(r.Context())

	var input app.CreateBadgeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	b, err := h.service.CreateBadge(r.Context(), tenantID, input, userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBadgeResponse(b))
}

// List handles GET /api/v1/tenants/{tenant}/badges
func (h *BadgeHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())

	badges, err := h.service.ListBadges(r.Context(), tenantID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]BadgeResponse, len(badges))
	for i, b := range badges {
		response[i] = toBadgeResponse(b)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}

// Get handles GET /api/v1/tenants/{tenant}/badges/{badgeId}
func (h *BadgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("badgeId"))
	if err != nil {
		apierror.BadRequest("Invalid badge ID").WriteJSON(w)
		return
	}

	b, err := h.service.GetBadge(r.Context(), tenantID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBadgeResponse(b))
}

// Update handles PUT /api/v1/tenants/{tenant}/badges/{badgeId}
func (h *BadgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("badgeId"))
	if err != nil {
		apierror.BadRequest("Invalid badge ID").WriteJSON(w)
		return
	}

	var input app.UpdateBadgeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	b, err := h.service.UpdateBadge(r.Context(), tenantID, id, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBadgeResponse(b))
}

// Delete handles DELETE /api/v1/tenants/{tenant}/badges/{badgeId}
func (h *BadgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("badgeId"))
	if err != nil {
		apierror.BadRequest("Invalid badge ID").WriteJSON(w)
		return
	}

	if err := h.service.DeleteBadge(r.Context(), tenantID, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Award handles POST /api/v1/tenants/{tenant}/badges/{badgeId}/awards
func (h *BadgeHandler) Award(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	userID := middleware.GetUserIDAsID(r.Context())
	badgeID, err := shared.IDFromString(r.PathValue("badgeId"))
	if err != nil {
		apierror.BadRequest("Invalid badge ID").WriteJSON(w)
		return
	}

	var input app.AwardBadgeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	a, err := h.service.AwardBadge(r.Context(), tenantID, badgeID, input, userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAwardResponse(a))
}

// RevokeAward handles DELETE /api/v1/tenants/{tenant}/awards/{awardId}
func (h *BadgeHandler) RevokeAward(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	awardID, err := shared.IDFromString(r.PathValue("awardId"))
	if err != nil {
		apierror.BadRequest("Invalid award ID").WriteJSON(w)
		return
	}

	if err := h.service.RevokeAward(r.Context(), tenantID, awardID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListAwards handles GET /api/v1/tenants/{tenant}/badges/{badgeId}/awards
func (h *BadgeHandler) ListAwards(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	badgeID, err := shared.IDFromString(r.PathValue("badgeId"))
	if err != nil {
		apierror.BadRequest("Invalid badge ID").WriteJSON(w)
		return
	}

	awards, err := h.service.ListAwardsByBadge(r.Context(), tenantID, badgeID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]AwardResponse, len(awards))
	for i, a := range awards {
		response[i] = toAwardResponse(a)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}

// ListUserAwards handles GET /api/v1/tenants/{tenant}/members/{userId}/awards
func (h *BadgeHandler) ListUserAwards(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	userID, err := shared.IDFromString(r.PathValue("userId"))
	if err != nil {
		apierror.BadRequest("Invalid user ID").WriteJSON(w)
		return
	}

	awards, err := h.service.ListAwardsByRecipient(r.Context(), tenantID, userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]AwardResponse, len(awards))
	for i, a := range awards {
		response[i] = toAwardResponse(a)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}
