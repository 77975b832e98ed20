package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/cadence"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/validator"
)

// CadenceHandler handles cadence and timeframe HTTP requests.
type CadenceHandler struct {
	service   *app.CadenceService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewCadenceHandler creates a new cadence handler.
func NewCadenceHandler(svc *app.CadenceService, v *validator.Validator, log *logger.Logger) *CadenceHandler {
	return &CadenceHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// CadenceResponse represents a cadence in API responses.
type CadenceResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	ReminderSchedule string    `json:"reminder_schedule"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TimeframeResponse represents a timeframe in API responses.
type TimeframeResponse struct {
	ID        string    `json:"id"`
	CadenceID string    `json:"cadence_id"`
	Name      string    `json:"name"`
	StartsOn  time.Time `json:"starts_on"`
	EndsOn    time.Time `json:"ends_on"`
	Current   bool      `json:"current"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCadenceResponse(c *cadence.Cadence) CadenceResponse {
	return CadenceResponse{
		ID:               c.ID().String(),
		Name:             c.Name(),
		Description:      c.Description(),
		ReminderSchedule: c.ReminderSchedule(),
		CreatedAt:        c.CreatedAt(),
		UpdatedAt:        c.UpdatedAt(),
	}
}

func toTimeframeResponse(t *cadence.Timeframe) TimeframeResponse {
	return TimeframeResponse{
		ID:        t.ID().String(),
		CadenceID: t.CadenceID().String(),
		Name:      t.Name(),
		StartsOn:  t.StartsOn(),
		EndsOn:    t.EndsOn(),
		Current:   t.IsCurrent(time.Now().UTC()),
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}
}

func (h *CadenceHandler) handleValidationError(w http.ResponseWriter, err error) {
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

func (h *CadenceHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cadence.ErrHasTimeframes):
		apierror.Conflict("Cadence still has timeframes").WriteJSON(w)
	case errors.Is(err, cadence.ErrTimeframeInUse):
		apierror.Conflict("Timeframe is referenced by objectives").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Cadence").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimErrorPrefix(err)).WriteJSON(w)
	case errors.Is(err, shared.ErrConflict):
		apierror.Conflict(trimErrorPrefix(err)).WriteJSON(w)
	default:
		h.logger.Error("cadence service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// Create handles POST /api/v1/tenants/{tenant}/cadences
func (h *CadenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())

	var input app.CreateCadenceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	c, err := h.service.CreateCadence(r.Context(), tenantID, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCadenceResponse(c))
}

// Get handles GET /api/v1/tenants/{tenant}/cadences/{cadenceId}
func (h *CadenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("cadenceId"))
	if err != nil {
		apierror.BadRequest("Invalid cadence ID").WriteJSON(w)
		return
	}

	c, err := h.service.GetCadence(r.Context(), tenantID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCadenceResponse(c))
}

// List handles GET /api/v1/tenants/{tenant}/cadences
func (h *CadenceHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())

	cadences, err := h.service.ListCadences(r.Context(), tenantID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]CadenceResponse, len(cadences))
	for i, c := range cadences {
		response[i] = toCadenceResponse(c)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}

// Update handles PATCH /api/v1/tenants/{tenant}/cadences/{cadenceId}
func (h *CadenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("cadenceId"))
	if err != nil {
		apierror.BadRequest("Invalid cadence ID").WriteJSON(w)
		return
	}

	var input app.UpdateCadenceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	c, err := h.service.UpdateCadence(r.Context(), tenantID, id, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCadenceResponse(c))
}

// Delete handles DELETE /api/v1/tenants/{tenant}/cadences/{cadenceId}
func (h *CadenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("cadenceId"))
	if err != nil {
		apierror.BadRequest("Invalid cadence ID").WriteJSON(w)
		return
	}

	if err := h.service.DeleteCadence(r.Context(), tenantID, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateTimeframe handles POST /api/v1/tenants/{tenant}/cadences/{cadenceId}/timeframes
func (h *CadenceHandler) CreateTimeframe(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	cadenceID, err := shared.IDFromString(r.PathValue("cadenceId"))
	if err != nil {
		apierror.BadRequest("Invalid cadence ID").WriteJSON(w)
		return
	}

	var input app.CreateTimeframeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	tf, err := h.service.CreateTimeframe(r.Context(), tenantID, cadenceID, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTimeframeResponse(tf))
}

// ListTimeframes handles GET /api/v1/tenants/{tenant}/cadences/{cadenceId}/timeframes
func (h *CadenceHandler) ListTimeframes(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	cadenceID, err := shared.IDFromString(r.PathValue("cadenceId"))
	if err != nil {
		apierror.BadRequest("Invalid cadence ID").WriteJSON(w)
		return
	}

	timeframes, err := h.service.ListTimeframes(r.Context(), tenantID, cadenceID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]TimeframeResponse, len(timeframes))
	for i, tf := range timeframes {
		response[i] = toTimeframeResponse(tf)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}

// ListActiveTimeframes handles GET /api/v1/tenants/{tenant}/timeframes/active
func (h *CadenceHandler) ListActiveTimeframes(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())

	timeframes, err := h.service.ListActiveTimeframes(r.Context(), tenantID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]TimeframeResponse, len(timeframes))
	for i, tf := range timeframes {
		response[i] = toTimeframeResponse(tf)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}

// UpdateTimeframe handles PUT /api/v1/tenants/{tenant}/timeframes/{timeframeId}
func (h *CadenceHandler) UpdateTimeframe(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("timeframeId"))
	if err != nil {
		apierror.BadRequest("Invalid timeframe ID").WriteJSON(w)
		return
	}

	var input app.UpdateTimeframeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	tf, err := h.service.UpdateTimeframe(r.Context(), tenantID, id, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTimeframeResponse(tf))
}

// DeleteTimeframe handles DELETE /api/v1/tenants/{tenant}/timeframes/{timeframeId}
func (h *CadenceHandler) DeleteTimeframe(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("timeframeId"))
	if err != nil {
		apierror.BadRequest("Invalid timeframe ID").WriteJSON(w)
		return
	}

	if err := h.service.DeleteTimeframe(r.Context(), tenantID, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
