package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/objective"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/pagination"
	"github.com/northstarhq/api/pkg/validator"
)

// ObjectiveHandler handles objective HTTP requests.
type ObjectiveHandler struct {
	service   *app.ObjectiveService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewObjectiveHandler creates a new objective handler.
func NewObjectiveHandler(svc *app.ObjectiveService, v *validator.Validator, log *logger.Logger) *ObjectiveHandler {
	return &ObjectiveHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// ObjectiveResponse represents an objective in API responses.
type ObjectiveResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	TeamID      string    `json:"team_id,omitempty"`
	TimeframeID string    `json:"timeframe_id,omitempty"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toObjectiveResponse(o *objective.Objective) ObjectiveResponse {
	resp := ObjectiveResponse{
		ID:          o.ID().String(),
		Title:       o.Title(),
		Description: o.Description(),
		OwnerID:     o.OwnerID().String(),
		Status:      string(o.Status()),
		Progress:    o.Progress(),
		CreatedAt:   o.CreatedAt(),
		UpdatedAt:   o.UpdatedAt(),
	}
	if o.TeamID() != nil {
		resp.TeamID = o.TeamID().String()
	}
	if o.TimeframeID() != nil {
		resp.TimeframeID = o.TimeframeID().String()
	}
	return resp
}

func (h *ObjectiveHandler) handleValidationError(w http.ResponseWriter, err error) {
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

func (h *ObjectiveHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrObjectiveQuotaExceeded):
		apierror.QuotaExceeded("Objective limit for the current plan reached").WriteJSON(w)
	case errors.Is(err, tenant.ErrNotMember):
		apierror.Forbidden("Owner must be a member of this workspace").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Objective").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimErrorPrefix(err)).WriteJSON(w)
	case errors.Is(err, shared.ErrConflict):
		apierror.Conflict(trimErrorPrefix(err)).WriteJSON(w)
	default:
		h.logger.Error("objective service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// Create handles POST /api/v1/tenants/{tenant}/objectives
func (h *ObjectiveHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	userID := middleware.GetUserIDAsID(r.Context())
	if tenantID.IsZero() || userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	var input app.CreateObjectiveInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	o, err := h.service.CreateObjective(r.Context(), tenantID, input, userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toObjectiveResponse(o))
}

// Get handles GET /api/v1/tenants/{tenant}/objectives/{objectiveId}
func (h *ObjectiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("objectiveId"))
	if err != nil {
		apierror.BadRequest("Invalid objective ID").WriteJSON(w)
		return
	}

	o, err := h.service.GetObjective(r.Context(), tenantID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toObjectiveResponse(o))
}

// List handles GET /api/v1/tenants/{tenant}/objectives
// Filters: owner_id, team_id, timeframe_id, status, search, limit, offset.
func (h *ObjectiveHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	q := r.URL.Query()
	page := pagination.Parse(q)

	filter := objective.Filter{
		OwnerID:     q.Get("owner_id"),
		TeamID:      q.Get("team_id"),
		TimeframeID: q.Get("timeframe_id"),
		Status:      q.Get("status"),
		Search:      q.Get("search"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	}

	objectives, total, err := h.service.ListObjectives(r.Context(), tenantID, filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]ObjectiveResponse, len(objectives))
	for i, o := range objectives {
		response[i] = toObjectiveResponse(o)
	}

	writeJSON(w, http.StatusOK, pagination.NewResult(response, total, page))
}

// Update handles PATCH /api/v1/tenants/{tenant}/objectives/{objectiveId}
func (h *ObjectiveHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("objectiveId"))
	if err != nil {
		apierror.BadRequest("Invalid objective ID").WriteJSON(w)
		return
	}

	var input app.UpdateObjectiveInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	o, err := h.service.UpdateObjective(r.Context(), tenantID, id, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toObjectiveResponse(o))
}

// Delete handles DELETE /api/v1/tenants/{tenant}/objectives/{objectiveId}
func (h *ObjectiveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("objectiveId"))
	if err != nil {
		apierror.BadRequest("Invalid objective ID").WriteJSON(w)
		return
	}

	if err := h.service.DeleteObjective(r.Context(), tenantID, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
