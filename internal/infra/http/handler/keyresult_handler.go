package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/checkin"
	"github.com/northstarhq/api/pkg/domain/keyresult"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/pagination"
	"github.com/northstarhq/api/pkg/validator"
)

// KeyResultHandler handles key result and check-in HTTP requests.
type KeyResultHandler struct {
	service   *app.KeyResultService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewKeyResultHandler creates a new key result handler.
func NewKeyResultHandler(svc *app.KeyResultService, v *validator.Validator, log *logger.Logger) *KeyResultHandler {
	return &KeyResultHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// KeyResultResponse represents a key result in API responses.
type KeyResultResponse struct {
	ID           string    `json:"id"`
	ObjectiveID  string    `json:"objective_id"`
	Title        string    `json:"title"`
	Kind         string    `json:"kind"`
	StartValue   float64   `json:"start_value"`
	TargetValue  float64   `json:"target_value"`
	CurrentValue float64   `json:"current_value"`
	Unit         string    `json:"unit,omitempty"`
	Confidence   int       `json:"confidence"`
	Progress     int       `json:"progress"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CheckInResponse represents a check-in in API responses.
type CheckInResponse struct {
	ID          string    `json:"id"`
	KeyResultID string    `json:"key_result_id"`
	AuthorID    string    `json:"author_id"`
	Value       float64   `json:"value"`
	Confidence  int       `json:"confidence"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toKeyResultResponse(k *keyresult.KeyResult) KeyResultResponse {
	return KeyResultResponse{
		ID:           k.ID().String(),
		ObjectiveID:  k.ObjectiveID().String(),
		Title:        k.Title(),
		Kind:         string(k.Kind()),
		StartValue:   k.StartValue(),
		TargetValue:  k.TargetValue(),
		CurrentValue: k.CurrentValue(),
		Unit:         k.Unit(),
		Confidence:   k.Confidence(),
		Progress:     k.Progress(),
		CreatedAt:    k.CreatedAt(),
		UpdatedAt:    k.UpdatedAt(),
	}
}

func toCheckInResponse(c *checkin.CheckIn) CheckInResponse {
	return CheckInResponse{
		ID:          c.ID().String(),
		KeyResultID: c.KeyResultID().String(),
		AuthorID:    c.AuthorID().String(),
		Value:       c.Value(),
		Confidence:  c.Confidence(),
		Note:        c.Note(),
		CreatedAt:   c.CreatedAt(),
	}
}

func (h *KeyResultHandler) handleValidationError(w http.ResponseWriter, err error) {
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

func (h *KeyResultHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Key result").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimErrorPrefix(err)).WriteJSON(w)
	case errors.Is(err, shared.ErrConflict):
		apierror.Conflict(trimErrorPrefix(err)).WriteJSON(w)
	default:
		h.logger.Error("key result service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// Create handles POST /api/v1/tenants/{tenant}/objectives/{objectiveId}/key-results
func (h *KeyResultHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	objectiveID, err := shared.IDFromString(r.PathValue("objectiveId"))
	if err != nil {
		apierror.BadRequest("Invalid objective ID").WriteJSON(w)
		return
	}

	var input app.CreateKeyResultInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	kr, err := h.service.CreateKeyResult(r.Context(), tenantID, objectiveID, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toKeyResultResponse(kr))
}

// List handles GET /api/v1/tenants/{tenant}/objectives/{objectiveId}/key-results
func (h *KeyResultHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	objectiveID, err := shared.IDFromString(r.PathValue("objectiveId"))
	if err != nil {
		apierror.BadRequest("Invalid objective ID").WriteJSON(w)
		return
	}

	results, err := h.service.ListKeyResults(r.Context(), tenantID, objectiveID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]KeyResultResponse, len(results))
	for i, kr := range results {
		response[i] = toKeyResultResponse(kr)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}

// Get handles GET /api/v1/tenants/{tenant}/key-results/{keyResultId}
func (h *KeyResultHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("keyResultId"))
	if err != nil {
		apierror.BadRequest("Invalid key result ID").WriteJSON(w)
		return
	}

	kr, err := h.service.GetKeyResult(r.Context(), tenantID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toKeyResultResponse(kr))
}

// Update handles PATCH /api/v1/tenants/{tenant}/key-results/{keyResultId}
func (h *KeyResultHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("keyResultId"))
	if err != nil {
		apierror.BadRequest("Invalid key result ID").WriteJSON(w)
		return
	}

	var input app.UpdateKeyResultInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	kr, err := h.service.UpdateKeyResult(r.Context(), tenantID, id, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toKeyResultResponse(kr))
}

// Complete handles POST /api/v1/tenants/{tenant}/key-results/{keyResultId}/complete
func (h *KeyResultHandler) Complete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("keyResultId"))
	if err != nil {
		apierror.BadRequest("Invalid key result ID").WriteJSON(w)
		return
	}

	kr, err := h.service.CompleteKeyResult(r.Context(), tenantID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toKeyResultResponse(kr))
}

// Delete handles DELETE /api/v1/tenants/{tenant}/key-results/{keyResultId}
func (h *KeyResultHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("keyResultId"))
	if err != nil {
		apierror.BadRequest("Invalid key result ID").WriteJSON(w)
		return
	}

	if err := h.service.DeleteKeyResult(r.Context(), tenantID, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateCheckIn handles POST /api/v1/tenants/{tenant}/key-results/{keyResultId}/check-ins
func (h *KeyResultHandler) CreateCheckIn(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	userID := middleware.GetUserIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("keyResultId"))
	if err != nil {
		apierror.BadRequest("Invalid key result ID").WriteJSON(w)
		return
	}

	var input app.CreateCheckInInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	ci, err := h.service.CreateCheckIn(r.Context(), tenantID, id, userID, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCheckInResponse(ci))
}

// ListCheckIns handles GET /api/v1/tenants/{tenant}/key-results/{keyResultId}/check-ins
func (h *KeyResultHandler) ListCheckIns(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("keyResultId"))
	if err != nil {
		apierror.BadRequest("Invalid key result ID").WriteJSON(w)
		return
	}

	page := pagination.Parse(r.URL.Query())

	checkins, total, err := h.service.ListCheckIns(r.Context(), tenantID, id, page.Limit, page.Offset)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]CheckInResponse, len(checkins))
	for i, ci := range checkins {
		response[i] = toCheckInResponse(ci)
	}

	writeJSON(w, http.StatusOK, pagination.NewResult(response, total, page))
}

// ListTenantCheckIns handles GET /api/v1/tenants/{tenant}/check-ins.
// The workspace-wide activity feed, newest first.
func (h *KeyResultHandler) ListTenantCheckIns(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())

	page := pagination.Parse(r.URL.Query())

	checkins, total, err := h.service.ListTenantCheckIns(r.Context(), tenantID, page.Limit, page.Offset)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]CheckInResponse, len(checkins))
	for i, ci := range checkins {
		response[i] = toCheckInResponse(ci)
	}

	writeJSON(w, http.StatusOK, pagination.NewResult(response, total, page))
}
