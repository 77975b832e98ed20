package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/team"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/pagination"
	"github.com/northstarhq/api/pkg/validator"
)

// TeamHandler handles team HTTP requests.
type TeamHandler struct {
	service   *app.TeamService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewTeamHandler creates a new team handler.
func NewTeamHandler(svc *app.TeamService, v *validator.Validator, log *logger.Logger) *TeamHandler {
	return &TeamHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// TeamResponse represents a team in API responses.
type TeamResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	LeadID      string    `json:"lead_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TeamMemberResponse represents a team member in API responses.
type TeamMemberResponse struct {
	TeamID  string    `json:"team_id"`
	UserID  string    `json:"user_id"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// AddTeamMemberRequest represents the request to add a team member.
type AddTeamMemberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

func toTeamResponse(t *team.Team) TeamResponse {
	resp := TeamResponse{
		ID:          t.ID().String(),
		Name:        t.Name(),
		Slug:        t.Slug(),
		Description: t.Description(),
		CreatedAt:   t.CreatedAt(),
		UpdatedAt:   t.UpdatedAt(),
	}
	if t.LeadID() != nil {
		resp.LeadID = t.LeadID().String()
	}
	return resp
}

func toTeamMemberResponse(m *team.Member) TeamMemberResponse {
	return TeamMemberResponse{
		TeamID:  m.TeamID().String(),
		UserID:  m.UserID().String(),
		AddedBy: m.AddedBy().String(),
		AddedAt: m.AddedAt(),
	}
}

func (h *TeamHandler) handleValidationError(w http.ResponseWriter, err error) {
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

func (h *TeamHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrTeamQuotaExceeded):
		apierror.QuotaExceeded("Team limit for the current plan reached").WriteJSON(w)
	case errors.Is(err, app.ErrAlreadyTeamMember):
		apierror.Conflict("User is already a member of this team").WriteJSON(w)
	case errors.Is(err, tenant.ErrNotMember):
		apierror.Forbidden("User must be a member of this workspace").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Team").WriteJSON(w)
	case errors.Is(err, shared.ErrAlreadyExists):
		apierror.Conflict("Team already exists").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimErrorPrefix(err)).WriteJSON(w)
	default:
		h.logger.Error("team service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// Create handles POST /api/v1/tenants/{tenant}/teams
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())

	var input app.CreateTeamInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	t, err := h.service.CreateTeam(r.Context(), tenantID, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTeamResponse(t))
}

// Get handles GET /api/v1/tenants/{tenant}/teams/{teamId}
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("teamId"))
	if err != nil {
		apierror.BadRequest("Invalid team ID").WriteJSON(w)
		return
	}

	t, err := h.service.GetTeam(r.Context(), tenantID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTeamResponse(t))
}

// List handles GET /api/v1/tenants/{tenant}/teams
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	page := pagination.Parse(r.URL.Query())

	teams, total, err := h.service.ListTeams(r.Context(), tenantID, page.Limit, page.Offset)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]TeamResponse, len(teams))
	for i, t := range teams {
		response[i] = toTeamResponse(t)
	}

	writeJSON(w, http.StatusOK, pagination.NewResult(response, total, page))
}

// Update handles PATCH /api/v1/tenants/{tenant}/teams/{teamId}
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("teamId"))
	if err != nil {
		apierror.BadRequest("Invalid team ID").WriteJSON(w)
		return
	}

	var input app.UpdateTeamInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	t, err := h.service.UpdateTeam(r.Context(), tenantID, id, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTeamResponse(t))
}

// Delete handles DELETE /api/v1/tenants/{tenant}/teams/{teamId}
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("teamId"))
	if err != nil {
		apierror.BadRequest("Invalid team ID").WriteJSON(w)
		return
	}

	if err := h.service.DeleteTeam(r.Context(), tenantID, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddMember handles POST /api/v1/tenants/{tenant}/teams/{teamId}/members
func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	addedBy := middleware.GetUserIDAsID(r.Context())
	teamID, err := shared.IDFromString(r.PathValue("teamId"))
	if err != nil {
		apierror.BadRequest("Invalid team ID").WriteJSON(w)
		return
	}

	var req AddTeamMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	m, err := h.service.AddTeamMember(r.Context(), tenantID, teamID, req.UserID, addedBy)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTeamMemberResponse(m))
}

// RemoveMember handles DELETE /api/v1/tenants/{tenant}/teams/{teamId}/members/{userId}
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	teamID, err := shared.IDFromString(r.PathValue("teamId"))
	if err != nil {
		apierror.BadRequest("Invalid team ID").WriteJSON(w)
		return
	}
	userID, err := shared.IDFromString(r.PathValue("userId"))
	if err != nil {
		apierror.BadRequest("Invalid user ID").WriteJSON(w)
		return
	}

	if err := h.service.RemoveTeamMember(r.Context(), tenantID, teamID, userID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /api/v1/tenants/{tenant}/teams/{teamId}/members
func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	teamID, err := shared.IDFromString(r.PathValue("teamId"))
	if err != nil {
		apierror.BadRequest("Invalid team ID").WriteJSON(w)
		return
	}

	members, err := h.service.ListTeamMembers(r.Context(), tenantID, teamID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]TeamMemberResponse, len(members))
	for i, m := range members {
		response[i] = toTeamMemberResponse(m)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}
