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
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/validator"
)

// TenantHandler handles workspace HTTP requests.
type TenantHandler struct {
	service   *app.TenantService
	validator *validator.Validator
	cookies   CookieConfig
	logger    *logger.Logger
}

// NewTenantHandler creates a new workspace handler.
func NewTenantHandler(svc *app.TenantService, v *validator.Validator, cookies CookieConfig, log *logger.Logger) *TenantHandler {
	return &TenantHandler{
		service:   svc,
		validator: v,
		cookies:   cookies,
		logger:    log,
	}
}

// =============================================================================
// Response Types
// =============================================================================

// TenantResponse represents a workspace in API responses.
type TenantResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	LogoURL     string    `json:"logo_url,omitempty"`
	Plan        string    `json:"plan"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TenantWithRoleResponse represents a workspace with the user's role.
type TenantWithRoleResponse struct {
	TenantResponse
	Role      string    `json:"role"`
	IsDefault bool      `json:"is_default"`
	JoinedAt  time.Time `json:"joined_at"`
}

// MemberResponse represents a workspace membership.
type MemberResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	IsDefault bool      `json:"is_default"`
	InvitedBy string    `json:"invited_by,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
}

// MemberWithUserResponse represents a member with user details.
type MemberWithUserResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Role        string     `json:"role"`
	InvitedBy   string     `json:"invited_by,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// InvitationResponse represents an invitation in API responses.
type InvitationResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"token,omitempty"`
	InvitedBy string    `json:"invited_by"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	Accepted  bool      `json:"accepted"`
}

// =============================================================================
// Request Types
// =============================================================================

// CreateTenantRequest represents the request to create a workspace.
type CreateTenantRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

// UpdateTenantRequest represents the request to update a workspace.
// The slug is fixed at creation and never updatable.
type UpdateTenantRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	LogoURL     *string `json:"logo_url" validate:"omitempty,url,max=500"`
}

// AddMemberRequest represents the request to add a member directly.
type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=owner admin member"`
}

// UpdateMemberRoleRequest represents the request to change a member's role.
type UpdateMemberRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=owner admin member"`
}

// CreateInvitationRequest represents the request to invite by email.
type CreateInvitationRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Role  string `json:"role" validate:"required,oneof=owner admin member"`
}

// =============================================================================
// Response Converters
// =============================================================================

func toTenantResponse(t *tenant.Tenant) TenantResponse {
	return TenantResponse{
		ID:          t.ID().String(),
		Name:        t.Name(),
		Slug:        t.Slug(),
		Description: t.Description(),
		LogoURL:     t.LogoURL(),
		Plan:        t.Plan().String(),
		Status:      string(t.Status()),
		CreatedAt:   t.CreatedAt(),
		UpdatedAt:   t.UpdatedAt(),
	}
}

func toTenantWithRoleResponse(twr *tenant.TenantWithRole) TenantWithRoleResponse {
	return TenantWithRoleResponse{
		TenantResponse: toTenantResponse(twr.Tenant),
		Role:           twr.Role.String(),
		IsDefault:      twr.IsDefault,
		JoinedAt:       twr.JoinedAt,
	}
}

func toMemberResponse(m *tenant.Membership) MemberResponse {
	var invitedBy string
	if m.InvitedBy() != nil {
		invitedBy = m.InvitedBy().String()
	}
	return MemberResponse{
		ID:        m.ID().String(),
		UserID:    m.UserID().String(),
		Role:      m.Role().String(),
		IsDefault: m.IsDefault(),
		InvitedBy: invitedBy,
		JoinedAt:  m.JoinedAt(),
	}
}

func toMemberWithUserResponse(m *tenant.MemberWithUser) MemberWithUserResponse {
	var invitedBy string
	if m.InvitedBy != nil {
		invitedBy = m.InvitedBy.String()
	}
	return MemberWithUserResponse{
		ID:          m.ID.String(),
		UserID:      m.UserID.String(),
		Role:        m.Role.String(),
		InvitedBy:   invitedBy,
		JoinedAt:    m.JoinedAt,
		Email:       m.Email,
		Name:        m.Name,
		AvatarURL:   m.AvatarURL,
		LastLoginAt: m.LastLoginAt,
	}
}

func toInvitationResponse(inv *tenant.Invitation, includeToken bool) InvitationResponse {
	resp := InvitationResponse{
		ID:        inv.ID().String(),
		Email:     inv.Email(),
		Role:      inv.Role().String(),
		InvitedBy: inv.InvitedBy().String(),
		ExpiresAt: inv.ExpiresAt(),
		CreatedAt: inv.CreatedAt(),
		Accepted:  inv.IsAccepted(),
	}
	if includeToken {
		resp.Token = inv.Token()
	}
	return resp
}

// =============================================================================
// Error Handling
// =============================================================================

func (h *TenantHandler) handleValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apiErrors := make([]apierror.ValidationError, len(validationErrors))
		for i, ve := range validationErrors {
			apiErrors[i] = apierror.ValidationError{
				Field:   ve.Field,
				Message: ve.Message,
			}
		}
		apierror.ValidationFailed("Validation failed", apiErrors).WriteJSON(w)
		return
	}
	apierror.BadRequest("Validation error").WriteJSON(w)
}

func (h *TenantHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenant.ErrSlugTaken):
		apierror.Conflict("Workspace slug is already taken").WriteJSON(w)
	case errors.Is(err, tenant.ErrLastOwner):
		apierror.Conflict("Workspace must keep at least one owner").WriteJSON(w)
	case errors.Is(err, tenant.ErrAlreadyMember):
		apierror.Conflict("User is already a member").WriteJSON(w)
	case errors.Is(err, tenant.ErrMemberQuotaExceeded):
		apierror.QuotaExceeded("Member limit for the current plan reached").WriteJSON(w)
	case errors.Is(err, app.ErrInvitationPending):
		apierror.Conflict("An invitation for this email is already pending").WriteJSON(w)
	case errors.Is(err, app.ErrInvitationExpired):
		apierror.Conflict("Invitation has expired").WriteJSON(w)
	case errors.Is(err, app.ErrInvitationAccepted):
		apierror.Conflict("Invitation has already been accepted").WriteJSON(w)
	case errors.Is(err, app.ErrInvitationEmailMismatch):
		apierror.Forbidden("Invitation was issued to a different email").WriteJSON(w)
	case errors.Is(err, tenant.ErrNotMember):
		apierror.Forbidden("Not a member of this workspace").WriteJSON(w)
	case errors.Is(err, shared.ErrForbidden):
		apierror.Forbidden("Forbidden").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Workspace").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimErrorPrefix(err)).WriteJSON(w)
	case errors.Is(err, shared.ErrConflict):
		apierror.Conflict(trimErrorPrefix(err)).WriteJSON(w)
	default:
		h.logger.Error("tenant service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// =============================================================================
// Workspace Handlers
// =============================================================================

// Create handles POST /api/v1/tenants
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDAsID(r.Context())
	if userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	t, err := h.service.CreateTenant(r.Context(), app.CreateTenantInput{
		Name:        req.Name,
		Description: req.Description,
	}, userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	SetTenantCookie(w, t.ID().String(), t.Slug(), tenant.RoleOwner.String(), h.cookies)
	writeJSON(w, http.StatusCreated, toTenantResponse(t))
}

// List handles GET /api/v1/tenants
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDAsID(r.Context())
	if userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	tenants, err := h.service.ListUserTenants(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]TenantWithRoleResponse, len(tenants))
	for i, t := range tenants {
		response[i] = toTenantWithRoleResponse(t)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}

// GetDefault handles GET /api/v1/tenants/default
func (h *TenantHandler) GetDefault(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDAsID(r.Context())
	if userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	twr, err := h.service.GetDefaultTenant(r.Context(), userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			apierror.NotFound("Default workspace").WriteJSON(w)
			return
		}
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTenantWithRoleResponse(twr))
}

// Get handles GET /api/v1/tenants/{tenant}
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	t := middleware.GetTenant(r.Context())
	if t == nil {
		apierror.BadRequest("Tenant context required").WriteJSON(w)
		return
	}

	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

// Update handles PATCH /api/v1/tenants/{tenant}
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	if tenantID.IsZero() {
		apierror.BadRequest("Tenant context required").WriteJSON(w)
		return
	}

	var req UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	t, err := h.service.UpdateTenant(r.Context(), tenantID, app.UpdateTenantInput{
		Name:        req.Name,
		Description: req.Description,
		LogoURL:     req.LogoURL,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

// UploadLogo handles PUT /api/v1/tenants/{tenant}/logo. The body is
// the raw image; the content type selects the stored format.
func (h *TenantHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	if tenantID.IsZero() {
		apierror.BadRequest("Tenant context required").WriteJSON(w)
		return
	}

	contentType, data, ok := readImageUpload(w, r)
	if !ok {
		return
	}

	t, err := h.service.UploadLogo(r.Context(), tenantID, contentType, data)
	if err != nil {
		if errors.Is(err, app.ErrStorageNotConfigured) {
			apierror.ServiceUnavailable("object storage not configured").WriteJSON(w)
			return
		}
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

// SetDefault handles POST /api/v1/tenants/{tenant}/set-default
func (h *TenantHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDAsID(r.Context())
	if userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}
	tenantID := middleware.GetTenantIDAsID(r.Context())
	if tenantID.IsZero() {
		apierror.BadRequest("Tenant context required").WriteJSON(w)
		return
	}

	if err := h.service.SetDefaultTenant(r.Context(), userID, tenantID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	if t := middleware.GetTenant(r.Context()); t != nil {
		SetTenantCookie(w, t.ID().String(), t.Slug(), middleware.GetTenantRole(r.Context()).String(), h.cookies)
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Member Handlers
// =============================================================================

// ListMembers handles GET /api/v1/tenants/{tenant}/members
func (h *TenantHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	if tenantID.IsZero() {
		apierror.BadRequest("Tenant context required").WriteJSON(w)
		return
	}

	members, err := h.service.ListMembers(r.Context(), tenantID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]MemberWithUserResponse, len(members))
	for i, m := range members {
		response[i] = toMemberWithUserResponse(m)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}

// AddMember handles POST /api/v1/tenants/{tenant}/members
func (h *TenantHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	if tenantID.IsZero() {
		apierror.BadRequest("Tenant context required").WriteJSON(w)
		return
	}
	addedBy := middleware.GetUserIDAsID(r.Context())
	if addedBy.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	membership, err := h.service.AddMember(r.Context(), tenantID, app.AddMemberInput{
		Email: req.Email,
		Role:  req.Role,
	}, addedBy)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMemberResponse(membership))
}

// UpdateMemberRole handles PATCH /api/v1/tenants/{tenant}/members/{userId}
func (h *TenantHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	if tenantID.IsZero() {
		apierror.BadRequest("Tenant context required").WriteJSON(w)
		return
	}
	userID, err := shared.IDFromString(r.PathValue("userId"))
	if err != nil {
		apierror.BadRequest("Invalid user ID").WriteJSON(w)
		return
	}

	var req UpdateMemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	membership, err := h.service.UpdateMemberRole(r.Context(), tenantID, userID, app.UpdateMemberRoleInput{
		Role: req.Role,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(membership))
}

// RemoveMember handles DELETE /api/v1/tenants/{tenant}/members/{userId}.
// Members may remove themselves regardless of role; removing someone
// else requires admin, enforced at the route.
func (h *TenantHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	if tenantID.IsZero() {
		apierror.BadRequest("Tenant context required").WriteJSON(w)
		return
	}
	userID, err := shared.IDFromString(r.PathValue("userId"))
	if err != nil {
		apierror.BadRequest("Invalid user ID").WriteJSON(w)
		return
	}

	actorID := middleware.GetUserIDAsID(r.Context())
	if userID != actorID && !middleware.Allow(r.Context(), tenant.RoleAdmin) {
		apierror.Forbidden("Admin role required to remove other members").WriteJSON(w)
		return
	}

	if err := h.service.RemoveMember(r.Context(), tenantID, userID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Invitation Handlers
// =============================================================================

// ListInvitations handles GET /api/v1/tenants/{tenant}/invitations
func (h *TenantHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	if tenantID.IsZero() {
		apierror.BadRequest("Tenant context required").WriteJSON(w)
		return
	}

	invitations, err := h.service.ListPendingInvitations(r.Context(), tenantID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]InvitationResponse, len(invitations))
	for i, inv := range invitations {
		// Admins see the token so they can copy the invite link.
		response[i] = toInvitationResponse(inv, true)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}

// CreateInvitation handles POST /api/v1/tenants/{tenant}/invitations
func (h *TenantHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	if tenantID.IsZero() {
		apierror.BadRequest("Tenant context required").WriteJSON(w)
		return
	}
	inviterID := middleware.GetUserIDAsID(r.Context())
	if inviterID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	invitation, err := h.service.CreateInvitation(r.Context(), tenantID, app.CreateInvitationInput{
		Email: req.Email,
		Role:  req.Role,
	}, inviterID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toInvitationResponse(invitation, true))
}

// DeleteInvitation handles DELETE /api/v1/tenants/{tenant}/invitations/{invitationId}
func (h *TenantHandler) DeleteInvitation(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	if tenantID.IsZero() {
		apierror.BadRequest("Tenant context required").WriteJSON(w)
		return
	}
	invitationID, err := shared.IDFromString(r.PathValue("invitationId"))
	if err != nil {
		apierror.BadRequest("Invalid invitation ID").WriteJSON(w)
		return
	}

	if err := h.service.DeleteInvitation(r.Context(), tenantID, invitationID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetInvitation handles GET /api/v1/invitations/{token} (public).
// Shows what workspace the token invites to, without the token echo.
func (h *TenantHandler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		apierror.BadRequest("Invitation token is required").WriteJSON(w)
		return
	}

	invitation, err := h.service.GetInvitationByToken(r.Context(), token)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	t, err := h.service.GetTenant(r.Context(), invitation.TenantID())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"invitation": toInvitationResponse(invitation, false),
		"tenant": map[string]any{
			"id":   t.ID().String(),
			"name": t.Name(),
			"slug": t.Slug(),
		},
	})
}

// AcceptInvitation handles POST /api/v1/invitations/{token}/accept
func (h *TenantHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		apierror.BadRequest("Invitation token is required").WriteJSON(w)
		return
	}

	userID := middleware.GetUserIDAsID(r.Context())
	if userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}
	email := middleware.GetEmail(r.Context())

	membership, err := h.service.AcceptInvitation(r.Context(), token, userID, email)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(membership))
}

// DeclineInvitation handles POST /api/v1/invitations/{token}/decline
func (h *TenantHandler) DeclineInvitation(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		apierror.BadRequest("Invitation token is required").WriteJSON(w)
		return
	}

	email := middleware.GetEmail(r.Context())
	if err := h.service.DeclineInvitation(r.Context(), token, email); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
