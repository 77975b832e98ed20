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
	"github.com/northstarhq/api/pkg/domain/user"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/validator"
)

// AuthHandler handles authentication HTTP requests.
type AuthHandler struct {
	service   *app.AuthService
	validator *validator.Validator
	cookies   CookieConfig
	logger    *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *app.AuthService, v *validator.Validator, cookies CookieConfig, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service:   svc,
		validator: v,
		cookies:   cookies,
		logger:    log,
	}
}

// =============================================================================
// Request/Response Types
// =============================================================================

// RegisterRequest represents the request to register a new account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"required,max=255"`
}

// LoginRequest represents the request to log in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the request to refresh a token pair.
// The token normally arrives via the httpOnly cookie; the body field
// exists for non-browser clients.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest represents the request to start a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request to complete a password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// ChangePasswordRequest represents the request to change the password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	SystemRole  string     `json:"system_role,omitempty"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AuthResponse represents a successful login or refresh.
type AuthResponse struct {
	User        UserResponse            `json:"user"`
	AccessToken string                  `json:"access_token"`
	ExpiresAt   time.Time               `json:"expires_at"`
	Tenants     []TenantMembershipClaim `json:"tenants"`
}

// TenantMembershipClaim mirrors the workspace list carried in the
// access token.
type TenantMembershipClaim struct {
	TenantID   string `json:"tenant_id"`
	TenantSlug string `json:"tenant_slug"`
	Role       string `json:"role"`
	IsDefault  bool   `json:"is_default"`
}

// WSTokenResponse represents a short-lived websocket token.
type WSTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:          u.ID().String(),
		Email:       u.Email(),
		Name:        u.Name(),
		AvatarURL:   u.AvatarURL(),
		SystemRole:  u.SystemRole().String(),
		Status:      string(u.Status()),
		LastLoginAt: u.LastLoginAt(),
		CreatedAt:   u.CreatedAt(),
	}
}

func toAuthResponse(result *app.AuthResult) AuthResponse {
	tenants := make([]TenantMembershipClaim, len(result.Tenants))
	for i, t := range result.Tenants {
		tenants[i] = TenantMembershipClaim{
			TenantID:   t.TenantID,
			TenantSlug: t.TenantSlug,
			Role:       t.Role,
			IsDefault:  t.IsDefault,
		}
	}
	return AuthResponse{
		User:        toUserResponse(result.User),
		AccessToken: result.AccessToken,
		ExpiresAt:   result.AccessExpiresAt,
		Tenants:     tenants,
	}
}

// =============================================================================
// Error Handling
// =============================================================================

func (h *AuthHandler) handleValidationError(w http.ResponseWriter, err error) {
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

func (h *AuthHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		apierror.Unauthorized("Invalid email or password").WriteJSON(w)
	case errors.Is(err, user.ErrAccountLocked):
		apierror.Forbidden("Account is temporarily locked").WriteJSON(w)
	case errors.Is(err, user.ErrAccountInactive):
		apierror.Forbidden("Account is suspended").WriteJSON(w)
	case errors.Is(err, user.ErrEmailTaken):
		apierror.Conflict("Email is already registered").WriteJSON(w)
	case errors.Is(err, app.ErrRegistrationDisabled):
		apierror.Forbidden("Registration is disabled").WriteJSON(w)
	case errors.Is(err, app.ErrInvalidRefreshToken):
		apierror.Unauthorized("Invalid or expired refresh token").WriteJSON(w)
	case errors.Is(err, app.ErrInvalidResetToken):
		apierror.BadRequest("Invalid or expired reset token").WriteJSON(w)
	case errors.Is(err, app.ErrPasswordMismatch):
		apierror.BadRequest("Current password is incorrect").WriteJSON(w)
	case errors.Is(err, shared.ErrForbidden):
		apierror.Forbidden("Forbidden").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimErrorPrefix(err)).WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("User").WriteJSON(w)
	default:
		h.logger.Error("auth service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// =============================================================================
// Handlers
// =============================================================================

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	u, err := h.service.Register(r.Context(), app.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), app.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	SetRefreshTokenCookie(w, result.RefreshToken, result.RefreshExpiresAt, h.cookies)
	h.setDefaultTenantCookie(w, result)

	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := GetRefreshTokenFromCookie(r, h.cookies)
	if token == "" {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = req.RefreshToken
		}
	}
	if token == "" {
		apierror.Unauthorized("Refresh token is required").WriteJSON(w)
		return
	}

	result, err := h.service.Refresh(r.Context(), app.RefreshInput{
		RefreshToken: token,
		UserAgent:    r.UserAgent(),
		IPAddress:    clientIP(r),
	})
	if err != nil {
		ClearRefreshTokenCookie(w, h.cookies)
		h.handleServiceError(w, err)
		return
	}

	SetRefreshTokenCookie(w, result.RefreshToken, result.RefreshExpiresAt, h.cookies)

	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDAsID(r.Context())
	if userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	sessionID := ""
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		sessionID = claims.SessionID
	}

	refreshToken := GetRefreshTokenFromCookie(r, h.cookies)
	if err := h.service.Logout(r.Context(), userID, sessionID, refreshToken); err != nil {
		h.logger.Warn("logout failed", "user_id", userID.String(), "error", err)
	}

	ClearRefreshTokenCookie(w, h.cookies)
	ClearTenantCookie(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll handles POST /api/v1/auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDAsID(r.Context())
	if userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	revoked, err := h.service.RevokeAllSessions(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	ClearRefreshTokenCookie(w, h.cookies)
	ClearTenantCookie(w, h.cookies)

	writeJSON(w, http.StatusOK, map[string]any{"revoked_sessions": revoked})
}

// ForgotPassword handles POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), app.ForgotPasswordInput{
		Email:     req.Email,
		IPAddress: clientIP(r),
	}); err != nil {
		h.handleServiceError(w, err)
		return
	}

	// Same response whether or not the email has an account.
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "If the email is registered, a reset link has been sent",
	})
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), app.ResetPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	}); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Password has been reset"})
}

// ChangePassword handles POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDAsID(r.Context())
	if userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, app.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}); err != nil {
		h.handleServiceError(w, err)
		return
	}

	ClearRefreshTokenCookie(w, h.cookies)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Password changed, please log in again"})
}

// WSToken handles POST /api/v1/tenants/{tenant}/ws-token
func (h *AuthHandler) WSToken(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.service.GenerateWSToken(r.Context(), userID, tenantID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, WSTokenResponse{
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
	})
}

// setDefaultTenantCookie stores the user's default workspace for the
// frontend to restore on next visit.
func (h *AuthHandler) setDefaultTenantCookie(w http.ResponseWriter, result *app.AuthResult) {
	for _, t := range result.Tenants {
		if t.IsDefault {
			SetTenantCookie(w, t.TenantID, t.TenantSlug, t.Role, h.cookies)
			return
		}
	}
}
