package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/validator"
)

// UserHandler handles user profile HTTP requests.
type UserHandler struct {
	service   *app.UserService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc *app.UserService, v *validator.Validator, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// UpdateProfileRequest represents the request to update the profile.
type UpdateProfileRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=255"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=500"`
}

func (h *UserHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("User").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimErrorPrefix(err)).WriteJSON(w)
	default:
		h.logger.Error("user service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDAsID(r.Context())
	if userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	u, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// UpdateMe handles PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDAsID(r.Context())
	if userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
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
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, app.UpdateProfileInput{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// maxImageUploadBytes caps avatar and logo uploads.
const maxImageUploadBytes = 2 << 20 // 2 MiB

// readImageUpload reads a raw image upload body, enforcing the size
// cap. Returns the content type and bytes, or writes the error
// response and reports false.
func readImageUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	contentType := r.Header.Get("Content-Type")
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImageUploadBytes+1))
	if err != nil {
		apierror.BadRequest("Failed to read request body").WriteJSON(w)
		return "", nil, false
	}
	if len(data) == 0 {
		apierror.BadRequest("Empty image upload").WriteJSON(w)
		return "", nil, false
	}
	if len(data) > maxImageUploadBytes {
		apierror.BadRequest("Image exceeds the 2 MiB upload limit").WriteJSON(w)
		return "", nil, false
	}
	return contentType, data, true
}

// UploadAvatar handles POST /api/v1/users/me/avatar. The body is the
// raw image; the content type selects the stored format.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDAsID(r.Context())
	if userID.IsZero() {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	contentType, data, ok := readImageUpload(w, r)
	if !ok {
		return
	}

	u, err := h.service.UploadAvatar(r.Context(), userID, contentType, data)
	if err != nil {
		if errors.Is(err, app.ErrStorageNotConfigured) {
			apierror.ServiceUnavailable("object storage not configured").WriteJSON(w)
			return
		}
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// Suspend handles POST /api/v1/admin/users/{userId}/suspend (system admin).
func (h *UserHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	userID, err := shared.IDFromString(r.PathValue("userId"))
	if err != nil {
		apierror.BadRequest("Invalid user ID").WriteJSON(w)
		return
	}

	u, err := h.service.SuspendUser(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// Activate handles POST /api/v1/admin/users/{userId}/activate (system admin).
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	userID, err := shared.IDFromString(r.PathValue("userId"))
	if err != nil {
		apierror.BadRequest("Invalid user ID").WriteJSON(w)
		return
	}

	u, err := h.service.ActivateUser(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}
