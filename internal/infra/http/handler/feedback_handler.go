package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/feedback"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/pagination"
	"github.com/northstarhq/api/pkg/validator"
)

// FeedbackHandler handles peer feedback HTTP requests.
type FeedbackHandler struct {
	service   *app.FeedbackService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(svc *app.FeedbackService, v *validator.Validator, log *logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// FeedbackResponse represents feedback in API responses.
type FeedbackResponse struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	RecipientID string    `json:"recipient_id"`
	Message     string    `json:"message"`
	Visibility  string    `json:"visibility"`
	CreatedAt   time.Time `json:"created_at"`
}

func toFeedbackResponse(f *feedback.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:          f.ID().String(),
		AuthorID:    f.AuthorID().String(),
		RecipientID: f.RecipientID().String(),
		Message:     f.Message(),
		Visibility:  string(f.Visibility()),
		CreatedAt:   f.CreatedAt(),
	}
}

func (h *FeedbackHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenant.ErrNotMember):
		apierror.Forbidden("Recipient must be a member of this workspace").WriteJSON(w)
	case errors.Is(err, shared.ErrForbidden):
		apierror.Forbidden("Only the author can delete feedback").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Feedback").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimErrorPrefix(err)).WriteJSON(w)
	default:
		h.logger.Error("feedback service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// Create handles POST /api/v1/tenants/{tenant}/feedback
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	authorID := middleware.GetUserIDAsID(r.Context())

	var input app.CreateFeedbackInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
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

	f, err := h.service.CreateFeedback(r.Context(), tenantID, authorID, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFeedbackResponse(f))
}

// Get handles GET /api/v1/tenants/{tenant}/feedback/{feedbackId}
func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	viewerID := middleware.GetUserIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("feedbackId"))
	if err != nil {
		apierror.BadRequest("Invalid feedback ID").WriteJSON(w)
		return
	}

	f, err := h.service.GetFeedback(r.Context(), tenantID, id, viewerID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFeedbackResponse(f))
}

// List handles GET /api/v1/tenants/{tenant}/feedback
// Filters: author_id, recipient_id, limit, offset. Private entries are
// only visible to their author and recipient.
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	viewerID := middleware.GetUserIDAsID(r.Context())
	q := r.URL.Query()
	page := pagination.Parse(q)

	filter := feedback.Filter{
		AuthorID:    q.Get("author_id"),
		RecipientID: q.Get("recipient_id"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	}

	entries, total, err := h.service.ListFeedback(r.Context(), tenantID, viewerID, filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]FeedbackResponse, len(entries))
	for i, f := range entries {
		response[i] = toFeedbackResponse(f)
	}

	writeJSON(w, http.StatusOK, pagination.NewResult(response, total, page))
}

// Delete handles DELETE /api/v1/tenants/{tenant}/feedback/{feedbackId}
func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	actorID := middleware.GetUserIDAsID(r.Context())
	id, err := shared.IDFromString(r.PathValue("feedbackId"))
	if err != nil {
		apierror.BadRequest("Invalid feedback ID").WriteJSON(w)
		return
	}

	if err := h.service.DeleteFeedback(r.Context(), tenantID, id, actorID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
