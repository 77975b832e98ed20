package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/pkg/apierror"
	"github.com/northstarhq/api/pkg/domain/chat"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/pagination"
	"github.com/northstarhq/api/pkg/validator"
)

// ChatHandler handles the REST side of chat: rooms and message history.
// Live delivery goes over the websocket.
type ChatHandler struct {
	service   *app.ChatService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *app.ChatService, v *validator.Validator, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// RoomResponse represents a chat room in API responses.
type RoomResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	TeamID    string    `json:"team_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageResponse represents a chat message in API responses.
type MessageResponse struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	AuthorID string    `json:"author_id"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

// CreateTeamRoomRequest represents the request to open a team room.
type CreateTeamRoomRequest struct {
	TeamID string `json:"team_id" validate:"required,uuid"`
	Name   string `json:"name" validate:"omitempty,min=2,max=100"`
}

func toRoomResponse(room *chat.Room) RoomResponse {
	resp := RoomResponse{
		ID:        room.ID().String(),
		Kind:      string(room.Kind()),
		Name:      room.Name(),
		CreatedAt: room.CreatedAt(),
	}
	if room.TeamID() != nil {
		resp.TeamID = room.TeamID().String()
	}
	return resp
}

func toMessageResponse(m *chat.Message) MessageResponse {
	return MessageResponse{
		ID:       m.ID().String(),
		RoomID:   m.RoomID().String(),
		AuthorID: m.AuthorID().String(),
		Body:     m.Body(),
		SentAt:   m.SentAt(),
	}
}

func (h *ChatHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrForbidden):
		apierror.Forbidden("Not a member of this room").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Room").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimErrorPrefix(err)).WriteJSON(w)
	case errors.Is(err, shared.ErrConflict):
		apierror.Conflict(trimErrorPrefix(err)).WriteJSON(w)
	default:
		h.logger.Error("chat service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// ListRooms handles GET /api/v1/tenants/{tenant}/chat/rooms.
// The general room is created lazily on first listing.
func (h *ChatHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())

	if _, err := h.service.GetGeneralRoom(r.Context(), tenantID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	rooms, err := h.service.ListRooms(r.Context(), tenantID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]RoomResponse, len(rooms))
	for i, room := range rooms {
		response[i] = toRoomResponse(room)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}

// CreateTeamRoom handles POST /api/v1/tenants/{tenant}/chat/rooms
func (h *ChatHandler) CreateTeamRoom(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())

	var req CreateTeamRoomRequest
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

	teamID, err := shared.IDFromString(req.TeamID)
	if err != nil {
		apierror.BadRequest("Invalid team ID").WriteJSON(w)
		return
	}

	room, err := h.service.CreateTeamRoom(r.Context(), tenantID, teamID, req.Name)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRoomResponse(room))
}

// DeleteRoom handles DELETE /api/v1/tenants/{tenant}/chat/rooms/{roomId}
func (h *ChatHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	roomID, err := shared.IDFromString(r.PathValue("roomId"))
	if err != nil {
		apierror.BadRequest("Invalid room ID").WriteJSON(w)
		return
	}

	if err := h.service.DeleteRoom(r.Context(), tenantID, roomID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PostMessage handles POST /api/v1/tenants/{tenant}/chat/rooms/{roomId}/messages
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	userID := middleware.GetUserIDAsID(r.Context())
	roomID, err := shared.IDFromString(r.PathValue("roomId"))
	if err != nil {
		apierror.BadRequest("Invalid room ID").WriteJSON(w)
		return
	}

	var input app.PostMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(input); err != nil {
		apierror.BadRequest("Message body is required").WriteJSON(w)
		return
	}

	m, err := h.service.PostMessage(r.Context(), tenantID, roomID, userID, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMessageResponse(m))
}

// ListMessages handles GET /api/v1/tenants/{tenant}/chat/rooms/{roomId}/messages
// Query: before (RFC3339, default now), limit (default 50, max 100).
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantIDAsID(r.Context())
	userID := middleware.GetUserIDAsID(r.Context())
	roomID, err := shared.IDFromString(r.PathValue("roomId"))
	if err != nil {
		apierror.BadRequest("Invalid room ID").WriteJSON(w)
		return
	}

	// A zero cursor means "from the latest message".
	var before time.Time
	if s := r.URL.Query().Get("before"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			apierror.BadRequest("Invalid before timestamp").WriteJSON(w)
			return
		}
		before = parsed
	}
	limit := pagination.Parse(r.URL.Query()).Limit

	messages, err := h.service.ListMessages(r.Context(), tenantID, roomID, userID, before, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]MessageResponse, len(messages))
	for i, m := range messages {
		response[i] = toMessageResponse(m)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  response,
		"total": len(response),
	})
}
