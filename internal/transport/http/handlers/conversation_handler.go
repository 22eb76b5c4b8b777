package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/service"
	"github.com/kindredhq/kindred/internal/transport/http/middleware"
)

type ConversationHandler struct {
	convService    *service.ConversationService
	messageService *service.MessageService
}

func NewConversationHandler(convService *service.ConversationService, messageService *service.MessageService) *ConversationHandler {
	return &ConversationHandler{
		convService:    convService,
		messageService: messageService,
	}
}

type createDirectInput struct {
	OtherUserID uuid.UUID `json:"other_user_id"`
}

// CreateDirect resolves the actor and the other party to their single
// canonical DM conversation, creating it on first contact.
func (h *ConversationHandler) CreateDirect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input createDirectInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.OtherUserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "other_user_id is required")
		return
	}

	conv, err := h.convService.ResolveDirect(r.Context(), userID, input.OtherUserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCannotDMSelf):
			writeError(w, http.StatusBadRequest, "Cannot start a conversation with yourself")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			log.Printf("ERROR create direct conversation: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.convService.List(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR list conversations: %v", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	var before *uuid.UUID
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		id, err := uuid.Parse(beforeStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid before cursor")
			return
		}
		before = &id
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	resp, err := h.messageService.List(r.Context(), userID, conversationID, before, limit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "Conversation not found")
		case errors.Is(err, service.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "You are not a participant of this conversation")
		default:
			log.Printf("ERROR list messages: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type pinInput struct {
	MessageID uuid.UUID `json:"message_id"`
}

func (h *ConversationHandler) Pin(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	var input pinInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.MessageID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "message_id is required")
		return
	}

	h.setPin(w, r, userID, conversationID, &input.MessageID)
}

func (h *ConversationHandler) Unpin(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	h.setPin(w, r, userID, conversationID, nil)
}

func (h *ConversationHandler) setPin(w http.ResponseWriter, r *http.Request, userID, conversationID uuid.UUID, messageID *uuid.UUID) {
	err := h.messageService.Pin(r.Context(), userID, conversationID, messageID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "Conversation not found")
		case errors.Is(err, service.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "Message not found")
		case errors.Is(err, service.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "You are not a participant of this conversation")
		case errors.Is(err, service.ErrNotGroupAdmin):
			writeError(w, http.StatusForbidden, "Only a group admin or the creator can pin messages")
		case errors.Is(err, service.ErrPinTargetMismatch):
			writeError(w, http.StatusBadRequest, "Message does not belong to this conversation")
		default:
			log.Printf("ERROR pin message: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"message_id":      messageID,
	})
}
