package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/service"
	"github.com/kindredhq/kindred/internal/transport/http/middleware"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	var input service.SendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if input.Kind == "" {
		input.Kind = "text"
	}

	msg, err := h.messageService.Send(r.Context(), userID, conversationID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "Conversation not found")
		case errors.Is(err, service.ErrMissingPayload):
			writeError(w, http.StatusBadRequest, "Ciphertext, iv and tag are required")
		case errors.Is(err, service.ErrInvalidMessageKind):
			writeError(w, http.StatusBadRequest, "Message kind must be text or share")
		case errors.Is(err, service.ErrShareTargetMissing):
			writeError(w, http.StatusBadRequest, "Shared entity does not exist or is not accessible")
		default:
			log.Printf("ERROR send message: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message ID")
		return
	}

	var input service.EditMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if input.Kind == "" {
		input.Kind = "text"
	}

	msg, err := h.messageService.Edit(r.Context(), userID, messageID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "Message not found")
		case errors.Is(err, service.ErrNotMessageSender):
			writeError(w, http.StatusForbidden, "You can only edit your own messages")
		case errors.Is(err, service.ErrMessageDeleted):
			writeError(w, http.StatusBadRequest, "Message was deleted for everyone")
		case errors.Is(err, service.ErrMissingPayload):
			writeError(w, http.StatusBadRequest, "Ciphertext, iv and tag are required")
		case errors.Is(err, service.ErrInvalidMessageKind):
			writeError(w, http.StatusBadRequest, "Message kind must be text or share")
		case errors.Is(err, service.ErrShareTargetMissing):
			writeError(w, http.StatusBadRequest, "Shared entity does not exist or is not accessible")
		default:
			log.Printf("ERROR edit message: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message ID")
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = service.DeleteForMe
	}

	if err := h.messageService.Delete(r.Context(), userID, messageID, mode); err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "Message not found")
		case errors.Is(err, service.ErrNotMessageSender):
			writeError(w, http.StatusForbidden, "Only the sender can delete for everyone")
		case errors.Is(err, service.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "You are not a participant of this conversation")
		case errors.Is(err, service.ErrInvalidDeleteMode):
			writeError(w, http.StatusBadRequest, "Delete mode must be me or everyone")
		default:
			log.Printf("ERROR delete message: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message_id": messageID,
		"mode":       mode,
	})
}

type reactInput struct {
	Emoji string `json:"emoji"`
}

func (h *MessageHandler) React(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message ID")
		return
	}

	var input reactInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Emoji == "" {
		writeError(w, http.StatusBadRequest, "Emoji is required")
		return
	}

	added, err := h.messageService.React(r.Context(), userID, messageID, input.Emoji)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "Message not found")
		case errors.Is(err, service.ErrMessageDeleted):
			writeError(w, http.StatusBadRequest, "Message was deleted for everyone")
		case errors.Is(err, service.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "You are not a participant of this conversation")
		default:
			log.Printf("ERROR react to message: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message_id": messageID,
		"emoji":      input.Emoji,
		"added":      added,
	})
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message ID")
		return
	}

	if err := h.messageService.MarkRead(r.Context(), userID, messageID); err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "Message not found")
		case errors.Is(err, service.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "You are not a participant of this conversation")
		default:
			log.Printf("ERROR mark read: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message_id": messageID})
}
