package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/service"
	"github.com/kindredhq/kindred/internal/transport/http/middleware"
	"github.com/kindredhq/kindred/pkg/validator"
)

type GroupHandler struct {
	convService *service.ConversationService
}

func NewGroupHandler(convService *service.ConversationService) *GroupHandler {
	return &GroupHandler{convService: convService}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateGroupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := validator.ValidateGroup(input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	group, err := h.convService.CreateGroup(r.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTooFewParticipants):
			writeError(w, http.StatusBadRequest, "A group needs at least two participants")
		default:
			log.Printf("ERROR create group: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}

	result, err := h.convService.JoinGroup(r.Context(), groupID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGroupNotFound):
			writeError(w, http.StatusNotFound, "Group not found")
		default:
			log.Printf("ERROR join group: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}

	result, err := h.convService.LeaveGroup(r.Context(), groupID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGroupNotFound):
			writeError(w, http.StatusNotFound, "Group not found")
		case errors.Is(err, service.ErrNotGroupMember):
			writeError(w, http.StatusForbidden, "You are not a member of this group")
		default:
			log.Printf("ERROR leave group: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
