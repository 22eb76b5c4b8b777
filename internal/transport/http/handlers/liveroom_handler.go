package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/service"
	"github.com/kindredhq/kindred/internal/transport/http/middleware"
	"github.com/kindredhq/kindred/pkg/validator"
)

type LiveRoomHandler struct {
	roomService *service.LiveRoomService
}

func NewLiveRoomHandler(roomService *service.LiveRoomService) *LiveRoomHandler {
	return &LiveRoomHandler{roomService: roomService}
}

type createRoomInput struct {
	Name string `json:"name"`
}

func (h *LiveRoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input createRoomInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := validator.ValidateRoom(input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	room, err := h.roomService.CreateRoom(r.Context(), userID, input.Name)
	if err != nil {
		log.Printf("ERROR create room: %v", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

func (h *LiveRoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room ID")
		return
	}

	room, err := h.roomService.GetRoom(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "Live room not found")
		} else {
			log.Printf("ERROR get room: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, room)
}

type createInstanceInput struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

func (h *LiveRoomHandler) CreateInstance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	roomID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room ID")
		return
	}

	var input createInstanceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.StartsAt.IsZero() || input.EndsAt.IsZero() {
		writeError(w, http.StatusBadRequest, "starts_at and ends_at are required")
		return
	}

	inst, err := h.roomService.CreateInstance(r.Context(), userID, roomID, input.StartsAt, input.EndsAt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoomNotFound):
			writeError(w, http.StatusNotFound, "Live room not found")
		case errors.Is(err, service.ErrNotHost):
			writeError(w, http.StatusForbidden, "Only the room host can schedule instances")
		case errors.Is(err, service.ErrInvalidSchedule):
			writeError(w, http.StatusBadRequest, "End time must be after start time")
		default:
			log.Printf("ERROR create instance: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, inst)
}

type transitionInput struct {
	Status string `json:"status"`
}

func (h *LiveRoomHandler) Transition(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	instanceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid instance ID")
		return
	}

	var input transitionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	inst, err := h.roomService.Transition(r.Context(), userID, instanceID, input.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInstanceNotFound):
			writeError(w, http.StatusNotFound, "Instance not found")
		case errors.Is(err, service.ErrRoomNotFound):
			writeError(w, http.StatusNotFound, "Live room not found")
		case errors.Is(err, service.ErrNotHost):
			writeError(w, http.StatusForbidden, "Only the room host can change instance status")
		case errors.Is(err, service.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "Status must be scheduled, live or ended")
		case errors.Is(err, service.ErrInvalidTransition):
			writeError(w, http.StatusBadRequest, "Instance status cannot move backward")
		case errors.Is(err, service.ErrAnotherInstanceLive):
			writeError(w, http.StatusBadRequest, "Another instance is already live")
		default:
			log.Printf("ERROR transition instance: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, inst)
}

func (h *LiveRoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	instanceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid instance ID")
		return
	}

	role, err := h.roomService.JoinInstance(r.Context(), userID, instanceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInstanceNotFound):
			writeError(w, http.StatusNotFound, "Instance not found")
		case errors.Is(err, service.ErrInstanceNotLive):
			writeError(w, http.StatusBadRequest, "Instance is not live")
		default:
			log.Printf("ERROR join instance: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"instance_id": instanceID,
		"role":        role,
	})
}

func (h *LiveRoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	instanceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid instance ID")
		return
	}

	if err := h.roomService.LeaveInstance(r.Context(), userID, instanceID); err != nil {
		switch {
		case errors.Is(err, service.ErrInstanceNotFound):
			writeError(w, http.StatusNotFound, "Instance not found")
		default:
			log.Printf("ERROR leave instance: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"instance_id": instanceID})
}

type promoteInput struct {
	UserID uuid.UUID `json:"user_id"`
}

func (h *LiveRoomHandler) PromoteSpeaker(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	instanceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid instance ID")
		return
	}

	var input promoteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.roomService.PromoteSpeaker(r.Context(), actorID, instanceID, input.UserID); err != nil {
		switch {
		case errors.Is(err, service.ErrInstanceNotFound):
			writeError(w, http.StatusNotFound, "Instance not found")
		case errors.Is(err, service.ErrNotHost):
			writeError(w, http.StatusForbidden, "Only the room host can promote speakers")
		default:
			log.Printf("ERROR promote speaker: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"instance_id": instanceID,
		"user_id":     input.UserID,
		"role":        "speaker",
	})
}
