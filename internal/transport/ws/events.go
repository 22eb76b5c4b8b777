package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeSubscribe       = "subscribe"
	EventTypeUnsubscribe     = "unsubscribe"
	EventTypeTypingStart     = "typing.start"
	EventTypeTypingStop      = "typing.stop"
	EventTypeDeliveredSignal = "message.delivered"
	EventTypePing            = "ping"
)

// Event types - Server → Client
const (
	EventTypeMessageNew       = "message.new"
	EventTypeMessageEdited    = "message.edited"
	EventTypeMessageDeleted   = "message.deleted"
	EventTypeMessageReaction  = "message.reaction"
	EventTypeMessagePinned    = "message.pinned"
	EventTypeMessageUnpinned  = "message.unpinned"
	EventTypeMessageRead      = "message.read"
	EventTypeMessageDelivered = "message.delivered"
	EventTypeTyping           = "typing"
	EventTypeGroupUserJoined  = "group.user_joined"
	EventTypeGroupUserLeft    = "group.user_left"
	EventTypeRoomUserJoined   = "room.user_joined"
	EventTypeRoomUserLeft     = "room.user_left"
	EventTypeInstanceStatus   = "instance.status_changed"
	EventTypePresence         = "presence"
	EventTypePong             = "pong"
	EventTypeError            = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ChannelPayload struct {
	Channel string `json:"channel"`
}

type DeliveredPayload struct {
	Channel   string    `json:"channel"`
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id,omitempty"`
}

// --- Server → Client payloads ---

type MessagePayload struct {
	domain.Message
}

type MessageDeletedPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
	Mode           string    `json:"mode"`
}

type ReactionPayload struct {
	domain.Reaction
	Added bool `json:"added"`
}

type ReadPayload struct {
	domain.ReadReceipt
}

type PinPayload struct {
	ConversationID uuid.UUID  `json:"conversation_id"`
	MessageID      *uuid.UUID `json:"message_id,omitempty"`
}

type TypingPayload struct {
	UserID  uuid.UUID `json:"user_id"`
	Started bool      `json:"started"`
}

type GroupUserPayload struct {
	GroupID        uuid.UUID `json:"group_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
}

type RoomUserPayload struct {
	RoomID     uuid.UUID `json:"room_id"`
	InstanceID uuid.UUID `json:"instance_id"`
	UserID     uuid.UUID `json:"user_id"`
	Role       string    `json:"role,omitempty"`
}

type InstanceStatusPayload struct {
	RoomID     uuid.UUID `json:"room_id"`
	InstanceID uuid.UUID `json:"instance_id"`
	Status     string    `json:"status"`
}

type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"` // "online" | "offline"
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType, channel string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Channel:   channel,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
