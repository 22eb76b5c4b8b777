package service

import (
	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/domain"
)

// Notifier broadcasts real-time events to connected clients. All calls
// are fire-and-forget: a failed or dropped delivery never surfaces to
// the write path, because the state change is already durable.
type Notifier interface {
	NotifyNewMessage(msg *domain.Message)
	NotifyEditedMessage(msg *domain.Message)
	NotifyDeletedMessage(conversationID, messageID uuid.UUID, mode string)
	NotifyReaction(conversationID uuid.UUID, reaction *domain.Reaction, added bool)
	NotifyRead(conversationID uuid.UUID, receipt *domain.ReadReceipt)
	NotifyPinned(conversationID uuid.UUID, messageID *uuid.UUID)
	NotifyGroupUserJoined(groupID, conversationID, userID uuid.UUID)
	NotifyGroupUserLeft(groupID, conversationID, userID uuid.UUID)
	NotifyInstanceStatus(roomID, instanceID uuid.UUID, status string)
	NotifyRoomUserJoined(roomID, instanceID, userID uuid.UUID, role string)
	NotifyRoomUserLeft(roomID, instanceID, userID uuid.UUID)
}
