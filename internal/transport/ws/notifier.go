package ws

import (
	"log"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/domain"
	"github.com/kindredhq/kindred/internal/service"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
// Broadcast-after-persist: every call happens after the state change is
// already durable, so dropped deliveries are acceptable.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyNewMessage(msg *domain.Message) {
	channel := service.ConversationChannel(msg.ConversationID)
	n.publish(EventTypeMessageNew, channel, MessagePayload{Message: *msg})
}

func (n *HubNotifier) NotifyEditedMessage(msg *domain.Message) {
	channel := service.ConversationChannel(msg.ConversationID)
	n.publish(EventTypeMessageEdited, channel, MessagePayload{Message: *msg})
}

func (n *HubNotifier) NotifyDeletedMessage(conversationID, messageID uuid.UUID, mode string) {
	channel := service.ConversationChannel(conversationID)
	n.publish(EventTypeMessageDeleted, channel, MessageDeletedPayload{
		ConversationID: conversationID,
		MessageID:      messageID,
		Mode:           mode,
	})
}

func (n *HubNotifier) NotifyReaction(conversationID uuid.UUID, reaction *domain.Reaction, added bool) {
	channel := service.ConversationChannel(conversationID)
	n.publish(EventTypeMessageReaction, channel, ReactionPayload{Reaction: *reaction, Added: added})
}

func (n *HubNotifier) NotifyRead(conversationID uuid.UUID, receipt *domain.ReadReceipt) {
	channel := service.ConversationChannel(conversationID)
	n.publish(EventTypeMessageRead, channel, ReadPayload{ReadReceipt: *receipt})
}

func (n *HubNotifier) NotifyPinned(conversationID uuid.UUID, messageID *uuid.UUID) {
	channel := service.ConversationChannel(conversationID)
	eventType := EventTypeMessagePinned
	if messageID == nil {
		eventType = EventTypeMessageUnpinned
	}
	n.publish(eventType, channel, PinPayload{
		ConversationID: conversationID,
		MessageID:      messageID,
	})
}

func (n *HubNotifier) NotifyGroupUserJoined(groupID, conversationID, userID uuid.UUID) {
	n.publish(EventTypeGroupUserJoined, service.GroupChannel(groupID), GroupUserPayload{
		GroupID:        groupID,
		ConversationID: conversationID,
		UserID:         userID,
	})
}

func (n *HubNotifier) NotifyGroupUserLeft(groupID, conversationID, userID uuid.UUID) {
	n.publish(EventTypeGroupUserLeft, service.GroupChannel(groupID), GroupUserPayload{
		GroupID:        groupID,
		ConversationID: conversationID,
		UserID:         userID,
	})
}

func (n *HubNotifier) NotifyInstanceStatus(roomID, instanceID uuid.UUID, status string) {
	n.publish(EventTypeInstanceStatus, service.RoomChannel(roomID), InstanceStatusPayload{
		RoomID:     roomID,
		InstanceID: instanceID,
		Status:     status,
	})
}

func (n *HubNotifier) NotifyRoomUserJoined(roomID, instanceID, userID uuid.UUID, role string) {
	n.publish(EventTypeRoomUserJoined, service.RoomChannel(roomID), RoomUserPayload{
		RoomID:     roomID,
		InstanceID: instanceID,
		UserID:     userID,
		Role:       role,
	})
}

func (n *HubNotifier) NotifyRoomUserLeft(roomID, instanceID, userID uuid.UUID) {
	n.publish(EventTypeRoomUserLeft, service.RoomChannel(roomID), RoomUserPayload{
		RoomID:     roomID,
		InstanceID: instanceID,
		UserID:     userID,
	})
}

func (n *HubNotifier) publish(eventType, channel string, payload any) {
	evt, err := NewEvent(eventType, channel, payload)
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.Broadcast(channel, evt, nil)
}
