package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/metrics"
)

// Authorizer checks, against the persistent store, whether a user may
// subscribe to a named channel.
type Authorizer interface {
	CanSubscribe(ctx context.Context, userID uuid.UUID, channel string) (bool, error)
}

// Hub manages all active WebSocket clients and routes events to
// channel subscribers. Delivery is best-effort: events are never
// persisted, and nobody-listening means the event is simply lost.
type Hub struct {
	authorizer Authorizer

	// clients maps userID → client.
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
}

type broadcastMsg struct {
	channel   string
	data      []byte
	excludeID *uuid.UUID // optional: skip this user (e.g. sender)
}

func NewHub(authorizer Authorizer) *Hub {
	return &Hub{
		authorizer: authorizer,
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client.userID] = client
			metrics.WSConnections.Set(float64(len(h.clients)))
			log.Printf("ws hub: user %s connected (%d total)", client.userID, len(h.clients))

			h.broadcastPresence(client.userID, "online")

		case client := <-h.unregister:
			if _, ok := h.clients[client.userID]; ok {
				delete(h.clients, client.userID)
				close(client.send)
				close(client.done)
				metrics.WSConnections.Set(float64(len(h.clients)))
				log.Printf("ws hub: user %s disconnected (%d total)", client.userID, len(h.clients))

				h.broadcastPresence(client.userID, "offline")
			}

		case msg := <-h.broadcast:
			for _, client := range h.clients {
				// Skip excluded user
				if msg.excludeID != nil && client.userID == *msg.excludeID {
					continue
				}
				// Only send to clients subscribed to this channel
				if !client.IsSubscribed(msg.channel) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Client buffer full - disconnect
					delete(h.clients, client.userID)
					close(client.send)
					close(client.done)
					metrics.WSConnections.Set(float64(len(h.clients)))
				}
			}
		}
	}
}

// Broadcast sends an event to all subscribers of a channel,
// fire-and-forget.
func (h *Hub) Broadcast(channel string, event *Event, excludeUserID *uuid.UUID) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws hub: marshal error: %v", err)
		return
	}
	metrics.EventsPublished.WithLabelValues(event.Type).Inc()
	h.broadcast <- &broadcastMsg{
		channel:   channel,
		data:      data,
		excludeID: excludeUserID,
	}
}

// BroadcastToUser sends an event directly to a specific user.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if client, ok := h.clients[userID]; ok {
		select {
		case client.send <- data:
		default:
		}
	}
}

// HandleTyping relays typing signals to channel subscribers (excluding
// the sender). Signal-only: nothing is persisted.
func (h *Hub) HandleTyping(sender *Client, event *Event) {
	if !sender.IsSubscribed(event.Channel) {
		return
	}

	evt, err := NewEvent(EventTypeTyping, event.Channel, TypingPayload{
		UserID:  sender.userID,
		Started: event.Type == EventTypeTypingStart,
	})
	if err != nil {
		return
	}

	h.Broadcast(event.Channel, evt, &sender.userID)
}

// HandleDelivered relays a delivery acknowledgment to the channel.
// Signal-only, like typing.
func (h *Hub) HandleDelivered(sender *Client, payload DeliveredPayload) {
	if !sender.IsSubscribed(payload.Channel) {
		return
	}

	payload.UserID = sender.userID
	evt, err := NewEvent(EventTypeMessageDelivered, payload.Channel, payload)
	if err != nil {
		return
	}

	h.Broadcast(payload.Channel, evt, &sender.userID)
}

// broadcastPresence sends online/offline to all connected clients.
func (h *Hub) broadcastPresence(userID uuid.UUID, status string) {
	evt, err := NewEvent(EventTypePresence, "", PresencePayload{
		UserID: userID,
		Status: status,
	})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	for _, client := range h.clients {
		if client.userID == userID {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}
