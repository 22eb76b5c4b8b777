package service

import (
	"strings"

	"github.com/google/uuid"
)

// Channel name prefixes for the fan-out layer. Every conversation,
// group and live room is one named channel.
const (
	channelConversation = "conversation"
	channelGroup        = "group"
	channelRoom         = "room"
)

func ConversationChannel(id uuid.UUID) string {
	return channelConversation + ":" + id.String()
}

func GroupChannel(id uuid.UUID) string {
	return channelGroup + ":" + id.String()
}

func RoomChannel(id uuid.UUID) string {
	return channelRoom + ":" + id.String()
}

// ParseChannel splits a channel name into its kind and entity id.
func ParseChannel(channel string) (kind string, id uuid.UUID, ok bool) {
	prefix, rest, found := strings.Cut(channel, ":")
	if !found {
		return "", uuid.Nil, false
	}
	parsed, err := uuid.Parse(rest)
	if err != nil {
		return "", uuid.Nil, false
	}
	switch prefix {
	case channelConversation, channelGroup, channelRoom:
		return prefix, parsed, true
	}
	return "", uuid.Nil, false
}
