package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ConversationDM    = "dm"
	ConversationGroup = "group"
)

type Conversation struct {
	ID              uuid.UUID  `json:"id"`
	Kind            string     `json:"kind"`
	PairKey         *string    `json:"-"`
	GroupID         *uuid.UUID `json:"group_id,omitempty"`
	PinnedMessageID *uuid.UUID `json:"pinned_message_id,omitempty"`
	Removed         bool       `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	// Joined fields
	Participants []uuid.UUID `json:"participants,omitempty"`
	// For DM lists: the other side of the conversation
	OtherUserID          uuid.UUID `json:"other_user_id,omitempty"`
	OtherUserUsername    string    `json:"other_username,omitempty"`
	OtherUserDisplayName string    `json:"other_display_name,omitempty"`
}

// PairKey derives the canonical order-independent key for a two-party
// conversation: the two IDs sorted and joined.
func PairKey(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}
