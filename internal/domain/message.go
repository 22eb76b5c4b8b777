package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageText  = "text"
	MessageShare = "share"
)

// Message payloads are opaque to the server: ciphertext, IV and auth
// tag are stored and relayed as-is, never decrypted here.
type Message struct {
	ID                 uuid.UUID  `json:"id"`
	ConversationID     uuid.UUID  `json:"conversation_id"`
	SenderID           uuid.UUID  `json:"sender_id"`
	Ciphertext         []byte     `json:"ciphertext,omitempty"`
	IV                 []byte     `json:"iv,omitempty"`
	Tag                []byte     `json:"tag,omitempty"`
	Kind               string     `json:"kind"`
	ShareRef           *uuid.UUID `json:"share_ref,omitempty"`
	ReplyToID          *uuid.UUID `json:"reply_to_id,omitempty"`
	DeletedForEveryone bool       `json:"deleted_for_everyone"`
	EditedAt           *time.Time `json:"edited_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	// Joined fields
	SenderUsername    string        `json:"sender_username,omitempty"`
	SenderDisplayName string        `json:"sender_display_name,omitempty"`
	Reactions         []Reaction    `json:"reactions,omitempty"`
	Reads             []ReadReceipt `json:"reads,omitempty"`
}

type Reaction struct {
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

type ReadReceipt struct {
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}
