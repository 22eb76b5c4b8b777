package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type ConversationRepository interface {
	// ResolveDM inserts candidate unless a conversation with its pair key
	// already exists, then returns the canonical record either way. The
	// unique index on pair_key is what decides races, not this code.
	ResolveDM(ctx context.Context, candidate *domain.Conversation, userA, userB uuid.UUID) (*domain.Conversation, error)
	Create(ctx context.Context, conv *domain.Conversation, participants []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	// GetByGroup returns the group's conversation including soft-removed ones.
	GetByGroup(ctx context.Context, groupID uuid.UUID) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	// ApplyParticipantDiff adds and removes participants in one transaction.
	ApplyParticipantDiff(ctx context.Context, conversationID uuid.UUID, toAdd, toRemove []uuid.UUID) error
	Restore(ctx context.Context, conversationID uuid.UUID) error
	SetPinned(ctx context.Context, conversationID uuid.UUID, messageID *uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListByConversation excludes messages the viewer hid for themselves.
	ListByConversation(ctx context.Context, conversationID, viewerID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error)
	UpdateContent(ctx context.Context, msg *domain.Message) error
	HideForUser(ctx context.Context, messageID, userID uuid.UUID) error
	// DeleteForEveryone clears ciphertext/iv/tag and reactions and sets
	// the global flag, atomically.
	DeleteForEveryone(ctx context.Context, messageID uuid.UUID) error
	ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (added bool, err error)
	MarkRead(ctx context.Context, messageID, userID uuid.UUID, readAt time.Time) (added bool, err error)
	ListReactions(ctx context.Context, messageID uuid.UUID) ([]domain.Reaction, error)
	ListReactionsByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Reaction, error)
}

type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	AddMember(ctx context.Context, member *domain.GroupMember) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	GetMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMember, error)
}

type LiveRoomRepository interface {
	CreateRoom(ctx context.Context, room *domain.LiveRoom) error
	GetRoom(ctx context.Context, id uuid.UUID) (*domain.LiveRoom, error)
	CreateInstance(ctx context.Context, inst *domain.Instance) error
	// GetInstance returns the instance with speaker and listener sets loaded.
	GetInstance(ctx context.Context, id uuid.UUID) (*domain.Instance, error)
	ListInstances(ctx context.Context, roomID uuid.UUID) ([]domain.Instance, error)
	// SetLive flips the instance to live only if no sibling instance of the
	// same room is live, in a single conditional update. Returns whether
	// the update applied.
	SetLive(ctx context.Context, instanceID, roomID uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, instanceID uuid.UUID, status string) error
	AddSpeaker(ctx context.Context, instanceID, userID uuid.UUID) error
	AddListener(ctx context.Context, instanceID, userID uuid.UUID) error
	RemoveListener(ctx context.Context, instanceID, userID uuid.UUID) error
	// RemoveListenerFromLive drops the user from the listener set of the
	// room's live instance, if any. No-op when absent.
	RemoveListenerFromLive(ctx context.Context, roomID, userID uuid.UUID) error
}
