package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/domain"
	"github.com/kindredhq/kindred/internal/metrics"
	"github.com/kindredhq/kindred/internal/repository"
)

var (
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotMessageSender   = errors.New("only the message sender can perform this action")
	ErrMessageDeleted     = errors.New("message was deleted for everyone")
	ErrShareTargetMissing = errors.New("shared entity does not exist or is not accessible")
	ErrMissingPayload     = errors.New("ciphertext, iv and tag are required")
	ErrInvalidMessageKind = errors.New("message kind must be text or share")
	ErrInvalidDeleteMode  = errors.New("delete mode must be me or everyone")
	ErrNotGroupAdmin      = errors.New("only a group admin or the creator can pin messages")
	ErrPinTargetMismatch  = errors.New("message does not belong to this conversation")
)

// ShareTargetChecker answers whether a user may access a shared entity
// (a post, program or similar). Implemented by the content subsystem;
// messaging only consumes the answer.
type ShareTargetChecker interface {
	Accessible(ctx context.Context, userID, ref uuid.UUID) (bool, error)
}

type MessageService struct {
	messageRepo repository.MessageRepository
	convRepo    repository.ConversationRepository
	groupRepo   repository.GroupRepository
	userRepo    repository.UserRepository
	notifier    Notifier
	shares      ShareTargetChecker
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		convRepo:    convRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetShareChecker sets the share-target collaborator. When unset, share
// messages are rejected.
func (s *MessageService) SetShareChecker(c ShareTargetChecker) {
	s.shares = c
}

type SendMessageInput struct {
	Ciphertext []byte     `json:"ciphertext"`
	IV         []byte     `json:"iv"`
	Tag        []byte     `json:"tag"`
	Kind       string     `json:"kind"`
	ShareRef   *uuid.UUID `json:"share_ref,omitempty"`
	ReplyToID  *uuid.UUID `json:"reply_to_id,omitempty"`
}

type EditMessageInput struct {
	Ciphertext []byte     `json:"ciphertext"`
	IV         []byte     `json:"iv"`
	Tag        []byte     `json:"tag"`
	Kind       string     `json:"kind"`
	ShareRef   *uuid.UUID `json:"share_ref,omitempty"`
}

type MessageListResponse struct {
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// Send appends a message to the conversation log and publishes it.
// A missing conversation and a non-participant sender both surface as
// not-found, so outsiders cannot probe which conversations exist.
func (s *MessageService) Send(ctx context.Context, userID, conversationID uuid.UUID, input SendMessageInput) (*domain.Message, error) {
	if len(input.Ciphertext) == 0 || len(input.IV) == 0 || len(input.Tag) == 0 {
		return nil, ErrMissingPayload
	}
	if err := s.validateKind(ctx, userID, input.Kind, input.ShareRef); err != nil {
		return nil, err
	}

	if err := s.checkParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       userID,
		Ciphertext:     input.Ciphertext,
		IV:             input.IV,
		Tag:            input.Tag,
		Kind:           input.Kind,
		ShareRef:       input.ShareRef,
		ReplyToID:      input.ReplyToID,
		CreatedAt:      time.Now(),
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	metrics.MessagesPersisted.Inc()

	full, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(full)
	}

	return full, nil
}

// List returns the conversation log, oldest first, skipping messages the
// viewer hid for themselves. Reactions are attached for resync.
func (s *MessageService) List(ctx context.Context, userID, conversationID uuid.UUID, before *uuid.UUID, limit int) (*MessageListResponse, error) {
	ok, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, err := s.messageRepo.ListByConversation(ctx, conversationID, userID, before, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}

	reactions, err := s.messageRepo.ListReactionsByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	byMessage := make(map[uuid.UUID][]domain.Reaction)
	for _, re := range reactions {
		byMessage[re.MessageID] = append(byMessage[re.MessageID], re)
	}
	for i := range messages {
		messages[i].Reactions = byMessage[messages[i].ID]
	}

	if messages == nil {
		messages = []domain.Message{}
	}

	return &MessageListResponse{
		Messages: messages,
		HasMore:  hasMore,
	}, nil
}

// Edit rewrites the payload wholesale. Allowed for the sender and for
// platform moderators/admins.
func (s *MessageService) Edit(ctx context.Context, userID, messageID uuid.UUID, input EditMessageInput) (*domain.Message, error) {
	if len(input.Ciphertext) == 0 || len(input.IV) == 0 || len(input.Tag) == 0 {
		return nil, ErrMissingPayload
	}
	if err := s.validateKind(ctx, userID, input.Kind, input.ShareRef); err != nil {
		return nil, err
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if msg.DeletedForEveryone {
		return nil, ErrMessageDeleted
	}

	if msg.SenderID != userID {
		actor, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if actor == nil || !actor.Elevated() {
			return nil, ErrNotMessageSender
		}
	}

	msg.Ciphertext = input.Ciphertext
	msg.IV = input.IV
	msg.Tag = input.Tag
	msg.Kind = input.Kind
	msg.ShareRef = input.ShareRef
	if err := s.messageRepo.UpdateContent(ctx, msg); err != nil {
		return nil, fmt.Errorf("updating message: %w", err)
	}

	updated, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyEditedMessage(updated)
	}

	return updated, nil
}

// Delete modes.
const (
	DeleteForMe       = "me"
	DeleteForEveryone = "everyone"
)

// Delete soft-deletes a message. Mode "me" hides it for the acting
// participant only; mode "everyone" is sender-only and blanks the
// payload and reactions globally.
func (s *MessageService) Delete(ctx context.Context, userID, messageID uuid.UUID, mode string) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}

	switch mode {
	case DeleteForMe:
		ok, err := s.convRepo.IsParticipant(ctx, msg.ConversationID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotParticipant
		}
		if err := s.messageRepo.HideForUser(ctx, messageID, userID); err != nil {
			return fmt.Errorf("hiding message: %w", err)
		}

	case DeleteForEveryone:
		if msg.SenderID != userID {
			return ErrNotMessageSender
		}
		if err := s.messageRepo.DeleteForEveryone(ctx, messageID); err != nil {
			return fmt.Errorf("deleting message: %w", err)
		}

	default:
		return ErrInvalidDeleteMode
	}

	if s.notifier != nil {
		s.notifier.NotifyDeletedMessage(msg.ConversationID, messageID, mode)
	}

	return nil
}

// React toggles the (user, emoji) pair on the message: absent pairs are
// added, present pairs removed. Persisted first, then published, so the
// reaction survives reconnect and resync.
func (s *MessageService) React(ctx context.Context, userID, messageID uuid.UUID, emoji string) (bool, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, ErrMessageNotFound
	}
	if msg.DeletedForEveryone {
		return false, ErrMessageDeleted
	}

	ok, err := s.convRepo.IsParticipant(ctx, msg.ConversationID, userID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNotParticipant
	}

	added, err := s.messageRepo.ToggleReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("toggling reaction: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyReaction(msg.ConversationID, &domain.Reaction{
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
			CreatedAt: time.Now(),
		}, added)
	}

	return added, nil
}

// MarkRead records a read receipt, at most one per reader. Re-reading is
// a no-op and publishes nothing.
func (s *MessageService) MarkRead(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}

	ok, err := s.convRepo.IsParticipant(ctx, msg.ConversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}

	now := time.Now()
	added, err := s.messageRepo.MarkRead(ctx, messageID, userID, now)
	if err != nil {
		return fmt.Errorf("marking read: %w", err)
	}

	if added && s.notifier != nil {
		s.notifier.NotifyRead(msg.ConversationID, &domain.ReadReceipt{
			MessageID: messageID,
			UserID:    userID,
			ReadAt:    now,
		})
	}

	return nil
}

// Pin sets the conversation's single pinned-message pointer; passing nil
// unpins. Group conversations require a group admin, the creator or an
// elevated role; DM participants may pin freely.
func (s *MessageService) Pin(ctx context.Context, userID, conversationID uuid.UUID, messageID *uuid.UUID) error {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}

	ok, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}

	if conv.Kind == domain.ConversationGroup && conv.GroupID != nil {
		allowed, err := s.canPinGroup(ctx, userID, *conv.GroupID)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrNotGroupAdmin
		}
	}

	if messageID != nil {
		msg, err := s.messageRepo.GetByID(ctx, *messageID)
		if err != nil {
			return err
		}
		if msg == nil {
			return ErrMessageNotFound
		}
		if msg.ConversationID != conversationID {
			return ErrPinTargetMismatch
		}
	}

	if err := s.convRepo.SetPinned(ctx, conversationID, messageID); err != nil {
		return fmt.Errorf("setting pin: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyPinned(conversationID, messageID)
	}

	return nil
}

func (s *MessageService) canPinGroup(ctx context.Context, userID, groupID uuid.UUID) (bool, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return false, err
	}
	if group != nil && group.CreatorID == userID {
		return true, nil
	}

	member, err := s.groupRepo.GetMember(ctx, groupID, userID)
	if err != nil {
		return false, err
	}
	if member != nil && member.IsAdmin {
		return true, nil
	}

	actor, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return actor != nil && actor.Elevated(), nil
}

func (s *MessageService) validateKind(ctx context.Context, userID uuid.UUID, kind string, shareRef *uuid.UUID) error {
	switch kind {
	case domain.MessageText:
		return nil
	case domain.MessageShare:
		if shareRef == nil || s.shares == nil {
			return ErrShareTargetMissing
		}
		ok, err := s.shares.Accessible(ctx, userID, *shareRef)
		if err != nil {
			return err
		}
		if !ok {
			return ErrShareTargetMissing
		}
		return nil
	default:
		return ErrInvalidMessageKind
	}
}

func (s *MessageService) checkParticipant(ctx context.Context, userID, conversationID uuid.UUID) error {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}

	ok, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConversationNotFound
	}
	return nil
}
