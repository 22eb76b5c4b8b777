package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/domain"
	"github.com/kindredhq/kindred/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("you are not a participant of this conversation")
	ErrCannotDMSelf         = errors.New("cannot start a conversation with yourself")
	ErrUserNotFound         = errors.New("user not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrNotGroupMember       = errors.New("you are not a member of this group")
	ErrTooFewParticipants   = errors.New("a group needs at least two participants")
)

type ConversationService struct {
	convRepo  repository.ConversationRepository
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	notifier  Notifier
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
) *ConversationService {
	return &ConversationService{
		convRepo:  convRepo,
		groupRepo: groupRepo,
		userRepo:  userRepo,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ConversationService) SetNotifier(n Notifier) {
	s.notifier = n
}

// ResolveDirect maps an unordered pair of users to the one canonical DM
// conversation, creating it on first contact. Safe under concurrent
// first-contact requests: the store's pair-key uniqueness decides.
func (s *ConversationService) ResolveDirect(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.Conversation, error) {
	if userID == otherUserID {
		return nil, ErrCannotDMSelf
	}

	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	pairKey := domain.PairKey(userID, otherUserID)
	candidate := &domain.Conversation{
		ID:        uuid.New(),
		Kind:      domain.ConversationDM,
		PairKey:   &pairKey,
		CreatedAt: time.Now(),
	}

	conv, err := s.convRepo.ResolveDM(ctx, candidate, userID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("resolving dm conversation: %w", err)
	}

	conv.OtherUserID = otherUserID
	conv.OtherUserUsername = other.Username
	conv.OtherUserDisplayName = other.DisplayName
	return conv, nil
}

// List returns all conversations the user participates in.
func (s *ConversationService) List(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	convs, err := s.convRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}

type CreateGroupInput struct {
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	MemberIDs   []uuid.UUID `json:"member_ids"`
}

// CreateGroup creates a group with the creator as admin plus the given
// members, and brings up its conversation via Synchronize.
func (s *ConversationService) CreateGroup(ctx context.Context, creatorID uuid.UUID, input CreateGroupInput) (*domain.Group, error) {
	members := map[uuid.UUID]struct{}{creatorID: {}}
	for _, id := range input.MemberIDs {
		members[id] = struct{}{}
	}
	if len(members) < 2 {
		return nil, ErrTooFewParticipants
	}

	group := &domain.Group{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		CreatorID:   creatorID,
		CreatedAt:   time.Now(),
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}

	now := time.Now()
	for id := range members {
		member := &domain.GroupMember{
			GroupID:  group.ID,
			UserID:   id,
			IsAdmin:  id == creatorID,
			JoinedAt: now,
		}
		if err := s.groupRepo.AddMember(ctx, member); err != nil {
			return nil, fmt.Errorf("adding group member: %w", err)
		}
	}

	conv, err := s.Synchronize(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	group.ConversationID = conv.ID
	group.MemberCount = len(members)
	return group, nil
}

type GroupMembershipResult struct {
	GroupID        uuid.UUID `json:"group_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	MemberCount    int       `json:"member_count"`
}

// JoinGroup adds the user to the roster and synchronizes the group's
// conversation before publishing the join.
func (s *ConversationService) JoinGroup(ctx context.Context, groupID, userID uuid.UUID) (*GroupMembershipResult, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	member := &domain.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}
	if err := s.groupRepo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("joining group: %w", err)
	}

	conv, err := s.Synchronize(ctx, groupID)
	if err != nil {
		return nil, err
	}

	members, err := s.groupRepo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyGroupUserJoined(groupID, conv.ID, userID)
	}

	return &GroupMembershipResult{
		GroupID:        groupID,
		ConversationID: conv.ID,
		MemberCount:    len(members),
	}, nil
}

// LeaveGroup removes the user from the roster and synchronizes.
func (s *ConversationService) LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) (*GroupMembershipResult, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	existing, err := s.groupRepo.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotGroupMember
	}

	if err := s.groupRepo.RemoveMember(ctx, groupID, userID); err != nil {
		return nil, fmt.Errorf("leaving group: %w", err)
	}

	conv, err := s.Synchronize(ctx, groupID)
	if err != nil {
		return nil, err
	}

	members, err := s.groupRepo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyGroupUserLeft(groupID, conv.ID, userID)
	}

	return &GroupMembershipResult{
		GroupID:        groupID,
		ConversationID: conv.ID,
		MemberCount:    len(members),
	}, nil
}

// Synchronize reconciles the group's conversation participant set with
// its roster. Creates the conversation (or revives a removed one) if
// needed and applies the minimal add/remove diff. Idempotent: with no
// roster change it performs no writes. It never publishes; callers do
// once synchronization has succeeded.
func (s *ConversationService) Synchronize(ctx context.Context, groupID uuid.UUID) (*domain.Conversation, error) {
	members, err := s.groupRepo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	roster := make(map[uuid.UUID]struct{}, len(members))
	rosterIDs := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		roster[m.UserID] = struct{}{}
		rosterIDs = append(rosterIDs, m.UserID)
	}

	conv, err := s.convRepo.GetByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if conv == nil {
		gid := groupID
		conv = &domain.Conversation{
			ID:        uuid.New(),
			Kind:      domain.ConversationGroup,
			GroupID:   &gid,
			CreatedAt: time.Now(),
		}
		if err := s.convRepo.Create(ctx, conv, rosterIDs); err != nil {
			return nil, fmt.Errorf("creating group conversation: %w", err)
		}
		return conv, nil
	}

	if conv.Removed {
		if err := s.convRepo.Restore(ctx, conv.ID); err != nil {
			return nil, fmt.Errorf("restoring group conversation: %w", err)
		}
	}

	current, err := s.convRepo.ListParticipants(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	currentSet := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}

	var toAdd, toRemove []uuid.UUID
	for id := range roster {
		if _, ok := currentSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range current {
		if _, ok := roster[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}

	if len(toAdd) > 0 || len(toRemove) > 0 {
		if err := s.convRepo.ApplyParticipantDiff(ctx, conv.ID, toAdd, toRemove); err != nil {
			return nil, fmt.Errorf("applying participant diff: %w", err)
		}
	}

	return conv, nil
}
