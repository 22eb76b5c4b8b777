package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/repository"
)

// SubscriptionService authorizes channel subscriptions against the
// store before the fan-out layer registers them.
type SubscriptionService struct {
	convRepo  repository.ConversationRepository
	groupRepo repository.GroupRepository
	roomRepo  repository.LiveRoomRepository
}

func NewSubscriptionService(
	convRepo repository.ConversationRepository,
	groupRepo repository.GroupRepository,
	roomRepo repository.LiveRoomRepository,
) *SubscriptionService {
	return &SubscriptionService{
		convRepo:  convRepo,
		groupRepo: groupRepo,
		roomRepo:  roomRepo,
	}
}

// CanSubscribe reports whether the user may listen on the channel:
// conversations require participation, groups require membership, live
// rooms are open to any authenticated user (the default role is
// listener).
func (s *SubscriptionService) CanSubscribe(ctx context.Context, userID uuid.UUID, channel string) (bool, error) {
	kind, id, ok := ParseChannel(channel)
	if !ok {
		return false, nil
	}

	switch kind {
	case channelConversation:
		return s.convRepo.IsParticipant(ctx, id, userID)
	case channelGroup:
		member, err := s.groupRepo.GetMember(ctx, id, userID)
		if err != nil {
			return false, err
		}
		return member != nil, nil
	case channelRoom:
		room, err := s.roomRepo.GetRoom(ctx, id)
		if err != nil {
			return false, err
		}
		return room != nil, nil
	}
	return false, nil
}
