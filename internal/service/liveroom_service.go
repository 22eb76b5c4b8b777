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
	ErrRoomNotFound        = errors.New("live room not found")
	ErrInstanceNotFound    = errors.New("instance not found")
	ErrNotHost             = errors.New("only the room host can perform this action")
	ErrInvalidStatus       = errors.New("status must be scheduled, live or ended")
	ErrInvalidTransition   = errors.New("instance status cannot move backward")
	ErrAnotherInstanceLive = errors.New("another instance is already live")
	ErrInstanceNotLive     = errors.New("instance is not live")
	ErrInvalidSchedule     = errors.New("end time must be after start time")
)

type LiveRoomService struct {
	roomRepo repository.LiveRoomRepository
	userRepo repository.UserRepository
	notifier Notifier
}

func NewLiveRoomService(roomRepo repository.LiveRoomRepository, userRepo repository.UserRepository) *LiveRoomService {
	return &LiveRoomService{
		roomRepo: roomRepo,
		userRepo: userRepo,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *LiveRoomService) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *LiveRoomService) CreateRoom(ctx context.Context, hostID uuid.UUID, name string) (*domain.LiveRoom, error) {
	room := &domain.LiveRoom{
		ID:        uuid.New(),
		Name:      name,
		HostID:    hostID,
		CreatedAt: time.Now(),
	}
	if err := s.roomRepo.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("creating live room: %w", err)
	}
	return room, nil
}

// GetRoom returns the room with its instances loaded.
func (s *LiveRoomService) GetRoom(ctx context.Context, roomID uuid.UUID) (*domain.LiveRoom, error) {
	room, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}

	instances, err := s.roomRepo.ListInstances(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room.Instances = instances
	return room, nil
}

// CreateInstance schedules a new instance. Host or elevated role only.
func (s *LiveRoomService) CreateInstance(ctx context.Context, userID, roomID uuid.UUID, startsAt, endsAt time.Time) (*domain.Instance, error) {
	room, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if err := s.checkHost(ctx, room, userID); err != nil {
		return nil, err
	}

	if !endsAt.After(startsAt) {
		return nil, ErrInvalidSchedule
	}

	inst := &domain.Instance{
		ID:        uuid.New(),
		RoomID:    roomID,
		Status:    domain.InstanceScheduled,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		CreatedAt: time.Now(),
	}
	if err := s.roomRepo.CreateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("creating instance: %w", err)
	}
	return inst, nil
}

// Transition drives the scheduled→live→ended state machine. Requesting
// the current status is a no-op. Going live is delegated to the store's
// conditional update so concurrent go-live requests for sibling
// instances cannot both win.
func (s *LiveRoomService) Transition(ctx context.Context, userID, instanceID uuid.UUID, target string) (*domain.Instance, error) {
	if target != domain.InstanceScheduled && target != domain.InstanceLive && target != domain.InstanceEnded {
		return nil, ErrInvalidStatus
	}

	inst, err := s.roomRepo.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, ErrInstanceNotFound
	}

	room, err := s.roomRepo.GetRoom(ctx, inst.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if err := s.checkHost(ctx, room, userID); err != nil {
		return nil, err
	}

	if target == inst.Status {
		return inst, nil
	}
	if !domain.ValidTransition(inst.Status, target) {
		return nil, ErrInvalidTransition
	}

	if target == domain.InstanceLive {
		applied, err := s.roomRepo.SetLive(ctx, instanceID, inst.RoomID)
		if err != nil {
			return nil, fmt.Errorf("setting instance live: %w", err)
		}
		if !applied {
			// Lost a race: either a sibling went live first, or this
			// instance's status moved underneath us.
			fresh, err := s.roomRepo.GetInstance(ctx, instanceID)
			if err != nil {
				return nil, err
			}
			if fresh != nil && fresh.Status == domain.InstanceLive {
				return fresh, nil
			}
			if fresh != nil && fresh.Status == domain.InstanceEnded {
				return nil, ErrInvalidTransition
			}
			return nil, ErrAnotherInstanceLive
		}
	} else {
		if err := s.roomRepo.SetStatus(ctx, instanceID, target); err != nil {
			return nil, fmt.Errorf("setting instance status: %w", err)
		}
	}

	inst.Status = target
	if s.notifier != nil {
		s.notifier.NotifyInstanceStatus(inst.RoomID, instanceID, target)
	}

	return inst, nil
}

// ResolveRole resolves an actor's role on an instance: the room host is
// host, members of the speaker set are speakers, everyone else is a
// listener — including actors who have not joined yet.
func ResolveRole(hostID uuid.UUID, inst *domain.Instance, userID uuid.UUID) string {
	if userID == hostID {
		return domain.LiveRoleHost
	}
	for _, id := range inst.Speakers {
		if id == userID {
			return domain.LiveRoleSpeaker
		}
	}
	return domain.LiveRoleListener
}

// JoinInstance adds the actor to the live instance. Hosts and speakers
// are never re-added as listeners; repeated joins are no-ops.
func (s *LiveRoomService) JoinInstance(ctx context.Context, userID, instanceID uuid.UUID) (string, error) {
	inst, err := s.roomRepo.GetInstance(ctx, instanceID)
	if err != nil {
		return "", err
	}
	if inst == nil {
		return "", ErrInstanceNotFound
	}
	if inst.Status != domain.InstanceLive {
		return "", ErrInstanceNotLive
	}

	room, err := s.roomRepo.GetRoom(ctx, inst.RoomID)
	if err != nil {
		return "", err
	}
	if room == nil {
		return "", ErrRoomNotFound
	}

	role := ResolveRole(room.HostID, inst, userID)
	if role == domain.LiveRoleListener {
		if err := s.roomRepo.AddListener(ctx, instanceID, userID); err != nil {
			return "", fmt.Errorf("adding listener: %w", err)
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyRoomUserJoined(inst.RoomID, instanceID, userID, role)
	}

	return role, nil
}

// LeaveInstance removes the actor from the room's live instance listener
// set; no-op when absent.
func (s *LiveRoomService) LeaveInstance(ctx context.Context, userID, instanceID uuid.UUID) error {
	inst, err := s.roomRepo.GetInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	if inst == nil {
		return ErrInstanceNotFound
	}

	if err := s.roomRepo.RemoveListenerFromLive(ctx, inst.RoomID, userID); err != nil {
		return fmt.Errorf("removing listener: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyRoomUserLeft(inst.RoomID, instanceID, userID)
	}

	return nil
}

// PromoteSpeaker moves a user into the instance's speaker set. Host or
// elevated role only.
func (s *LiveRoomService) PromoteSpeaker(ctx context.Context, actorID, instanceID, userID uuid.UUID) error {
	inst, err := s.roomRepo.GetInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	if inst == nil {
		return ErrInstanceNotFound
	}

	room, err := s.roomRepo.GetRoom(ctx, inst.RoomID)
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}
	if err := s.checkHost(ctx, room, actorID); err != nil {
		return err
	}

	if err := s.roomRepo.AddSpeaker(ctx, instanceID, userID); err != nil {
		return fmt.Errorf("adding speaker: %w", err)
	}
	// A promoted listener should not stay in both sets.
	if err := s.roomRepo.RemoveListener(ctx, instanceID, userID); err != nil {
		return fmt.Errorf("removing listener after promotion: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyRoomUserJoined(inst.RoomID, instanceID, userID, domain.LiveRoleSpeaker)
	}

	return nil
}

func (s *LiveRoomService) checkHost(ctx context.Context, room *domain.LiveRoom, userID uuid.UUID) error {
	if room.HostID == userID {
		return nil
	}
	actor, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if actor != nil && actor.Elevated() {
		return nil
	}
	return ErrNotHost
}
