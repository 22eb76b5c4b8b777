package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/domain"
)

type roomEnv struct {
	svc      *LiveRoomService
	roomRepo *fakeLiveRoomRepo
	userRepo *fakeUserRepo
	notifier *recordingNotifier
}

func newRoomEnv() *roomEnv {
	env := &roomEnv{
		roomRepo: newFakeLiveRoomRepo(),
		userRepo: newFakeUserRepo(),
		notifier: &recordingNotifier{},
	}
	env.svc = NewLiveRoomService(env.roomRepo, env.userRepo)
	env.svc.SetNotifier(env.notifier)
	return env
}

func (env *roomEnv) addRoomWithInstances(t *testing.T, host uuid.UUID, n int) (*domain.LiveRoom, []*domain.Instance) {
	t.Helper()
	room, err := env.svc.CreateRoom(context.Background(), host, "morning show")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	instances := make([]*domain.Instance, n)
	for i := range instances {
		start := time.Now().Add(time.Duration(i) * time.Hour)
		inst, err := env.svc.CreateInstance(context.Background(), host, room.ID, start, start.Add(time.Hour))
		if err != nil {
			t.Fatalf("create instance %d: %v", i, err)
		}
		instances[i] = inst
	}
	return room, instances
}

func TestSingleLiveInstancePerRoom(t *testing.T) {
	env := newRoomEnv()
	host := env.userRepo.add(domain.RoleMember)
	_, insts := env.addRoomWithInstances(t, host, 2)
	i1, i2 := insts[0], insts[1]

	// I1 goes live.
	got, err := env.svc.Transition(context.Background(), host, i1.ID, domain.InstanceLive)
	if err != nil {
		t.Fatalf("i1 live: %v", err)
	}
	if got.Status != domain.InstanceLive {
		t.Fatalf("i1 status = %s", got.Status)
	}

	// I2 cannot go live while I1 is.
	if _, err := env.svc.Transition(context.Background(), host, i2.ID, domain.InstanceLive); !errors.Is(err, ErrAnotherInstanceLive) {
		t.Fatalf("expected ErrAnotherInstanceLive, got %v", err)
	}

	// End I1, then I2 may go live.
	if _, err := env.svc.Transition(context.Background(), host, i1.ID, domain.InstanceEnded); err != nil {
		t.Fatalf("i1 ended: %v", err)
	}
	got, err = env.svc.Transition(context.Background(), host, i2.ID, domain.InstanceLive)
	if err != nil {
		t.Fatalf("i2 live after i1 ended: %v", err)
	}
	if got.Status != domain.InstanceLive {
		t.Fatalf("i2 status = %s", got.Status)
	}
}

func TestTransitionNeverMovesBackward(t *testing.T) {
	env := newRoomEnv()
	host := env.userRepo.add(domain.RoleMember)
	_, insts := env.addRoomWithInstances(t, host, 1)
	inst := insts[0]

	if _, err := env.svc.Transition(context.Background(), host, inst.ID, domain.InstanceLive); err != nil {
		t.Fatalf("go live: %v", err)
	}
	if _, err := env.svc.Transition(context.Background(), host, inst.ID, domain.InstanceScheduled); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("live->scheduled: expected ErrInvalidTransition, got %v", err)
	}

	if _, err := env.svc.Transition(context.Background(), host, inst.ID, domain.InstanceEnded); err != nil {
		t.Fatalf("end: %v", err)
	}
	for _, target := range []string{domain.InstanceScheduled, domain.InstanceLive} {
		if _, err := env.svc.Transition(context.Background(), host, inst.ID, target); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("ended->%s: expected ErrInvalidTransition, got %v", target, err)
		}
	}
}

func TestTransitionSameStatusIsNoOp(t *testing.T) {
	env := newRoomEnv()
	host := env.userRepo.add(domain.RoleMember)
	_, insts := env.addRoomWithInstances(t, host, 1)
	inst := insts[0]

	got, err := env.svc.Transition(context.Background(), host, inst.ID, domain.InstanceScheduled)
	if err != nil {
		t.Fatalf("no-op transition: %v", err)
	}
	if got.Status != domain.InstanceScheduled {
		t.Errorf("status changed on no-op: %s", got.Status)
	}
	if env.notifier.count("instance.status:"+domain.InstanceScheduled) != 0 {
		t.Error("no-op transition must not publish")
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	env := newRoomEnv()
	host := env.userRepo.add(domain.RoleMember)
	_, insts := env.addRoomWithInstances(t, host, 1)

	if _, err := env.svc.Transition(context.Background(), host, insts[0].ID, "paused"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestTransitionHostOnly(t *testing.T) {
	env := newRoomEnv()
	host := env.userRepo.add(domain.RoleMember)
	stranger := env.userRepo.add(domain.RoleMember)
	mod := env.userRepo.add(domain.RoleModerator)
	_, insts := env.addRoomWithInstances(t, host, 1)
	inst := insts[0]

	if _, err := env.svc.Transition(context.Background(), stranger, inst.ID, domain.InstanceLive); !errors.Is(err, ErrNotHost) {
		t.Errorf("expected ErrNotHost, got %v", err)
	}

	// Platform moderators may drive transitions too.
	if _, err := env.svc.Transition(context.Background(), mod, inst.ID, domain.InstanceLive); err != nil {
		t.Errorf("transition by moderator: %v", err)
	}
}

func TestJoinResolvesRole(t *testing.T) {
	env := newRoomEnv()
	host := env.userRepo.add(domain.RoleMember)
	speaker := env.userRepo.add(domain.RoleMember)
	listener := env.userRepo.add(domain.RoleMember)
	_, insts := env.addRoomWithInstances(t, host, 1)
	inst := insts[0]

	if _, err := env.svc.Transition(context.Background(), host, inst.ID, domain.InstanceLive); err != nil {
		t.Fatalf("go live: %v", err)
	}
	if err := env.svc.PromoteSpeaker(context.Background(), host, inst.ID, speaker); err != nil {
		t.Fatalf("promote: %v", err)
	}

	role, err := env.svc.JoinInstance(context.Background(), host, inst.ID)
	if err != nil || role != domain.LiveRoleHost {
		t.Errorf("host join: role=%s err=%v", role, err)
	}
	role, err = env.svc.JoinInstance(context.Background(), speaker, inst.ID)
	if err != nil || role != domain.LiveRoleSpeaker {
		t.Errorf("speaker join: role=%s err=%v", role, err)
	}
	role, err = env.svc.JoinInstance(context.Background(), listener, inst.ID)
	if err != nil || role != domain.LiveRoleListener {
		t.Errorf("listener join: role=%s err=%v", role, err)
	}

	// Hosts and speakers never land in the listener set.
	fresh, _ := env.roomRepo.GetInstance(context.Background(), inst.ID)
	if len(fresh.Listeners) != 1 || fresh.Listeners[0] != listener {
		t.Errorf("unexpected listener set: %v", fresh.Listeners)
	}

	// Repeated joins are no-ops.
	if _, err := env.svc.JoinInstance(context.Background(), listener, inst.ID); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	fresh, _ = env.roomRepo.GetInstance(context.Background(), inst.ID)
	if len(fresh.Listeners) != 1 {
		t.Errorf("rejoin duplicated listener: %v", fresh.Listeners)
	}
}

func TestJoinRequiresLiveInstance(t *testing.T) {
	env := newRoomEnv()
	host := env.userRepo.add(domain.RoleMember)
	listener := env.userRepo.add(domain.RoleMember)
	_, insts := env.addRoomWithInstances(t, host, 1)
	inst := insts[0]

	if _, err := env.svc.JoinInstance(context.Background(), listener, inst.ID); !errors.Is(err, ErrInstanceNotLive) {
		t.Errorf("join scheduled: expected ErrInstanceNotLive, got %v", err)
	}

	if _, err := env.svc.Transition(context.Background(), host, inst.ID, domain.InstanceLive); err != nil {
		t.Fatalf("go live: %v", err)
	}
	if _, err := env.svc.Transition(context.Background(), host, inst.ID, domain.InstanceEnded); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := env.svc.JoinInstance(context.Background(), listener, inst.ID); !errors.Is(err, ErrInstanceNotLive) {
		t.Errorf("join ended: expected ErrInstanceNotLive, got %v", err)
	}
}

func TestLeaveInstance(t *testing.T) {
	env := newRoomEnv()
	host := env.userRepo.add(domain.RoleMember)
	listener := env.userRepo.add(domain.RoleMember)
	_, insts := env.addRoomWithInstances(t, host, 1)
	inst := insts[0]

	if _, err := env.svc.Transition(context.Background(), host, inst.ID, domain.InstanceLive); err != nil {
		t.Fatalf("go live: %v", err)
	}
	if _, err := env.svc.JoinInstance(context.Background(), listener, inst.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := env.svc.LeaveInstance(context.Background(), listener, inst.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	fresh, _ := env.roomRepo.GetInstance(context.Background(), inst.ID)
	if len(fresh.Listeners) != 0 {
		t.Errorf("listener still present after leave: %v", fresh.Listeners)
	}

	// Leaving again is a no-op, not an error.
	if err := env.svc.LeaveInstance(context.Background(), listener, inst.ID); err != nil {
		t.Errorf("second leave: %v", err)
	}
}

func TestPromoteSpeakerHostOnly(t *testing.T) {
	env := newRoomEnv()
	host := env.userRepo.add(domain.RoleMember)
	listener := env.userRepo.add(domain.RoleMember)
	other := env.userRepo.add(domain.RoleMember)
	_, insts := env.addRoomWithInstances(t, host, 1)
	inst := insts[0]

	if _, err := env.svc.Transition(context.Background(), host, inst.ID, domain.InstanceLive); err != nil {
		t.Fatalf("go live: %v", err)
	}
	if _, err := env.svc.JoinInstance(context.Background(), listener, inst.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := env.svc.PromoteSpeaker(context.Background(), other, inst.ID, listener); !errors.Is(err, ErrNotHost) {
		t.Errorf("expected ErrNotHost, got %v", err)
	}

	if err := env.svc.PromoteSpeaker(context.Background(), host, inst.ID, listener); err != nil {
		t.Fatalf("promote: %v", err)
	}
	fresh, _ := env.roomRepo.GetInstance(context.Background(), inst.ID)
	if len(fresh.Speakers) != 1 || fresh.Speakers[0] != listener {
		t.Errorf("unexpected speaker set: %v", fresh.Speakers)
	}
	if len(fresh.Listeners) != 0 {
		t.Errorf("promoted user left in listener set: %v", fresh.Listeners)
	}
}

func TestInstanceScheduleValidation(t *testing.T) {
	env := newRoomEnv()
	host := env.userRepo.add(domain.RoleMember)
	room, err := env.svc.CreateRoom(context.Background(), host, "evening show")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	start := time.Now()
	if _, err := env.svc.CreateInstance(context.Background(), host, room.ID, start, start); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("expected ErrInvalidSchedule, got %v", err)
	}
	if _, err := env.svc.CreateInstance(context.Background(), host, room.ID, start, start.Add(-time.Hour)); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("expected ErrInvalidSchedule for reversed times, got %v", err)
	}
}
