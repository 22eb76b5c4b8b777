package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/domain"
)

func TestParseChannelRoundTrip(t *testing.T) {
	id := uuid.New()

	cases := []struct {
		channel string
		kind    string
	}{
		{ConversationChannel(id), "conversation"},
		{GroupChannel(id), "group"},
		{RoomChannel(id), "room"},
	}
	for _, tc := range cases {
		kind, parsed, ok := ParseChannel(tc.channel)
		if !ok {
			t.Errorf("ParseChannel(%q) not ok", tc.channel)
			continue
		}
		if kind != tc.kind || parsed != id {
			t.Errorf("ParseChannel(%q) = (%s, %s)", tc.channel, kind, parsed)
		}
	}
}

func TestParseChannelRejectsGarbage(t *testing.T) {
	bad := []string{
		"",
		"conversation",
		"conversation:",
		"conversation:not-a-uuid",
		"presence:" + uuid.New().String(),
	}
	for _, channel := range bad {
		if _, _, ok := ParseChannel(channel); ok {
			t.Errorf("ParseChannel(%q) accepted", channel)
		}
	}
}

func TestCanSubscribe(t *testing.T) {
	convRepo := newFakeConvRepo()
	groupRepo := newFakeGroupRepo()
	roomRepo := newFakeLiveRoomRepo()
	svc := NewSubscriptionService(convRepo, groupRepo, roomRepo)

	member := uuid.New()
	outsider := uuid.New()

	conv := &domain.Conversation{ID: uuid.New(), Kind: domain.ConversationDM, CreatedAt: time.Now()}
	_ = convRepo.Create(context.Background(), conv, []uuid.UUID{member})

	group := &domain.Group{ID: uuid.New(), Name: "g", CreatorID: member, CreatedAt: time.Now()}
	_ = groupRepo.Create(context.Background(), group)
	_ = groupRepo.AddMember(context.Background(), &domain.GroupMember{GroupID: group.ID, UserID: member, JoinedAt: time.Now()})

	room := &domain.LiveRoom{ID: uuid.New(), Name: "r", HostID: member, CreatedAt: time.Now()}
	_ = roomRepo.CreateRoom(context.Background(), room)

	cases := []struct {
		name    string
		userID  uuid.UUID
		channel string
		want    bool
	}{
		{"participant on conversation", member, ConversationChannel(conv.ID), true},
		{"outsider on conversation", outsider, ConversationChannel(conv.ID), false},
		{"member on group", member, GroupChannel(group.ID), true},
		{"outsider on group", outsider, GroupChannel(group.ID), false},
		{"anyone on room", outsider, RoomChannel(room.ID), true},
		{"missing room", outsider, RoomChannel(uuid.New()), false},
		{"unknown channel", member, "garbage", false},
	}
	for _, tc := range cases {
		got, err := svc.CanSubscribe(context.Background(), tc.userID, tc.channel)
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
