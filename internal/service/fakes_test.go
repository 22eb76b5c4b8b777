package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kindredhq/kindred/internal/domain"
)

// In-memory fakes mirroring the store's atomic semantics: pair-key
// uniqueness, on-conflict-do-nothing set inserts, and the conditional
// go-live update.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := *user
	r.users[user.ID] = &u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) add(role string) uuid.UUID {
	id := uuid.New()
	r.users[id] = &domain.User{
		ID:          id,
		Email:       id.String() + "@test.local",
		Username:    "u-" + id.String()[:8],
		DisplayName: "User " + id.String()[:8],
		Role:        role,
		Status:      "offline",
	}
	return id
}

type fakeConvRepo struct {
	mu           sync.Mutex
	convs        map[uuid.UUID]*domain.Conversation
	byPair       map[string]uuid.UUID
	participants map[uuid.UUID]map[uuid.UUID]struct{}
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{
		convs:        make(map[uuid.UUID]*domain.Conversation),
		byPair:       make(map[string]uuid.UUID),
		participants: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (r *fakeConvRepo) ResolveDM(ctx context.Context, candidate *domain.Conversation, userA, userB uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byPair[*candidate.PairKey]
	if !ok {
		copied := *candidate
		r.convs[candidate.ID] = &copied
		r.byPair[*candidate.PairKey] = candidate.ID
		r.participants[candidate.ID] = make(map[uuid.UUID]struct{})
		id = candidate.ID
	}
	r.participants[id][userA] = struct{}{}
	r.participants[id][userB] = struct{}{}

	conv := *r.convs[id]
	return &conv, nil
}

func (r *fakeConvRepo) Create(ctx context.Context, conv *domain.Conversation, participants []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *conv
	r.convs[conv.ID] = &copied
	set := make(map[uuid.UUID]struct{})
	for _, id := range participants {
		set[id] = struct{}{}
	}
	r.participants[conv.ID] = set
	return nil
}

func (r *fakeConvRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[id]; ok && !c.Removed {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeConvRepo) GetByGroup(ctx context.Context, groupID uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.convs {
		if c.GroupID != nil && *c.GroupID == groupID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeConvRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for id, set := range r.participants {
		if _, ok := set[userID]; ok {
			if c, found := r.convs[id]; found && !c.Removed {
				out = append(out, *c)
			}
		}
	}
	return out, nil
}

func (r *fakeConvRepo) ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for id := range r.participants[conversationID] {
		out = append(out, id)
	}
	return out, nil
}

func (r *fakeConvRepo) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.participants[conversationID][userID]
	return ok, nil
}

func (r *fakeConvRepo) ApplyParticipantDiff(ctx context.Context, conversationID uuid.UUID, toAdd, toRemove []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.participants[conversationID]
	for _, id := range toAdd {
		set[id] = struct{}{}
	}
	for _, id := range toRemove {
		delete(set, id)
	}
	return nil
}

func (r *fakeConvRepo) Restore(ctx context.Context, conversationID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[conversationID]; ok {
		c.Removed = false
	}
	return nil
}

func (r *fakeConvRepo) SetPinned(ctx context.Context, conversationID uuid.UUID, messageID *uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[conversationID]; ok {
		c.PinnedMessageID = messageID
	}
	return nil
}

type reactionKey struct {
	user  uuid.UUID
	emoji string
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  map[uuid.UUID]*domain.Message
	reactions map[uuid.UUID]map[reactionKey]time.Time
	reads     map[uuid.UUID]map[uuid.UUID]time.Time
	hidden    map[uuid.UUID]map[uuid.UUID]struct{}
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		messages:  make(map[uuid.UUID]*domain.Message),
		reactions: make(map[uuid.UUID]map[reactionKey]time.Time),
		reads:     make(map[uuid.UUID]map[uuid.UUID]time.Time),
		hidden:    make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *msg
	r.messages[msg.ID] = &copied
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[id]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeMessageRepo) ListByConversation(ctx context.Context, conversationID, viewerID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if _, hiddenForViewer := r.hidden[m.ID][viewerID]; hiddenForViewer {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeMessageRepo) UpdateContent(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[msg.ID]; ok {
		m.Ciphertext = msg.Ciphertext
		m.IV = msg.IV
		m.Tag = msg.Tag
		m.Kind = msg.Kind
		m.ShareRef = msg.ShareRef
		now := time.Now()
		m.EditedAt = &now
	}
	return nil
}

func (r *fakeMessageRepo) HideForUser(ctx context.Context, messageID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hidden[messageID] == nil {
		r.hidden[messageID] = make(map[uuid.UUID]struct{})
	}
	r.hidden[messageID][userID] = struct{}{}
	return nil
}

func (r *fakeMessageRepo) DeleteForEveryone(ctx context.Context, messageID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[messageID]; ok {
		m.Ciphertext = nil
		m.IV = nil
		m.Tag = nil
		m.DeletedForEveryone = true
	}
	delete(r.reactions, messageID)
	return nil
}

func (r *fakeMessageRepo) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reactionKey{user: userID, emoji: emoji}
	if r.reactions[messageID] == nil {
		r.reactions[messageID] = make(map[reactionKey]time.Time)
	}
	if _, ok := r.reactions[messageID][key]; ok {
		delete(r.reactions[messageID], key)
		return false, nil
	}
	r.reactions[messageID][key] = time.Now()
	return true, nil
}

func (r *fakeMessageRepo) MarkRead(ctx context.Context, messageID, userID uuid.UUID, readAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reads[messageID] == nil {
		r.reads[messageID] = make(map[uuid.UUID]time.Time)
	}
	if _, ok := r.reads[messageID][userID]; ok {
		return false, nil
	}
	r.reads[messageID][userID] = readAt
	return true, nil
}

func (r *fakeMessageRepo) ListReactions(ctx context.Context, messageID uuid.UUID) ([]domain.Reaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Reaction
	for key, at := range r.reactions[messageID] {
		out = append(out, domain.Reaction{
			MessageID: messageID,
			UserID:    key.user,
			Emoji:     key.emoji,
			CreatedAt: at,
		})
	}
	return out, nil
}

func (r *fakeMessageRepo) ListReactionsByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Reaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Reaction
	for id, m := range r.messages {
		if m.ConversationID != conversationID {
			continue
		}
		for key, at := range r.reactions[id] {
			out = append(out, domain.Reaction{
				MessageID: id,
				UserID:    key.user,
				Emoji:     key.emoji,
				CreatedAt: at,
			})
		}
	}
	return out, nil
}

type fakeGroupRepo struct {
	mu      sync.Mutex
	groups  map[uuid.UUID]*domain.Group
	members map[uuid.UUID]map[uuid.UUID]*domain.GroupMember
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		groups:  make(map[uuid.UUID]*domain.Group),
		members: make(map[uuid.UUID]map[uuid.UUID]*domain.GroupMember),
	}
}

func (r *fakeGroupRepo) Create(ctx context.Context, group *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *group
	r.groups[group.ID] = &copied
	r.members[group.ID] = make(map[uuid.UUID]*domain.GroupMember)
	return nil
}

func (r *fakeGroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[id]; ok {
		copied := *g
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeGroupRepo) AddMember(ctx context.Context, member *domain.GroupMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.members[member.GroupID]
	if set == nil {
		set = make(map[uuid.UUID]*domain.GroupMember)
		r.members[member.GroupID] = set
	}
	if _, ok := set[member.UserID]; !ok {
		copied := *member
		set[member.UserID] = &copied
	}
	return nil
}

func (r *fakeGroupRepo) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[groupID], userID)
	return nil
}

func (r *fakeGroupRepo) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[groupID][userID]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeGroupRepo) ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.GroupMember
	for _, m := range r.members[groupID] {
		out = append(out, *m)
	}
	return out, nil
}

type fakeLiveRoomRepo struct {
	mu        sync.Mutex
	rooms     map[uuid.UUID]*domain.LiveRoom
	instances map[uuid.UUID]*domain.Instance
	speakers  map[uuid.UUID]map[uuid.UUID]struct{}
	listeners map[uuid.UUID]map[uuid.UUID]struct{}
}

func newFakeLiveRoomRepo() *fakeLiveRoomRepo {
	return &fakeLiveRoomRepo{
		rooms:     make(map[uuid.UUID]*domain.LiveRoom),
		instances: make(map[uuid.UUID]*domain.Instance),
		speakers:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
		listeners: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (r *fakeLiveRoomRepo) CreateRoom(ctx context.Context, room *domain.LiveRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *room
	r.rooms[room.ID] = &copied
	return nil
}

func (r *fakeLiveRoomRepo) GetRoom(ctx context.Context, id uuid.UUID) (*domain.LiveRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[id]; ok {
		copied := *room
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeLiveRoomRepo) CreateInstance(ctx context.Context, inst *domain.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *inst
	r.instances[inst.ID] = &copied
	r.speakers[inst.ID] = make(map[uuid.UUID]struct{})
	r.listeners[inst.ID] = make(map[uuid.UUID]struct{})
	return nil
}

func (r *fakeLiveRoomRepo) GetInstance(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	if !ok {
		return nil, nil
	}
	copied := *inst
	for userID := range r.speakers[id] {
		copied.Speakers = append(copied.Speakers, userID)
	}
	for userID := range r.listeners[id] {
		copied.Listeners = append(copied.Listeners, userID)
	}
	return &copied, nil
}

func (r *fakeLiveRoomRepo) ListInstances(ctx context.Context, roomID uuid.UUID) ([]domain.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Instance
	for _, inst := range r.instances {
		if inst.RoomID == roomID {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (r *fakeLiveRoomRepo) SetLive(ctx context.Context, instanceID, roomID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[instanceID]
	if !ok || inst.Status != domain.InstanceScheduled {
		return false, nil
	}
	for _, sibling := range r.instances {
		if sibling.RoomID == roomID && sibling.Status == domain.InstanceLive {
			return false, nil
		}
	}
	inst.Status = domain.InstanceLive
	return true, nil
}

func (r *fakeLiveRoomRepo) SetStatus(ctx context.Context, instanceID uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.instances[instanceID]; ok {
		inst.Status = status
	}
	return nil
}

func (r *fakeLiveRoomRepo) AddSpeaker(ctx context.Context, instanceID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speakers[instanceID][userID] = struct{}{}
	return nil
}

func (r *fakeLiveRoomRepo) AddListener(ctx context.Context, instanceID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, isSpeaker := r.speakers[instanceID][userID]; isSpeaker {
		return nil
	}
	r.listeners[instanceID][userID] = struct{}{}
	return nil
}

func (r *fakeLiveRoomRepo) RemoveListener(ctx context.Context, instanceID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners[instanceID], userID)
	return nil
}

func (r *fakeLiveRoomRepo) RemoveListenerFromLive(ctx context.Context, roomID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, inst := range r.instances {
		if inst.RoomID == roomID && inst.Status == domain.InstanceLive {
			delete(r.listeners[id], userID)
		}
	}
	return nil
}

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) record(event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, e := range n.events {
		if e == event {
			total++
		}
	}
	return total
}

func (n *recordingNotifier) NotifyNewMessage(msg *domain.Message) { n.record("message.new") }
func (n *recordingNotifier) NotifyEditedMessage(msg *domain.Message) {
	n.record("message.edited")
}
func (n *recordingNotifier) NotifyDeletedMessage(conversationID, messageID uuid.UUID, mode string) {
	n.record("message.deleted:" + mode)
}
func (n *recordingNotifier) NotifyReaction(conversationID uuid.UUID, reaction *domain.Reaction, added bool) {
	n.record("message.reaction")
}
func (n *recordingNotifier) NotifyRead(conversationID uuid.UUID, receipt *domain.ReadReceipt) {
	n.record("message.read")
}
func (n *recordingNotifier) NotifyPinned(conversationID uuid.UUID, messageID *uuid.UUID) {
	n.record("message.pinned")
}
func (n *recordingNotifier) NotifyGroupUserJoined(groupID, conversationID, userID uuid.UUID) {
	n.record("group.user_joined")
}
func (n *recordingNotifier) NotifyGroupUserLeft(groupID, conversationID, userID uuid.UUID) {
	n.record("group.user_left")
}
func (n *recordingNotifier) NotifyInstanceStatus(roomID, instanceID uuid.UUID, status string) {
	n.record("instance.status:" + status)
}
func (n *recordingNotifier) NotifyRoomUserJoined(roomID, instanceID, userID uuid.UUID, role string) {
	n.record("room.user_joined")
}
func (n *recordingNotifier) NotifyRoomUserLeft(roomID, instanceID, userID uuid.UUID) {
	n.record("room.user_left")
}

// allowListShareChecker treats only the listed refs as accessible.
type allowListShareChecker struct {
	refs map[uuid.UUID]struct{}
}

func (c *allowListShareChecker) Accessible(ctx context.Context, userID, ref uuid.UUID) (bool, error) {
	_, ok := c.refs[ref]
	return ok, nil
}
