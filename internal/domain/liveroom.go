package domain

import (
	"time"

	"github.com/google/uuid"
)

// Instance statuses. Transitions only move forward:
// scheduled → live|ended, live → ended.
const (
	InstanceScheduled = "scheduled"
	InstanceLive      = "live"
	InstanceEnded     = "ended"
)

// Roles an actor can hold on a live instance.
const (
	LiveRoleHost     = "host"
	LiveRoleSpeaker  = "speaker"
	LiveRoleListener = "listener"
)

type LiveRoom struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	HostID    uuid.UUID `json:"host_id"`
	CreatedAt time.Time `json:"created_at"`
	// Joined fields
	Instances []Instance `json:"instances,omitempty"`
}

type Instance struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	Status    string    `json:"status"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	CreatedAt time.Time `json:"created_at"`
	// Joined fields
	Speakers  []uuid.UUID `json:"speakers,omitempty"`
	Listeners []uuid.UUID `json:"listeners,omitempty"`
}

// ValidTransition reports whether an instance may move from one status
// to another. Same-status requests are handled as no-ops by the caller.
func ValidTransition(from, to string) bool {
	switch from {
	case InstanceScheduled:
		return to == InstanceLive || to == InstanceEnded
	case InstanceLive:
		return to == InstanceEnded
	default:
		return false
	}
}
