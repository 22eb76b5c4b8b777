package domain

import (
	"time"

	"github.com/google/uuid"
)

// Platform roles. Moderators and admins may act on messages and live
// instances they don't own; delete-for-everyone stays sender-only.
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Elevated reports whether the user holds a moderator or admin role.
func (u *User) Elevated() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}
