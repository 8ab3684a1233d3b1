package domain

import "github.com/google/uuid"

// Role is the authorization role carried by a caller's token.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is the authenticated caller of an API operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// IsAdmin reports whether the actor holds the administrator role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanView reports whether the actor may read the wallets and history of userID.
func (a Actor) CanView(userID uuid.UUID) bool {
	return a.IsAdmin() || a.ID == userID
}
