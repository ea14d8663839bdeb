package service

import (
	"github.com/google/uuid"

	"midas/reimbursehub/internal/model"
)

// Identity is the authenticated caller for a single request. Handlers build it
// from the access token and pass it into every operation; nothing keeps it around
// between requests.
type Identity struct {
	UserID uuid.UUID  `json:"id"`
	Role   model.Role `json:"role"`
	Email  string     `json:"email"`
	Name   string     `json:"name"`
}

func (id Identity) IsAdmin() bool  { return id.Role == model.RoleAdmin }
func (id Identity) IsMember() bool { return id.Role == model.RoleMember }

func identityOf(u *model.User) *Identity {
	return &Identity{UserID: u.ID, Role: u.Role, Email: u.Email, Name: u.Name}
}
