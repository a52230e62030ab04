package service

import (
	"github.com/google/uuid"

	"shipdesk/internal/model"
)

// Actor identifies the authenticated user a request runs on behalf of.
type Actor struct {
	UserID uuid.UUID
	Roles  []string
}

// IsAdmin reports whether the actor may see every user's clients.
func (a Actor) IsAdmin() bool {
	for _, r := range a.Roles {
		if r == model.RoleAdmin {
			return true
		}
	}
	return false
}
