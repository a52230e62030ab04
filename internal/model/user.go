package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleAdmin grants access to every operator's clients.
const RoleAdmin = "admin"

// User represents an operator of the console.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Roles        []string  `json:"roles" gorm:"serializer:json;type:text"`
	Verified     bool      `json:"-" gorm:"default:false;index"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}
	return nil
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
