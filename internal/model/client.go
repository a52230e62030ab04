package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is one postal address of a client. Only Line1 is mandatory.
type Address struct {
	Line1   string `json:"line1" validate:"required"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	Zip     string `json:"zip,omitempty"`
}

// Client is a customer of the shipping business, owned by exactly one user.
type Client struct {
	ID          uuid.UUID `json:"_id" gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name" gorm:"size:255;not null;index"`
	Email       string    `json:"email" gorm:"size:255;not null;index"`
	Phone       string    `json:"phone,omitempty" gorm:"size:64"`
	Addresses   []Address `json:"addresses" gorm:"serializer:json;type:text"` // ordered
	OwnerUserID uuid.UUID `json:"ownerUserId" gorm:"type:char(36);not null;index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Addresses == nil {
		c.Addresses = []Address{}
	}
	return nil
}
