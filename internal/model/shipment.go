package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShipmentStatus is the lifecycle state of a shipment.
type ShipmentStatus string

const (
	ShipmentStatusCreated   ShipmentStatus = "created"
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusCanceled  ShipmentStatus = "canceled"
)

// ShipmentStatuses lists every known status in display order.
var ShipmentStatuses = []ShipmentStatus{
	ShipmentStatusCreated,
	ShipmentStatusInTransit,
	ShipmentStatusDelivered,
	ShipmentStatusCanceled,
}

// Valid reports whether s is one of the known statuses. Any valid status may
// follow any other; there is no transition table.
func (s ShipmentStatus) Valid() bool {
	for _, known := range ShipmentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Shipment is a parcel moving between two places for a client.
type Shipment struct {
	ID          uuid.UUID      `json:"_id" gorm:"type:char(36);primaryKey"`
	ClientID    uuid.UUID      `json:"clientId" gorm:"type:char(36);not null;index"` // soft reference
	Code        string         `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Origin      string         `json:"origin" gorm:"size:255;not null"`
	Destination string         `json:"destination" gorm:"size:255;not null"`
	WeightKg    float64        `json:"weightKg" gorm:"not null"`
	Status      ShipmentStatus `json:"status" gorm:"type:varchar(20);not null;default:'created';index"`
	ETA         *time.Time     `json:"eta,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// BeforeCreate sets UUID and the initial status before creating the record.
func (s *Shipment) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = ShipmentStatusCreated
	}
	return nil
}
