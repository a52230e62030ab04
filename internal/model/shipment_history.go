package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShipmentHistory is an immutable record of one status change.
// Rows are only ever inserted, as a side effect of a status update.
type ShipmentHistory struct {
	ID         uuid.UUID      `json:"_id" gorm:"type:char(36);primaryKey"`
	ShipmentID uuid.UUID      `json:"shipmentId" gorm:"type:char(36);not null;index:idx_history_shipment_at,priority:1"`
	PrevStatus ShipmentStatus `json:"prevStatus" gorm:"type:varchar(20);not null"`
	NewStatus  ShipmentStatus `json:"newStatus" gorm:"type:varchar(20);not null"`
	Note       string         `json:"note,omitempty" gorm:"type:text"`
	ChangedBy  uuid.UUID      `json:"changedBy" gorm:"type:char(36);not null"`
	At         time.Time      `json:"at" gorm:"precision:6;not null;index:idx_history_shipment_at,priority:2"`
}

// TableName keeps the audit table name singular.
func (ShipmentHistory) TableName() string {
	return "shipment_history"
}

// BeforeCreate sets UUID before creating the record.
func (h *ShipmentHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
