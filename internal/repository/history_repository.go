package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shipdesk/internal/model"
)

// HistoryRepository defines append-only access to shipment history.
type HistoryRepository interface {
	Append(ctx context.Context, record *model.ShipmentHistory) error
	ListByShipment(ctx context.Context, shipmentID uuid.UUID, page model.PageRequest) ([]model.ShipmentHistory, int64, error)
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// Append inserts one history record. Timestamps are stored to the
// microsecond and strictly increase per shipment, so a record never ties
// with the one before it. Callers append under the shipment's row lock.
func (r *historyRepository) Append(ctx context.Context, record *model.ShipmentHistory) error {
	record.At = record.At.UTC().Truncate(time.Microsecond)

	var latest []model.ShipmentHistory
	if err := r.db.WithContext(ctx).
		Where("shipment_id = ?", record.ShipmentID).
		Order("at DESC").Order("id DESC").Limit(1).
		Find(&latest).Error; err != nil {
		return err
	}
	if len(latest) == 1 && !record.At.After(latest[0].At) {
		record.At = latest[0].At.UTC().Add(time.Microsecond)
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByShipment returns a page of history for one shipment, most recent
// change first. ID breaks ties left by rows written before timestamps
// were made strictly increasing.
func (r *historyRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID, page model.PageRequest) ([]model.ShipmentHistory, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.ShipmentHistory{}).Where("shipment_id = ?", shipmentID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page = page.Normalize()
	records := make([]model.ShipmentHistory, 0, page.PageSize)
	if err := q.Order("at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
