package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shipdesk/internal/model"
)

// ShipmentFilter narrows a shipment listing. Zero values do not filter.
type ShipmentFilter struct {
	ClientID *uuid.UUID
	Status   model.ShipmentStatus
	Search   string
}

// ShipmentRepository defines shipment persistence operations.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *model.Shipment) error
	CreateBatch(ctx context.Context, shipments []model.Shipment) error
	Update(ctx context.Context, shipment *model.Shipment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Shipment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Shipment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ShipmentStatus) error
	List(ctx context.Context, filter ShipmentFilter, page model.PageRequest) ([]model.Shipment, int64, error)
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, shipments ShipmentRepository, history HistoryRepository) error) error
}

type shipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository creates a new shipment repository.
func NewShipmentRepository(db *gorm.DB) ShipmentRepository {
	return &shipmentRepository{db: db}
}

// Create creates a new shipment.
func (r *shipmentRepository) Create(ctx context.Context, shipment *model.Shipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

// CreateBatch inserts many shipments in chunks of 100.
func (r *shipmentRepository) CreateBatch(ctx context.Context, shipments []model.Shipment) error {
	if len(shipments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(shipments, 100).Error
}

// Update writes the editable fields of a shipment. Status is left alone; it
// only changes through UpdateStatus.
func (r *shipmentRepository) Update(ctx context.Context, shipment *model.Shipment) error {
	return r.db.WithContext(ctx).Model(shipment).
		Select("code", "origin", "destination", "weight_kg", "eta", "updated_at").
		Updates(shipment).Error
}

// FindByID finds a shipment by ID.
func (r *shipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Shipment, error) {
	var shipment model.Shipment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// FindByIDForUpdate finds a shipment by ID with a row-level lock.
func (r *shipmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Shipment, error) {
	var shipment model.Shipment
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// UpdateStatus sets the status column of a shipment.
func (r *shipmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ShipmentStatus) error {
	return r.db.WithContext(ctx).Model(&model.Shipment{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// List returns one page of shipments, newest first, with the unpaged total.
func (r *shipmentRepository) List(ctx context.Context, filter ShipmentFilter, page model.PageRequest) ([]model.Shipment, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Shipment{})
	if filter.ClientID != nil {
		q = q.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := likePattern(filter.Search)
		q = q.Where("LOWER(code) LIKE ? OR LOWER(origin) LIKE ? OR LOWER(destination) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page = page.Normalize()
	shipments := make([]model.Shipment, 0, page.PageSize)
	if err := q.Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&shipments).Error; err != nil {
		return nil, 0, err
	}
	return shipments, total, nil
}

// WithTransaction executes fn with shipment and history repositories bound
// to one database transaction.
func (r *shipmentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, shipments ShipmentRepository, history HistoryRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &shipmentRepository{db: tx}, &historyRepository{db: tx})
	})
}
