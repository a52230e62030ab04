package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shipdesk/internal/model"
)

// ClientFilter narrows a client listing. A nil OwnerUserID lists every owner.
type ClientFilter struct {
	OwnerUserID *uuid.UUID
	Search      string
}

// ClientRepository defines client persistence operations.
type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	CreateBatch(ctx context.Context, clients []model.Client) error
	Update(ctx context.Context, client *model.Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	List(ctx context.Context, filter ClientFilter, page model.PageRequest) ([]model.Client, int64, error)
	ListIDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
}

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository.
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

// Create creates a new client.
func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

// CreateBatch inserts many clients in one round trip per 100 rows.
func (r *clientRepository) CreateBatch(ctx context.Context, clients []model.Client) error {
	if len(clients) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(clients, 100).Error
}

// Update replaces every column of an existing client.
func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

// Delete removes a client by ID.
func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Client{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID finds a client by ID.
func (r *clientRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// List returns one page of clients, newest first, with the unpaged total.
func (r *clientRepository) List(ctx context.Context, filter ClientFilter, page model.PageRequest) ([]model.Client, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Client{})
	if filter.OwnerUserID != nil {
		q = q.Where("owner_user_id = ?", *filter.OwnerUserID)
	}
	if filter.Search != "" {
		like := likePattern(filter.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page = page.Normalize()
	clients := make([]model.Client, 0, page.PageSize)
	if err := q.Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&clients).Error; err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

// ListIDsByOwner returns the IDs of every client owned by a user.
func (r *clientRepository) ListIDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&model.Client{}).
		Where("owner_user_id = ?", ownerID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
