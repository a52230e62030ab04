package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shipdesk/internal/model"
)

// UserRepository persists console operators.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	GrantRole(ctx context.Context, id uuid.UUID, role string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("verified", true).Error
}

// GrantRole adds role to the user's roles unless already present.
func (r *userRepository) GrantRole(ctx context.Context, id uuid.UUID, role string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := forUpdate(tx).Where("id = ?", id).First(&user).Error; err != nil {
			return err
		}
		if user.HasRole(role) {
			return nil
		}
		roles := append(append([]string{}, user.Roles...), role)
		return tx.Model(&user).Select("Roles").Updates(model.User{Roles: roles}).Error
	})
}
