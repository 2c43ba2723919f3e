package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"edubase/schoolhub/internal/model"
)

type pgUserRepository struct {
	db *gorm.DB
}

func NewPGUserRepository(db *gorm.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *pgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *pgUserRepository) GetByEmailAndSchool(ctx context.Context, email, schoolID string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND lower(email) = lower(?)", schoolID, email).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *pgUserRepository) GetTemporaryByEmailAndSchool(ctx context.Context, email, schoolID string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND lower(email) = lower(?) AND is_temporary_password = ?", schoolID, email, true).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *pgUserRepository) GetAdminForSchool(ctx context.Context, schoolID string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND role = ? AND is_active = ?", schoolID, model.RoleAdmin, true).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *pgUserRepository) ListBySchool(ctx context.Context, schoolID string, role model.Role) ([]model.User, error) {
	q := r.db.WithContext(ctx).Where("school_id = ?", schoolID)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var users []model.User
	if err := q.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *pgUserRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *pgUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.User{}, "id = ?", id).Error
}
