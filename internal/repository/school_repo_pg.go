package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"edubase/schoolhub/internal/model"
)

type pgSchoolRepository struct {
	db *gorm.DB
}

func NewPGSchoolRepository(db *gorm.DB) SchoolRepository {
	return &pgSchoolRepository{db: db}
}

func (r *pgSchoolRepository) Create(ctx context.Context, school *model.School) error {
	return r.db.WithContext(ctx).Create(school).Error
}

func (r *pgSchoolRepository) GetBySchoolID(ctx context.Context, schoolID string) (*model.School, error) {
	var school model.School
	if err := r.db.WithContext(ctx).Where("school_id = ?", schoolID).First(&school).Error; err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *pgSchoolRepository) GetByEmail(ctx context.Context, email string) (*model.School, error) {
	var school model.School
	if err := r.db.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&school).Error; err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *pgSchoolRepository) ExistsBySchoolID(ctx context.Context, schoolID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.School{}).Where("school_id = ?", schoolID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *pgSchoolRepository) Update(ctx context.Context, school *model.School) error {
	return r.db.WithContext(ctx).Save(school).Error
}

func (r *pgSchoolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.School{}, "id = ?", id).Error
}

func (r *pgSchoolRepository) List(ctx context.Context) ([]model.School, error) {
	var schools []model.School
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&schools).Error; err != nil {
		return nil, err
	}
	return schools, nil
}
