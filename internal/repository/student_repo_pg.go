package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"edubase/schoolhub/internal/model"
)

type pgStudentRepository struct {
	db *gorm.DB
}

func NewPGStudentRepository(db *gorm.DB) StudentRepository {
	return &pgStudentRepository{db: db}
}

func (r *pgStudentRepository) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *pgStudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	var student model.Student
	if err := r.db.WithContext(ctx).First(&student, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *pgStudentRepository) GetActiveByIDs(ctx context.Context, schoolID string, ids []uuid.UUID) ([]model.Student, error) {
	var students []model.Student
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND id IN ? AND is_active = ?", schoolID, ids, true).
		Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *pgStudentRepository) ListBySchool(ctx context.Context, schoolID string) ([]model.Student, error) {
	var students []model.Student
	if err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("last_name, first_name").
		Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *pgStudentRepository) ListByParent(ctx context.Context, schoolID, parentID string) ([]model.Student, error) {
	var students []model.Student
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND parent_ids @> ?", schoolID, fmt.Sprintf(`[%q]`, parentID)).
		Order("last_name, first_name").
		Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *pgStudentRepository) Update(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

func (r *pgStudentRepository) AddParent(ctx context.Context, studentID uuid.UUID, parentID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var student model.Student
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&student, "id = ?", studentID).Error; err != nil {
			return err
		}
		if !student.AddParent(parentID) {
			return nil
		}
		return tx.Model(&student).Update("parent_ids", student.ParentIDs).Error
	})
}

func (r *pgStudentRepository) RemoveParent(ctx context.Context, studentID uuid.UUID, parentID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var student model.Student
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&student, "id = ?", studentID).Error; err != nil {
			return err
		}
		if !student.RemoveParent(parentID) {
			return nil
		}
		return tx.Model(&student).Update("parent_ids", student.ParentIDs).Error
	})
}
