package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"edubase/schoolhub/internal/model"
	"edubase/schoolhub/internal/repository"
)

type StudentInput struct {
	FirstName   string
	LastName    string
	Grade       string
	DateOfBirth *time.Time
}

type StudentService interface {
	CreateStudent(ctx context.Context, schoolID string, in StudentInput) (*model.Student, error)
	GetStudent(ctx context.Context, schoolID string, id uuid.UUID) (*model.Student, error)
	ListStudents(ctx context.Context, schoolID string) ([]model.Student, error)
	// ListStudentsForParent returns only the students linked to the calling
	// parent account.
	ListStudentsForParent(ctx context.Context, schoolID, parentID string) ([]model.Student, error)
	SetStudentActive(ctx context.Context, schoolID string, id uuid.UUID, active bool) (*model.Student, error)
}

type studentService struct {
	schoolRepo  repository.SchoolRepository
	studentRepo repository.StudentRepository
}

func NewStudentService(schoolRepo repository.SchoolRepository, studentRepo repository.StudentRepository) StudentService {
	return &studentService{schoolRepo: schoolRepo, studentRepo: studentRepo}
}

func (s *studentService) CreateStudent(ctx context.Context, schoolID string, in StudentInput) (*model.Student, error) {
	school, err := s.schoolRepo.GetBySchoolID(ctx, schoolID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("School not found")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve school: %w", err)
	}
	if !school.IsOperational() {
		return nil, NewNotFoundError("School not found")
	}

	student := &model.Student{
		SchoolID:    schoolID,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Grade:       in.Grade,
		DateOfBirth: in.DateOfBirth,
		IsActive:    true,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	return student, nil
}

func (s *studentService) GetStudent(ctx context.Context, schoolID string, id uuid.UUID) (*model.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("Student not found")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve student: %w", err)
	}
	if student.SchoolID != schoolID {
		return nil, NewNotFoundError("Student not found")
	}
	return student, nil
}

func (s *studentService) ListStudents(ctx context.Context, schoolID string) ([]model.Student, error) {
	return s.studentRepo.ListBySchool(ctx, schoolID)
}

func (s *studentService) ListStudentsForParent(ctx context.Context, schoolID, parentID string) ([]model.Student, error) {
	return s.studentRepo.ListByParent(ctx, schoolID, parentID)
}

func (s *studentService) SetStudentActive(ctx context.Context, schoolID string, id uuid.UUID, active bool) (*model.Student, error) {
	student, err := s.GetStudent(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	student.IsActive = active
	if err := s.studentRepo.Update(ctx, student); err != nil {
		return nil, fmt.Errorf("update student: %w", err)
	}
	return student, nil
}
