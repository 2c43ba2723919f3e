package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"edubase/schoolhub/internal/model"
	"edubase/schoolhub/internal/repository"
	"edubase/schoolhub/pkg/crypto"
)

type RegisterSchoolInput struct {
	Name           string
	Email          string
	Password       string
	Address        string
	Phone          string
	AdminFirstName string
	AdminLastName  string
	AdminEmail     string
	AdminPassword  string
}

type SchoolRegistrationResult struct {
	School *model.School `json:"school"`
	Admin  *model.User   `json:"admin"`
}

type SchoolService interface {
	// RegisterSchool creates the tenant and its first admin account. The
	// school starts unverified; a system admin verifies it before any
	// invitation or login is accepted.
	RegisterSchool(ctx context.Context, in RegisterSchoolInput) (*SchoolRegistrationResult, error)
	VerifySchool(ctx context.Context, schoolID string) (*model.School, error)
	SetSchoolActive(ctx context.Context, schoolID string, active bool) (*model.School, error)
	GetSchool(ctx context.Context, schoolID string) (*model.School, error)
	ListSchools(ctx context.Context) ([]model.School, error)
	// ListMembers returns the school's user accounts, newest first,
	// optionally filtered by role.
	ListMembers(ctx context.Context, schoolID string, role model.Role) ([]model.User, error)
}

type schoolService struct {
	schoolRepo repository.SchoolRepository
	userRepo   repository.UserRepository
	logger     *zap.Logger
}

func NewSchoolService(schoolRepo repository.SchoolRepository, userRepo repository.UserRepository, logger *zap.Logger) SchoolService {
	return &schoolService{schoolRepo: schoolRepo, userRepo: userRepo, logger: logger}
}

func (s *schoolService) RegisterSchool(ctx context.Context, in RegisterSchoolInput) (*SchoolRegistrationResult, error) {
	if len(in.Password) < 8 || len(in.AdminPassword) < 8 {
		return nil, NewValidationError("Passwords must be at least 8 characters long")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.schoolRepo.GetByEmail(ctx, email); err == nil {
		return nil, NewConflictError("A school with this email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check school email: %w", err)
	}

	schoolID, err := s.generateSchoolID(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	schoolHash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash school password: %w", err)
	}
	school := &model.School{
		SchoolID:   schoolID,
		Name:       in.Name,
		Email:      email,
		Password:   schoolHash,
		Address:    in.Address,
		Phone:      in.Phone,
		IsVerified: false,
		IsActive:   true,
	}
	// The unique index on lower(email) backstops the pre-check race.
	if err := s.schoolRepo.Create(ctx, school); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewConflictError("A school with this email is already registered")
		}
		return nil, fmt.Errorf("create school: %w", err)
	}

	adminHash, err := crypto.HashPassword(in.AdminPassword)
	if err != nil {
		s.compensateSchool(ctx, school)
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	admin := &model.User{
		SchoolID:   schoolID,
		Email:      strings.ToLower(strings.TrimSpace(in.AdminEmail)),
		Password:   adminHash,
		FirstName:  in.AdminFirstName,
		LastName:   in.AdminLastName,
		Role:       model.RoleAdmin,
		IsVerified: true,
		IsActive:   true,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		s.compensateSchool(ctx, school)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewConflictError("A user with this email already exists for this school")
		}
		return nil, fmt.Errorf("create admin user: %w", err)
	}

	s.logger.Info("school registered", zap.String("schoolId", schoolID), zap.String("name", in.Name))
	return &SchoolRegistrationResult{School: school, Admin: admin}, nil
}

func (s *schoolService) VerifySchool(ctx context.Context, schoolID string) (*model.School, error) {
	school, err := s.getSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if school.IsVerified {
		return school, nil
	}
	school.IsVerified = true
	if err := s.schoolRepo.Update(ctx, school); err != nil {
		return nil, fmt.Errorf("update school: %w", err)
	}
	s.logger.Info("school verified", zap.String("schoolId", schoolID))
	return school, nil
}

func (s *schoolService) SetSchoolActive(ctx context.Context, schoolID string, active bool) (*model.School, error) {
	school, err := s.getSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	school.IsActive = active
	if err := s.schoolRepo.Update(ctx, school); err != nil {
		return nil, fmt.Errorf("update school: %w", err)
	}
	return school, nil
}

func (s *schoolService) GetSchool(ctx context.Context, schoolID string) (*model.School, error) {
	return s.getSchool(ctx, schoolID)
}

func (s *schoolService) ListSchools(ctx context.Context) ([]model.School, error) {
	return s.schoolRepo.List(ctx)
}

func (s *schoolService) ListMembers(ctx context.Context, schoolID string, role model.Role) ([]model.User, error) {
	if _, err := s.getSchool(ctx, schoolID); err != nil {
		return nil, err
	}
	return s.userRepo.ListBySchool(ctx, schoolID, role)
}

func (s *schoolService) getSchool(ctx context.Context, schoolID string) (*model.School, error) {
	school, err := s.schoolRepo.GetBySchoolID(ctx, schoolID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("School not found")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve school: %w", err)
	}
	return school, nil
}

func (s *schoolService) compensateSchool(ctx context.Context, school *model.School) {
	if err := s.schoolRepo.Delete(ctx, school.ID); err != nil {
		s.logger.Error("failed to remove school after partial registration",
			zap.String("schoolId", school.SchoolID), zap.Error(err))
	}
}

// generateSchoolID derives the public identifier from the school name: its
// first three letters, then four random digits, retried on collision.
func (s *schoolService) generateSchoolID(ctx context.Context, name string) (string, error) {
	prefix := make([]rune, 0, 3)
	for _, r := range strings.ToUpper(name) {
		if unicode.IsLetter(r) && r >= 'A' && r <= 'Z' {
			prefix = append(prefix, r)
			if len(prefix) == 3 {
				break
			}
		}
	}
	for len(prefix) < 3 {
		prefix = append(prefix, 'X')
	}

	for attempt := 0; attempt < 10; attempt++ {
		digits, err := crypto.GenerateRandomDigits(4)
		if err != nil {
			return "", fmt.Errorf("generate school id: %w", err)
		}
		candidate := string(prefix) + digits
		exists, err := s.schoolRepo.ExistsBySchoolID(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check school id: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique school id after 10 attempts")
}
