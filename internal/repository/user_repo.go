package repository

import (
	"context"

	"github.com/google/uuid"

	"edubase/schoolhub/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmailAndSchool(ctx context.Context, email, schoolID string) (*model.User, error)
	// GetTemporaryByEmailAndSchool resolves only accounts still holding a
	// temporary credential; completed registrations are not found.
	GetTemporaryByEmailAndSchool(ctx context.Context, email, schoolID string) (*model.User, error)
	// GetAdminForSchool returns an active admin user of the school.
	GetAdminForSchool(ctx context.Context, schoolID string) (*model.User, error)
	ListBySchool(ctx context.Context, schoolID string, role model.Role) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}
