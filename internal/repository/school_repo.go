package repository

import (
	"context"

	"github.com/google/uuid"

	"edubase/schoolhub/internal/model"
)

type SchoolRepository interface {
	Create(ctx context.Context, school *model.School) error
	GetBySchoolID(ctx context.Context, schoolID string) (*model.School, error)
	GetByEmail(ctx context.Context, email string) (*model.School, error)
	ExistsBySchoolID(ctx context.Context, schoolID string) (bool, error)
	Update(ctx context.Context, school *model.School) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]model.School, error)
}
