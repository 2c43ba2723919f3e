package repository

import (
	"context"

	"github.com/google/uuid"

	"edubase/schoolhub/internal/model"
)

type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	// GetActiveByIDs returns the active students among ids that belong to
	// schoolID. Callers compare result length against len(ids) to detect
	// partial matches.
	GetActiveByIDs(ctx context.Context, schoolID string, ids []uuid.UUID) ([]model.Student, error)
	ListBySchool(ctx context.Context, schoolID string) ([]model.Student, error)
	// ListByParent returns the school's students linked to the parent.
	ListByParent(ctx context.Context, schoolID, parentID string) ([]model.Student, error)
	Update(ctx context.Context, student *model.Student) error
	// AddParent links parentID to the student with set semantics; a repeated
	// call is a no-op.
	AddParent(ctx context.Context, studentID uuid.UUID, parentID string) error
	RemoveParent(ctx context.Context, studentID uuid.UUID, parentID string) error
}
