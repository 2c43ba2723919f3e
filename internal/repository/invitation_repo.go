package repository

import (
	"context"

	"github.com/google/uuid"

	"edubase/schoolhub/internal/model"
)

type InvitationRepository interface {
	Create(ctx context.Context, invitation *model.Invitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Invitation, error)
	GetByToken(ctx context.Context, token string) (*model.Invitation, error)
	// GetActive returns the live (pending, unexpired) invitation for the
	// (school, email, role) tuple, if one exists.
	GetActive(ctx context.Context, schoolID, email string, role model.Role) (*model.Invitation, error)
	// ListBySchool returns the school's invitations, optionally filtered by
	// stored status ("" means all).
	ListBySchool(ctx context.Context, schoolID string, status model.InvitationStatus) ([]model.Invitation, error)
	// ListExpiredBySchool returns rows still stored as pending whose expiry
	// has passed.
	ListExpiredBySchool(ctx context.Context, schoolID string) ([]model.Invitation, error)
	Update(ctx context.Context, invitation *model.Invitation) error
	// ExpireStale flips every pending row past its expiry to expired and
	// returns how many it touched. Safe to run concurrently.
	ExpireStale(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, schoolID string) (map[model.InvitationStatus]int64, error)
}
