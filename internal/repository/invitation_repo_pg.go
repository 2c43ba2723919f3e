package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"edubase/schoolhub/internal/model"
)

type pgInvitationRepository struct {
	db *gorm.DB
}

func NewPGInvitationRepository(db *gorm.DB) InvitationRepository {
	return &pgInvitationRepository{db: db}
}

func (r *pgInvitationRepository) Create(ctx context.Context, invitation *model.Invitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

func (r *pgInvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	var invitation model.Invitation
	if err := r.db.WithContext(ctx).First(&invitation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *pgInvitationRepository) GetByToken(ctx context.Context, token string) (*model.Invitation, error) {
	var invitation model.Invitation
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *pgInvitationRepository) GetActive(ctx context.Context, schoolID, email string, role model.Role) (*model.Invitation, error) {
	var invitation model.Invitation
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND lower(email) = lower(?) AND role = ? AND status = ? AND expires_at > ?",
			schoolID, email, role, model.InvitationPending, time.Now()).
		First(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *pgInvitationRepository) ListBySchool(ctx context.Context, schoolID string, status model.InvitationStatus) ([]model.Invitation, error) {
	q := r.db.WithContext(ctx).Where("school_id = ?", schoolID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var invitations []model.Invitation
	if err := q.Order("created_at DESC").Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *pgInvitationRepository) ListExpiredBySchool(ctx context.Context, schoolID string) ([]model.Invitation, error) {
	var invitations []model.Invitation
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND status = ? AND expires_at < ?", schoolID, model.InvitationPending, time.Now()).
		Order("expires_at").
		Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *pgInvitationRepository) Update(ctx context.Context, invitation *model.Invitation) error {
	return r.db.WithContext(ctx).Save(invitation).Error
}

func (r *pgInvitationRepository) ExpireStale(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Where("status = ? AND expires_at < ?", model.InvitationPending, time.Now()).
		Update("status", model.InvitationExpired)
	return res.RowsAffected, res.Error
}

func (r *pgInvitationRepository) CountByStatus(ctx context.Context, schoolID string) (map[model.InvitationStatus]int64, error) {
	var rows []struct {
		Status model.InvitationStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Select("status, count(*) as count").
		Where("school_id = ?", schoolID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[model.InvitationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
