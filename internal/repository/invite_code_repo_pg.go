package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"midas/reimbursehub/internal/model"
)

type pgInviteCodeRepository struct {
	db *gorm.DB
}

func NewPGInviteCodeRepository(db *gorm.DB) InviteCodeRepository {
	return &pgInviteCodeRepository{db: db}
}

func (r *pgInviteCodeRepository) Create(ctx context.Context, code *model.InviteCode) error {
	return translateError(r.db.WithContext(ctx).Create(code).Error)
}

func (r *pgInviteCodeRepository) GetByCode(ctx context.Context, code string) (*model.InviteCode, error) {
	var inviteCode model.InviteCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&inviteCode).Error; err != nil {
		return nil, translateError(err)
	}
	return &inviteCode, nil
}

func (r *pgInviteCodeRepository) Exists(ctx context.Context, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.InviteCode{}).
		Where("code = ?", code).
		Count(&n).Error
	if err != nil {
		return false, translateError(err)
	}
	return n > 0, nil
}

func (r *pgInviteCodeRepository) Consume(ctx context.Context, code string, userID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.InviteCode{}).
		Where("code = ? AND used = ? AND expires_at >= ?", code, false, at).
		UpdateColumns(map[string]interface{}{
			"used":    true,
			"used_by": userID,
			"used_at": at,
		})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *pgInviteCodeRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.InviteCode, error) {
	var codes []model.InviteCode
	err := r.db.WithContext(ctx).
		Where("created_by = ?", creatorID).
		Order("created_at DESC").
		Find(&codes).Error
	if err != nil {
		return nil, translateError(err)
	}
	return codes, nil
}
