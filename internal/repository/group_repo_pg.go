package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"midas/reimbursehub/internal/model"
)

type pgGroupRepository struct {
	db *gorm.DB
}

func NewPGGroupRepository(db *gorm.DB) GroupRepository {
	return &pgGroupRepository{db: db}
}

func (r *pgGroupRepository) Create(ctx context.Context, group *model.Group) error {
	return translateError(r.db.WithContext(ctx).Create(group).Error)
}

func (r *pgGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	var group model.Group
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &group, nil
}

func (r *pgGroupRepository) GetByInviteCode(ctx context.Context, code string) (*model.Group, error) {
	var group model.Group
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&group).Error; err != nil {
		return nil, translateError(err)
	}
	return &group, nil
}

func (r *pgGroupRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var groups []model.Group
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at ASC").Find(&groups).Error; err != nil {
		return nil, translateError(err)
	}
	return groups, nil
}

func (r *pgGroupRepository) ListByAdminEmail(ctx context.Context, adminEmail string) ([]model.Group, error) {
	var groups []model.Group
	err := r.db.WithContext(ctx).
		Where("admin_email = ?", adminEmail).
		Order("created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, translateError(err)
	}
	return groups, nil
}

func (r *pgGroupRepository) IncrementMemberCount(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Group{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"member_count": gorm.Expr("member_count + 1"),
			"last_active":  at,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
