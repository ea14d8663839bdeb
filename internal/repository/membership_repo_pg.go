package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"midas/reimbursehub/internal/model"
)

type pgMembershipRepository struct {
	db *gorm.DB
}

func NewPGMembershipRepository(db *gorm.DB) MembershipRepository {
	return &pgMembershipRepository{db: db}
}

func (r *pgMembershipRepository) Create(ctx context.Context, m *model.Membership) error {
	return translateError(r.db.WithContext(ctx).Create(m).Error)
}

func (r *pgMembershipRepository) Exists(ctx context.Context, userID, groupID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Count(&n).Error
	if err != nil {
		return false, translateError(err)
	}
	return n > 0, nil
}

func (r *pgMembershipRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Membership, error) {
	var ms []model.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("joined_at ASC").
		Find(&ms).Error
	if err != nil {
		return nil, translateError(err)
	}
	return ms, nil
}

func (r *pgMembershipRepository) CountByGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("group_id = ?", groupID).
		Count(&n).Error
	return n, translateError(err)
}

func (r *pgMembershipRepository) ListUserIDsByGroups(ctx context.Context, groupIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Distinct("user_id").
		Where("group_id IN ?", groupIDs).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, translateError(err)
	}
	return ids, nil
}
