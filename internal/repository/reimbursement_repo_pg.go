package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"midas/reimbursehub/internal/model"
)

type pgReimbursementRepository struct {
	db *gorm.DB
}

func NewPGReimbursementRepository(db *gorm.DB) ReimbursementRepository {
	return &pgReimbursementRepository{db: db}
}

func (r *pgReimbursementRepository) Create(ctx context.Context, req *model.ReimbursementRequest) error {
	return translateError(r.db.WithContext(ctx).Create(req).Error)
}

func (r *pgReimbursementRepository) ListByAdminEmail(ctx context.Context, adminEmail string) ([]model.ReimbursementRequest, error) {
	var reqs []model.ReimbursementRequest
	err := r.db.WithContext(ctx).
		Where("admin_email = ?", adminEmail).
		Order("created_at DESC, id DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, translateError(err)
	}
	return reqs, nil
}

func (r *pgReimbursementRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ReimbursementRequest, error) {
	var reqs []model.ReimbursementRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, translateError(err)
	}
	return reqs, nil
}

func (r *pgReimbursementRepository) ReferencedReceipts(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&model.ReimbursementRequest{}).
		Where("receipt_path IN ?", paths).
		Pluck("receipt_path", &found).Error
	if err != nil {
		return nil, translateError(err)
	}
	return found, nil
}
