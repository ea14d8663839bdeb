package repository

import (
	"context"

	"github.com/google/uuid"

	"midas/reimbursehub/internal/model"
)

type ReimbursementRepository interface {
	Create(ctx context.Context, req *model.ReimbursementRequest) error
	// ListByAdminEmail returns newest first; equal timestamps keep reverse insertion order.
	ListByAdminEmail(ctx context.Context, adminEmail string) ([]model.ReimbursementRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ReimbursementRequest, error)
	// ReferencedReceipts returns the subset of paths that some request points at.
	ReferencedReceipts(ctx context.Context, paths []string) ([]string, error)
}
