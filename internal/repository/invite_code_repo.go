package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"midas/reimbursehub/internal/model"
)

type InviteCodeRepository interface {
	Create(ctx context.Context, code *model.InviteCode) error
	GetByCode(ctx context.Context, code string) (*model.InviteCode, error)
	// Exists checks every code ever issued, used or expired included.
	Exists(ctx context.Context, code string) (bool, error)
	// Consume marks an unused, unexpired code as used by userID in a single
	// conditional update. It reports false when no row matched.
	Consume(ctx context.Context, code string, userID uuid.UUID, at time.Time) (bool, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.InviteCode, error)
}
