package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"midas/reimbursehub/internal/model"
)

type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Group, error)
	GetByInviteCode(ctx context.Context, code string) (*model.Group, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Group, error)
	ListByAdminEmail(ctx context.Context, adminEmail string) ([]model.Group, error)
	IncrementMemberCount(ctx context.Context, id uuid.UUID, at time.Time) error
}
