package repository

import (
	"context"

	"github.com/google/uuid"

	"midas/reimbursehub/internal/model"
)

type MembershipRepository interface {
	// Create fails with ErrDuplicate when the (user, group) pair already exists.
	Create(ctx context.Context, m *model.Membership) error
	Exists(ctx context.Context, userID, groupID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Membership, error)
	CountByGroup(ctx context.Context, groupID uuid.UUID) (int64, error)
	ListUserIDsByGroups(ctx context.Context, groupIDs []uuid.UUID) ([]uuid.UUID, error)
}
