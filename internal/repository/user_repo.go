package repository

import (
	"context"

	"github.com/google/uuid"

	"midas/reimbursehub/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// SetActiveGroup points the user at groupID unconditionally.
	SetActiveGroup(ctx context.Context, userID, groupID uuid.UUID) error
	// SetActiveGroupIfUnset points the user at groupID only when no active group is set.
	SetActiveGroupIfUnset(ctx context.Context, userID, groupID uuid.UUID) (bool, error)
	ListByGroupIDs(ctx context.Context, groupIDs []uuid.UUID) ([]model.User, error)
}
