package repository

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store groups the persistent repositories and runs units of work atomically.
// Implementations: PostgreSQL via GORM (production) or in-memory (local dev / tests).
//
// The Store passed to fn in WithTx is bound to the transaction; fn must use it
// instead of the outer Store for every read and write that belongs to the unit.
type Store interface {
	Users() UserRepository
	Groups() GroupRepository
	Memberships() MembershipRepository
	InviteCodes() InviteCodeRepository
	Reimbursements() ReimbursementRepository

	WithTx(ctx context.Context, fn func(tx Store) error) error
}
