package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore returns a Store backed by db. db should be opened with
// gorm.Config{TranslateError: true} so unique violations surface as ErrDuplicate.
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Users() UserRepository                   { return &pgUserRepository{db: s.db} }
func (s *pgStore) Groups() GroupRepository                 { return &pgGroupRepository{db: s.db} }
func (s *pgStore) Memberships() MembershipRepository       { return &pgMembershipRepository{db: s.db} }
func (s *pgStore) InviteCodes() InviteCodeRepository       { return &pgInviteCodeRepository{db: s.db} }
func (s *pgStore) Reimbursements() ReimbursementRepository { return &pgReimbursementRepository{db: s.db} }

func (s *pgStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
