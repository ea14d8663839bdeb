package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"midas/reimbursehub/internal/model"
	"midas/reimbursehub/internal/repository"
)

// GroupView is a group as seen by one of its members. MemberCount is counted
// from membership rows on every read rather than taken from the cached column.
type GroupView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Company     string    `json:"company"`
	AdminEmail  string    `json:"admin_email"`
	IsPrivate   bool      `json:"is_private"`
	MemberCount int64     `json:"member_count"`
	LastActive  time.Time `json:"last_active"`
	JoinedAt    time.Time `json:"joined_at"`
	IsActive    bool      `json:"is_active"`
}

type MembershipService interface {
	JoinGroup(ctx context.Context, caller Identity, code string) (*GroupView, error)
	SwitchActiveGroup(ctx context.Context, caller Identity, groupID uuid.UUID) error
	ListGroups(ctx context.Context, caller Identity) ([]GroupView, error)
	GetGroup(ctx context.Context, caller Identity, groupID uuid.UUID) (*GroupView, error)
}

type membershipService struct {
	store    repository.Store
	ledger   InviteService
	registry GroupService
	now      func() time.Time
	logger   *zap.Logger
}

func NewMembershipService(store repository.Store, ledger InviteService, registry GroupService, logger *zap.Logger) MembershipService {
	return &membershipService{
		store:    store,
		ledger:   ledger,
		registry: registry,
		now:      time.Now,
		logger:   logger.Named("membership"),
	}
}

// JoinGroup redeems code and adds the caller to the group it resolves to. The
// redemption, membership row, member count and default active group commit
// together; if the caller already belongs to the group nothing is written and
// the code stays unused.
func (s *membershipService) JoinGroup(ctx context.Context, caller Identity, code string) (*GroupView, error) {
	var view *GroupView
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		group, err := s.ledger.Redeem(ctx, tx, code, caller.UserID)
		if err != nil {
			return err
		}

		member, err := tx.Memberships().Exists(ctx, caller.UserID, group.ID)
		if err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if member {
			return ErrAlreadyMember
		}

		joined := &model.Membership{UserID: caller.UserID, GroupID: group.ID, JoinedAt: s.now()}
		if err := tx.Memberships().Create(ctx, joined); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyMember
			}
			return fmt.Errorf("create membership: %w", err)
		}
		if err := s.registry.IncrementMembership(ctx, tx, group.ID); err != nil {
			return err
		}
		activated, err := tx.Users().SetActiveGroupIfUnset(ctx, caller.UserID, group.ID)
		if err != nil {
			return fmt.Errorf("set active group: %w", err)
		}

		if group, err = tx.Groups().GetByID(ctx, group.ID); err != nil {
			return fmt.Errorf("reload group: %w", err)
		}
		count, err := tx.Memberships().CountByGroup(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("count members: %w", err)
		}
		view = newGroupView(group, joined, count, activated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user joined group",
		zap.String("user_id", caller.UserID.String()),
		zap.String("group_id", view.ID.String()),
		zap.Bool("active", view.IsActive),
	)
	return view, nil
}

func (s *membershipService) SwitchActiveGroup(ctx context.Context, caller Identity, groupID uuid.UUID) error {
	return s.store.WithTx(ctx, func(tx repository.Store) error {
		member, err := tx.Memberships().Exists(ctx, caller.UserID, groupID)
		if err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if !member {
			return ErrNotAMember
		}
		if err := tx.Users().SetActiveGroup(ctx, caller.UserID, groupID); err != nil {
			return userLookupError(err)
		}
		return nil
	})
}

func (s *membershipService) ListGroups(ctx context.Context, caller Identity) ([]GroupView, error) {
	user, err := s.store.Users().GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, userLookupError(err)
	}
	memberships, err := s.store.Memberships().ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	if len(memberships) == 0 {
		return []GroupView{}, nil
	}

	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.GroupID)
	}
	groups, err := s.store.Groups().ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Group, len(groups))
	for i := range groups {
		byID[groups[i].ID] = &groups[i]
	}

	views := make([]GroupView, 0, len(memberships))
	for i, m := range memberships {
		g, ok := byID[m.GroupID]
		if !ok {
			continue
		}
		count, err := s.store.Memberships().CountByGroup(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("count members: %w", err)
		}
		active := user.ActiveGroupID != nil && *user.ActiveGroupID == g.ID
		views = append(views, *newGroupView(g, &memberships[i], count, active))
	}
	return views, nil
}

func (s *membershipService) GetGroup(ctx context.Context, caller Identity, groupID uuid.UUID) (*GroupView, error) {
	views, err := s.ListGroups(ctx, caller)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].ID == groupID {
			return &views[i], nil
		}
	}
	return nil, ErrNotAMember
}

func newGroupView(g *model.Group, m *model.Membership, count int64, active bool) *GroupView {
	return &GroupView{
		ID:          g.ID,
		Name:        g.Name,
		Company:     g.Company,
		AdminEmail:  g.AdminEmail,
		IsPrivate:   g.IsPrivate,
		MemberCount: count,
		LastActive:  g.LastActive,
		JoinedAt:    m.JoinedAt,
		IsActive:    active,
	}
}
