package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"midas/reimbursehub/internal/config"
	"midas/reimbursehub/internal/model"
	"midas/reimbursehub/internal/repository"
)

type CreateGroupRequest struct {
	Name       string
	Company    string
	InviteCode string
	IsPrivate  bool
}

// MemberView is a user as seen by the admin of one or more of their groups.
// Groups only lists the groups that admin owns.
type MemberView struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Company       string      `json:"company"`
	Groups        []uuid.UUID `json:"groups"`
	ActiveGroupID *uuid.UUID  `json:"active_group_id"`
	CreatedAt     time.Time   `json:"created_at"`
}

type GroupService interface {
	CreateGroup(ctx context.Context, admin Identity, req CreateGroupRequest) (*model.Group, error)
	// IncrementMembership accounts for a membership inserted within tx; it is never
	// applied on its own.
	IncrementMembership(ctx context.Context, tx repository.Store, groupID uuid.UUID) error
	ListGroupsForAdmin(ctx context.Context, adminEmail string) ([]model.Group, error)
	ListMembersForAdmin(ctx context.Context, adminEmail string) ([]MemberView, error)
}

type groupService struct {
	store  repository.Store
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewGroupService(store repository.Store, cfg config.InviteConfig, logger *zap.Logger) GroupService {
	return &groupService{
		store:  store,
		ttl:    cfg.TTL,
		now:    time.Now,
		logger: logger.Named("groups"),
	}
}

// CreateGroup registers a group under a caller-chosen canonical invite code. The
// code is entered into the ledger as well so it can be redeemed like any other.
func (s *groupService) CreateGroup(ctx context.Context, admin Identity, req CreateGroupRequest) (*model.Group, error) {
	if !admin.IsAdmin() {
		return nil, ErrUnauthorized
	}
	req.InviteCode = normalizeCode(req.InviteCode)
	if req.InviteCode == "" {
		return nil, fmt.Errorf("%w: invite code is required", ErrInvalidInput)
	}

	var group *model.Group
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		owner, err := tx.Users().GetByID(ctx, admin.UserID)
		if err != nil {
			return userLookupError(err)
		}
		group, _, err = createGroupTx(ctx, tx, owner, req, s.now(), s.ttl)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("group created",
		zap.String("group_id", group.ID.String()),
		zap.String("admin_id", admin.UserID.String()),
	)
	return group, nil
}

func (s *groupService) IncrementMembership(ctx context.Context, tx repository.Store, groupID uuid.UUID) error {
	if err := tx.Groups().IncrementMemberCount(ctx, groupID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("increment member count: %w", err)
	}
	return nil
}

func (s *groupService) ListGroupsForAdmin(ctx context.Context, adminEmail string) ([]model.Group, error) {
	groups, err := s.store.Groups().ListByAdminEmail(ctx, adminEmail)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func (s *groupService) ListMembersForAdmin(ctx context.Context, adminEmail string) ([]MemberView, error) {
	groups, err := s.store.Groups().ListByAdminEmail(ctx, adminEmail)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	if len(groups) == 0 {
		return []MemberView{}, nil
	}

	owned := make(map[uuid.UUID]struct{}, len(groups))
	ids := make([]uuid.UUID, 0, len(groups))
	for _, g := range groups {
		owned[g.ID] = struct{}{}
		ids = append(ids, g.ID)
	}

	users, err := s.store.Users().ListByGroupIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	views := make([]MemberView, 0, len(users))
	for _, u := range users {
		memberships, err := s.store.Memberships().ListByUser(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("list memberships: %w", err)
		}
		var shared []uuid.UUID
		for _, m := range memberships {
			if _, ok := owned[m.GroupID]; ok {
				shared = append(shared, m.GroupID)
			}
		}
		views = append(views, MemberView{
			ID:            u.ID,
			Name:          u.Name,
			Email:         u.Email,
			Company:       u.Company,
			Groups:        shared,
			ActiveGroupID: u.ActiveGroupID,
			CreatedAt:     u.CreatedAt,
		})
	}
	return views, nil
}

// createGroupTx inserts the group, its canonical ledger entry and the owner's
// membership. The owner counts as the first member, and the group becomes the
// owner's active group unless one is already set.
func createGroupTx(ctx context.Context, tx repository.Store, owner *model.User, req CreateGroupRequest, now time.Time, ttl time.Duration) (*model.Group, *model.InviteCode, error) {
	if _, err := tx.Groups().GetByInviteCode(ctx, req.InviteCode); err == nil {
		return nil, nil, ErrDuplicateInviteCode
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("lookup group by code: %w", err)
	}
	taken, err := tx.InviteCodes().Exists(ctx, req.InviteCode)
	if err != nil {
		return nil, nil, fmt.Errorf("check invite code: %w", err)
	}
	if taken {
		return nil, nil, ErrDuplicateInviteCode
	}

	name := strings.TrimSpace(req.Name)
	company := strings.TrimSpace(req.Company)
	if company == "" {
		company = owner.Company
	}
	if name == "" {
		name = company
	}

	group := &model.Group{
		ID:          uuid.New(),
		Name:        name,
		Company:     company,
		AdminID:     owner.ID,
		AdminEmail:  owner.Email,
		InviteCode:  req.InviteCode,
		IsPrivate:   req.IsPrivate,
		MemberCount: 1,
		LastActive:  now,
	}
	if err := tx.Groups().Create(ctx, group); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, ErrDuplicateInviteCode
		}
		return nil, nil, fmt.Errorf("create group: %w", err)
	}

	code, err := createCodeTx(ctx, tx, group.ID, owner.ID, req.InviteCode, now, ttl)
	if err != nil {
		if errors.Is(err, ErrCodeCollision) {
			return nil, nil, ErrDuplicateInviteCode
		}
		return nil, nil, err
	}

	if err := tx.Memberships().Create(ctx, &model.Membership{
		UserID:   owner.ID,
		GroupID:  group.ID,
		JoinedAt: now,
	}); err != nil {
		return nil, nil, fmt.Errorf("add owner membership: %w", err)
	}
	if _, err := tx.Users().SetActiveGroupIfUnset(ctx, owner.ID, group.ID); err != nil {
		return nil, nil, fmt.Errorf("set owner active group: %w", err)
	}
	return group, code, nil
}

func userLookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("load user: %w", err)
}
