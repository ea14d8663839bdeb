package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"midas/reimbursehub/internal/config"
	"midas/reimbursehub/internal/model"
	"midas/reimbursehub/internal/repository"
	"midas/reimbursehub/pkg/crypto"
)

// IssueCodeRequest without a GroupID creates a new group owned by the caller.
// With one, it mints another single-use code for a group the caller administers.
type IssueCodeRequest struct {
	GroupID      *uuid.UUID
	Name         string
	Company      string
	IsPrivate    bool
	InviteeEmail string
}

type InviteService interface {
	IssueCode(ctx context.Context, admin Identity, req IssueCodeRequest) (*model.InviteCode, error)
	RedeemCode(ctx context.Context, code string, userID uuid.UUID) (*model.Group, error)
	// Redeem consumes code within tx and resolves the group it admits to.
	Redeem(ctx context.Context, tx repository.Store, code string, userID uuid.UUID) (*model.Group, error)
	ListCodes(ctx context.Context, admin Identity) ([]model.InviteCode, error)
}

type inviteService struct {
	store       repository.Store
	mailer      MailSender
	ttl         time.Duration
	maxAttempts int
	generate    func() (string, error)
	now         func() time.Time
	logger      *zap.Logger
}

// NewInviteService builds the code ledger. mailer may be nil, in which case
// codes are only returned to the issuing admin.
func NewInviteService(store repository.Store, mailer MailSender, cfg config.InviteConfig, logger *zap.Logger) InviteService {
	length := cfg.CodeLength
	return &inviteService{
		store:       store,
		mailer:      mailer,
		ttl:         cfg.TTL,
		maxAttempts: max(cfg.MaxAttempts, 1),
		generate:    func() (string, error) { return crypto.GenerateInviteCode(length) },
		now:         time.Now,
		logger:      logger.Named("invites"),
	}
}

func (s *inviteService) IssueCode(ctx context.Context, admin Identity, req IssueCodeRequest) (*model.InviteCode, error) {
	if !admin.IsAdmin() {
		return nil, ErrUnauthorized
	}
	req.InviteeEmail = strings.TrimSpace(req.InviteeEmail)
	if req.InviteeEmail != "" {
		if _, err := mail.ParseAddress(req.InviteeEmail); err != nil {
			return nil, fmt.Errorf("%w: malformed invitee email", ErrInvalidInput)
		}
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}

		issued, group, err := s.issueOnce(ctx, admin, req, code)
		if errors.Is(err, ErrCodeCollision) {
			s.logger.Debug("invite code collision, regenerating", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("invite code issued",
			zap.String("group_id", group.ID.String()),
			zap.String("admin_id", admin.UserID.String()),
			zap.Time("expires_at", issued.ExpiresAt),
		)
		if req.InviteeEmail != "" {
			s.deliver(ctx, req.InviteeEmail, issued, group)
		}
		return issued, nil
	}
	return nil, fmt.Errorf("issue invite code after %d attempts: %w", s.maxAttempts, ErrCodeCollision)
}

func (s *inviteService) issueOnce(ctx context.Context, admin Identity, req IssueCodeRequest, code string) (*model.InviteCode, *model.Group, error) {
	var (
		issued *model.InviteCode
		group  *model.Group
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		owner, err := tx.Users().GetByID(ctx, admin.UserID)
		if err != nil {
			return userLookupError(err)
		}
		now := s.now()

		if req.GroupID == nil {
			group, issued, err = createGroupTx(ctx, tx, owner, CreateGroupRequest{
				Name:       req.Name,
				Company:    req.Company,
				InviteCode: code,
				IsPrivate:  req.IsPrivate,
			}, now, s.ttl)
			if errors.Is(err, ErrDuplicateInviteCode) {
				return ErrCodeCollision
			}
			return err
		}

		group, err = tx.Groups().GetByID(ctx, *req.GroupID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load group: %w", err)
		}
		if group.AdminID != owner.ID {
			return ErrUnauthorized
		}
		issued, err = createCodeTx(ctx, tx, group.ID, owner.ID, code, now, s.ttl)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return issued, group, nil
}

func (s *inviteService) deliver(ctx context.Context, to string, code *model.InviteCode, group *model.Group) {
	if s.mailer == nil {
		s.logger.Warn("invitee email given but no mail provider configured", zap.String("group_id", group.ID.String()))
		return
	}
	subject := fmt.Sprintf("You're invited to join %s", group.Name)
	body := fmt.Sprintf(
		"You have been invited to join %s (%s).\r\n\r\nYour invite code is %s. It can be used once and expires on %s.\r\n",
		group.Name, group.Company, code.Code, code.ExpiresAt.UTC().Format(time.RFC1123),
	)
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		s.logger.Error("failed to deliver invite code", zap.String("group_id", group.ID.String()), zap.Error(err))
	}
}

func (s *inviteService) RedeemCode(ctx context.Context, code string, userID uuid.UUID) (*model.Group, error) {
	var group *model.Group
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		group, err = s.Redeem(ctx, tx, code, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Redeem marks the code used with one conditional update and only reads the
// row afterwards, to tell the caller which precondition failed.
func (s *inviteService) Redeem(ctx context.Context, tx repository.Store, code string, userID uuid.UUID) (*model.Group, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrNotFound
	}
	now := s.now()

	consumed, err := tx.InviteCodes().Consume(ctx, code, userID, now)
	if err != nil {
		return nil, fmt.Errorf("consume invite code: %w", err)
	}

	ic, err := tx.InviteCodes().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load invite code: %w", err)
	}
	if !consumed {
		if ic.Expired(now) {
			return nil, ErrExpired
		}
		return nil, ErrAlreadyUsed
	}

	group, err := tx.Groups().GetByID(ctx, ic.GroupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load group: %w", err)
	}
	return group, nil
}

func (s *inviteService) ListCodes(ctx context.Context, admin Identity) ([]model.InviteCode, error) {
	if !admin.IsAdmin() {
		return nil, ErrUnauthorized
	}
	codes, err := s.store.InviteCodes().ListByCreator(ctx, admin.UserID)
	if err != nil {
		return nil, fmt.Errorf("list invite codes: %w", err)
	}
	return codes, nil
}

func createCodeTx(ctx context.Context, tx repository.Store, groupID, creatorID uuid.UUID, code string, now time.Time, ttl time.Duration) (*model.InviteCode, error) {
	taken, err := tx.InviteCodes().Exists(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("check invite code: %w", err)
	}
	if taken {
		return nil, ErrCodeCollision
	}

	ic := &model.InviteCode{
		ID:        uuid.New(),
		Code:      code,
		GroupID:   groupID,
		CreatedBy: creatorID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := tx.InviteCodes().Create(ctx, ic); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCodeCollision
		}
		return nil, fmt.Errorf("create invite code: %w", err)
	}
	return ic, nil
}

// Codes are issued upper-case; redemption accepts any case.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
