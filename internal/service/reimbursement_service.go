package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"midas/reimbursehub/internal/classifier"
	"midas/reimbursehub/internal/config"
	"midas/reimbursehub/internal/model"
	"midas/reimbursehub/internal/repository"
	"midas/reimbursehub/internal/storage"
	"midas/reimbursehub/pkg/idx"
)

type SubmitRequest struct {
	Details string
	Receipt *Attachment
}

type ReimbursementService interface {
	Submit(ctx context.Context, caller Identity, req SubmitRequest) (*model.ReimbursementRequest, error)
	ListForAdmin(ctx context.Context, adminEmail string) ([]model.ReimbursementRequest, error)
	ListForUser(ctx context.Context, caller Identity) ([]model.ReimbursementRequest, error)
}

type reimbursementService struct {
	store      repository.Store
	files      storage.Storage
	classifier classifier.Client
	policy     attachmentPolicy
	ids        *idx.Generator
	now        func() time.Time
	logger     *zap.Logger
}

func NewReimbursementService(
	store repository.Store,
	files storage.Storage,
	cl classifier.Client,
	cfg config.UploadConfig,
	logger *zap.Logger,
) ReimbursementService {
	return &reimbursementService{
		store:      store,
		files:      files,
		classifier: cl,
		policy:     newAttachmentPolicy(cfg),
		ids:        idx.NewGenerator(),
		now:        time.Now,
		logger:     logger.Named("reimbursements"),
	}
}

// Submit stores the receipt, asks the classifier for a decision and records it.
// The stored receipt is deleted on every path that does not end with a record
// referencing it. Submit runs to completion even if ctx is cancelled, so a
// disconnecting client never leaves a half-finished submission behind.
func (s *reimbursementService) Submit(ctx context.Context, caller Identity, req SubmitRequest) (*model.ReimbursementRequest, error) {
	ctx = context.WithoutCancel(ctx)

	if !caller.IsMember() {
		return nil, ErrUnauthorized
	}
	user, err := s.store.Users().GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, userLookupError(err)
	}
	if user.ActiveGroupID == nil {
		return nil, ErrNoActiveGroup
	}
	details := strings.TrimSpace(req.Details)
	if details == "" {
		return nil, fmt.Errorf("%w: reimbursement details are required", ErrInvalidInput)
	}
	group, err := s.store.Groups().GetByID(ctx, *user.ActiveGroupID)
	if err != nil {
		return nil, fmt.Errorf("load active group: %w", err)
	}

	content, mt, err := s.policy.inspect(req.Receipt)
	if err != nil {
		return nil, err
	}

	key := path.Join(user.ID.String(), uuid.NewString()+mt.Extension())
	held, err := storage.Hold(ctx, s.files, key, content)
	if err != nil {
		var discard *storage.CleanupError
		if errors.As(err, &discard) {
			s.logger.Error("failed to discard partial receipt", zap.String("key", discard.Key), zap.Error(discard.Err))
		}
		if errors.Is(err, errAttachmentTooLarge) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAttachment, errAttachmentTooLarge)
		}
		return nil, fmt.Errorf("store receipt: %w", err)
	}
	defer func() {
		if err := held.Release(ctx); err != nil {
			s.logger.Error("failed to discard receipt", zap.String("key", held.Key()), zap.Error(err))
		}
	}()

	decision, err := s.classify(ctx, user, group, details, req.Receipt.FileName, held)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &model.ReimbursementRequest{
		ID:          s.ids.NewAt(now),
		UserID:      user.ID,
		UserEmail:   user.Email,
		AdminEmail:  group.AdminEmail,
		GroupID:     group.ID,
		Details:     details,
		ReceiptPath: held.Key(),
		Status:      decision.Status,
		Feedback:    decision.Feedback,
		CreatedAt:   now,
	}
	if err := s.store.Reimbursements().Create(ctx, record); err != nil {
		return nil, fmt.Errorf("record reimbursement: %w", err)
	}
	held.Commit()

	s.logger.Info("reimbursement decided",
		zap.String("id", record.ID),
		zap.String("user_id", user.ID.String()),
		zap.String("group_id", group.ID.String()),
		zap.String("status", string(record.Status)),
		zap.Int64("receipt_bytes", held.Size()),
	)
	return record, nil
}

func (s *reimbursementService) classify(ctx context.Context, user *model.User, group *model.Group, details, fileName string, held *storage.Held) (*classifier.Decision, error) {
	f, err := held.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stored receipt: %w", err)
	}
	defer f.Close()

	if fileName == "" {
		fileName = path.Base(held.Key())
	}
	decision, err := s.classifier.Classify(ctx, classifier.Submission{
		Role:       user.Role,
		Name:       user.Name,
		Email:      user.Email,
		AdminEmail: group.AdminEmail,
		Details:    details,
		FileName:   fileName,
		File:       f,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
	}
	return decision, nil
}

func (s *reimbursementService) ListForAdmin(ctx context.Context, adminEmail string) ([]model.ReimbursementRequest, error) {
	reqs, err := s.store.Reimbursements().ListByAdminEmail(ctx, adminEmail)
	if err != nil {
		return nil, fmt.Errorf("list reimbursements: %w", err)
	}
	return reqs, nil
}

func (s *reimbursementService) ListForUser(ctx context.Context, caller Identity) ([]model.ReimbursementRequest, error) {
	reqs, err := s.store.Reimbursements().ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list reimbursements: %w", err)
	}
	return reqs, nil
}
