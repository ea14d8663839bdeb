package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"midas/reimbursehub/internal/model"
	"midas/reimbursehub/internal/repository"
	"midas/reimbursehub/pkg/crypto"
	jwtpkg "midas/reimbursehub/pkg/jwt"
)

const (
	minPasswordLength = 10
	refreshKeyPrefix  = "refresh:"
)

// TokenSet represents a set of tokens returned after authentication.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RegisterRequest struct {
	Name     string
	Company  string
	Email    string
	Password string
	IsAdmin  bool
}

// Profile is the caller's own view of their account. AdminEmail is the admin of
// the active group, nil while the user has none.
type Profile struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Company       string     `json:"company"`
	Role          model.Role `json:"role"`
	ActiveGroupID *uuid.UUID `json:"active_group_id"`
	AdminEmail    *string    `json:"admin_email"`
}

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*model.User, error)
	Login(ctx context.Context, email, password string) (*TokenSet, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error)
	Logout(ctx context.Context, refreshToken string) error
	// Authenticate resolves a bearer access token to the caller's identity.
	Authenticate(ctx context.Context, accessToken string) (*Identity, error)
	Profile(ctx context.Context, userID uuid.UUID) (*Profile, error)
}

type authService struct {
	store      repository.Store
	stateStore repository.StateStore
	jwtManager *jwtpkg.Manager
	logger     *zap.Logger
}

func NewAuthService(
	store repository.Store,
	stateStore repository.StateStore,
	jwtManager *jwtpkg.Manager,
	logger *zap.Logger,
) AuthService {
	return &authService{
		store:      store,
		stateStore: stateStore,
		jwtManager: jwtManager,
		logger:     logger.Named("auth"),
	}
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Company = strings.TrimSpace(req.Company)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" || req.Company == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: name, company, email and password are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	if _, err := s.store.Users().GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := model.RoleMember
	if req.IsAdmin {
		role = model.RoleAdmin
	}
	user := &model.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Company:      req.Company,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*TokenSet, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !crypto.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(ctx, user.ID)
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	claims, err := s.jwtManager.Validate(refreshToken, jwtpkg.TokenTypeRefresh)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}

	// Take consumes the session so a refresh token rotates exactly once.
	owner, err := s.stateStore.Take(ctx, refreshKeyPrefix+claims.ID)
	if err != nil {
		return nil, fmt.Errorf("load refresh session: %w", err)
	}
	if owner == nil || string(owner) != claims.Subject {
		return nil, ErrRefreshTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return s.issueTokens(ctx, userID)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwtManager.Validate(refreshToken, jwtpkg.TokenTypeRefresh)
	if err != nil {
		return ErrRefreshTokenInvalid
	}
	return s.stateStore.Delete(ctx, refreshKeyPrefix+claims.ID)
}

func (s *authService) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := s.jwtManager.Validate(accessToken, jwtpkg.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, jwtpkg.ErrInvalidToken
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return identityOf(user), nil
}

func (s *authService) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	p := &Profile{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Company:       user.Company,
		Role:          user.Role,
		ActiveGroupID: user.ActiveGroupID,
	}
	if user.ActiveGroupID != nil {
		group, err := s.store.Groups().GetByID(ctx, *user.ActiveGroupID)
		if err != nil {
			return nil, fmt.Errorf("load active group: %w", err)
		}
		p.AdminEmail = &group.AdminEmail
	}
	return p, nil
}

func (s *authService) issueTokens(ctx context.Context, userID uuid.UUID) (*TokenSet, error) {
	access, err := s.jwtManager.GenerateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, claims, err := s.jwtManager.GenerateRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := s.stateStore.Set(ctx, refreshKeyPrefix+claims.ID, []byte(userID.String()), s.jwtManager.RefreshTokenTTL()); err != nil {
		return nil, fmt.Errorf("store refresh session: %w", err)
	}
	return &TokenSet{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtManager.AccessTokenTTL().Seconds()),
	}, nil
}

var _ AuthService = (*authService)(nil)
