package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"midas/reimbursehub/internal/model"
	"midas/reimbursehub/internal/repository"
	jwtpkg "midas/reimbursehub/pkg/jwt"
)

func newAuthFixture(t *testing.T) (*fixture, AuthService) {
	t.Helper()
	f := newFixture(t)
	jm := jwtpkg.NewManager("test-signing-key-0123456789abcdef", "reimbursehub-test", 15*time.Minute, time.Hour)
	return f, NewAuthService(f.store, repository.NewMemoryStateStore(), jm, zap.NewNop())
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	_, auth := newAuthFixture(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{name: "missing name", req: RegisterRequest{Company: "Acme", Email: "a@acme.test", Password: "longenough1"}},
		{name: "missing company", req: RegisterRequest{Name: "A", Email: "a@acme.test", Password: "longenough1"}},
		{name: "bad email", req: RegisterRequest{Name: "A", Company: "Acme", Email: "nope", Password: "longenough1"}},
		{name: "short password", req: RegisterRequest{Name: "A", Company: "Acme", Email: "a@acme.test", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Register(ctx, tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegister_EmailTakenCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	_, auth := newAuthFixture(t)

	u, err := auth.Register(ctx, RegisterRequest{Name: "Ada", Company: "Acme", Email: "Ada@Acme.test", Password: "correct horse", IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, "ada@acme.test", u.Email)
	assert.Equal(t, model.RoleAdmin, u.Role)

	_, err = auth.Register(ctx, RegisterRequest{Name: "Ada2", Company: "Acme", Email: "ADA@acme.test", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRefreshLogout(t *testing.T) {
	ctx := context.Background()
	_, auth := newAuthFixture(t)

	u, err := auth.Register(ctx, RegisterRequest{Name: "Una", Company: "Acme", Email: "una@acme.test", Password: "correct horse"})
	require.NoError(t, err)

	_, err = auth.Login(ctx, "una@acme.test", "wrong horse!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@acme.test", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tokens, err := auth.Login(ctx, "UNA@acme.test", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Equal(t, int64(900), tokens.ExpiresIn)

	id, err := auth.Authenticate(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, model.RoleMember, id.Role)
	assert.Equal(t, "una@acme.test", id.Email)

	_, err = auth.Authenticate(ctx, tokens.RefreshToken)
	assert.Error(t, err)

	rotated, err := auth.RefreshToken(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	_, err = auth.RefreshToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)

	require.NoError(t, auth.Logout(ctx, rotated.RefreshToken))
	_, err = auth.RefreshToken(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)

	_, err = auth.RefreshToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestProfile_AdminEmailFollowsActiveGroup(t *testing.T) {
	ctx := context.Background()
	f, auth := newAuthFixture(t)
	admin := f.addUser(t, "ada", model.RoleAdmin)
	user := f.addUser(t, "una", model.RoleMember)

	p, err := auth.Profile(ctx, user.UserID)
	require.NoError(t, err)
	assert.Nil(t, p.AdminEmail)
	assert.Nil(t, p.ActiveGroupID)

	ic := f.issue(t, admin, "PROF0001")
	_, err = f.memberships.JoinGroup(ctx, user, "PROF0001")
	require.NoError(t, err)

	p, err = auth.Profile(ctx, user.UserID)
	require.NoError(t, err)
	require.NotNil(t, p.AdminEmail)
	assert.Equal(t, admin.Email, *p.AdminEmail)
	assert.Equal(t, &ic.GroupID, p.ActiveGroupID)
}
