package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"midas/reimbursehub/internal/config"
	"midas/reimbursehub/internal/model"
	"midas/reimbursehub/internal/repository"
)

var testInviteConfig = config.InviteConfig{TTL: 7 * 24 * time.Hour, CodeLength: 8, MaxAttempts: 5}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// codeSeq hands out the given codes in order, then falls back to random ones.
type codeSeq struct {
	mu    sync.Mutex
	codes []string
}

func (s *codeSeq) next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		return uuid.NewString()[:8], nil
	}
	c := s.codes[0]
	s.codes = s.codes[1:]
	return c, nil
}

type fixture struct {
	store       repository.Store
	clock       *testClock
	codes       *codeSeq
	invites     *inviteService
	groups      *groupService
	memberships *membershipService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := newTestClock()
	codes := &codeSeq{}
	logger := zap.NewNop()

	invites := NewInviteService(store, nil, testInviteConfig, logger).(*inviteService)
	invites.now = clock.Now
	invites.generate = codes.next

	groups := NewGroupService(store, testInviteConfig, logger).(*groupService)
	groups.now = clock.Now

	memberships := NewMembershipService(store, invites, groups, logger).(*membershipService)
	memberships.now = clock.Now

	return &fixture{
		store:       store,
		clock:       clock,
		codes:       codes,
		invites:     invites,
		groups:      groups,
		memberships: memberships,
	}
}

func (f *fixture) addUser(t *testing.T, name string, role model.Role) Identity {
	t.Helper()
	u := &model.User{
		ID:           uuid.New(),
		Name:         name,
		Company:      "Acme",
		Email:        name + "@acme.test",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return *identityOf(u)
}

// issue mints code for a new group owned by admin.
func (f *fixture) issue(t *testing.T, admin Identity, code string) *model.InviteCode {
	t.Helper()
	f.codes.codes = append(f.codes.codes, code)
	ic, err := f.invites.IssueCode(context.Background(), admin, IssueCodeRequest{})
	require.NoError(t, err)
	return ic
}

func (f *fixture) activeGroup(t *testing.T, id Identity) *uuid.UUID {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), id.UserID)
	require.NoError(t, err)
	return u.ActiveGroupID
}
