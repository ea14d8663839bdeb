package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midas/reimbursehub/internal/model"
)

func seedCode(t *testing.T, s Store, code string, expires time.Time) {
	t.Helper()
	require.NoError(t, s.InviteCodes().Create(context.Background(), &model.InviteCode{
		ID:        uuid.New(),
		Code:      code,
		GroupID:   uuid.New(),
		CreatedBy: uuid.New(),
		ExpiresAt: expires,
	}))
}

func TestMemoryInviteCodes_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	seedCode(t, s, "AB12CD34", now.Add(time.Hour))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.InviteCodes().Consume(ctx, "AB12CD34", uuid.New(), now)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	c, err := s.InviteCodes().GetByCode(ctx, "AB12CD34")
	require.NoError(t, err)
	assert.True(t, c.Used)
	assert.NotNil(t, c.UsedBy)
}

func TestMemoryInviteCodes_ConsumeExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedCode(t, s, "EDGE0001", expires)
	seedCode(t, s, "EDGE0002", expires)

	ok, err := s.InviteCodes().Consume(ctx, "EDGE0001", uuid.New(), expires)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.InviteCodes().Consume(ctx, "EDGE0002", uuid.New(), expires.Add(time.Nanosecond))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	seedCode(t, s, "ROLLBACK", now.Add(time.Hour))
	groupID := uuid.New()
	require.NoError(t, s.Groups().Create(ctx, &model.Group{
		ID:          groupID,
		Name:        "Ops",
		Company:     "Acme",
		AdminID:     uuid.New(),
		AdminEmail:  "ada@acme.test",
		InviteCode:  "GROUP001",
		MemberCount: 1,
		LastActive:  now,
	}))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx Store) error {
		ok, err := tx.InviteCodes().Consume(ctx, "ROLLBACK", uuid.New(), now)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, tx.Groups().IncrementMemberCount(ctx, groupID, now))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c, err := s.InviteCodes().GetByCode(ctx, "ROLLBACK")
	require.NoError(t, err)
	assert.False(t, c.Used)
	assert.Nil(t, c.UsedBy)

	g, err := s.Groups().GetByID(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, 1, g.MemberCount)
}

func TestMemoryStore_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedCode(t, s, "COMMIT01", time.Now().Add(time.Hour))

	require.NoError(t, s.WithTx(ctx, func(tx Store) error {
		_, err := tx.InviteCodes().Consume(ctx, "COMMIT01", uuid.New(), time.Now())
		return err
	}))

	c, err := s.InviteCodes().GetByCode(ctx, "COMMIT01")
	require.NoError(t, err)
	assert.True(t, c.Used)
}

func TestMemoryStore_WithTxCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewMemoryStore().WithTx(ctx, func(Store) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
