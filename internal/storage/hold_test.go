package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(t *testing.T, s Storage) []string {
	t.Helper()
	objs, err := s.List(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Key)
	}
	return out
}

func TestHold_ReleaseDeletesUncommitted(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	h, err := Hold(ctx, s, "receipts/x/r.pdf", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), h.Size())
	assert.Equal(t, []string{"receipts/x/r.pdf"}, keys(t, s))

	require.NoError(t, h.Release(ctx))
	require.NoError(t, h.Release(ctx))
	assert.Empty(t, keys(t, s))
}

func TestHold_CommitKeepsObject(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	h, err := Hold(ctx, s, "receipts/y/r.pdf", strings.NewReader("data"))
	require.NoError(t, err)
	h.Commit()
	require.NoError(t, h.Release(ctx))

	assert.Equal(t, []string{"receipts/y/r.pdf"}, keys(t, s))
}

func TestHold_ReleaseSurvivesCancelledContext(t *testing.T) {
	s := newTestStorage(t)
	h, err := Hold(context.Background(), s, "receipts/z/r.pdf", strings.NewReader("data"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.Release(ctx))
	assert.Empty(t, keys(t, s))
}

func TestHold_FailedSaveReturnsError(t *testing.T) {
	s := newTestStorage(t)
	_, err := Hold(context.Background(), s, "receipts/w/r.pdf", &failingReader{after: 3})
	require.Error(t, err)
	assert.Empty(t, keys(t, s))
}

type undeletableStorage struct {
	*LocalStorage
	err error
}

func (s undeletableStorage) Delete(context.Context, string) error { return s.err }

func TestHold_FailedCleanupIsJoined(t *testing.T) {
	denied := errors.New("permission denied")
	s := undeletableStorage{LocalStorage: newTestStorage(t), err: denied}

	_, err := Hold(context.Background(), s, "receipts/v/r.pdf", &failingReader{after: 3})
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom", "the save error stays the primary cause")

	var cleanup *CleanupError
	require.ErrorAs(t, err, &cleanup)
	assert.Equal(t, "receipts/v/r.pdf", cleanup.Key)
	assert.ErrorIs(t, err, denied)
}
