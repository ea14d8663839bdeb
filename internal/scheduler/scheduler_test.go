package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"midas/reimbursehub/internal/config"
	"midas/reimbursehub/internal/jobs"
	"midas/reimbursehub/internal/repository"
	"midas/reimbursehub/internal/storage"
)

func newRunner(t *testing.T, cfg config.SweeperConfig) *jobs.JobRunner {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return jobs.NewJobRunner(repository.NewMemoryStore(), files, cfg, zap.NewNop())
}

func TestNewScheduler(t *testing.T) {
	s, err := NewScheduler(newRunner(t, config.SweeperConfig{Enabled: true, Schedule: "0 */15 * * * *", Grace: time.Hour}), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())

	s.Start()
	s.Stop()
}

func TestNewScheduler_Disabled(t *testing.T) {
	s, err := NewScheduler(newRunner(t, config.SweeperConfig{Enabled: false, Schedule: "bogus"}), zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, s.Entries())
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(newRunner(t, config.SweeperConfig{Enabled: true, Schedule: "every tuesday"}), zap.NewNop())
	assert.Error(t, err)
}
