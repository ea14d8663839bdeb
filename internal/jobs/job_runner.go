// Package jobs holds the periodic maintenance work run by the scheduler.
package jobs

import (
	"time"

	"go.uber.org/zap"

	"midas/reimbursehub/internal/config"
	"midas/reimbursehub/internal/repository"
	"midas/reimbursehub/internal/storage"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store  repository.Store
	files  storage.Storage
	cfg    config.SweeperConfig
	now    func() time.Time
	logger *zap.Logger
}

func NewJobRunner(store repository.Store, files storage.Storage, cfg config.SweeperConfig, logger *zap.Logger) *JobRunner {
	return &JobRunner{
		store:  store,
		files:  files,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.Named("jobs"),
	}
}

func (jr *JobRunner) Config() config.SweeperConfig { return jr.cfg }

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			jr.logger.Error("job panicked", zap.String("job", jobName), zap.Any("panic", r))
		}
	}()

	start := time.Now()
	jr.logger.Debug("starting job", zap.String("job", jobName))
	jobFunc()
	jr.logger.Debug("job completed", zap.String("job", jobName), zap.Duration("elapsed", time.Since(start)))
}
