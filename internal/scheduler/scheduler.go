package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"midas/reimbursehub/internal/jobs"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron   *cron.Cron
	jobs   *jobs.JobRunner
	logger *zap.Logger
}

// NewScheduler creates a scheduler and registers the runner's jobs. An invalid
// cron spec is a configuration error and fails construction.
func NewScheduler(jobRunner *jobs.JobRunner, logger *zap.Logger) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron:   c,
		jobs:   jobRunner,
		logger: logger.Named("scheduler"),
	}
	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config()
	if !cfg.Enabled {
		s.logger.Info("orphan receipt sweeper disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(cfg.Schedule, s.jobs.SweepOrphanReceipts); err != nil {
		return fmt.Errorf("register SweepOrphanReceipts job: %w", err)
	}
	s.logger.Info("cron jobs registered", zap.Int("count", len(s.cron.Entries())))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("cron scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cron scheduler stopped")
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
