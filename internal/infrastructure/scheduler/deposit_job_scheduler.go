package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/infrastructure/config"
)

// JobRunner executes one deposit job processing pass
type JobRunner interface {
	Run(ctx context.Context) error
}

// DepositJobScheduler triggers the deposit job processor on a cron
// schedule. Overlapping runs are skipped, not queued: a slow pass must
// finish before the next one starts.
type DepositJobScheduler struct {
	cron   *cron.Cron
	config config.DepositJobsConfig
	runner JobRunner
	logger *zap.Logger
}

// NewDepositJobScheduler creates a scheduler for the deposit job processor
func NewDepositJobScheduler(cfg config.DepositJobsConfig, runner JobRunner, logger *zap.Logger) *DepositJobScheduler {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	return &DepositJobScheduler{
		cron:   c,
		config: cfg,
		runner: runner,
		logger: logger,
	}
}

// Start registers the processing job and starts the scheduler
func (s *DepositJobScheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("Deposit job scheduler disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.config.CronSchedule, s.runOnce); err != nil {
		return fmt.Errorf("failed to register deposit job schedule %q: %w", s.config.CronSchedule, err)
	}

	s.cron.Start()
	s.logger.Info("Deposit job scheduler started",
		zap.String("schedule", s.config.CronSchedule),
		zap.Int("batch_size", s.config.BatchSize))
	return nil
}

// Stop stops the scheduler and waits for a running pass to finish
func (s *DepositJobScheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.logger.Info("Deposit job scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DepositJobScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	started := time.Now()
	if err := s.runner.Run(ctx); err != nil {
		s.logger.Error("Deposit job pass failed",
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return
	}
	s.logger.Debug("Deposit job pass finished",
		zap.Duration("elapsed", time.Since(started)))
}
