// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// PendingProcessor picks up uploaded files that were never processed.
type PendingProcessor interface {
	ProcessPending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// Config controls the pending file sweep.
type Config struct {
	Schedule   string
	PendingAge time.Duration
	BatchSize  int
	// Timeout bounds one sweep.
	Timeout time.Duration
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	sweep     cron.Job
	processor PendingProcessor
	cfg       Config
	running   atomic.Bool
	logger    *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(processor PendingProcessor, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	// Standard 5-field format, seconds disabled
	c := cron.New(cron.WithLogger(cronLogger))

	s := &Scheduler{
		cron:      c,
		processor: processor,
		cfg:       cfg,
		logger:    logger,
	}
	// a panicking sweep is logged instead of taking the process down
	s.sweep = cron.NewChain(cron.Recover(cronLogger)).Then(cron.FuncJob(s.sweepPending))
	return s
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddJob(s.cfg.Schedule, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", s.cfg.Schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers a sweep outside the schedule, e.g. to drain the backlog
// left by a previous process.
func (s *Scheduler) RunNow() {
	go s.sweep.Run()
}

// sweepPending processes files stuck in PENDING, e.g. after a crash between
// upload and processing. Overlapping runs are skipped.
func (s *Scheduler) sweepPending() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug("pending sweep already running, skipping")
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	started := time.Now()
	processed, err := s.processor.ProcessPending(ctx, s.cfg.PendingAge, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("pending statement sweep failed",
			slog.Int("processed", processed),
			slog.Any("error", err),
		)
		return
	}

	if processed > 0 {
		s.logger.Info("pending statement sweep completed",
			slog.Int("files_processed", processed),
			slog.Duration("duration", time.Since(started)),
		)
	}
}
