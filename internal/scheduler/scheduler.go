package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Syncer runs one full sync cycle over every user with active feeds.
type Syncer interface {
	SyncDue(ctx context.Context) error
}

type Scheduler struct {
	syncer      Syncer
	interval    time.Duration
	syncTimeout time.Duration
	logger      *slog.Logger
}

func NewScheduler(syncer Syncer, interval, syncTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:      syncer,
		interval:    interval,
		syncTimeout: syncTimeout,
		logger:      logger,
	}
}

// Start runs a cycle immediately and then once per interval until ctx
// is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()

	if err := s.syncer.SyncDue(cycleCtx); err != nil {
		s.logger.Error("sync cycle failed", "error", err)
	}
}
