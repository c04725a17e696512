package usecase

import (
	"context"
	"log/slog"
	"time"

	"investwizard/internal/ports"
)

// SchedulerConfig carries the timers the scheduler runs on.
type SchedulerConfig struct {
	ScrapeInterval  time.Duration
	CleanupInterval time.Duration
	MaxArticleAge   time.Duration
}

// Scheduler fires full scrape cycles on a fixed interval and prunes old
// articles on a slower one. Manual triggers and the interval share the
// same per-source mutual exclusion inside the orchestrator.
type Scheduler struct {
	orchestrator *Orchestrator
	repository   ports.ArticleRepository
	logger       *slog.Logger
	cfg          SchedulerConfig
}

// NewScheduler wires the timers over the orchestrator.
func NewScheduler(orchestrator *Orchestrator, repository ports.ArticleRepository, logger *slog.Logger, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		repository:   repository,
		logger:       logger,
		cfg:          cfg,
	}
}

// Run blocks until ctx is cancelled. The first cycle fires immediately so a
// fresh deployment does not wait a full interval for data.
func (s *Scheduler) Run(ctx context.Context) {
	scrape := time.NewTicker(s.cfg.ScrapeInterval)
	defer scrape.Stop()
	cleanup := time.NewTicker(s.cfg.CleanupInterval)
	defer cleanup.Stop()

	s.orchestrator.DispatchAll(ctx)

	for {
		select {
		case <-ctx.Done():
			s.orchestrator.Wait()
			s.logger.Info("scheduler stopped")
			return
		case <-scrape.C:
			// Cycles run detached; an in-flight source is skipped by its
			// lane while every other source still gets this tick.
			s.orchestrator.DispatchAll(ctx)
		case <-cleanup.C:
			s.cleanupOnce(ctx)
		}
	}
}

func (s *Scheduler) cleanupOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.MaxArticleAge)
	deleted, err := s.repository.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("retention cleanup", "deleted", deleted, "cutoff", cutoff)
	}
}
