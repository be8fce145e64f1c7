package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/ports"
)

// MaintenanceDeps wires the periodic maintenance job.
type MaintenanceDeps struct {
	Driver    ports.Scheduler
	Store     ports.ArticleStore
	Refresher TopicRefresher
	Logger    *slog.Logger

	// Topics are refreshed ahead of readers when stale.
	Topics []string
	// Retention drops articles published earlier; zero disables pruning.
	Retention time.Duration
}

// TopicRefresher refetches a topic when it is stale. NewsService implements it, so
// scheduled and reader-driven refreshes of one topic share a single feed call.
type TopicRefresher interface {
	RefreshIfStale(ctx context.Context, topic string) error
}

// Scheduler wires the ticker-like driver with topic refresh and pruning.
type Scheduler struct {
	driver    ports.Scheduler
	store     ports.ArticleStore
	refresher TopicRefresher
	logger    *slog.Logger
	topics    []string
	retention time.Duration
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(deps MaintenanceDeps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		driver:    deps.Driver,
		store:     deps.Store,
		refresher: deps.Refresher,
		logger:    logger,
		topics:    deps.Topics,
		retention: deps.Retention,
	}
}

// Start registers the maintenance job with the provided driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.RunOnce(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// RunOnce refreshes stale configured topics and prunes expired articles. Failures are
// logged; the next trigger tries again.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) {
	if s.refresher != nil {
		for _, raw := range s.topics {
			if ctx.Err() != nil {
				return
			}
			s.refresh(ctx, raw)
		}
	}

	if s.retention <= 0 || s.store == nil {
		return
	}
	removed, err := s.store.Prune(ctx, trigger.Add(-s.retention))
	if err != nil {
		s.logger.Error("prune failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("pruned old articles", "count", removed)
	}
}

func (s *Scheduler) refresh(ctx context.Context, raw string) {
	topic := domain.NormalizeTopic(raw)
	if err := s.refresher.RefreshIfStale(ctx, topic); err != nil {
		s.logger.Warn("scheduled refresh failed", "topic", topic, "error", err)
	}
}
