package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"NewsSummarizer/internal/config"
	"NewsSummarizer/internal/httpapi"
	"NewsSummarizer/internal/infrastructure/feed"
	"NewsSummarizer/internal/infrastructure/llm"
	"NewsSummarizer/internal/infrastructure/scheduler"
	"NewsSummarizer/internal/infrastructure/storage"
	"NewsSummarizer/internal/infrastructure/telegram"
	"NewsSummarizer/internal/logging"
	"NewsSummarizer/internal/metrics"
	"NewsSummarizer/internal/ports"
	"NewsSummarizer/internal/queue"
	"NewsSummarizer/internal/scanner"
	"NewsSummarizer/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *storage.SQLStore
	summarizer ports.Summarizer
	hints      *queue.Priority
	worker     *usecase.Worker
	scheduler  *usecase.Scheduler
	server     *echo.Echo
}

// New opens the cache store and builds every component. The caller owns Close.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}

	summarizer, err := llm.New(cfg.Summarizer)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build summarizer: %w", err)
	}

	hints, err := queue.NewPriority(cfg.Worker.QueueCapacity)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	m := metrics.New()
	m.WatchQueueDepth(hints.Len)

	feedClient := &http.Client{Timeout: cfg.News.FetchTimeout}
	registry := scanner.NewRegistry()
	registry.Register(feed.NewGoogleNewsScanner(feedClient))
	registry.Register(feed.NewTemplateScanner(feedClient))

	source := feed.NewStrategySource(registry, cfg.News.Scanner, cfg.News.Options, cfg.News.FetchCount,
		baseLogger.With("component", "source"))

	fetcher := usecase.NewFetcher(usecase.FetcherDeps{
		Source:  source,
		Store:   store,
		Metrics: m,
		Logger:  baseLogger.With("component", "fetcher"),
		Limit:   cfg.News.FetchCount,
		Timeout: cfg.News.FetchTimeout,
	})
	freshness := usecase.NewFreshness(store, cfg.News.TTL)

	news := usecase.NewNewsService(usecase.NewsDeps{
		Store:       store,
		Fetcher:     fetcher,
		Freshness:   freshness,
		Queue:       hints,
		Metrics:     m,
		Logger:      baseLogger.With("component", "news"),
		PageSize:    cfg.Server.PageSize,
		MaxArticles: cfg.News.MaxArticlesPerTopic,
	})

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID); tg.Configured() {
		notifier = tg
	}

	worker := usecase.NewWorker(usecase.WorkerDeps{
		Store:            store,
		Summarizer:       summarizer,
		Queue:            hints,
		Notifier:         notifier,
		Metrics:          m,
		Logger:           baseLogger.With("component", "worker"),
		IdleInterval:     cfg.Worker.IdleInterval,
		Pace:             cfg.Worker.Pace,
		SummarizeTimeout: cfg.Worker.SummarizeTimeout,
		UnhealthyAfter:   cfg.Worker.UnhealthyAfter,
	})

	maintenance := usecase.NewScheduler(usecase.MaintenanceDeps{
		Driver:    scheduler.NewTickerScheduler(cfg.Scheduler.RefreshInterval),
		Store:     store,
		Refresher: news,
		Logger:    baseLogger.With("component", "scheduler"),
		Topics:    cfg.News.Topics,
		Retention: cfg.News.Retention,
	})

	server := httpapi.New(httpapi.Deps{
		News:       news,
		Healthy:    worker.Healthy,
		Metrics:    m,
		Logger:     baseLogger.With("component", "http"),
		ModelLabel: cfg.Summarizer.ModelLabel(),
		Topics:     cfg.News.Topics,
	})

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		store:      store,
		summarizer: summarizer,
		hints:      hints,
		worker:     worker,
		scheduler:  maintenance,
		server:     server,
	}, nil
}

// Run recovers interrupted work, then serves HTTP and runs the worker and scheduler
// until ctx is cancelled or one of them fails. The summarizer warm-up delays only the
// worker; cached data is served while the model loads.
func (a *Application) Run(ctx context.Context) error {
	recoveryLogger := a.logger.With("component", "recovery")
	if err := usecase.Recover(ctx, a.store, recoveryLogger); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		usecase.WarmUp(gctx, a.summarizer, recoveryLogger)
		a.logger.Info("summarizer worker starting", "queue_capacity", a.hints.Capacity())
		return a.worker.Run(gctx)
	})

	g.Go(func() error {
		if err := a.scheduler.Start(gctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		return a.scheduler.Stop(stopCtx)
	})

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", a.cfg.Server.Addr)
		if err := a.server.Start(a.cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		return httpapi.Shutdown(shutdownCtx, a.server)
	})

	err := g.Wait()
	a.logger.Info("shutdown complete")
	return err
}

// Close releases the cache store.
func (a *Application) Close() error {
	return a.store.Close()
}

func (a *Application) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
