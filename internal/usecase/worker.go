package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/metrics"
	"NewsSummarizer/internal/ports"
	"NewsSummarizer/internal/queue"
)

const (
	defaultIdleInterval     = 2 * time.Second
	defaultSummarizeTimeout = 2 * time.Minute
	notifyTimeout           = 10 * time.Second
)

// WorkerDeps wires all driven adapters into the summarizer loop.
type WorkerDeps struct {
	Store      ports.ArticleStore
	Summarizer ports.Summarizer
	Queue      *queue.Priority
	Notifier   ports.Notifier
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	IdleInterval     time.Duration
	Pace             time.Duration
	SummarizeTimeout time.Duration
	// UnhealthyAfter is the number of consecutive store failures that flips Healthy to false.
	UnhealthyAfter int
}

// Worker is the single background loop that attaches summaries to pending articles.
// Priority hints are served before the backlog.
type Worker struct {
	store      ports.ArticleStore
	summarizer ports.Summarizer
	queue      *queue.Priority
	notifier   ports.Notifier
	metrics    *metrics.Metrics
	logger     *slog.Logger

	idle           time.Duration
	timeout        time.Duration
	unhealthyAfter int32
	limiter        *rate.Limiter

	failures atomic.Int32
	alerted  atomic.Bool
	now      func() time.Time
}

// NewWorker constructs the worker.
func NewWorker(deps WorkerDeps) *Worker {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	idle := deps.IdleInterval
	if idle <= 0 {
		idle = defaultIdleInterval
	}
	timeout := deps.SummarizeTimeout
	if timeout <= 0 {
		timeout = defaultSummarizeTimeout
	}
	limit := rate.Inf
	if deps.Pace > 0 {
		limit = rate.Every(deps.Pace)
	}

	return &Worker{
		store:          deps.Store,
		summarizer:     deps.Summarizer,
		queue:          deps.Queue,
		notifier:       deps.Notifier,
		metrics:        deps.Metrics,
		logger:         logger,
		idle:           idle,
		timeout:        timeout,
		unhealthyAfter: int32(deps.UnhealthyAfter),
		limiter:        rate.NewLimiter(limit, 1),
		now:            time.Now,
	}
}

// Run processes articles until ctx is cancelled. A summarization that already started
// is allowed to finish and persist its result before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("summarizer worker started", "idle_interval", w.idle.String())
	defer w.logger.Info("summarizer worker stopped")

	for ctx.Err() == nil {
		worked, err := w.Step(ctx)
		if err != nil || !worked {
			if !sleep(ctx, w.idle) {
				return nil
			}
			continue
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return nil
		}
	}
	return nil
}

// Step runs one iteration: claim the next article and summarize it. It reports whether
// an article was processed. Errors are store failures; summarizer failures end up in the
// article's status instead.
func (w *Worker) Step(ctx context.Context) (bool, error) {
	article, ok, err := w.claim(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown interrupted the claim query; the store itself is fine.
			return false, err
		}
		w.storeFailed(ctx, err)
		return false, err
	}
	if !ok {
		w.storeRecovered()
		return false, nil
	}

	err = w.summarize(ctx, article)
	if w.queue != nil {
		// Readers may have hinted the article while it was in flight.
		w.queue.Remove(article.ID)
	}
	if err != nil {
		w.storeFailed(ctx, err)
		return true, err
	}
	w.storeRecovered()
	return true, nil
}

// Healthy is false once the store failed UnhealthyAfter times in a row.
func (w *Worker) Healthy() bool {
	return w.unhealthyAfter <= 0 || w.failures.Load() < w.unhealthyAfter
}

// claim serves the priority queue first, discarding hints whose article is no longer
// pending, then falls back to the newest pending article.
func (w *Worker) claim(ctx context.Context) (domain.Article, bool, error) {
	if w.queue != nil {
		for {
			id, ok := w.queue.PopIfAny()
			if !ok {
				break
			}
			article, claimed, err := w.store.ClaimArticle(ctx, id)
			if err != nil {
				w.queue.Push(id)
				return domain.Article{}, false, err
			}
			if claimed {
				w.metrics.RecordHint(metrics.HintClaimed)
				return article, true, nil
			}
			w.metrics.RecordHint(metrics.HintStale)
			w.logger.Debug("discarded stale hint", "article_id", id)
		}
	}

	return w.store.ClaimNextPending(ctx)
}

func (w *Worker) summarize(ctx context.Context, article domain.Article) error {
	// The claimed article must reach done or error even if shutdown starts meanwhile.
	persistCtx := context.WithoutCancel(ctx)
	callCtx, cancel := context.WithTimeout(persistCtx, w.timeout)
	defer cancel()

	log := w.logger.With("article_id", article.ID, "topic", article.Topic)
	started := w.now()

	summary, err := w.summarizer.Summarize(callCtx, article.Title, article.Content)
	if err == nil && strings.TrimSpace(summary) == "" {
		err = errors.New("empty summary")
	}
	elapsed := w.now().Sub(started)

	if err != nil {
		if !errors.Is(err, domain.ErrSummarize) {
			err = fmt.Errorf("%w: %w", domain.ErrSummarize, err)
		}
		w.metrics.RecordSummary(metrics.ResultError, elapsed)
		log.Warn("summarize failed", "error", err, "duration_ms", elapsed.Milliseconds())
		if ferr := w.store.FailArticle(persistCtx, article.ID, err.Error()); ferr != nil {
			return fmt.Errorf("mark article %s failed: %w", article.ID, ferr)
		}
		return nil
	}

	w.metrics.RecordSummary(metrics.ResultDone, elapsed)
	if err := w.store.CompleteArticle(persistCtx, article.ID, strings.TrimSpace(summary)); err != nil {
		return fmt.Errorf("complete article %s: %w", article.ID, err)
	}
	log.Info("article summarized", "status", domain.StatusDone, "duration_ms", elapsed.Milliseconds())
	return nil
}

func (w *Worker) storeFailed(ctx context.Context, err error) {
	n := w.failures.Add(1)
	w.logger.Error("worker iteration aborted", "error", err, "consecutive_failures", n)

	if w.unhealthyAfter <= 0 || n < w.unhealthyAfter || !w.alerted.CompareAndSwap(false, true) {
		return
	}
	if w.notifier == nil {
		return
	}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	msg := fmt.Sprintf("News summarizer: cache store failed %d times in a row: %v", n, err)
	if nerr := w.notifier.Notify(nctx, msg); nerr != nil {
		w.logger.Warn("health alert not delivered", "error", nerr)
	}
}

func (w *Worker) storeRecovered() {
	if prev := w.failures.Swap(0); w.unhealthyAfter > 0 && prev >= w.unhealthyAfter {
		w.logger.Info("cache store recovered", "after_failures", prev)
	}
	w.alerted.Store(false)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
