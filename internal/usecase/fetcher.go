package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/metrics"
	"NewsSummarizer/internal/ports"
)

// FetcherDeps wires the feed source and store into the News Fetcher.
type FetcherDeps struct {
	Source  ports.FeedSource
	Store   ports.ArticleStore
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// Limit caps the drafts kept per fetch; zero keeps everything.
	Limit   int
	Timeout time.Duration
}

// Fetcher pulls topic entries from the feed source and stores them as pending articles.
type Fetcher struct {
	source  ports.FeedSource
	store   ports.ArticleStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	limit   int
	timeout time.Duration
	now     func() time.Time
}

// NewFetcher constructs the fetcher.
func NewFetcher(deps FetcherDeps) *Fetcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{
		source:  deps.Source,
		store:   deps.Store,
		metrics: deps.Metrics,
		logger:  logger,
		limit:   deps.Limit,
		timeout: deps.Timeout,
		now:     time.Now,
	}
}

// FetchTopic returns the topic's drafts with duplicate identities collapsed. Every failure
// is reported as domain.ErrFetch.
func (f *Fetcher) FetchTopic(ctx context.Context, topic string) ([]domain.ArticleDraft, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	raw, err := f.source.Fetch(ctx, topic)
	if err != nil {
		if errors.Is(err, domain.ErrFetch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: topic %s: %w", domain.ErrFetch, topic, err)
	}

	drafts := make([]domain.ArticleDraft, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, draft := range raw {
		if f.limit > 0 && len(drafts) >= f.limit {
			break
		}
		if draft.Link == "" && draft.GUID == "" {
			continue
		}
		id := draft.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

// Refresh fetches the topic and persists the drafts together with the fetch record.
// The topic is only marked fetched once its articles are stored.
func (f *Fetcher) Refresh(ctx context.Context, topic string) ([]string, error) {
	started := f.now()
	drafts, err := f.FetchTopic(ctx, topic)
	if err != nil {
		f.metrics.RecordFetch(metrics.ResultFailed)
		return nil, err
	}

	inserted, err := f.store.SaveFetch(ctx, topic, drafts, f.now())
	if err != nil {
		f.metrics.RecordFetch(metrics.ResultFailed)
		return nil, fmt.Errorf("save topic %s: %w", topic, err)
	}

	f.metrics.RecordFetch(metrics.ResultOK)
	f.logger.Info("topic refreshed",
		"topic", topic,
		"entries", len(drafts),
		"new", len(inserted),
		"duration_ms", f.now().Sub(started).Milliseconds(),
	)
	return inserted, nil
}
