package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/metrics"
	"NewsSummarizer/internal/ports"
	"NewsSummarizer/internal/queue"
)

const (
	defaultPageSize    = 6
	defaultMaxArticles = 90
)

// NewsDeps wires the Query Facade.
type NewsDeps struct {
	Store     ports.ArticleStore
	Fetcher   *Fetcher
	Freshness *Freshness
	Queue     *queue.Priority
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	PageSize    int
	MaxArticles int
}

// NewsPage is one page of a topic's cached articles.
type NewsPage struct {
	Topic    string
	Articles []domain.Article
	Page     int
	HasMore  bool
	// Stale is set when the refresh failed and older cached articles were served.
	Stale bool
}

// NewsService is the read path: it refreshes stale topics, serves cached articles and
// hints the worker about pending articles a reader is looking at. It never summarizes.
type NewsService struct {
	store     ports.ArticleStore
	fetcher   *Fetcher
	freshness *Freshness
	queue     *queue.Priority
	metrics   *metrics.Metrics
	logger    *slog.Logger

	pageSize    int
	maxArticles int
	refreshes   singleflight.Group
}

// NewNewsService constructs the service.
func NewNewsService(deps NewsDeps) *NewsService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxArticles := deps.MaxArticles
	if maxArticles <= 0 {
		maxArticles = defaultMaxArticles
	}
	return &NewsService{
		store:       deps.Store,
		fetcher:     deps.Fetcher,
		freshness:   deps.Freshness,
		queue:       deps.Queue,
		metrics:     deps.Metrics,
		logger:      logger,
		pageSize:    pageSize,
		maxArticles: maxArticles,
	}
}

// GetNews returns one page of articles for the topic (an empty topic means top headlines).
// A failed refresh only surfaces as domain.ErrFetch when nothing is cached.
func (s *NewsService) GetNews(ctx context.Context, rawTopic string, page int) (NewsPage, error) {
	topic := domain.NormalizeTopic(rawTopic)
	if page < 1 {
		page = 1
	}
	result := NewsPage{Topic: topic, Page: page, Articles: []domain.Article{}}

	refreshErr := s.refreshIfStale(ctx, topic)
	if refreshErr != nil && !errors.Is(refreshErr, domain.ErrFetch) {
		return result, refreshErr
	}

	articles, err := s.store.ArticlesByTopic(ctx, topic, s.maxArticles)
	if err != nil {
		return result, fmt.Errorf("load topic %s: %w", topic, err)
	}
	if refreshErr != nil {
		if len(articles) == 0 {
			return result, refreshErr
		}
		result.Stale = true
	}

	start := (page - 1) * s.pageSize
	if start < len(articles) {
		end := min(start+s.pageSize, len(articles))
		result.Articles = articles[start:end]
		result.HasMore = end < len(articles)
	}

	s.hint(result.Articles)
	return result, nil
}

// RefreshIfStale refetches the topic when its TTL expired. Readers and the maintenance
// scheduler share one in-flight refresh per topic.
func (s *NewsService) RefreshIfStale(ctx context.Context, rawTopic string) error {
	return s.refreshIfStale(ctx, domain.NormalizeTopic(rawTopic))
}

// refreshIfStale expects a normalized topic. Feed failures come back wrapped in
// domain.ErrFetch so the caller can fall back to cached data.
func (s *NewsService) refreshIfStale(ctx context.Context, topic string) error {
	stale, err := s.freshness.IsStale(ctx, topic)
	if err != nil {
		return fmt.Errorf("check freshness of %s: %w", topic, err)
	}
	if !stale {
		return nil
	}
	s.logger.Debug("topic stale, refreshing", "topic", topic, "ttl", s.freshness.TTL().String())

	// Shared by every concurrent reader of the topic, so no single caller may cancel it.
	shared := context.WithoutCancel(ctx)
	_, err, _ = s.refreshes.Do(topic, func() (any, error) {
		return s.fetcher.Refresh(shared, topic)
	})
	if errors.Is(err, domain.ErrFetch) {
		s.logger.Warn("topic refresh failed, serving cache", "topic", topic, "error", err)
	}
	return err
}

func (s *NewsService) hint(articles []domain.Article) {
	if s.queue == nil {
		return
	}
	for _, a := range articles {
		if a.Status != domain.StatusPending {
			continue
		}
		if s.queue.Push(a.ID) {
			s.metrics.RecordHint(metrics.HintQueued)
		} else {
			s.metrics.RecordHint(metrics.HintDuplicate)
		}
	}
}

// Article returns one cached article.
func (s *NewsService) Article(ctx context.Context, id string) (domain.Article, error) {
	return s.store.ArticleByID(ctx, id)
}

// Retry moves a failed article back to pending and puts it at the front of the worker's
// attention. Only articles in error can be retried.
func (s *NewsService) Retry(ctx context.Context, id string) (domain.Article, error) {
	if err := s.store.RetryArticle(ctx, id); err != nil {
		return domain.Article{}, err
	}
	if s.queue != nil && s.queue.Push(id) {
		s.metrics.RecordHint(metrics.HintQueued)
	}
	return s.store.ArticleByID(ctx, id)
}
