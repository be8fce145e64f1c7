package ports

import (
	"context"
	"time"

	"NewsSummarizer/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_ports.go -package=mocks NewsSummarizer/internal/ports FeedSource,Summarizer

// ArticleStore is the durable cache of articles, summaries and topic fetch records.
type ArticleStore interface {
	UpsertArticles(ctx context.Context, topic string, drafts []domain.ArticleDraft) ([]string, error)
	ArticlesByTopic(ctx context.Context, topic string, limit int) ([]domain.Article, error)
	ArticleByID(ctx context.Context, id string) (domain.Article, error)

	ClaimNextPending(ctx context.Context) (domain.Article, bool, error)
	ClaimArticle(ctx context.Context, id string) (domain.Article, bool, error)
	CompleteArticle(ctx context.Context, id, summary string) error
	FailArticle(ctx context.Context, id, reason string) error
	ResetStuckInProgress(ctx context.Context) (int64, error)
	RetryArticle(ctx context.Context, id string) error
	RetryAllFailed(ctx context.Context) (int64, error)

	LastFetched(ctx context.Context, topic string) (time.Time, bool, error)
	MarkFetched(ctx context.Context, topic string, at time.Time) error
	SaveFetch(ctx context.Context, topic string, drafts []domain.ArticleDraft, at time.Time) ([]string, error)

	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
	CountByTopic(ctx context.Context) (map[string]int, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// FeedSource pulls raw entries for a topic from an upstream news feed.
type FeedSource interface {
	Fetch(ctx context.Context, topic string) ([]domain.ArticleDraft, error)
}

// Summarizer turns an article into a short summary. Implementations may be slow.
type Summarizer interface {
	Summarize(ctx context.Context, title, content string) (string, error)
}

// Warmer is implemented by summarizers that benefit from a warm-up call at startup.
type Warmer interface {
	Warm(ctx context.Context) error
}

// Notifier streams operational alerts to Telegram or other channels.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Scheduler controls when maintenance jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
