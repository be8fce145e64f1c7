package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/ports"
	"NewsSummarizer/internal/ports/mocks"
)

func TestWorkerSummarizesBacklogArticle(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	summarizer := mocks.NewMockSummarizer(ctrl)
	store := newStore(t)
	ctx := context.Background()

	ids := seed(t, store, "technology", draft("A", time.Hour))
	summarizer.EXPECT().Summarize(gomock.Any(), "A", "Body of A").Return("Short summary.", nil)

	w := NewWorker(WorkerDeps{Store: store, Summarizer: summarizer, Queue: newQueue(t)})
	worked, err := w.Step(ctx)
	require.NoError(t, err)
	assert.True(t, worked)

	article, err := store.ArticleByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, article.Status)
	assert.Equal(t, "Short summary.", article.Summary)
}

func TestWorkerPrefersQueueAndDiscardsStaleHints(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	summarizer := mocks.NewMockSummarizer(ctrl)
	store := newStore(t)
	q := newQueue(t)
	ctx := context.Background()

	// A is newer, so the backlog alone would pick it first.
	ids := seed(t, store, "technology", draft("A", time.Hour), draft("B", 5*time.Hour))
	q.Push(ids[1])

	gomock.InOrder(
		summarizer.EXPECT().Summarize(gomock.Any(), "B", gomock.Any()).Return("B summary.", nil),
		summarizer.EXPECT().Summarize(gomock.Any(), "A", gomock.Any()).Return("A summary.", nil),
	)

	w := NewWorker(WorkerDeps{Store: store, Summarizer: summarizer, Queue: q})

	worked, err := w.Step(ctx)
	require.NoError(t, err)
	require.True(t, worked)

	// B is done now; a repeated hint must not summarize it again.
	q.Push(ids[1])
	worked, err = w.Step(ctx)
	require.NoError(t, err)
	require.True(t, worked)
	assert.Zero(t, q.Len())

	b, err := store.ArticleByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "B summary.", b.Summary)

	a, err := store.ArticleByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, a.Status)
}

func TestWorkerTimeoutMarksArticleError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	summarizer := mocks.NewMockSummarizer(ctrl)
	source := mocks.NewMockFeedSource(ctrl)
	store := newStore(t)
	ctx := context.Background()

	ids := seed(t, store, "cricket", draft("C", time.Hour))
	require.NoError(t, store.MarkFetched(ctx, "cricket", time.Now()))

	summarizer.EXPECT().Summarize(gomock.Any(), "C", gomock.Any()).DoAndReturn(
		func(ctx context.Context, _, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	w := NewWorker(WorkerDeps{Store: store, Summarizer: summarizer, SummarizeTimeout: 20 * time.Millisecond})
	worked, err := w.Step(ctx)
	require.NoError(t, err)
	assert.True(t, worked)

	article, err := store.ArticleByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, article.Status)
	assert.Empty(t, article.Summary)

	// A later read of the topic shows the failure; the topic is fresh so no fetch happens.
	news := NewNewsService(NewsDeps{
		Store:     store,
		Fetcher:   NewFetcher(FetcherDeps{Source: source, Store: store}),
		Freshness: NewFreshness(store, time.Hour),
	})
	page, err := news.GetNews(ctx, "Cricket", 1)
	require.NoError(t, err)
	require.Len(t, page.Articles, 1)
	assert.Equal(t, domain.StatusError, page.Articles[0].Status)
}

func TestWorkerTreatsBlankSummaryAsFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	summarizer := mocks.NewMockSummarizer(ctrl)
	store := newStore(t)

	ids := seed(t, store, "business", draft("D", time.Hour))
	summarizer.EXPECT().Summarize(gomock.Any(), "D", gomock.Any()).Return("  \n", nil)

	w := NewWorker(WorkerDeps{Store: store, Summarizer: summarizer})
	_, err := w.Step(context.Background())
	require.NoError(t, err)

	article, err := store.ArticleByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, article.Status)
}

func TestWorkerIdleStep(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	w := NewWorker(WorkerDeps{Store: newStore(t), Summarizer: mocks.NewMockSummarizer(ctrl), Queue: newQueue(t)})

	worked, err := w.Step(context.Background())
	require.NoError(t, err)
	assert.False(t, worked)
	assert.True(t, w.Healthy())
}

type brokenStore struct {
	ports.ArticleStore
	err error
}

func (b *brokenStore) ClaimArticle(context.Context, string) (domain.Article, bool, error) {
	return domain.Article{}, false, b.err
}

func (b *brokenStore) ClaimNextPending(context.Context) (domain.Article, bool, error) {
	return domain.Article{}, false, b.err
}

func TestWorkerReportsUnhealthyAfterRepeatedStoreFailures(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := &brokenStore{err: fmt.Errorf("%w: database is locked", domain.ErrStoreUnavailable)}
	notifier := &recordingNotifier{}
	q := newQueue(t)
	q.Push("hinted")

	w := NewWorker(WorkerDeps{
		Store:          store,
		Summarizer:     mocks.NewMockSummarizer(ctrl),
		Queue:          q,
		Notifier:       notifier,
		UnhealthyAfter: 2,
	})
	ctx := context.Background()

	_, err := w.Step(ctx)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.True(t, w.Healthy())
	assert.Equal(t, 1, q.Len(), "hint kept for the next attempt")

	_, err = w.Step(ctx)
	require.Error(t, err)
	assert.False(t, w.Healthy())
	assert.Equal(t, 1, notifier.count())

	_, _ = w.Step(ctx)
	assert.Equal(t, 1, notifier.count(), "alert is sent once per outage")

	w.store = newStore(t)
	worked, err := w.Step(ctx)
	require.NoError(t, err)
	assert.False(t, worked)
	assert.True(t, w.Healthy())
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	w := NewWorker(WorkerDeps{
		Store:        newStore(t),
		Summarizer:   mocks.NewMockSummarizer(ctrl),
		IdleInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerRunFinishesInFlightSummaryOnShutdown(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	summarizer := mocks.NewMockSummarizer(ctrl)
	store := newStore(t)
	ids := seed(t, store, "technology", draft("E", time.Hour))

	started := make(chan struct{})
	release := make(chan struct{})
	summarizer.EXPECT().Summarize(gomock.Any(), "E", gomock.Any()).DoAndReturn(
		func(ctx context.Context, _, _ string) (string, error) {
			close(started)
			select {
			case <-release:
				return "Finished anyway.", nil
			case <-ctx.Done():
				return "", errors.New("call cancelled")
			}
		})

	w := NewWorker(WorkerDeps{Store: store, Summarizer: summarizer, IdleInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	<-started
	cancel()
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	article, err := store.ArticleByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, article.Status)
	assert.Equal(t, "Finished anyway.", article.Summary)
}

func TestWorkerDropsHintsPushedWhileSummarizing(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	summarizer := mocks.NewMockSummarizer(ctrl)
	store := newStore(t)
	q := newQueue(t)
	ctx := context.Background()

	ids := seed(t, store, "technology", draft("A", time.Hour))
	summarizer.EXPECT().Summarize(gomock.Any(), "A", gomock.Any()).DoAndReturn(
		func(context.Context, string, string) (string, error) {
			// A reader still sees the article as pending and hints it.
			q.Push(ids[0])
			return "A summary.", nil
		})

	w := NewWorker(WorkerDeps{Store: store, Summarizer: summarizer, Queue: q})
	worked, err := w.Step(ctx)
	require.NoError(t, err)
	require.True(t, worked)
	assert.Zero(t, q.Len())
}

func TestWorkerIgnoresClaimErrorsDuringShutdown(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	notifier := &recordingNotifier{}
	w := NewWorker(WorkerDeps{
		Store:          &brokenStore{err: fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, context.Canceled)},
		Summarizer:     mocks.NewMockSummarizer(ctrl),
		Queue:          newQueue(t),
		Notifier:       notifier,
		UnhealthyAfter: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for range 3 {
		worked, err := w.Step(ctx)
		require.Error(t, err)
		assert.False(t, worked)
	}
	assert.True(t, w.Healthy())
	assert.Zero(t, notifier.count())
}
