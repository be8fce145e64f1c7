package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/ports/mocks"
)

type immediateDriver struct {
	started bool
	stopped bool
	at      time.Time
}

func (d *immediateDriver) Start(_ context.Context, job func(time.Time)) error {
	d.started = true
	job(d.at)
	return nil
}

func (d *immediateDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRefreshesStaleTopicsAndPrunes(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := mocks.NewMockFeedSource(ctrl)
	store := newStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	seed(t, store, "archive", draft("ancient", 60*24*time.Hour))
	require.NoError(t, store.MarkFetched(ctx, "cricket", now))

	source.EXPECT().Fetch(gomock.Any(), "technology").Return([]domain.ArticleDraft{draft("fresh", time.Hour)}, nil)

	news := NewNewsService(NewsDeps{
		Store:     store,
		Fetcher:   NewFetcher(FetcherDeps{Source: source, Store: store}),
		Freshness: NewFreshness(store, 15*time.Minute),
	})

	driver := &immediateDriver{at: now}
	s := NewScheduler(MaintenanceDeps{
		Driver:    driver,
		Store:     store,
		Refresher: news,
		Topics:    []string{"Technology", "Cricket"},
		Retention: 30 * 24 * time.Hour,
	})

	require.NoError(t, s.Start(ctx))
	assert.True(t, driver.started)

	fresh, err := store.ArticlesByTopic(ctx, "technology", 10)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)

	old, err := store.ArticlesByTopic(ctx, "archive", 10)
	require.NoError(t, err)
	assert.Empty(t, old)

	require.NoError(t, s.Stop(ctx))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriverIsNoop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(MaintenanceDeps{})
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerSharesRefreshWithReaders(t *testing.T) {
	t.Parallel()

	fx := newNewsFixture(t, 6)
	ctx := context.Background()

	fetching := make(chan struct{})
	release := make(chan struct{})
	fx.source.EXPECT().Fetch(gomock.Any(), "technology").DoAndReturn(
		func(context.Context, string) ([]domain.ArticleDraft, error) {
			close(fetching)
			<-release
			return []domain.ArticleDraft{draft("shared", time.Hour)}, nil
		}).Times(1)

	s := NewScheduler(MaintenanceDeps{Refresher: fx.service, Topics: []string{"Technology"}})

	var wg sync.WaitGroup
	wg.Add(2)
	var readErr error
	go func() {
		defer wg.Done()
		_, readErr = fx.service.GetNews(ctx, "technology", 1)
	}()
	<-fetching
	go func() {
		defer wg.Done()
		s.RunOnce(ctx, time.Now())
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, readErr)
	articles, err := fx.store.ArticlesByTopic(ctx, "technology", 10)
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}
