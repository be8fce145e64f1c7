package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/metrics"
	"NewsSummarizer/internal/usecase"
)

type fakeNews struct {
	page     usecase.NewsPage
	err      error
	gotTopic string
	gotPage  int
	articles map[string]domain.Article
	retryErr error
}

func (f *fakeNews) GetNews(_ context.Context, topic string, page int) (usecase.NewsPage, error) {
	f.gotTopic, f.gotPage = topic, page
	return f.page, f.err
}

func (f *fakeNews) Article(_ context.Context, id string) (domain.Article, error) {
	a, ok := f.articles[id]
	if !ok {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	return a, nil
}

func (f *fakeNews) Retry(ctx context.Context, id string) (domain.Article, error) {
	if f.retryErr != nil {
		return domain.Article{}, f.retryErr
	}
	a, err := f.Article(ctx, id)
	if err != nil {
		return a, err
	}
	a.Status = domain.StatusPending
	return a, nil
}

func do(t *testing.T, deps Deps, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	e := New(deps)
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetNewsRendersArticles(t *testing.T) {
	t.Parallel()

	published := time.Date(2025, time.November, 8, 10, 0, 0, 0, time.UTC)
	news := &fakeNews{page: usecase.NewsPage{
		Topic: "technology",
		Page:  2,
		Articles: []domain.Article{
			{ID: "a1", Title: "Done", Link: "https://x/1", Source: "Wire", Status: domain.StatusDone, Summary: "Short summary.", PublishedAt: published},
			{ID: "a2", Title: "Waiting", Link: "https://x/2", Source: "Wire", Status: domain.StatusPending, PublishedAt: published},
			{ID: "a3", Title: "Broken", Link: "https://x/3", Source: "Wire", Status: domain.StatusError, Summary: "leftover", PublishedAt: published},
		},
		HasMore: true,
	}}

	rec := do(t, Deps{News: news}, http.MethodGet, "/get-news?q=Technology&page=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Technology", news.gotTopic)
	assert.Equal(t, 2, news.gotPage)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var body struct {
		Topic    string           `json:"topic"`
		Articles []map[string]any `json:"articles"`
		Page     int              `json:"page"`
		HasMore  bool             `json:"has_more"`
		Stale    bool             `json:"stale"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.HasMore)
	assert.False(t, body.Stale)
	require.Len(t, body.Articles, 3)
	assert.Equal(t, "Short summary.", body.Articles[0]["summary"])
	assert.Nil(t, body.Articles[1]["summary"])
	assert.Equal(t, "pending", body.Articles[1]["status"])
	assert.Nil(t, body.Articles[2]["summary"], "only done articles expose a summary")
	assert.Equal(t, "2025-11-08T10:00:00Z", body.Articles[0]["published_at"])
}

func TestGetNewsDefaultsAndBadPage(t *testing.T) {
	t.Parallel()

	news := &fakeNews{page: usecase.NewsPage{Topic: domain.TrendingTopic, Page: 1}}
	rec := do(t, Deps{News: news}, http.MethodGet, "/get-news")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", news.gotTopic)
	assert.Equal(t, 1, news.gotPage)
	assert.JSONEq(t, `{"topic":"__trending__","articles":[],"page":1,"has_more":false,"stale":false}`, rec.Body.String())

	rec = do(t, Deps{News: news}, http.MethodGet, "/get-news?page=two")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetNewsErrorMapping(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		code int
	}{
		"fetch failure without cache": {err: fmt.Errorf("%w: dns", domain.ErrFetch), code: http.StatusBadGateway},
		"store down":                  {err: fmt.Errorf("%w: locked", domain.ErrStoreUnavailable), code: http.StatusServiceUnavailable},
		"unexpected":                  {err: fmt.Errorf("boom"), code: http.StatusInternalServerError},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := do(t, Deps{News: &fakeNews{err: tc.err}}, http.MethodGet, "/get-news?q=x")
			assert.Equal(t, tc.code, rec.Code)
		})
	}

	rec := do(t, Deps{News: &fakeNews{err: domain.ErrFetch}}, http.MethodGet, "/get-news?q=x")
	assert.JSONEq(t, `{"articles":[],"error":"news source unavailable, try again later"}`, rec.Body.String())
}

func TestArticleAndRetryEndpoints(t *testing.T) {
	t.Parallel()

	news := &fakeNews{articles: map[string]domain.Article{
		"a1": {ID: "a1", Title: "Failed", Status: domain.StatusError},
	}}

	rec := do(t, Deps{News: news}, http.MethodGet, "/api/articles/a1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)

	rec = do(t, Deps{News: news}, http.MethodGet, "/api/articles/zz")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, Deps{News: news}, http.MethodPost, "/api/articles/a1/retry")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	news.retryErr = fmt.Errorf("retry: %w", domain.ErrInvalidTransition)
	rec = do(t, Deps{News: news}, http.MethodPost, "/api/articles/a1/retry")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	healthy := true
	deps := Deps{News: &fakeNews{}, Healthy: func() bool { return healthy }}

	rec := do(t, deps, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy = false
	rec = do(t, deps, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIndexAndMetrics(t *testing.T) {
	t.Parallel()

	deps := Deps{
		News:       &fakeNews{},
		Metrics:    metrics.New(),
		ModelLabel: "Ollama Gemma3n",
		Topics:     []string{"Technology", "Cricket"},
	}

	rec := do(t, deps, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Summaries by Ollama Gemma3n")
	assert.Contains(t, rec.Body.String(), `data-topic="Cricket"`)

	rec = do(t, deps, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
