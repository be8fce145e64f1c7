package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsSummarizer/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	return config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "news.db")},
		Server:   config.ServerConfig{Addr: "127.0.0.1:0", PageSize: 6, ShutdownTimeout: time.Second},
		News: config.NewsConfig{
			TTL:          15 * time.Minute,
			FetchCount:   30,
			FetchTimeout: time.Second,
			Scanner:      "googlenews",
			Topics:       []string{"Technology"},
		},
		Worker: config.WorkerConfig{
			IdleInterval:     10 * time.Millisecond,
			SummarizeTimeout: time.Second,
			QueueCapacity:    8,
		},
		Summarizer: config.SummarizerConfig{Provider: config.ProviderHTTP, BaseURL: "http://127.0.0.1:1"},
	}
}

func TestApplicationRunsUntilCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := New(ctx, testConfig(t), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer func() { _ = application.Close() }()

	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("application did not shut down")
	}
}

func TestNewRejectsBadSummarizer(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Summarizer = config.SummarizerConfig{Provider: config.ProviderOpenAI, Model: "gpt-4o-mini"}

	_, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestHTTPServesWhileSummarizerWarmsUp(t *testing.T) {
	t.Parallel()

	warming := make(chan struct{}, 1)
	release := make(chan struct{})
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case warming <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":""},"done":true}`))
	}))
	defer ollama.Close()
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	defer unblock()

	cfg := testConfig(t)
	cfg.Summarizer = config.SummarizerConfig{Provider: config.ProviderOllama, BaseURL: ollama.URL, Model: "llama3"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := New(ctx, cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer func() { _ = application.Close() }()

	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	select {
	case <-warming:
	case <-time.After(5 * time.Second):
		t.Fatal("warm-up request never reached the model")
	}

	require.Eventually(t, func() bool {
		addr := application.server.ListenerAddr()
		if addr == nil {
			return false
		}
		resp, err := http.Get("http://" + addr.String() + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond, "health endpoint must answer during warm-up")

	unblock()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("application did not shut down")
	}
}
