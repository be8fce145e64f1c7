package usecase

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/infrastructure/storage"
	"NewsSummarizer/internal/queue"
)

func newStore(t *testing.T) *storage.SQLStore {
	t.Helper()

	store, err := storage.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "news.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newQueue(t *testing.T) *queue.Priority {
	t.Helper()

	q, err := queue.NewPriority(16)
	require.NoError(t, err)
	return q
}

func draft(title string, age time.Duration) domain.ArticleDraft {
	return domain.ArticleDraft{
		Title:       title,
		Link:        "https://news.example.com/" + title,
		Source:      "Example Wire",
		Snippet:     "Body of " + title,
		PublishedAt: time.Now().UTC().Add(-age),
	}
}

// seed stores the drafts under topic and returns their IDs in input order.
func seed(t *testing.T, store *storage.SQLStore, topic string, drafts ...domain.ArticleDraft) []string {
	t.Helper()

	_, err := store.UpsertArticles(context.Background(), topic, drafts)
	require.NoError(t, err)

	ids := make([]string, len(drafts))
	for i, d := range drafts {
		ids[i] = d.Identity()
	}
	return ids
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}
