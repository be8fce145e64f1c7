package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"NewsSummarizer/internal/ports"
)

// Recover runs once before anything else starts. Articles left in_progress by a previous
// process go back to pending. A store failure here aborts startup.
func Recover(ctx context.Context, store ports.ArticleStore, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	reset, err := store.ResetStuckInProgress(ctx)
	if err != nil {
		return fmt.Errorf("reset stuck articles: %w", err)
	}
	if reset > 0 {
		logger.Info("requeued interrupted articles", "count", reset)
	}
	return nil
}

// WarmUp loads the summarizer model when the backend supports it. It runs before the
// worker's first claim; failures are logged and the worker starts anyway.
func WarmUp(ctx context.Context, summarizer ports.Summarizer, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	warmer, ok := summarizer.(ports.Warmer)
	if !ok {
		return
	}
	logger.Info("warming up summarizer")
	if err := warmer.Warm(ctx); err != nil {
		logger.Warn("summarizer warm-up failed", "error", err)
		return
	}
	logger.Info("summarizer ready")
}
