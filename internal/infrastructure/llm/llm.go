package llm

import (
	"context"
	"fmt"

	"NewsSummarizer/internal/config"
	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/ports"
)

// New selects the summarizer backend named by cfg.Provider. The returned value also
// implements ports.Warmer when the backend supports it.
func New(cfg config.SummarizerConfig) (ports.Summarizer, error) {
	var (
		inner ports.Summarizer
		err   error
	)

	switch cfg.Provider {
	case config.ProviderOllama:
		inner = NewOllamaClient(cfg.BaseURL, cfg.Model, cfg.SystemPrompt)
	case config.ProviderOpenAI:
		inner, err = NewChatClient("openai", cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.SystemPrompt)
	case config.ProviderGoogle:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = GeminiBaseURL
		}
		inner, err = NewChatClient("google", cfg.APIKey, baseURL, cfg.Model, cfg.SystemPrompt)
	case config.ProviderHTTP:
		inner = NewHTTPClient(cfg.BaseURL, cfg.APIKey)
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if w, ok := inner.(ports.Warmer); ok {
		return warmingSummarizer{summarizer{inner}, w}, nil
	}
	return summarizer{inner}, nil
}

// summarizer tags every backend failure with domain.ErrSummarize.
type summarizer struct {
	inner ports.Summarizer
}

func (s summarizer) Summarize(ctx context.Context, title, content string) (string, error) {
	out, err := s.inner.Summarize(ctx, title, content)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSummarize, err)
	}
	return out, nil
}

type warmingSummarizer struct {
	summarizer
	warmer ports.Warmer
}

func (s warmingSummarizer) Warm(ctx context.Context) error {
	return s.warmer.Warm(ctx)
}
