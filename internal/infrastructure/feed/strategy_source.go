package feed

import (
	"context"
	"fmt"
	"log/slog"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/ports"
	"NewsSummarizer/internal/scanner"
)

// StrategySource implements FeedSource via a registered scanner strategy.
type StrategySource struct {
	registry *scanner.Registry
	scanner  string
	options  map[string]string
	limit    int
	logger   *slog.Logger
}

var _ ports.FeedSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with the configured strategy name.
func NewStrategySource(reg *scanner.Registry, name string, options map[string]string, limit int, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		scanner:  name,
		options:  options,
		limit:    limit,
		logger:   log,
	}
}

// Fetch runs the configured scanner for one topic.
func (s *StrategySource) Fetch(ctx context.Context, topic string) ([]domain.ArticleDraft, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	strategy, err := s.registry.Resolve(s.scanner)
	if err != nil {
		return nil, err
	}

	s.debug("fetch topic", "topic", topic, "scanner", s.scanner)
	drafts, err := strategy.Scan(ctx, scanner.Request{
		Topic:   topic,
		Limit:   s.limit,
		Options: s.options,
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.scanner, err)
	}

	s.debug("topic produced drafts", "topic", topic, "count", len(drafts))
	return drafts, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
