package usecase

import (
	"context"
	"time"
)

// DefaultTTL is how long a topic fetch stays fresh.
const DefaultTTL = 15 * time.Minute

type fetchRecords interface {
	LastFetched(ctx context.Context, topic string) (time.Time, bool, error)
	MarkFetched(ctx context.Context, topic string, at time.Time) error
}

// Freshness decides whether a topic must be refetched from the feed source.
type Freshness struct {
	records fetchRecords
	ttl     time.Duration
	now     func() time.Time
}

// NewFreshness builds a tracker; a non-positive ttl falls back to DefaultTTL.
func NewFreshness(records fetchRecords, ttl time.Duration) *Freshness {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Freshness{records: records, ttl: ttl, now: time.Now}
}

// IsStale reports true when the topic was never fetched or its last fetch is older than the TTL.
func (f *Freshness) IsStale(ctx context.Context, topic string) (bool, error) {
	last, ok, err := f.records.LastFetched(ctx, topic)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return f.now().Sub(last) > f.ttl, nil
}

// MarkFetched records a successful fetch at the current time.
func (f *Freshness) MarkFetched(ctx context.Context, topic string) error {
	return f.records.MarkFetched(ctx, topic, f.now())
}

// TTL returns the configured freshness window.
func (f *Freshness) TTL() time.Duration {
	return f.ttl
}
