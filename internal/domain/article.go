package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// TrendingTopic is the cache key used when a reader asks for top headlines.
const TrendingTopic = "__trending__"

// Status is the summarization state of a cached article.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusError:
		return true
	default:
		return false
	}
}

// ArticleDraft is an entry parsed from a feed source before it is stored.
type ArticleDraft struct {
	Title       string
	Link        string
	GUID        string
	Source      string
	ImageURL    string
	Snippet     string
	PublishedAt time.Time
}

// Identity derives the stable article ID from the GUID, falling back to the link.
func (d ArticleDraft) Identity() string {
	key := strings.TrimSpace(d.GUID)
	if key == "" {
		key = strings.TrimSpace(d.Link)
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}

// Article is a cached news entry together with its summary state.
type Article struct {
	ID          string
	Topic       string
	Title       string
	Link        string
	Source      string
	ImageURL    string
	Content     string
	PublishedAt time.Time
	Status      Status
	Summary     string
	FetchedAt   time.Time
	UpdatedAt   time.Time
}

// TopicFetchRecord remembers when a topic was last pulled from the feed source.
type TopicFetchRecord struct {
	Topic         string
	LastFetchedAt time.Time
}

// NormalizeTopic folds case and whitespace so equivalent queries share one cache key.
func NormalizeTopic(raw string) string {
	topic := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if topic == "" {
		return TrendingTopic
	}
	return topic
}
