package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/scanner"
)

const (
	googleNewsBaseURL = "https://news.google.com/rss"
	maxSnippetRunes   = 500
	userAgent         = "NewsSummarizer/1.0"
)

// URLBuilder resolves the feed URL for a topic request.
type URLBuilder func(req scanner.Request) (string, error)

// RSSScanner downloads an RSS/Atom feed and converts its items into drafts.
type RSSScanner struct {
	name     string
	client   *http.Client
	buildURL URLBuilder
	now      func() time.Time
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewGoogleNewsScanner builds the scanner for Google News search and headline feeds.
func NewGoogleNewsScanner(client *http.Client) *RSSScanner {
	return newRSSScanner("googlenews", client, googleNewsURL)
}

// NewTemplateScanner builds a scanner for any feed whose URL contains a {topic} placeholder
// (options "url" and, for top headlines, "trendingUrl").
func NewTemplateScanner(client *http.Client) *RSSScanner {
	return newRSSScanner("rss", client, templateURL)
}

func newRSSScanner(name string, client *http.Client, build URLBuilder) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSScanner{name: name, client: client, buildURL: build, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return s.name
}

// Scan fetches the topic feed and returns at most req.Limit drafts with unique identities.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.ArticleDraft, error) {
	feedURL, err := s.buildURL(req)
	if err != nil {
		return nil, fmt.Errorf("topic %s: %w", req.Topic, err)
	}

	parsed, err := s.fetchFeed(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("topic %s: %w", req.Topic, err)
	}

	drafts := make([]domain.ArticleDraft, 0, len(parsed.Items))
	seen := map[string]struct{}{}
	for _, item := range parsed.Items {
		if req.Limit > 0 && len(drafts) >= req.Limit {
			break
		}
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}

		draft := s.toDraft(item)
		id := draft.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		drafts = append(drafts, draft)
	}

	return drafts, nil
}

func (s *RSSScanner) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return parsed, nil
}

func (s *RSSScanner) toDraft(item *gofeed.Item) domain.ArticleDraft {
	published := s.now().UTC()
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC()
	}

	description := item.Description
	if description == "" {
		description = item.Content
	}
	snippet, source := cleanDescription(description)

	title := strings.TrimSpace(item.Title)
	if source == "" {
		if i := strings.LastIndex(title, " - "); i > 0 {
			source = strings.TrimSpace(title[i+3:])
		}
	}
	if source == "" {
		source = "Unknown Source"
	}

	return domain.ArticleDraft{
		Title:       title,
		Link:        strings.TrimSpace(item.Link),
		GUID:        strings.TrimSpace(item.GUID),
		Source:      source,
		ImageURL:    imageURL(item),
		Snippet:     truncate(snippet, maxSnippetRunes),
		PublishedAt: published,
	}
}

// cleanDescription turns an HTML description into plain text. Google News appends the
// publisher inside a <font> element; it is returned separately.
func cleanDescription(raw string) (string, string) {
	if strings.TrimSpace(raw) == "" {
		return "", ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.Join(strings.Fields(raw), " "), ""
	}

	fonts := doc.Find("font")
	source := strings.TrimSpace(fonts.Last().Text())
	fonts.Remove()

	return strings.Join(strings.Fields(doc.Text()), " "), source
}

func imageURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, content := range item.Extensions["media"]["content"] {
		if u := content.Attrs["url"]; u != "" {
			return u
		}
	}
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") {
			return enclosure.URL
		}
	}
	return ""
}

func googleNewsURL(req scanner.Request) (string, error) {
	base := googleNewsBaseURL
	if v := req.Options["baseUrl"]; v != "" {
		base = strings.TrimSuffix(v, "/")
	}

	query := url.Values{}
	for _, key := range []string{"hl", "gl", "ceid"} {
		if v := req.Options[key]; v != "" {
			query.Set(key, v)
		}
	}

	if req.Topic == domain.TrendingTopic {
		return base + "?" + query.Encode(), nil
	}
	query.Set("q", req.Topic)
	return base + "/search?" + query.Encode(), nil
}

func templateURL(req scanner.Request) (string, error) {
	tmpl := req.Options["url"]
	if req.Topic == domain.TrendingTopic && req.Options["trendingUrl"] != "" {
		return req.Options["trendingUrl"], nil
	}
	if tmpl == "" {
		return "", fmt.Errorf("rss scanner requires a url option")
	}

	topic := req.Topic
	if topic == domain.TrendingTopic {
		topic = ""
	}
	resolved := strings.ReplaceAll(tmpl, "{topic}", url.QueryEscape(topic))
	if _, err := url.Parse(resolved); err != nil {
		return "", fmt.Errorf("invalid feed url %s: %w", resolved, err)
	}
	return resolved, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
