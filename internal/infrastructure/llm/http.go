package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"NewsSummarizer/internal/ports"
)

// HTTPClient talks to an external summarization service over plain JSON.
type HTTPClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Summarizer = (*HTTPClient)(nil)

// NewHTTPClient creates a reusable HTTP client.
func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 2 * time.Minute},
	}
}

// Summarize posts the article and reads back {"summary": "..."}.
func (c *HTTPClient) Summarize(ctx context.Context, title, content string) (string, error) {
	payload := map[string]any{
		"title":   title,
		"content": content,
	}

	var resp struct {
		Summary string `json:"summary"`
	}

	if err := c.post(ctx, "/summarize", payload, &resp); err != nil {
		return "", err
	}

	return cleanSummary("summarizer service", resp.Summary)
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
