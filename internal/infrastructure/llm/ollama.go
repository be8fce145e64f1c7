package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsSummarizer/internal/ports"
)

const defaultOllamaURL = "http://localhost:11434"

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model     string          `json:"model"`
	Messages  []ollamaMessage `json:"messages"`
	Stream    bool            `json:"stream"`
	KeepAlive string          `json:"keep_alive,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// OllamaClient summarizes through a local Ollama server's chat endpoint.
type OllamaClient struct {
	baseURL      string
	model        string
	systemPrompt string
	keepAlive    string
	httpClient   *http.Client
}

var (
	_ ports.Summarizer = (*OllamaClient)(nil)
	_ ports.Warmer     = (*OllamaClient)(nil)
)

// NewOllamaClient builds a client for baseURL (defaults to localhost:11434).
func NewOllamaClient(baseURL, model, systemPrompt string) *OllamaClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &OllamaClient{
		baseURL:      baseURL,
		model:        model,
		systemPrompt: safePrompt(systemPrompt),
		keepAlive:    "30m",
		httpClient:   &http.Client{Timeout: 5 * time.Minute},
	}
}

// Summarize sends one non-streaming chat request and returns the assistant reply.
func (c *OllamaClient) Summarize(ctx context.Context, title, content string) (string, error) {
	resp, err := c.chat(ctx, []ollamaMessage{
		{Role: "system", Content: c.systemPrompt},
		{Role: "user", Content: userMessage(title, content)},
	})
	if err != nil {
		return "", err
	}
	return cleanSummary("ollama", resp.Message.Content)
}

// Warm loads the model into memory. An empty message list makes Ollama load the
// model without generating anything.
func (c *OllamaClient) Warm(ctx context.Context) error {
	if _, err := c.chat(ctx, []ollamaMessage{}); err != nil {
		return fmt.Errorf("warm %s: %w", c.model, err)
	}
	return nil
}

func (c *OllamaClient) chat(ctx context.Context, messages []ollamaMessage) (ollamaChatResponse, error) {
	payload, err := json.Marshal(ollamaChatRequest{
		Model:     c.model,
		Messages:  messages,
		Stream:    false,
		KeepAlive: c.keepAlive,
	})
	if err != nil {
		return ollamaChatResponse{}, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return ollamaChatResponse{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ollamaChatResponse{}, fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return ollamaChatResponse{}, fmt.Errorf("ollama error %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ollamaChatResponse{}, fmt.Errorf("decode ollama response: %w", err)
	}
	return out, nil
}
