package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"NewsSummarizer/internal/ports"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint for Gemini models.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// ChatClient implements ports.Summarizer on top of any OpenAI-compatible chat completions API.
type ChatClient struct {
	name         string
	model        string
	systemPrompt string
	client       openai.Client
}

var _ ports.Summarizer = (*ChatClient)(nil)

// NewChatClient builds a chat completions client. name only labels errors.
func NewChatClient(name, apiKey, baseURL, model, systemPrompt string) (*ChatClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: api key missing", name)
	}
	if model == "" {
		return nil, errors.New(name + ": model is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &ChatClient{
		name:         name,
		model:        model,
		systemPrompt: safePrompt(systemPrompt),
		client:       openai.NewClient(opts...),
	}, nil
}

// Summarize asks the model for a short summary of one article.
func (c *ChatClient) Summarize(ctx context.Context, title, content string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage(userMessage(title, content)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices", c.name)
	}
	return cleanSummary(c.name, resp.Choices[0].Message.Content)
}
