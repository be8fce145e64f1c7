package llm

import (
	"fmt"
	"strings"
)

const (
	defaultSystemPrompt = "You are an expert news analyst. Summarize the following news article " +
		"in 2-3 concise, insightful sentences."
	noContent = "No content available."
)

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}

// userMessage renders the article part of the prompt.
func userMessage(title, content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		content = noContent
	}
	return fmt.Sprintf("Title: %s\nContent: %s", strings.TrimSpace(title), content)
}

// cleanSummary trims model output; blank output is treated as a failed call.
func cleanSummary(provider, raw string) (string, error) {
	summary := strings.TrimSpace(raw)
	if summary == "" {
		return "", fmt.Errorf("%s returned an empty summary", provider)
	}
	return summary, nil
}
