package domain

import "errors"

var (
	// ErrFetch marks feed source failures (network, status, malformed payload).
	ErrFetch = errors.New("feed fetch failed")
	// ErrSummarize marks summarizer failures, timeouts and empty output.
	ErrSummarize = errors.New("summarize failed")
	// ErrStoreUnavailable wraps every durable storage failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrArticleNotFound is returned for lookups of unknown article IDs.
	ErrArticleNotFound = errors.New("article not found")
	// ErrInvalidTransition is returned when a status change is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)
