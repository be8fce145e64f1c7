// Package queue holds the in-memory priority hints for articles readers are looking at.
package queue

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity bounds the number of hints kept when no capacity is configured.
const DefaultCapacity = 256

// Priority is a bounded FIFO set of article IDs. It is only a hint: entries may be lost
// or stale, and consumers must re-check the article status in the store.
type Priority struct {
	entries  *lru.Cache[string, struct{}]
	capacity int
}

// NewPriority builds a queue that evicts its oldest hint once capacity is reached.
func NewPriority(capacity int) (*Priority, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, fmt.Errorf("priority queue: %w", err)
	}
	return &Priority{entries: entries, capacity: capacity}, nil
}

// Push adds the ID unless it is already queued. It reports whether the ID was new.
// Re-pushing does not move an entry forward.
func (p *Priority) Push(id string) bool {
	if id == "" {
		return false
	}
	present, _ := p.entries.ContainsOrAdd(id, struct{}{})
	return !present
}

// PopIfAny removes and returns the oldest queued ID.
func (p *Priority) PopIfAny() (string, bool) {
	id, _, ok := p.entries.RemoveOldest()
	return id, ok
}

// Remove drops an ID, e.g. once the article no longer needs work.
func (p *Priority) Remove(id string) {
	p.entries.Remove(id)
}

// Len returns the number of queued IDs.
func (p *Priority) Len() int {
	return p.entries.Len()
}

// Capacity returns the maximum number of queued IDs.
func (p *Priority) Capacity() int {
	return p.capacity
}
