package opt

import "sync"

// History is an append-only, concurrency-safe log. Entries are never
// modified or removed once appended.
type History[T any] struct {
	mu      sync.Mutex
	entries []T
}

func NewHistory[T any]() *History[T] { return &History[T]{} }

func (h *History[T]) Append(v T) {
	h.mu.Lock()
	h.entries = append(h.entries, v)
	h.mu.Unlock()
}

// List returns a copy of every entry, oldest first.
func (h *History[T]) List() []T {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]T, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
