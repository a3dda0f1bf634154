package store

import "sync"

// Bounded is an append-only sequence capped at a fixed capacity. Appending
// past the cap evicts the oldest entries; survivors keep their insertion
// order. A single mutex guards the append-plus-truncate step so readers
// never observe a partially applied write.
type Bounded[T any] struct {
	mu       sync.Mutex
	capacity int
	items    []T
}

// NewBounded creates a store holding at most capacity entries.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bounded[T]{capacity: capacity}
}

// Append stores an item, evicting oldest entries if the cap is exceeded,
// and returns the store length after eviction. Appends never fail.
func (s *Bounded[T]) Append(item T) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, item)
	if len(s.items) > s.capacity {
		// Copy into a fresh slice so evicted entries become collectable.
		drop := len(s.items) - s.capacity
		kept := make([]T, s.capacity)
		copy(kept, s.items[drop:])
		s.items = kept
	}
	return len(s.items)
}

// Len reports the current number of stored entries.
func (s *Bounded[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Capacity reports the configured maximum size.
func (s *Bounded[T]) Capacity() int {
	return s.capacity
}

// Snapshot returns a copy of the contents in insertion order.
func (s *Bounded[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}

// Select returns copies of the entries matching keep, in insertion order.
// An unknown filter simply yields an empty result, never an error.
func (s *Bounded[T]) Select(keep func(T) bool) []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]T, 0)
	for _, item := range s.items {
		if keep(item) {
			matched = append(matched, item)
		}
	}
	return matched
}

// Range calls fn for every entry in insertion order while holding the lock.
// fn must not call back into the store.
func (s *Bounded[T]) Range(fn func(T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		fn(item)
	}
}
