// Package store provides the bounded, append-only result collections used by
// the discovery engines.
//
// A Store has exactly one writer (the engine that owns it) and any number of
// concurrent readers. Readers observe a collection that only grows: entries
// are never removed or reordered, and Snapshot returns a copy that stays
// valid after further appends.
package store

import (
	"errors"
	"sync"
)

// ErrFull is returned when appending to a store that reached its capacity
var ErrFull = errors.New("result store is full")

// Store is an append-only collection with a fixed capacity and an optional
// uniqueness index for idempotent inserts.
type Store[T any] struct {
	mu       sync.RWMutex
	items    []T
	index    map[string]int
	capacity int
}

// New creates a store holding at most capacity items. A capacity <= 0 makes
// every insert fail with ErrFull.
func New[T any](capacity int) *Store[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Store[T]{
		items:    make([]T, 0, initialSize(capacity)),
		index:    make(map[string]int),
		capacity: capacity,
	}
}

// initialSize keeps large capacities from being allocated up front
func initialSize(capacity int) int {
	const maxPrealloc = 256
	if capacity > maxPrealloc {
		return maxPrealloc
	}
	return capacity
}

// Append adds v at the end of the store.
func (s *Store[T]) Append(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) >= s.capacity {
		return ErrFull
	}
	s.items = append(s.items, v)
	return nil
}

// InsertUnique appends v unless an item with the same key is already stored.
// It reports whether v was inserted.
func (s *Store[T]) InsertUnique(key string, v T) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[key]; exists {
		return false, nil
	}
	if len(s.items) >= s.capacity {
		return false, ErrFull
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, v)
	return true, nil
}

// Get returns the item stored under key by InsertUnique
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return s.items[i], true
}

// Len returns the number of stored items
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns a copy of the stored items in insertion order
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}
