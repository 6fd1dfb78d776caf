package testutil

import (
	"context"
	"sync"

	ierr "github.com/flexprice/recharge-sync/internal/errors"
)

// InMemoryStore is a generic, concurrency safe map backed store used by the
// in-memory repositories
type InMemoryStore[K comparable, T any] struct {
	mu    sync.RWMutex
	items map[K]T
}

// NewInMemoryStore creates a new empty store
func NewInMemoryStore[K comparable, T any]() *InMemoryStore[K, T] {
	return &InMemoryStore[K, T]{
		items: make(map[K]T),
	}
}

// Create adds a new item and fails if the key is taken
func (s *InMemoryStore[K, T]) Create(_ context.Context, key K, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[key]; exists {
		return ierr.NewError("item already exists").
			WithHintf("Item with key %v already exists", key).
			Mark(ierr.ErrAlreadyExists)
	}

	s.items[key] = item
	return nil
}

// Get returns the item stored under key
func (s *InMemoryStore[K, T]) Get(_ context.Context, key K) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[key]
	if !exists {
		var zero T
		return zero, ierr.NewError("item not found").
			WithHintf("Item with key %v not found", key).
			Mark(ierr.ErrNotFound)
	}
	return item, nil
}

// PutAll stores every item under its key in one critical section, replacing
// existing values. Later entries win over earlier ones with the same key.
func (s *InMemoryStore[K, T]) PutAll(_ context.Context, keyFn func(T) K, items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		s.items[keyFn(item)] = item
	}
}

// List returns every item accepted by filterFn. A nil filterFn accepts all.
func (s *InMemoryStore[K, T]) List(_ context.Context, filterFn func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if filterFn == nil || filterFn(item) {
			result = append(result, item)
		}
	}
	return result
}

// Count returns the number of stored items
func (s *InMemoryStore[K, T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Clear removes all items
func (s *InMemoryStore[K, T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[K]T)
}
