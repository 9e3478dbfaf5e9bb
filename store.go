package loom

import (
	"context"
	"fmt"
	"sync"
)

// StoreReader provides read-only access to the store.
// Used in the Prep step to enforce read-only semantics.
type StoreReader interface {
	// Get retrieves a value by key.
	Get(ctx context.Context, key string) (value any, exists bool)

	// Scope returns a new store view with the given prefix.
	Scope(prefix string) Store
}

// StoreWriter provides full read-write access to the store.
// Used in the Post step for state mutations.
type StoreWriter interface {
	Store
}

// Store is the shared blackboard passed by reference to every node in a run.
// Exactly one instance exists per run; nodes communicate solely through it.
type Store interface {
	// Get retrieves a value by key.
	Get(ctx context.Context, key string) (value any, exists bool)

	// Set stores a value with the given key. Writes to an existing key
	// overwrite it: last write wins.
	Set(ctx context.Context, key string, value any) error

	// Delete removes a key from the store.
	Delete(ctx context.Context, key string) error

	// Scope returns a new store view with the given prefix.
	Scope(prefix string) Store

	// Keys returns the keys currently present, useful for inspecting the
	// store after a partial failure.
	Keys(ctx context.Context) []string
}

// store is the internal implementation with a mutex.
type store struct {
	mu     *sync.RWMutex
	data   map[string]any
	prefix string
}

// NewStore creates a new thread-safe store.
func NewStore() Store {
	return &store{
		mu:   &sync.RWMutex{},
		data: make(map[string]any),
	}
}

// Get retrieves a value by key.
func (s *store) Get(ctx context.Context, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, exists := s.data[s.prefix+key]
	return val, exists
}

// Set stores a value with the given key.
func (s *store) Set(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[s.prefix+key] = value
	return nil
}

// Delete removes a key from the store.
func (s *store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, s.prefix+key)
	return nil
}

// Scope returns a view over the same underlying data with a key prefix.
// Scoped views share the parent's mutex, so writes through any view are
// serialized.
func (s *store) Scope(prefix string) Store {
	return &store{
		mu:     s.mu,
		data:   s.data, // shared data
		prefix: s.prefix + prefix + ":",
	}
}

// Keys returns the keys visible through this view, with the view's prefix
// stripped.
func (s *store) Keys(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if len(k) >= len(s.prefix) && k[:len(s.prefix)] == s.prefix {
			keys = append(keys, k[len(s.prefix):])
		}
	}
	return keys
}

// TypedStore provides type-safe storage operations over a closed set of value
// types, catching blackboard key misuse at the call site instead of deep in a
// downstream node.
type TypedStore[T any] interface {
	Get(ctx context.Context, key string) (T, bool, error)
	Set(ctx context.Context, key string, value T) error
	Delete(ctx context.Context, key string) error
}

// NewTypedStore creates a type-safe wrapper around a Store.
func NewTypedStore[T any](store Store) TypedStore[T] {
	return &typedStore[T]{store: store}
}

type typedStore[T any] struct {
	store Store
}

func (t *typedStore[T]) Get(ctx context.Context, key string) (value T, exists bool, err error) {
	var zero T
	val, ok := t.store.Get(ctx, key)
	if !ok {
		return zero, false, nil
	}

	typed, ok := val.(T)
	if !ok {
		return zero, false, fmt.Errorf("type mismatch for key %q: expected %T, got %T", key, zero, val)
	}

	return typed, true, nil
}

func (t *typedStore[T]) Set(ctx context.Context, key string, value T) error {
	return t.store.Set(ctx, key, value)
}

func (t *typedStore[T]) Delete(ctx context.Context, key string) error {
	return t.store.Delete(ctx, key)
}
