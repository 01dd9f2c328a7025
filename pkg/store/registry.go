package store

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds stores looked up by a stable key. Each key owns exactly
// one store for the lifetime of the registry.
type Registry struct {
	mu     sync.Mutex
	stores map[string]any
	opts   []Option
}

// NewRegistry creates an empty registry. opts apply to every store it
// creates; WithName is always set to the key.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		stores: make(map[string]any),
		opts:   opts,
	}
}

// Lookup returns the store registered under key, creating and initializing
// it with init on first use. It panics if key was registered with a
// different value type.
func Lookup[T any](r *Registry, key string, init Init[T]) *Store[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.stores[key]; ok {
		s, ok := existing.(*Store[T])
		if !ok {
			panic(fmt.Sprintf("store: key %q holds %T, not *Store[%T]", key, existing, *new(T)))
		}
		return s
	}

	opts := append(append([]Option(nil), r.opts...), WithName(key))
	s := New[T](opts...)
	s.InitIfNeeded(init)
	r.stores[key] = s
	return s
}

// Get returns the store registered under key, if any.
func Get[T any](r *Registry, key string) (*Store[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[key].(*Store[T])
	return s, ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.stores))
	for k := range r.stores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type disposer interface {
	Dispose()
}

// Dispose disposes every store and empties the registry.
func (r *Registry) Dispose() {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]any)
	r.mu.Unlock()

	for _, s := range stores {
		if d, ok := s.(disposer); ok {
			d.Dispose()
		}
	}
}
