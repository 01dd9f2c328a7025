package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/vango-dev/hookstore/internal/errors"
)

// Listener is notified after every successful mutation of a store. It takes
// no arguments; call Snapshot to read the new value.
type Listener func()

// UninitializedPolicy decides what an updater sees when the store has never
// been initialized.
type UninitializedPolicy uint8

const (
	// AllowUninitialized passes the zero value of T to the updater.
	AllowUninitialized UninitializedPolicy = iota

	// RejectUninitialized panics with error E031.
	RejectUninitialized
)

// Observer receives store events. Implementations must not call back into
// the store.
type Observer interface {
	StoreInitialized(name string)
	StoreSet(name string, listeners int, skipped bool)
}

type listenerEntry struct {
	id      uint64
	fn      Listener
	removed bool
}

// Store holds one value and the listeners interested in it.
// It is safe for concurrent use; listeners run on the goroutine that called
// SetState, after the store's lock has been released.
type Store[T any] struct {
	mu sync.Mutex

	// initMu serializes Lazy factories, which run without mu held.
	initMu sync.Mutex

	value       T
	initialized bool
	disposed    bool

	listeners []*listenerEntry
	nextID    uint64

	// equal gates notification when set; nil means always notify.
	equal func(T, T) bool

	name     string
	policy   UninitializedPolicy
	logger   *slog.Logger
	observer Observer
}

// New creates an uninitialized store.
func New[T any](opts ...Option) *Store[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		name:     o.name,
		policy:   o.policy,
		logger:   o.logger,
		observer: o.observer,
	}
}

// NewWithValue creates a store already initialized with v.
func NewWithValue[T any](v T, opts ...Option) *Store[T] {
	s := New[T](opts...)
	s.InitIfNeeded(Value(v))
	return s
}

// WithEquals configures an equality function. When set, a SetState whose
// result equals the previous value still stores the result but does not
// notify listeners.
func (s *Store[T]) WithEquals(fn func(a, b T) bool) *Store[T] {
	s.mu.Lock()
	s.equal = fn
	s.mu.Unlock()
	return s
}

// Name returns the store's name, used in logs and metrics.
func (s *Store[T]) Name() string {
	return s.name
}

// InitIfNeeded stores init's value if the store has never held a value and
// returns the current value. A Lazy factory runs at most once per store,
// without the store's lock held, so it may read the store. If the factory
// panics the store stays uninitialized.
// Initialization does not notify listeners.
func (s *Store[T]) InitIfNeeded(init Init[T]) T {
	if v, ok := s.current(); ok {
		return v
	}

	s.initMu.Lock()
	defer s.initMu.Unlock()

	if v, ok := s.current(); ok {
		return v
	}

	resolved := init.resolve()

	s.mu.Lock()
	if s.initialized {
		// A SetState won the race while the factory ran.
		v := s.value
		s.mu.Unlock()
		return v
	}
	s.value = resolved
	s.initialized = true
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.StoreInitialized(s.name)
	}
	return resolved
}

func (s *Store[T]) current() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.initialized
}

// Initialized reports whether the store holds a value.
func (s *Store[T]) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Snapshot returns the current value. It has no side effects; repeated
// calls return the same value until the next mutation.
func (s *Store[T]) Snapshot() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// SetState applies next, then calls every subscribed listener in
// subscription order and returns the new value.
//
// A panicking updater leaves the value unchanged. A panicking listener
// propagates to the caller after the value has been assigned; listeners
// after it are not called.
func (s *Store[T]) SetState(next Next[T]) T {
	s.mu.Lock()
	if !s.initialized && next.IsUpdater() && s.policy == RejectUninitialized {
		s.mu.Unlock()
		panic(errors.New("E031").
			WithDetail(fmt.Sprintf("store %q has no value yet; call InitIfNeeded first", s.name)).
			WithCaller(1))
	}

	prev := s.value
	var newValue T
	func() {
		// Unlock if the updater panics.
		ok := false
		defer func() {
			if !ok {
				s.mu.Unlock()
			}
		}()
		newValue = next.apply(prev)
		ok = true
	}()

	skipped := s.initialized && s.equal != nil && s.equal(prev, newValue)
	s.value = newValue
	s.initialized = true

	var subs []*listenerEntry
	if !skipped {
		subs = make([]*listenerEntry, len(s.listeners))
		copy(subs, s.listeners)
	}
	count := len(s.listeners)
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.StoreSet(s.name, count, skipped)
	}
	if skipped {
		s.logger.Debug("store value unchanged, skipping notify", "store", s.name)
		return newValue
	}

	for _, l := range subs {
		if s.isRemoved(l) {
			continue
		}
		l.fn()
	}

	return newValue
}

// Set is shorthand for SetState(Set(v)).
func (s *Store[T]) Set(v T) T {
	return s.SetState(Set(v))
}

// Update is shorthand for SetState(Update(fn)).
func (s *Store[T]) Update(fn func(prev T) T) T {
	return s.SetState(Update(fn))
}

// Subscribe registers l and returns a function that removes exactly this
// registration. The returned function is safe to call more than once.
//
// Listeners added while a notification is in flight are first called on
// the next change. Listeners removed while a notification is in flight are
// not called if they have not been reached yet.
func (s *Store[T]) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		s.logger.Debug("subscribe on disposed store ignored", "store", s.name)
		return func() {}
	}

	s.nextID++
	entry := &listenerEntry{id: s.nextID, fn: l}
	s.listeners = append(s.listeners, entry)

	return func() {
		s.unsubscribe(entry.id)
	}
}

func (s *Store[T]) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.listeners {
		if existing.id == id {
			existing.removed = true
			// Preserve subscription order.
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Store[T]) isRemoved(l *listenerEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return l.removed
}

// Len returns the number of subscribed listeners.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Dispose removes every listener. The value stays readable; later
// subscriptions are ignored.
func (s *Store[T]) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	s.disposed = true
	for _, l := range s.listeners {
		l.removed = true
	}
	s.listeners = nil
}

// IsDisposed reports whether Dispose has been called.
func (s *Store[T]) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
