package store

// Init is an initial value: either a plain value or a lazily evaluated
// factory. Build one with Value or Lazy.
type Init[T any] struct {
	value T
	fn    func() T
}

// Value returns an Init holding v.
func Value[T any](v T) Init[T] {
	return Init[T]{value: v}
}

// Lazy returns an Init whose value is produced by fn the first time the
// store is initialized. fn is never called if the store already holds a
// value.
func Lazy[T any](fn func() T) Init[T] {
	return Init[T]{fn: fn}
}

func (i Init[T]) resolve() T {
	if i.fn != nil {
		return i.fn()
	}
	return i.value
}

// Next describes a state transition: either a replacement value or an
// updater applied to the previous value. Build one with Set or Update.
type Next[T any] struct {
	value T
	fn    func(prev T) T
}

// Set returns a Next that replaces the current value with v.
func Set[T any](v T) Next[T] {
	return Next[T]{value: v}
}

// Update returns a Next that computes the new value from the previous one.
func Update[T any](fn func(prev T) T) Next[T] {
	return Next[T]{fn: fn}
}

// IsUpdater reports whether n was built with Update.
func (n Next[T]) IsUpdater() bool {
	return n.fn != nil
}

func (n Next[T]) apply(prev T) T {
	if n.fn != nil {
		return n.fn(prev)
	}
	return n.value
}
