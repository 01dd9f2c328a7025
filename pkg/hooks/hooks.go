package hooks

import (
	"fmt"

	"github.com/vango-dev/hookstore/internal/errors"
	"github.com/vango-dev/hookstore/pkg/effect"
	"github.com/vango-dev/hookstore/pkg/store"
)

// Ref is a mutable cell that persists across renders without triggering
// them.
type Ref[T any] struct {
	Current T
}

// UseRef returns the same *Ref on every render of this call site.
func UseRef[T any](o *Owner, initial T) *Ref[T] {
	slot := o.useSlot(HookRef)
	if slot != nil {
		return mustSlot[*Ref[T]](o, slot, HookRef)
	}
	ref := &Ref[T]{Current: initial}
	o.setSlot(ref)
	return ref
}

// UseStore returns the store owned by this call site, creating and
// initializing it on the first render. The owner re-renders whenever the
// store changes and disposes it on unmount.
func UseStore[T any](o *Owner, init store.Init[T]) *store.Store[T] {
	slot := o.useSlot(HookState)
	if slot != nil {
		return mustSlot[*store.Store[T]](o, slot, HookState)
	}

	opts := []store.Option{store.WithLogger(o.root.opts.logger)}
	opts = append(opts, o.root.opts.storeOpts...)
	opts = append(opts, store.WithName(o.slotName()))

	s := store.New[T](opts...)
	s.InitIfNeeded(init)
	unsubscribe := s.Subscribe(o.invalidate)
	o.OnCleanup(func() {
		unsubscribe()
		s.Dispose()
	})

	o.setSlot(s)
	return s
}

// UseState returns the current value of this call site's store and its
// setter. Each component instance and each call site gets its own store.
func UseState[T any](o *Owner, init store.Init[T]) (T, func(store.Next[T]) T) {
	s := UseStore(o, init)
	return s.Snapshot(), s.SetState
}

// UseGlobalState subscribes the component to s, a store shared by every
// caller. The first caller's init wins; later inits are no-ops. Unmounting
// removes the subscription but leaves s alive.
func UseGlobalState[T any](o *Owner, s *store.Store[T], init store.Init[T]) (T, func(store.Next[T]) T) {
	slot := o.useSlot(HookGlobalState)
	if slot != nil {
		if held := mustSlot[*store.Store[T]](o, slot, HookGlobalState); held != s {
			panic(errors.New("E002").
				WithDetail(fmt.Sprintf("component %q: UseGlobalState switched stores between renders", o.name)))
		}
		return s.Snapshot(), s.SetState
	}

	s.InitIfNeeded(init)
	unsubscribe := s.Subscribe(o.invalidate)
	o.OnCleanup(unsubscribe)

	o.setSlot(s)
	return s.Snapshot(), s.SetState
}

// UseEffect schedules fn to run after this render if deps changed since the
// last run (see effect.Cell). The pending cleanup runs on unmount.
func UseEffect(o *Owner, fn func() effect.Cleanup, deps []any, opts ...effect.Option) {
	slot := o.useSlot(HookEffect)

	var cell *effect.Cell
	if slot != nil {
		cell = mustSlot[*effect.Cell](o, slot, HookEffect)
	} else {
		cellOpts := []effect.Option{effect.WithLogger(o.root.opts.logger)}
		cellOpts = append(cellOpts, o.root.opts.effectOpts...)
		cellOpts = append(cellOpts, effect.WithName(o.slotName()))
		cellOpts = append(cellOpts, opts...)

		cell = effect.NewCell(cellOpts...)
		o.OnCleanup(cell.Dispose)
		o.setSlot(cell)
	}

	o.queueEffect(pendingEffect{cell: cell, fn: fn, deps: deps})
}

// UseMount runs fn once after the first render.
func UseMount(o *Owner, fn func()) {
	UseEffect(o, func() effect.Cleanup {
		fn()
		return nil
	}, []any{})
}

// UseUnmount runs fn when the component is unmounted.
func UseUnmount(o *Owner, fn func()) {
	UseEffect(o, func() effect.Cleanup {
		return fn
	}, []any{})
}

func mustSlot[S any](o *Owner, slot any, ht HookType) S {
	v, ok := slot.(S)
	if !ok {
		panic(errors.New("E002").
			WithDetail(fmt.Sprintf("component %q: %s hook slot holds %T (possible conditional hook)", o.name, ht, slot)))
	}
	return v
}
