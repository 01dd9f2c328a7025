package hooks

import (
	"fmt"
	"sync"

	"github.com/vango-dev/hookstore/internal/errors"
	"github.com/vango-dev/hookstore/pkg/effect"
)

// HookType identifies the type of hook call for order validation.
type HookType uint8

const (
	HookState HookType = iota + 1
	HookGlobalState
	HookEffect
	HookRef
)

// String returns a human-readable name for the hook type.
func (h HookType) String() string {
	switch h {
	case HookState:
		return "State"
	case HookGlobalState:
		return "GlobalState"
	case HookEffect:
		return "Effect"
	case HookRef:
		return "Ref"
	default:
		return "Unknown"
	}
}

type pendingEffect struct {
	cell *effect.Cell
	fn   func() effect.Cleanup
	deps []any
}

// Owner is the per-component-instance scope that owns hook state.
// Disposing it tears down every store subscription and effect it holds.
type Owner struct {
	id   uint64
	name string
	root *Root
	fn   RenderFunc

	// Hook slot storage for stable identity across renders.
	hookSlots   []any
	hookSlotIdx int

	// Hook order recorded on the first render.
	hookOrder   []HookType
	renderCount int
	rendering   bool

	pendingEffects []pendingEffect

	cleanupsMu sync.Mutex
	cleanups   []func()

	disposedMu sync.Mutex
	disposed   bool
}

// ID returns the owner's unique identifier.
func (o *Owner) ID() uint64 {
	return o.id
}

// Name returns the component name given at mount time.
func (o *Owner) Name() string {
	return o.name
}

// RenderCount returns how many times the component has rendered.
func (o *Owner) RenderCount() int {
	return o.renderCount
}

// IsDisposed reports whether the owner has been disposed.
func (o *Owner) IsDisposed() bool {
	o.disposedMu.Lock()
	defer o.disposedMu.Unlock()
	return o.disposed
}

// OnCleanup registers fn to run when the owner is disposed. Cleanups run
// in reverse registration order. On a disposed owner fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.IsDisposed() {
		fn()
		return
	}

	o.cleanupsMu.Lock()
	defer o.cleanupsMu.Unlock()
	o.cleanups = append(o.cleanups, fn)
}

// invalidate marks the owner for re-render. It is the listener every
// store subscription of this owner registers.
func (o *Owner) invalidate() {
	if o.IsDisposed() {
		return
	}
	o.root.markDirty(o)
}

func (o *Owner) dispose() {
	o.disposedMu.Lock()
	if o.disposed {
		o.disposedMu.Unlock()
		return
	}
	o.disposed = true
	o.disposedMu.Unlock()

	o.cleanupsMu.Lock()
	cleanups := o.cleanups
	o.cleanups = nil
	o.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	o.pendingEffects = nil
}

// startRender resets the slot index for the next render pass.
func (o *Owner) startRender() {
	o.hookSlotIdx = 0
	o.rendering = true
}

// endRender validates that all expected hooks were called.
func (o *Owner) endRender() {
	o.rendering = false
	defer func() { o.renderCount++ }()

	if o.renderCount > 0 && o.hookSlotIdx < len(o.hookOrder) {
		panic(errors.New("E002").
			WithDetail(fmt.Sprintf("component %q: expected %d hooks, got %d",
				o.name, len(o.hookOrder), o.hookSlotIdx)))
	}
}

// useSlot validates the hook call and returns the stored slot value, or nil
// on the first render of this call site.
func (o *Owner) useSlot(ht HookType) any {
	if o == nil || !o.rendering {
		panic(errors.New("E001").
			WithDetail(fmt.Sprintf("Use%s called outside a render pass", ht)).
			WithCaller(2))
	}

	idx := o.hookSlotIdx
	o.hookSlotIdx++

	if o.renderCount == 0 {
		o.hookOrder = append(o.hookOrder, ht)
	} else {
		if idx >= len(o.hookOrder) {
			panic(errors.New("E002").
				WithDetail(fmt.Sprintf("component %q: extra %s hook at index %d", o.name, ht, idx)).
				WithCaller(2))
		}
		if expected := o.hookOrder[idx]; expected != ht {
			panic(errors.New("E002").
				WithDetail(fmt.Sprintf("component %q at index %d: expected %s, got %s",
					o.name, idx, expected, ht)).
				WithCaller(2))
		}
	}

	if idx < len(o.hookSlots) {
		return o.hookSlots[idx]
	}
	return nil
}

// setSlot stores the value for the slot most recently returned by useSlot.
func (o *Owner) setSlot(value any) {
	o.hookSlots = append(o.hookSlots, value)
}

func (o *Owner) slotName() string {
	return fmt.Sprintf("%s#%d", o.name, o.hookSlotIdx-1)
}

func (o *Owner) queueEffect(pe pendingEffect) {
	o.pendingEffects = append(o.pendingEffects, pe)
}

// runPendingEffects runs the effects queued by the last render in
// registration order.
func (o *Owner) runPendingEffects() {
	effects := o.pendingEffects
	o.pendingEffects = nil

	for _, pe := range effects {
		if o.IsDisposed() {
			return
		}
		pe.cell.Run(pe.fn, pe.deps)
	}
}
