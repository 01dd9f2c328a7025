package hooks

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/hookstore/internal/errors"
)

// RenderFunc renders one component. All hooks must be called on o, in the
// same order on every render.
type RenderFunc func(o *Owner)

// DefaultMaxRerenders bounds the passes a single Flush makes.
const DefaultMaxRerenders = 25

var idCounter atomic.Uint64

func nextID() uint64 {
	return idCounter.Add(1)
}

// Root mounts components and re-renders the ones whose stores changed.
// Rendering happens on the goroutine that calls Mount, Flush or Act; store
// listeners may fire from any goroutine and only mark components dirty.
type Root struct {
	opts options

	mu      sync.Mutex
	mounted []*Owner
	dirty   map[uint64]bool

	flushing atomic.Bool
}

// NewRoot creates a root with no mounted components.
func NewRoot(opts ...Option) *Root {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Root{
		opts:  o,
		dirty: make(map[uint64]bool),
	}
}

// Logger returns the root's logger.
func (r *Root) Logger() *slog.Logger {
	return r.opts.logger
}

// Mount creates an owner for fn, renders it once, runs its effects and
// flushes any updates they caused.
func (r *Root) Mount(name string, fn RenderFunc) (*Owner, error) {
	o := &Owner{
		id:   nextID(),
		name: name,
		root: r,
		fn:   fn,
	}

	r.mu.Lock()
	r.mounted = append(r.mounted, o)
	r.dirty[o.id] = true
	r.mu.Unlock()

	r.opts.logger.Debug("component mounted", "component", name, "id", o.id)
	return o, r.Flush()
}

// Unmount disposes o: store subscriptions are removed and every pending
// effect cleanup runs.
func (r *Root) Unmount(o *Owner) {
	r.mu.Lock()
	for i, m := range r.mounted {
		if m == o {
			r.mounted = append(r.mounted[:i], r.mounted[i+1:]...)
			break
		}
	}
	delete(r.dirty, o.id)
	r.mu.Unlock()

	o.dispose()
	r.opts.logger.Debug("component unmounted", "component", o.name, "id", o.id)
}

// Dispose unmounts every component, last mounted first.
func (r *Root) Dispose() {
	r.mu.Lock()
	mounted := append([]*Owner(nil), r.mounted...)
	r.mu.Unlock()

	for i := len(mounted) - 1; i >= 0; i-- {
		r.Unmount(mounted[i])
	}
}

// Act runs fn, typically an event handler that sets state, then flushes.
func (r *Root) Act(fn func()) error {
	fn()
	return r.Flush()
}

// Rerender schedules o for another render and flushes. It returns E003 if
// o has been unmounted.
func (r *Root) Rerender(o *Owner) error {
	if o.IsDisposed() {
		return errors.New("E003").WithDetail(o.name)
	}
	r.markDirty(o)
	return r.Flush()
}

// Dirty reports whether any component is waiting to re-render.
func (r *Root) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dirty) > 0
}

func (r *Root) markDirty(o *Owner) {
	r.mu.Lock()
	r.dirty[o.id] = true
	r.mu.Unlock()
}

// takeDirty returns the dirty owners in mount order and clears the set.
func (r *Root) takeDirty() []*Owner {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.dirty) == 0 {
		return nil
	}
	var out []*Owner
	for _, o := range r.mounted {
		if r.dirty[o.id] {
			out = append(out, o)
		}
	}
	r.dirty = make(map[uint64]bool)
	return out
}

// Flush re-renders dirty components and runs their effects until no
// component is dirty. It returns E021 if that takes more than the
// configured number of passes. A nested Flush (from inside a render or an
// effect) returns immediately; the outer Flush picks up the work.
func (r *Root) Flush() error {
	if !r.flushing.CompareAndSwap(false, true) {
		return nil
	}
	defer r.flushing.Store(false)

	for pass := 1; ; pass++ {
		owners := r.takeDirty()
		if len(owners) == 0 {
			return nil
		}
		if pass > r.opts.maxRerenders {
			return errors.New("E021").
				WithDetail(fmt.Sprintf("still dirty after %d passes: %s", r.opts.maxRerenders, names(owners)))
		}

		for _, o := range owners {
			if o.IsDisposed() {
				continue
			}
			r.render(o)
		}
		for _, o := range owners {
			o.runPendingEffects()
		}
	}
}

func (r *Root) render(o *Owner) {
	o.startRender()
	defer o.endRender()

	o.fn(o)
	r.opts.logger.Debug("component rendered", "component", o.name, "render", o.renderCount+1)
}

func names(owners []*Owner) string {
	out := make([]string, len(owners))
	for i, o := range owners {
		out[i] = o.name
	}
	return strings.Join(out, ", ")
}
