package effect

import (
	"log/slog"

	"github.com/vango-dev/hookstore/internal/errors"
)

// Cleanup is returned by an effect callback. It runs before the callback
// runs again and when the cell is disposed.
type Cleanup func()

// State is the lifecycle state of a Cell.
type State uint8

const (
	StateUninitialized State = iota
	StateRan
	StateTornDown
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRan:
		return "ran"
	case StateTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

// Reason explains why a callback ran.
type Reason uint8

const (
	ReasonMount Reason = iota + 1
	ReasonNoDeps
	ReasonDepsChanged
)

// String returns a human-readable name for the reason.
func (r Reason) String() string {
	switch r {
	case ReasonMount:
		return "mount"
	case ReasonNoDeps:
		return "no_deps"
	case ReasonDepsChanged:
		return "deps_changed"
	default:
		return "unknown"
	}
}

// Observer receives effect lifecycle events. EffectStarted returns a
// function called when the callback finishes; it may be nil. done receives
// an E041 error if the callback panicked.
type Observer interface {
	EffectStarted(name string, reason Reason) (done func(err error))
	EffectSkipped(name string)
	CleanupRan(name string)
}

// Cell is the state of one dependency-gated effect registration.
// A Cell is not safe for concurrent use; the host serializes calls.
type Cell struct {
	state    State
	lastDeps []any
	cleanup  Cleanup

	// snapshot is what the comparer checks the next deps against. It is
	// taken when the callback runs, so later in-place mutation of the
	// caller's deps does not change it.
	snapshot []any

	name     string
	comparer Comparer
	logger   *slog.Logger
	observer Observer
}

// NewCell creates a cell in the uninitialized state.
func NewCell(opts ...Option) *Cell {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Cell{
		name:     o.name,
		comparer: o.comparer,
		logger:   o.logger,
		observer: o.observer,
	}
}

// Run invokes fn if this is the first run, if deps is nil, or if deps
// differs from the dependencies of the previous run. Before a re-run the
// previous Cleanup is called. Run reports whether fn ran.
//
// If fn panics the panic propagates; the previous Cleanup has already run
// and the recorded dependencies are left unchanged, so the next Run retries.
// Run on a disposed cell does nothing.
func (c *Cell) Run(fn func() Cleanup, deps []any) bool {
	reason, run := c.shouldRun(deps)
	if !run {
		if c.observer != nil && c.state == StateRan {
			c.observer.EffectSkipped(c.name)
		}
		return false
	}

	c.runCleanup()

	if c.observer != nil {
		if done := c.observer.EffectStarted(c.name, reason); done != nil {
			completed := false
			defer func() {
				if completed {
					done(nil)
					return
				}
				done(errors.New("E041").WithDetail(c.name))
			}()
			c.invoke(fn, deps)
			completed = true
			return true
		}
	}

	c.invoke(fn, deps)
	return true
}

func (c *Cell) invoke(fn func() Cleanup, deps []any) {
	snapshot := c.takeSnapshot(deps)
	c.cleanup = fn()
	c.lastDeps = copyDeps(deps)
	c.snapshot = snapshot
	c.state = StateRan
}

// takeSnapshot asks the comparer for a stable copy of deps. Comparers that
// do not implement Snapshotter get a shallow copy.
func (c *Cell) takeSnapshot(deps []any) []any {
	sn, ok := c.comparer.(Snapshotter)
	if !ok || deps == nil {
		return copyDeps(deps)
	}
	snap, err := sn.Snapshot(deps)
	if err != nil {
		// Equal reports the same error on the next run, which re-runs.
		return copyDeps(deps)
	}
	return snap
}

func (c *Cell) shouldRun(deps []any) (Reason, bool) {
	switch {
	case c.state == StateTornDown:
		return 0, false
	case c.state == StateUninitialized:
		return ReasonMount, true
	case deps == nil:
		return ReasonNoDeps, true
	case c.snapshot == nil:
		return ReasonDepsChanged, true
	}

	equal, err := c.comparer.Equal(c.snapshot, deps)
	if err != nil {
		c.logger.Warn("effect dependencies not comparable, re-running",
			"effect", c.name,
			"error", errors.New("E040").Wrap(err))
		return ReasonDepsChanged, true
	}
	if equal {
		return 0, false
	}
	return ReasonDepsChanged, true
}

func (c *Cell) runCleanup() {
	if c.cleanup == nil {
		return
	}
	cleanup := c.cleanup
	c.cleanup = nil
	cleanup()
	if c.observer != nil {
		c.observer.CleanupRan(c.name)
	}
}

// Dispose runs the pending Cleanup, if any, and moves the cell to the
// terminal torn-down state. Calling Dispose again does nothing.
func (c *Cell) Dispose() {
	if c.state == StateTornDown {
		return
	}
	c.state = StateTornDown
	c.runCleanup()
	c.lastDeps = nil
	c.snapshot = nil
}

// Reset forgets the recorded dependencies so the next Run calls fn
// regardless of deps. The pending Cleanup is kept. Reset on a disposed or
// never-run cell does nothing.
func (c *Cell) Reset() {
	if c.state != StateRan {
		return
	}
	c.lastDeps = nil
	c.snapshot = nil
}

// State returns the cell's lifecycle state.
func (c *Cell) State() State {
	return c.state
}

// Deps returns a copy of the dependencies recorded by the last run.
func (c *Cell) Deps() []any {
	return copyDeps(c.lastDeps)
}

// HasCleanup reports whether a Cleanup is pending.
func (c *Cell) HasCleanup() bool {
	return c.cleanup != nil
}

// Name returns the cell's name.
func (c *Cell) Name() string {
	return c.name
}

// copyDeps keeps nil and empty distinct.
func copyDeps(deps []any) []any {
	if deps == nil {
		return nil
	}
	out := make([]any, len(deps))
	copy(out, deps)
	return out
}
