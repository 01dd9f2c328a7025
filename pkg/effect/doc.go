// Package effect implements dependency-gated effects: a callback that runs
// on first use, re-runs only when its dependency snapshot changes, and whose
// returned Cleanup runs before the next run and at teardown.
//
// A Cell holds the state of one effect registration:
//
//	cell := effect.NewCell(effect.WithName("ticker"))
//	defer cell.Dispose()
//
//	for _, interval := range intervals {
//	    cell.Run(func() effect.Cleanup {
//	        t := time.NewTicker(interval)
//	        return t.Stop
//	    }, []any{interval})
//	}
//
// Passing nil dependencies re-runs the callback on every Run. An empty,
// non-nil slice runs it once.
//
// Dependency comparison is pluggable. Serialized (the default) compares the
// JSON encoding of the dependencies, so two slices with equal contents are
// unchanged even when they are different slices. Shallow compares pairwise
// with ==, treating slices and maps by identity.
package effect
