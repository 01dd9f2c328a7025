// Package hooks is a small host rendering layer for the store and effect
// primitives.
//
// A Root mounts components. Each component gets an Owner that persists
// hook state across renders in call-order slots. Stores created by
// UseState subscribe the owner, so any SetState marks the component dirty
// and the next Flush re-renders it. Effects registered with UseEffect run
// after the render pass, gated on their dependencies.
//
//	root := hooks.NewRoot()
//	root.Mount("counter", func(o *hooks.Owner) {
//	    count, setCount := hooks.UseState(o, store.Value(10))
//	    hooks.UseEffect(o, func() effect.Cleanup {
//	        fmt.Println("count changed:", count)
//	        return nil
//	    }, []any{count})
//	    inc = func() { setCount(store.Update(func(p int) int { return p + 1 })) }
//	})
//	root.Act(inc)
//
// UseState gives every call site of every component instance its own
// store. UseGlobalState subscribes to a store the caller owns, so every
// component using it shares one value.
package hooks
