// Package store provides an external value store: one value, a listener
// list and init-once semantics, read through a stable snapshot function.
//
// A Store decouples "current value" from whatever renders it. Hosts read
// the value with Snapshot and register a re-render trigger with Subscribe;
// any code holding the store may mutate it with SetState, which notifies
// every listener synchronously, in subscription order, before returning.
//
// Usage:
//
//	count := store.New[int]()
//	count.InitIfNeeded(store.Value(10))
//
//	unsubscribe := count.Subscribe(func() {
//	    fmt.Println("count is now", count.Snapshot())
//	})
//	defer unsubscribe()
//
//	count.SetState(store.Update(func(p int) int { return p + 1 }))
//	count.SetState(store.Set(0))
//
// Initial values and next values are tagged unions (Init and Next) rather
// than "maybe a function" values: Value/Lazy for the former, Set/Update for
// the latter.
//
// Updating an uninitialized store passes the zero value of T to the updater.
// Stores built with WithUninitializedPolicy(RejectUninitialized) panic with
// error E031 instead.
package store
