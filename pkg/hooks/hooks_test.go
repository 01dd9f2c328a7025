package hooks

import (
	stderrors "errors"
	"reflect"
	"sync"
	"testing"

	"github.com/vango-dev/hookstore/internal/errors"
	"github.com/vango-dev/hookstore/pkg/effect"
	"github.com/vango-dev/hookstore/pkg/store"
)

func mustMount(t *testing.T, r *Root, name string, fn RenderFunc) *Owner {
	t.Helper()
	o, err := r.Mount(name, fn)
	if err != nil {
		t.Fatalf("Mount(%q) error: %v", name, err)
	}
	return o
}

func expectCode(t *testing.T, code string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected %s panic, got %v", code, r)
		}
		if !stderrors.Is(err, errors.New(code)) {
			t.Errorf("expected %s, got %v", code, err)
		}
	}()
	fn()
}

func TestUseStateRendersAndUpdates(t *testing.T) {
	r := NewRoot()
	var seen []int
	var set func(store.Next[int]) int

	o := mustMount(t, r, "counter", func(o *Owner) {
		count, setCount := UseState(o, store.Value(10))
		seen = append(seen, count)
		set = setCount
	})

	inc := store.Update(func(p int) int { return p + 1 })
	if err := r.Act(func() { set(inc) }); err != nil {
		t.Fatal(err)
	}
	if err := r.Act(func() { set(inc) }); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(seen, []int{10, 11, 12}) {
		t.Errorf("expected renders [10 11 12], got %v", seen)
	}
	if o.RenderCount() != 3 {
		t.Errorf("expected 3 renders, got %d", o.RenderCount())
	}
}

func TestUseStateLazyInitOnce(t *testing.T) {
	r := NewRoot()
	calls := 0
	var set func(store.Next[string]) string

	mustMount(t, r, "lazy", func(o *Owner) {
		_, set = UseState(o, store.Lazy(func() string {
			calls++
			return "init"
		}))
	})
	r.Act(func() { set(store.Set("next")) })

	if calls != 1 {
		t.Errorf("expected lazy init once, got %d", calls)
	}
}

func TestUseStatePerCallSite(t *testing.T) {
	r := NewRoot()
	var setA func(store.Next[int]) int
	var a, b int

	mustMount(t, r, "pair", func(o *Owner) {
		a, setA = UseState(o, store.Value(1))
		b, _ = UseState(o, store.Value(1))
	})
	r.Act(func() { setA(store.Set(5)) })

	if a != 5 || b != 1 {
		t.Errorf("call sites should be independent, got a=%d b=%d", a, b)
	}
}

func TestUseStatePerInstance(t *testing.T) {
	r := NewRoot()
	setters := map[string]func(store.Next[int]) int{}
	values := map[string]int{}

	component := func(name string) RenderFunc {
		return func(o *Owner) {
			v, set := UseState(o, store.Value(0))
			values[name] = v
			setters[name] = set
		}
	}
	mustMount(t, r, "one", component("one"))
	mustMount(t, r, "two", component("two"))

	r.Act(func() { setters["one"](store.Set(7)) })

	if values["one"] != 7 || values["two"] != 0 {
		t.Errorf("instances should be independent, got %v", values)
	}
}

func TestUseGlobalStateShared(t *testing.T) {
	r := NewRoot()
	shared := store.New[int](store.WithName("shared"))
	values := map[string]int{}
	var set func(store.Next[int]) int

	component := func(name string, initial int) RenderFunc {
		return func(o *Owner) {
			v, s := UseGlobalState(o, shared, store.Value(initial))
			values[name] = v
			set = s
		}
	}
	one := mustMount(t, r, "one", component("one", 1))
	mustMount(t, r, "two", component("two", 2))

	if values["two"] != 1 {
		t.Errorf("first caller's init should win, got %d", values["two"])
	}

	r.Act(func() { set(store.Set(9)) })
	if values["one"] != 9 || values["two"] != 9 {
		t.Errorf("both components should see 9, got %v", values)
	}

	r.Unmount(one)
	if shared.IsDisposed() {
		t.Error("unmount must not dispose a shared store")
	}
	if shared.Len() != 1 {
		t.Errorf("expected one remaining subscriber, got %d", shared.Len())
	}
}

func TestUseEffectGating(t *testing.T) {
	r := NewRoot()
	var events []string
	var set func(store.Next[int]) int

	mustMount(t, r, "fx", func(o *Owner) {
		count, s := UseState(o, store.Value(0))
		other, _ := UseState(o, store.Value("x"))
		set = s
		UseEffect(o, func() effect.Cleanup {
			events = append(events, "run")
			return func() { events = append(events, "cleanup") }
		}, []any{count / 2, other})
	})

	r.Act(func() { set(store.Set(1)) }) // count/2 still 0
	r.Act(func() { set(store.Set(2)) }) // count/2 becomes 1

	want := []string{"run", "cleanup", "run"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("expected %v, got %v", want, events)
	}
}

func TestUseEffectRunsAfterRender(t *testing.T) {
	r := NewRoot()
	var order []string

	mustMount(t, r, "order", func(o *Owner) {
		UseEffect(o, func() effect.Cleanup {
			order = append(order, "effect")
			return nil
		}, nil)
		order = append(order, "render")
	})

	if !reflect.DeepEqual(order, []string{"render", "effect"}) {
		t.Errorf("effects should run after render, got %v", order)
	}
}

func TestEffectSettingStateRerenders(t *testing.T) {
	r := NewRoot()
	var renders []int

	mustMount(t, r, "loader", func(o *Owner) {
		v, set := UseState(o, store.Value(0))
		renders = append(renders, v)
		UseMount(o, func() { set(store.Set(42)) })
	})

	if !reflect.DeepEqual(renders, []int{0, 42}) {
		t.Errorf("expected [0 42], got %v", renders)
	}
}

func TestUnmountRunsCleanups(t *testing.T) {
	r := NewRoot()
	var events []string
	var s *store.Store[int]

	o := mustMount(t, r, "bye", func(o *Owner) {
		s = UseStore(o, store.Value(0))
		UseEffect(o, func() effect.Cleanup {
			return func() { events = append(events, "effect-cleanup") }
		}, []any{})
		UseUnmount(o, func() { events = append(events, "unmount") })
	})

	r.Unmount(o)

	if !o.IsDisposed() {
		t.Error("owner should be disposed")
	}
	if !s.IsDisposed() {
		t.Error("per-call-site store should be disposed on unmount")
	}
	want := []string{"unmount", "effect-cleanup"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("expected reverse-order cleanups %v, got %v", want, events)
	}

	s.Set(1)
	if r.Dirty() {
		t.Error("disposed component must not be marked dirty")
	}
}

func TestUseRefPersists(t *testing.T) {
	r := NewRoot()
	var set func(store.Next[int]) int
	var refs []*Ref[int]

	mustMount(t, r, "ref", func(o *Owner) {
		_, set = UseState(o, store.Value(0))
		ref := UseRef(o, 0)
		ref.Current++
		refs = append(refs, ref)
	})
	r.Act(func() { set(store.Set(1)) })

	if refs[0] != refs[1] {
		t.Error("UseRef should return the same ref on every render")
	}
	if refs[1].Current != 2 {
		t.Errorf("expected 2, got %d", refs[1].Current)
	}
}

func TestRenderLoopLimit(t *testing.T) {
	r := NewRoot(WithMaxRerenders(5))

	_, err := r.Mount("loop", func(o *Owner) {
		v, set := UseState(o, store.Value(0))
		set(store.Set(v + 1))
	})

	if !stderrors.Is(err, errors.New("E021")) {
		t.Errorf("expected E021, got %v", err)
	}
}

func TestHookOutsideRender(t *testing.T) {
	r := NewRoot()
	var captured *Owner
	mustMount(t, r, "leak", func(o *Owner) { captured = o })

	expectCode(t, "E001", func() {
		UseState(captured, store.Value(0))
	})
}

func TestHookOrderChanged(t *testing.T) {
	r := NewRoot()
	flip := false
	var set func(store.Next[int]) int

	mustMount(t, r, "cond", func(o *Owner) {
		_, set = UseState(o, store.Value(0))
		if flip {
			UseRef(o, 0)
		} else {
			UseEffect(o, func() effect.Cleanup { return nil }, nil)
		}
	})

	flip = true
	expectCode(t, "E002", func() {
		r.Act(func() { set(store.Set(1)) })
	})
}

func TestHookCountChanged(t *testing.T) {
	r := NewRoot()
	skip := false
	var set func(store.Next[int]) int

	mustMount(t, r, "fewer", func(o *Owner) {
		_, set = UseState(o, store.Value(0))
		if !skip {
			UseRef(o, 0)
		}
	})

	skip = true
	expectCode(t, "E002", func() {
		r.Act(func() { set(store.Set(1)) })
	})
}

func TestDisposeUnmountsAll(t *testing.T) {
	r := NewRoot()
	var order []string
	for _, name := range []string{"a", "b"} {
		name := name
		mustMount(t, r, name, func(o *Owner) {
			UseUnmount(o, func() { order = append(order, name) })
		})
	}

	r.Dispose()

	if !reflect.DeepEqual(order, []string{"b", "a"}) {
		t.Errorf("expected last-mounted first, got %v", order)
	}
}

func TestRerender(t *testing.T) {
	r := NewRoot()
	renders := 0
	o := mustMount(t, r, "c", func(o *Owner) { renders++ })

	if err := r.Rerender(o); err != nil {
		t.Fatalf("Rerender error: %v", err)
	}
	if renders != 2 {
		t.Errorf("Expected 2 renders, got %d", renders)
	}

	r.Unmount(o)
	if err := r.Rerender(o); !stderrors.Is(err, errors.New("E003")) {
		t.Errorf("expected E003 after unmount, got %v", err)
	}
}

func TestSetFromOtherGoroutineMarksDirty(t *testing.T) {
	r := NewRoot()
	var s *store.Store[int]
	var last int

	mustMount(t, r, "async", func(o *Owner) {
		s = UseStore(o, store.Value(0))
		last = s.Snapshot()
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Set(3)
	}()
	wg.Wait()

	if !r.Dirty() {
		t.Fatal("expected root to be dirty")
	}
	if err := r.Flush(); err != nil {
		t.Fatal(err)
	}
	if last != 3 {
		t.Errorf("expected re-render with 3, got %d", last)
	}
}

func TestHookTypeString(t *testing.T) {
	if HookGlobalState.String() != "GlobalState" || HookType(0).String() != "Unknown" {
		t.Error("unexpected HookType strings")
	}
}
