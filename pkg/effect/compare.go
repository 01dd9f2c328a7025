package effect

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Comparer decides whether two dependency snapshots are equal. An error
// means the snapshots could not be compared; the cell treats that as a
// change.
type Comparer interface {
	Equal(prev, next []any) (bool, error)
}

// Snapshotter is implemented by comparers that compare an encoded form of
// the dependencies. Snapshot returns the form the cell keeps for the next
// Equal call; Equal must accept it as prev.
type Snapshotter interface {
	Snapshot(deps []any) ([]any, error)
}

// ComparerFunc adapts a function to the Comparer interface.
type ComparerFunc func(prev, next []any) (bool, error)

// Equal calls f.
func (f ComparerFunc) Equal(prev, next []any) (bool, error) {
	return f(prev, next)
}

// Serialized compares dependencies by their JSON encoding.
var Serialized Comparer = serialized{}

// Shallow compares dependencies pairwise: comparable values with ==,
// numbers across types as float64, slices and maps by identity.
var Shallow Comparer = shallow{}

type serialized struct{}

func (serialized) Equal(prev, next []any) (bool, error) {
	a, err := json.Marshal(prev)
	if err != nil {
		return false, err
	}
	b, err := json.Marshal(next)
	if err != nil {
		return false, err
	}
	return bytes.Equal(a, b), nil
}

// Snapshot encodes each dependency so in-place mutation of a slice or map
// after the run is seen as a change.
func (serialized) Snapshot(deps []any) ([]any, error) {
	out := make([]any, len(deps))
	for i, d := range deps {
		b, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		out[i] = json.RawMessage(b)
	}
	return out, nil
}

type shallow struct{}

func (shallow) Equal(prev, next []any) (bool, error) {
	if len(prev) != len(next) {
		return false, nil
	}
	for i := range prev {
		if !shallowEqual(prev[i], next[i]) {
			return false, nil
		}
	}
	return true, nil
}

func shallowEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	typeA := reflect.TypeOf(a)
	typeB := reflect.TypeOf(b)
	if typeA == typeB && typeA.Comparable() {
		return a == b
	}
	if fa, ok := toFloat64(a); ok {
		if fb, ok := toFloat64(b); ok {
			return fa == fb
		}
	}
	if typeA != typeB {
		return false
	}
	valA := reflect.ValueOf(a)
	valB := reflect.ValueOf(b)
	switch valA.Kind() {
	case reflect.Slice, reflect.Map:
		return valA.Pointer() == valB.Pointer() && valA.Len() == valB.Len()
	}
	// Funcs and other non-comparable values never compare equal.
	return false
}

func toFloat64(val any) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
