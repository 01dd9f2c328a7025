package snapshot

import (
	"context"
	stderrors "errors"
)

// ErrNotFound is returned by Sink.Get when no value is stored under a key.
var ErrNotFound = stderrors.New("snapshot: not found")

// Sink stores opaque snapshot payloads by key. Keys use forward slashes.
type Sink interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Key returns the object key for a store name: prefix + name + ".json".
func Key(prefix, name string) string {
	return prefix + name + ".json"
}
