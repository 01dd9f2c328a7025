package snapshot

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sync"

	"github.com/vango-dev/hookstore/internal/errors"
	"github.com/vango-dev/hookstore/pkg/effect"
	"github.com/vango-dev/hookstore/pkg/store"
)

type persistOptions struct {
	logger       *slog.Logger
	writeInitial bool
	effectOpts   []effect.Option
	onError      func(error)
}

// Option configures a Persister.
type Option func(*persistOptions)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *persistOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithWriteInitial writes the store's current value when persisting
// starts. By default the current value is treated as already stored.
func WithWriteInitial(write bool) Option {
	return func(o *persistOptions) {
		o.writeInitial = write
	}
}

// WithEffectOptions passes options to the gating effect cell, for example
// an observer.
func WithEffectOptions(opts ...effect.Option) Option {
	return func(o *persistOptions) {
		o.effectOpts = append(o.effectOpts, opts...)
	}
}

// WithErrorHandler is called with every E160 write error.
func WithErrorHandler(fn func(error)) Option {
	return func(o *persistOptions) {
		o.onError = fn
	}
}

// Persister writes a store's value to a sink whenever it changes.
type Persister[T any] struct {
	ctx    context.Context
	store  *store.Store[T]
	sink   Sink
	key    string
	opts   persistOptions
	logger *slog.Logger

	mu          sync.Mutex
	cell        *effect.Cell
	writes      int
	lastErr     error
	unsubscribe func()
}

// Persist subscribes to s and writes its JSON encoding to key on every
// change. Sets that leave the encoded value unchanged are not written.
// ctx bounds every sink call.
func Persist[T any](ctx context.Context, s *store.Store[T], sink Sink, key string, opts ...Option) *Persister[T] {
	o := persistOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	cellOpts := append([]effect.Option{
		effect.WithName("persist:" + key),
		effect.WithLogger(o.logger),
		effect.WithComparer(effect.Serialized),
	}, o.effectOpts...)

	p := &Persister[T]{
		ctx:    ctx,
		store:  s,
		sink:   sink,
		key:    key,
		opts:   o,
		logger: o.logger.With("component", "snapshot", "key", key),
		cell:   effect.NewCell(cellOpts...),
	}

	if o.writeInitial {
		p.sync()
	} else {
		// Record the current value as the baseline without writing it.
		p.cell.Run(func() effect.Cleanup { return nil }, []any{s.Snapshot()})
	}

	p.unsubscribe = s.Subscribe(p.sync)
	return p
}

// Sync writes the store's current value unless it is already stored. A
// failed write is retried by the next Sync or store change, even when the
// value is the same. Sync returns the error of the last write attempt.
func (p *Persister[T]) Sync() error {
	p.sync()
	return p.Err()
}

func (p *Persister[T]) sync() {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := p.store.Snapshot()
	var err error
	p.cell.Run(func() effect.Cleanup {
		err = p.write(v)
		return nil
	}, []any{v})
	if err != nil {
		// The value is not stored; forget it so the gate lets it through.
		p.cell.Reset()
	}
}

func (p *Persister[T]) write(v T) error {
	data, err := json.Marshal(v)
	if err == nil {
		err = p.sink.Put(p.ctx, p.key, data)
	}
	if err != nil {
		p.lastErr = errors.New("E160").WithDetail(p.key).Wrap(err)
		p.logger.Error("snapshot write failed", "error", p.lastErr)
		if p.opts.onError != nil {
			p.opts.onError(p.lastErr)
		}
		return p.lastErr
	}
	p.writes++
	p.lastErr = nil
	p.logger.Debug("snapshot written", "bytes", len(data))
	return nil
}

// Writes returns the number of successful writes.
func (p *Persister[T]) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// Err returns the error of the last write, or nil if it succeeded.
func (p *Persister[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Close stops persisting. Later store changes are not written.
func (p *Persister[T]) Close() {
	p.unsubscribe()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cell.Dispose()
}

// Restore reads key from sink and decodes it. It returns ErrNotFound when
// the key does not exist and E161 for any other failure.
func Restore[T any](ctx context.Context, sink Sink, key string) (T, error) {
	var v T
	data, err := sink.Get(ctx, key)
	if stderrors.Is(err, ErrNotFound) {
		return v, ErrNotFound
	}
	if err != nil {
		return v, errors.New("E161").WithDetail(key).Wrap(err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.New("E161").WithDetail(key).Wrap(err)
	}
	return v, nil
}
