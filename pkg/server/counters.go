package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/vango-dev/hookstore/internal/errors"
	"github.com/vango-dev/hookstore/pkg/effect"
	"github.com/vango-dev/hookstore/pkg/snapshot"
	"github.com/vango-dev/hookstore/pkg/store"
)

// namePattern restricts counter names to safe snapshot keys.
const namePattern = "^[A-Za-z0-9_-]{1,64}$"

var nameRE = regexp.MustCompile(namePattern)

// ValidName reports whether name can be used as a counter name.
func ValidName(name string) bool {
	return nameRE.MatchString(name)
}

// Counters owns the named counter stores and their persisters.
type Counters struct {
	registry *store.Registry
	sink     snapshot.Sink
	prefix   string
	logger   *slog.Logger

	persistOpts []snapshot.Option

	mu         sync.Mutex
	persisters map[string]*snapshot.Persister[int64]
	closed     bool
}

// NewCounters creates an empty counter set. sink may be nil.
func NewCounters(cfg *Config) *Counters {
	cfg = cfg.withDefaults()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	storeOpts := []store.Option{store.WithLogger(logger)}
	effectOpts := []effect.Option{effect.WithComparer(cfg.Comparer)}
	if cfg.Observer != nil {
		storeOpts = append(storeOpts, store.WithObserver(cfg.Observer))
		effectOpts = append(effectOpts, effect.WithObserver(cfg.Observer))
	}

	return &Counters{
		registry: store.NewRegistry(storeOpts...),
		sink:     cfg.Sink,
		prefix:   cfg.SnapshotPrefix,
		logger:   logger.With("component", "counters"),
		persistOpts: []snapshot.Option{
			snapshot.WithLogger(logger),
			snapshot.WithEffectOptions(effectOpts...),
		},
		persisters: make(map[string]*snapshot.Persister[int64]),
	}
}

// Get returns an existing counter.
func (c *Counters) Get(name string) (*store.Store[int64], bool) {
	return store.Get[int64](c.registry, name)
}

// Ensure returns the counter called name, creating it if needed. A new
// counter starts from its stored snapshot, or from initial if none exists.
func (c *Counters) Ensure(ctx context.Context, name string, initial int64) (*store.Store[int64], error) {
	if !ValidName(name) {
		return nil, errors.Newf(errors.CategoryState, "invalid counter name %q", name)
	}
	if s, ok := c.Get(name); ok {
		return s, nil
	}

	value := initial
	if c.sink != nil {
		restored, err := snapshot.Restore[int64](ctx, c.sink, snapshot.Key(c.prefix, name))
		switch {
		case err == nil:
			value = restored
		case stderrors.Is(err, snapshot.ErrNotFound):
		default:
			return nil, err
		}
	}

	s := store.Lookup(c.registry, name, store.Value(value))
	c.attach(name, s)
	return s, nil
}

func (c *Counters) attach(name string, s *store.Store[int64]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if _, ok := c.persisters[name]; ok {
		return
	}

	s.WithEquals(func(a, b int64) bool { return a == b })
	if c.sink != nil {
		// Persisters outlive any single request.
		c.persisters[name] = snapshot.Persist(context.Background(), s, c.sink, snapshot.Key(c.prefix, name), c.persistOpts...)
	} else {
		c.persisters[name] = nil
	}
	c.logger.Debug("counter created", "counter", name, "value", s.Snapshot())
}

// Seed creates each counter that does not exist yet.
func (c *Counters) Seed(ctx context.Context, initial map[string]int64) error {
	names := make([]string, 0, len(initial))
	for name := range initial {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := c.Ensure(ctx, name, initial[name]); err != nil {
			return err
		}
	}
	return nil
}

// Restore creates a counter for every snapshot in the sink.
func (c *Counters) Restore(ctx context.Context) (int, error) {
	if c.sink == nil {
		return 0, nil
	}
	keys, err := c.sink.List(ctx, c.prefix)
	if err != nil {
		return 0, errors.New("E161").WithDetail("list " + c.prefix).Wrap(err)
	}

	n := 0
	for _, key := range keys {
		name := strings.TrimSuffix(strings.TrimPrefix(key, c.prefix), ".json")
		if !ValidName(name) {
			continue
		}
		if _, err := c.Ensure(ctx, name, 0); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Sync retries the snapshot write of name if its stored value is behind.
// Equal sets do not notify the persister, so mutating handlers call Sync.
func (c *Counters) Sync(name string) error {
	c.mu.Lock()
	p := c.persisters[name]
	c.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Sync()
}

// Flush syncs every counter and returns the first write error.
func (c *Counters) Flush() error {
	c.mu.Lock()
	persisters := make([]*snapshot.Persister[int64], 0, len(c.persisters))
	for _, p := range c.persisters {
		if p != nil {
			persisters = append(persisters, p)
		}
	}
	c.mu.Unlock()

	var first error
	for _, p := range persisters {
		if err := p.Sync(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Names returns the counter names in sorted order.
func (c *Counters) Names() []string {
	return c.registry.Keys()
}

// Close flushes pending snapshot writes, stops persistence and disposes
// every counter.
func (c *Counters) Close() {
	if err := c.Flush(); err != nil {
		c.logger.Error("final snapshot flush failed", "error", err)
	}

	c.mu.Lock()
	c.closed = true
	persisters := c.persisters
	c.persisters = map[string]*snapshot.Persister[int64]{}
	c.mu.Unlock()

	for _, p := range persisters {
		if p != nil {
			p.Close()
		}
	}
	c.registry.Dispose()
}
