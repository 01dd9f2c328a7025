package hooks

import (
	"log/slog"

	"github.com/vango-dev/hookstore/pkg/effect"
	"github.com/vango-dev/hookstore/pkg/store"
)

type options struct {
	maxRerenders int
	logger       *slog.Logger
	storeOpts    []store.Option
	effectOpts   []effect.Option
}

func defaultOptions() options {
	return options{
		maxRerenders: DefaultMaxRerenders,
		logger:       slog.Default().With("component", "hooks"),
	}
}

// Option configures a Root.
type Option func(*options)

// WithMaxRerenders sets how many render passes a Flush may make.
func WithMaxRerenders(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRerenders = n
		}
	}
}

// WithLogger sets the root logger. Stores and effects created by hooks
// inherit it unless their own options override it.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStoreOptions adds options applied to every store created by UseState.
func WithStoreOptions(opts ...store.Option) Option {
	return func(o *options) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// WithEffectOptions adds options applied to every cell created by UseEffect.
func WithEffectOptions(opts ...effect.Option) Option {
	return func(o *options) {
		o.effectOpts = append(o.effectOpts, opts...)
	}
}
